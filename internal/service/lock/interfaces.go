package lock

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/timelock/internal/chain"
)

// ChainReader is the read side of the network endpoint.
// Satisfied by *eth.Client.
type ChainReader interface {
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	LatestBlockTimestamp(ctx context.Context) (uint64, error)
	TransactionCount(ctx context.Context, address common.Address) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// ReceiptWaiter polls for a mined receipt. Satisfied by *eth.Client.
type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, hash common.Hash, policy chain.RetryConfig) (*types.Receipt, error)
}

// NonceSource reports an account's transaction count.
type NonceSource interface {
	TransactionCount(ctx context.Context, address common.Address) (uint64, error)
}

// Connector requests wallet account access. Satisfied by *wallet.Connector.
type Connector interface {
	Connect(ctx context.Context) (common.Address, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// dumper is implemented by loggers that can pretty-print values.
type dumper interface {
	Dump(label string, v any)
}

// Recorder receives workflow metrics. Satisfied by *metrics.Metrics.
type Recorder interface {
	RecordOperation(operation string, result string)
	RecordRefresh(err error)
	SetBalance(holder string, wei *big.Int)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string) {}
func (nopRecorder) RecordRefresh(error)            {}
func (nopRecorder) SetBalance(string, *big.Int)    {}
