package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Provider methods used by the lock workflow.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSendTransaction = "eth_sendTransaction"
)

// Provider is an EIP-1193 style request channel to a wallet.
// Rejections are returned as *rpc.Error values carrying the provider's code.
type Provider interface {
	Name() string
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Accounts requests account access and decodes the address list.
func Accounts(ctx context.Context, p Provider, method string) ([]common.Address, error) {
	result, err := p.Request(ctx, method)
	if err != nil {
		return nil, err
	}

	var addrs []common.Address
	if err := json.Unmarshal(result, &addrs); err != nil {
		return nil, tlerr.WithCause(rpc.ErrRPCResponse, fmt.Errorf("parsing accounts: %w", err))
	}
	return addrs, nil
}

// SendTransaction submits tx through eth_sendTransaction and returns its hash.
func SendTransaction(ctx context.Context, p Provider, tx rpc.TxRequest) (common.Hash, error) {
	result, err := p.Request(ctx, MethodSendTransaction, tx)
	if err != nil {
		return common.Hash{}, err
	}
	return rpc.ParseHash(result)
}
