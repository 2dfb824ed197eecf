// Package ethtest provides an in-memory chain backend for tests.
package ethtest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Method names accepted by Fail and Calls.
const (
	MethodBalanceAt          = "BalanceAt"
	MethodNonceAt            = "NonceAt"
	MethodPendingNonceAt     = "PendingNonceAt"
	MethodHeaderByNumber     = "HeaderByNumber"
	MethodTransactionReceipt = "TransactionReceipt"
	MethodCallContract       = "CallContract"
	MethodChainID            = "ChainID"
	MethodSendTransaction    = "SendTransaction"
)

// ErrUnreachable is a transport-style failure for injecting network errors.
var ErrUnreachable = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")

// Backend is a tiny single-node chain. Sent transactions are mined
// immediately unless ManualMine is set, after which Mine must be called.
type Backend struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	BlockTime    uint64
	ManualMine   bool

	// ReceiptDelay is the number of receipt polls answered with NotFound
	// before a mined receipt is returned.
	ReceiptDelay int
	// RevertAll makes every mined transaction fail with status 0.
	RevertAll bool
	// CallHandler answers CallContract; nil returns empty data.
	CallHandler func(msg ethereum.CallMsg) ([]byte, error)

	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	pending  map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	polls    map[common.Hash]int
	queued   []*types.Transaction
	sent     []*types.Transaction
	failures map[string][]error
	calls    map[string]int
	closed   bool
}

// NewBackend creates a backend for the given chain ID at block time 1000.
func NewBackend(chainID int64) *Backend {
	return &Backend{
		ChainIDValue: big.NewInt(chainID),
		BlockTime:    1000,
		balances:     make(map[common.Address]*big.Int),
		nonces:       make(map[common.Address]uint64),
		pending:      make(map[common.Address]uint64),
		receipts:     make(map[common.Hash]*types.Receipt),
		polls:        make(map[common.Hash]int),
		failures:     make(map[string][]error),
		calls:        make(map[string]int),
	}
}

// SetBalance sets an account balance.
func (b *Backend) SetBalance(addr common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = new(big.Int).Set(wei)
}

// SetNonce sets the mined and pending transaction count of an account.
func (b *Backend) SetNonce(addr common.Address, n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces[addr] = n
	b.pending[addr] = n
}

// SetBlockTime sets the latest block timestamp.
func (b *Backend) SetBlockTime(ts uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.BlockTime = ts
}

// Fail queues errors returned by successive calls to method.
func (b *Backend) Fail(method string, errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method] = append(b.failures[method], errs...)
}

// Calls returns how many times method was invoked.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// Sent returns the transactions broadcast so far.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Mine executes all queued transactions.
func (b *Backend) Mine() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tx := range b.queued {
		b.execute(tx)
	}
	b.queued = nil
}

// enter records a call and pops the next injected failure.
func (b *Backend) enter(method string) error {
	b.calls[method]++
	if q := b.failures[method]; len(q) > 0 {
		b.failures[method] = q[1:]
		return q[0]
	}
	return nil
}

// BalanceAt returns the balance of account.
func (b *Backend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(MethodBalanceAt); err != nil {
		return nil, err
	}
	if v, ok := b.balances[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// NonceAt returns the mined transaction count of account.
func (b *Backend) NonceAt(_ context.Context, account common.Address, _ *big.Int) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(MethodNonceAt); err != nil {
		return 0, err
	}
	return b.nonces[account], nil
}

// PendingNonceAt returns the next nonce including queued transactions.
func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(MethodPendingNonceAt); err != nil {
		return 0, err
	}
	return b.pending[account], nil
}

// HeaderByNumber returns a header carrying the latest block time.
func (b *Backend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(MethodHeaderByNumber); err != nil {
		return nil, err
	}
	return &types.Header{Number: big.NewInt(1), Time: b.BlockTime}, nil
}

// TransactionReceipt returns a mined receipt or ethereum.NotFound.
func (b *Backend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(MethodTransactionReceipt); err != nil {
		return nil, err
	}
	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if b.polls[txHash] < b.ReceiptDelay {
		b.polls[txHash]++
		return nil, ethereum.NotFound
	}
	return r, nil
}

// CallContract delegates to CallHandler.
func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	handler := b.CallHandler
	err := b.enter(MethodCallContract)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if handler == nil {
		return []byte{}, nil
	}
	return handler(msg)
}

// ChainID returns the configured chain ID.
func (b *Backend) ChainID(_ context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(MethodChainID); err != nil {
		return nil, err
	}
	return new(big.Int).Set(b.ChainIDValue), nil
}

// SendTransaction records a signed transaction and mines it unless ManualMine is set.
func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(MethodSendTransaction); err != nil {
		return err
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}
	if tx.Nonce() != b.pending[from] {
		return errors.New("nonce too low or too high")
	}
	b.pending[from]++
	b.sent = append(b.sent, tx)
	if b.ManualMine {
		b.queued = append(b.queued, tx)
		return nil
	}
	b.execute(tx)
	return nil
}

// execute applies a transaction and records its receipt. Callers hold mu.
func (b *Backend) execute(tx *types.Transaction) {
	from, _ := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	b.nonces[from] = tx.Nonce() + 1

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: big.NewInt(1),
	}
	if b.RevertAll {
		receipt.Status = types.ReceiptStatusFailed
		b.receipts[tx.Hash()] = receipt
		return
	}

	target := tx.To()
	if target == nil {
		addr := crypto.CreateAddress(from, tx.Nonce())
		receipt.ContractAddress = addr
		target = &addr
	}
	if v := tx.Value(); v != nil && v.Sign() > 0 {
		fromBal := b.balances[from]
		if fromBal == nil {
			fromBal = big.NewInt(0)
		}
		b.balances[from] = new(big.Int).Sub(fromBal, v)
		toBal := b.balances[*target]
		if toBal == nil {
			toBal = big.NewInt(0)
		}
		b.balances[*target] = new(big.Int).Add(toBal, v)
	}
	b.receipts[tx.Hash()] = receipt
}

// AddReceipt stores a receipt for a hash that was not sent through the backend.
func (b *Backend) AddReceipt(r *types.Receipt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipts[r.TxHash] = r
}

// Close marks the backend closed.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
