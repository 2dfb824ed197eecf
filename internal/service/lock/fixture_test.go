package lock

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/chain/eth/ethtest"
	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	"github.com/mrz1836/timelock/internal/contract"
	"github.com/mrz1836/timelock/internal/wallet"
)

const (
	devKeyHex    = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testChainID  = 31337
	fakeBytecode = "0x6080604052"
)

var (
	devAddress   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	otherAddress = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	fixedNow     = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rpcRejection = rpc.Error{Code: rpc.CodeUserRejected, Message: "User denied transaction signature."}
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func newTestLock(t *testing.T) *contract.Lock {
	t.Helper()
	lock, err := contract.NewLock(&contract.Artifact{ContractName: "Lock", Bytecode: fakeBytecode})
	require.NoError(t, err)
	return lock
}

func testBuilderConfig() BuilderConfig {
	return BuilderConfig{
		GasLimit:          300000,
		GasPrice:          big.NewInt(766184446),
		ChainID:           testChainID,
		DeployNonceOffset: 1,
	}
}

func fastPolicy(attempts int) chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

// fixture is a service over an in-memory chain with a keyed wallet for the
// dev account. Sends go through a scriptedProvider so tests can inject
// provider failures.
type fixture struct {
	svc      *Service
	backend  *ethtest.Backend
	client   *eth.Client
	provider *scriptedProvider
	recorder *fakeRecorder
	lock     *contract.Lock
}

type fixtureOption func(*Config)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	backend := ethtest.NewBackend(testChainID)
	backend.SetBalance(devAddress, ether(100))
	policy := fastPolicy(1)
	client, err := eth.NewClient("http://localhost:8545", &eth.ClientOptions{
		Backend:     backend,
		RateLimiter: chain.NewRateLimiter(0, 0),
		Retry:       &policy,
	})
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(devKeyHex)
	require.NoError(t, err)
	provider := &scriptedProvider{inner: wallet.NewKeyedProvider(key, client, wallet.AutoApprove)}
	recorder := newFakeRecorder()
	lock := newTestLock(t)

	cfg := &Config{
		Provider:  provider,
		Chain:     client,
		Lock:      lock,
		Builder:   testBuilderConfig(),
		Submitter: SubmitterConfig{ReceiptPolicy: fastPolicy(3), ConfirmCalls: true},
		Metrics:   recorder,
		Now:       func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := NewService(cfg)
	require.NoError(t, err)
	return &fixture{svc: svc, backend: backend, client: client, provider: provider, recorder: recorder, lock: lock}
}

// deployed runs a successful deployment and returns the resulting session.
func (f *fixture) deployed(t *testing.T) Session {
	t.Helper()
	session, outcome, err := f.svc.Deploy(context.Background(), NewSession("localhost", testChainID), LockRequest{
		UnlockTimestamp: 2000,
		AmountWei:       ether(1),
	})
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)
	return session
}

// scriptedProvider delegates to a real provider but can fail sends and
// records what was submitted.
type scriptedProvider struct {
	inner wallet.Provider

	mu      sync.Mutex
	sendErr []error
	sent    []rpc.TxRequest
}

func (p *scriptedProvider) failNext(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendErr = append(p.sendErr, errs...)
}

func (p *scriptedProvider) requests() []rpc.TxRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]rpc.TxRequest(nil), p.sent...)
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if method == wallet.MethodSendTransaction && len(params) == 1 {
		p.mu.Lock()
		if req, ok := params[0].(rpc.TxRequest); ok {
			p.sent = append(p.sent, req)
		}
		var err error
		if len(p.sendErr) > 0 {
			err, p.sendErr = p.sendErr[0], p.sendErr[1:]
		}
		p.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return p.inner.Request(ctx, method, params...)
}

// fakeRecorder captures metrics calls.
type fakeRecorder struct {
	mu         sync.Mutex
	operations map[string]int
	refreshes  int
	failed     int
	balances   map[string]*big.Int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{operations: make(map[string]int), balances: make(map[string]*big.Int)}
}

func (r *fakeRecorder) RecordOperation(operation, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation+"/"+result]++
}

func (r *fakeRecorder) RecordRefresh(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	if err != nil {
		r.failed++
	}
}

func (r *fakeRecorder) SetBalance(holder string, wei *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[holder] = new(big.Int).Set(wei)
}

func (r *fakeRecorder) count(operation, result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operations[operation+"/"+result]
}

func (r *fakeRecorder) balance(holder string) *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[holder]
}

// countSource is a fixed transaction count.
type countSource uint64

func (c countSource) TransactionCount(context.Context, common.Address) (uint64, error) {
	return uint64(c), nil
}
