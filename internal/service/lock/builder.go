package lock

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/contract"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// BuilderConfig holds the fixed parameters attached to every transaction.
type BuilderConfig struct {
	GasLimit          uint64
	GasPrice          *big.Int
	ChainID           int64
	DeployNonceOffset uint64 // added to the managed nonce of deployments
}

// Builder turns operations into transaction intents. Nonces are handed out
// through a NonceManager so two builds never reuse one.
type Builder struct {
	cfg     BuilderConfig
	gas     eth.GasParams
	lock    *contract.Lock
	counter NonceSource
	nonces  *eth.NonceManager
}

// NewBuilder validates cfg and returns a builder.
func NewBuilder(cfg BuilderConfig, lock *contract.Lock, counter NonceSource) (*Builder, error) {
	gas, err := eth.NewGasParams(cfg.GasLimit, cfg.GasPrice)
	if err != nil {
		return nil, err
	}
	if cfg.ChainID <= 0 {
		return nil, tlerr.WithDetails(tlerr.ErrInvalidChainID, map[string]string{"chain_id": fmt.Sprint(cfg.ChainID)})
	}
	if lock == nil {
		return nil, tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{"reason": "no contract codec"})
	}
	return &Builder{
		cfg:     cfg,
		gas:     gas,
		lock:    lock,
		counter: counter,
		nonces:  eth.NewNonceManager(),
	}, nil
}

// Deploy builds a contract creation carrying the unlock time as the
// constructor argument and the amount as value.
func (b *Builder) Deploy(ctx context.Context, from common.Address, req LockRequest) (TransactionIntent, error) {
	if err := req.Validate(); err != nil {
		return TransactionIntent{}, err
	}

	data, err := b.lock.EncodeDeploy(req.UnlockTimestamp)
	if err != nil {
		return TransactionIntent{}, err
	}
	nonce, err := b.nextNonce(ctx, from, b.cfg.DeployNonceOffset)
	if err != nil {
		return TransactionIntent{}, err
	}

	return b.intent(OpDeploy, from, nil, new(big.Int).Set(req.AmountWei), data, nonce), nil
}

// Unlock builds a call to unlock() on the session's contract.
func (b *Builder) Unlock(ctx context.Context, from common.Address, session Session) (TransactionIntent, error) {
	return b.call(ctx, OpUnlock, contract.MethodUnlock, from, session)
}

// Withdraw builds a call to withdraw() on the session's contract.
func (b *Builder) Withdraw(ctx context.Context, from common.Address, session Session) (TransactionIntent, error) {
	return b.call(ctx, OpWithdraw, contract.MethodWithdraw, from, session)
}

func (b *Builder) call(ctx context.Context, op Operation, method string, from common.Address, session Session) (TransactionIntent, error) {
	if !session.HasContract() {
		return TransactionIntent{}, tlerr.WithDetails(tlerr.ErrNoDeployedContract, map[string]string{
			"operation": op.String(),
			"network":   session.Network,
		})
	}

	data, err := b.lock.EncodeCall(method)
	if err != nil {
		return TransactionIntent{}, err
	}
	nonce, err := b.nextNonce(ctx, from, 0)
	if err != nil {
		return TransactionIntent{}, err
	}

	to := session.Contract.Address
	return b.intent(op, from, &to, new(big.Int), data, nonce), nil
}

// nextNonce reserves the next nonce of from, at least count+offset. The
// manager records the reservation so later builds come after it.
func (b *Builder) nextNonce(ctx context.Context, from common.Address, offset uint64) (uint64, error) {
	count, err := b.counter.TransactionCount(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("reading transaction count: %w", err)
	}
	return b.nonces.Next(from, count+offset), nil
}

func (b *Builder) intent(op Operation, from common.Address, to *common.Address, value *big.Int, data []byte, nonce uint64) TransactionIntent {
	return TransactionIntent{
		Operation: op,
		From:      from,
		To:        to,
		ValueWei:  value,
		Data:      data,
		GasLimit:  b.gas.Limit,
		GasPrice:  new(big.Int).Set(b.gas.Price),
		Nonce:     nonce,
		ChainID:   b.cfg.ChainID,
	}
}

// Release forgets the nonces handed out for from. Called when a built
// intent never reached the chain.
func (b *Builder) Release(from common.Address) {
	b.nonces.Reset(from)
}
