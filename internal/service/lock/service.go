package lock

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/contract"
	"github.com/mrz1836/timelock/internal/wallet"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Metric labels used with Recorder.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultCancelled = "cancelled"
	ResultPending   = "pending"
	ResultError     = "error"

	HolderWallet   = "wallet"
	HolderContract = "contract"
)

// Chain is the network endpoint the service reads from.
// Satisfied by *eth.Client.
type Chain interface {
	ChainReader
	ReceiptWaiter
}

// Config holds the dependencies of the lock service.
type Config struct {
	Connector Connector
	Provider  wallet.Provider
	Chain     Chain
	Lock      *contract.Lock
	Builder   BuilderConfig
	Submitter SubmitterConfig
	Logger    LogWriter
	Metrics   Recorder
	Now       func() time.Time
}

// Service runs lock operations against one network.
type Service struct {
	connector Connector
	reader    Chain
	lock      *contract.Lock
	builder   *Builder
	submitter *Submitter
	logger    LogWriter
	metrics   Recorder
	now       func() time.Time
}

// NewService wires a service from cfg.
func NewService(cfg *Config) (*Service, error) {
	if cfg.Chain == nil {
		return nil, errors.New("lock service requires a chain reader")
	}
	builder, err := NewBuilder(cfg.Builder, cfg.Lock, cfg.Chain)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = nopRecorder{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	connector := cfg.Connector
	if connector == nil {
		connector = wallet.NewConnector(cfg.Provider)
	}

	return &Service{
		connector: connector,
		reader:    cfg.Chain,
		lock:      cfg.Lock,
		builder:   builder,
		submitter: NewSubmitter(cfg.Provider, cfg.Chain, cfg.Submitter, logger),
		logger:    logger,
		metrics:   recorder,
		now:       now,
	}, nil
}

// Connect requests wallet access and records the account and its balance.
func (s *Service) Connect(ctx context.Context, session Session) (Session, error) {
	addr, err := s.connector.Connect(ctx)
	if err != nil {
		return session, err
	}
	s.logger.Debug("connected account %s on %s", addr.Hex(), session.Network)

	session.Wallet = &WalletSession{Address: addr}
	return s.RefreshBalances(ctx, session)
}

// Deploy checks the unlock time, creates the Lock contract and records it
// in the session on success.
func (s *Service) Deploy(ctx context.Context, session Session, req LockRequest) (Session, Outcome, error) {
	if err := req.Validate(); err != nil {
		return session, Outcome{}, err
	}
	session, err := s.ensureWallet(ctx, session)
	if err != nil {
		return session, Outcome{}, err
	}

	validity, err := s.CheckUnlockTime(ctx, req.UnlockTimestamp)
	if err != nil {
		return session, Outcome{}, err
	}
	if !validity.Valid {
		return session, Outcome{}, InvalidUnlockTimeError(validity)
	}

	intent, err := s.builder.Deploy(ctx, session.Wallet.Address, req)
	if err != nil {
		return session, Outcome{}, err
	}
	outcome, err := s.submit(ctx, intent)
	if outcome.Pending {
		session.PendingDeploy = &PendingDeploy{
			TxHash:      outcome.TxHash,
			UnlockTime:  req.UnlockTimestamp,
			SubmittedAt: s.now(),
		}
		return session, outcome, err
	}
	if err != nil || !outcome.Succeeded {
		return session, outcome, err
	}

	session.PendingDeploy = nil
	session.Contract = &LockContractRef{
		Address:    *outcome.ContractAddress,
		UnlockTime: req.UnlockTimestamp,
		DeployTx:   outcome.TxHash,
	}
	return s.refreshAfter(ctx, session), outcome, nil
}

// Unlock calls unlock() on the session's contract.
func (s *Service) Unlock(ctx context.Context, session Session) (Session, Outcome, error) {
	return s.call(ctx, session, OpUnlock)
}

// Withdraw calls withdraw() on the session's contract.
func (s *Service) Withdraw(ctx context.Context, session Session) (Session, Outcome, error) {
	return s.call(ctx, session, OpWithdraw)
}

func (s *Service) call(ctx context.Context, session Session, op Operation) (Session, Outcome, error) {
	session = s.ResolvePendingDeploy(ctx, session)
	if !session.HasContract() {
		return session, Outcome{}, tlerr.WithDetails(tlerr.ErrNoDeployedContract, map[string]string{
			"operation": op.String(),
			"network":   session.Network,
		})
	}
	session, err := s.ensureWallet(ctx, session)
	if err != nil {
		return session, Outcome{}, err
	}

	var intent TransactionIntent
	if op == OpUnlock {
		intent, err = s.builder.Unlock(ctx, session.Wallet.Address, session)
	} else {
		intent, err = s.builder.Withdraw(ctx, session.Wallet.Address, session)
	}
	if err != nil {
		return session, Outcome{}, err
	}

	outcome, err := s.submit(ctx, intent)
	if err != nil || !outcome.Succeeded {
		return session, outcome, err
	}
	return s.refreshAfter(ctx, session), outcome, nil
}

// submit sends an intent and records the result.
func (s *Service) submit(ctx context.Context, intent TransactionIntent) (Outcome, error) {
	outcome, err := s.submitter.Submit(ctx, intent)

	result := ResultSuccess
	switch {
	case outcome.Pending:
		result = ResultPending
	case err != nil:
		result = ResultError
	case outcome.Cancelled:
		result = ResultCancelled
	case !outcome.Succeeded:
		result = ResultFailure
	}
	s.metrics.RecordOperation(intent.Operation.String(), result)

	if outcome.TxHash == (common.Hash{}) {
		s.builder.Release(intent.From)
	}
	return outcome, err
}

// refreshAfter refreshes balances after a successful operation. A failed
// refresh is logged and the stale session kept.
func (s *Service) refreshAfter(ctx context.Context, session Session) Session {
	refreshed, err := s.RefreshBalances(ctx, session)
	if err != nil {
		s.logger.Error("refreshing balances: %v", err)
		session.UpdatedAt = s.now()
		return session
	}
	return refreshed
}

// ResolvePendingDeploy looks once for the receipt of a deployment that was
// sent but not confirmed. A mined deployment becomes the session's contract;
// a reverted one is dropped. Without a receipt the session is unchanged.
func (s *Service) ResolvePendingDeploy(ctx context.Context, session Session) Session {
	pending := session.PendingDeploy
	if pending == nil {
		return session
	}

	receipt, err := s.reader.WaitForReceipt(ctx, pending.TxHash, chain.RetryConfig{MaxAttempts: 1})
	switch {
	case errors.Is(err, tlerr.ErrReceiptTimeout):
		s.logger.Debug("deployment %s still pending", pending.TxHash.Hex())
		return session
	case err != nil:
		s.logger.Error("checking pending deployment %s: %v", pending.TxHash.Hex(), err)
		return session
	}

	session.PendingDeploy = nil
	if !eth.ReceiptSucceeded(receipt) || receipt.ContractAddress == (common.Address{}) {
		s.logger.Error("pending deployment %s mined with failure status", pending.TxHash.Hex())
		return session
	}
	s.logger.Debug("pending deployment %s confirmed at %s", pending.TxHash.Hex(), receipt.ContractAddress.Hex())
	session.Contract = &LockContractRef{
		Address:    receipt.ContractAddress,
		UnlockTime: pending.UnlockTime,
		DeployTx:   pending.TxHash,
	}
	return session
}

// RefreshBalances replaces the wallet and contract balances with fresh reads.
func (s *Service) RefreshBalances(ctx context.Context, session Session) (Session, error) {
	var err error
	defer func() { s.metrics.RecordRefresh(err) }()

	session = s.ResolvePendingDeploy(ctx, session)

	if session.Wallet != nil {
		var bal *big.Int
		if bal, err = s.reader.GetBalance(ctx, session.Wallet.Address); err != nil {
			return session, fmt.Errorf("reading wallet balance: %w", err)
		}
		session.Wallet = &WalletSession{Address: session.Wallet.Address, BalanceWei: bal}
		s.metrics.SetBalance(HolderWallet, bal)
	}

	if session.Contract != nil {
		var bal *big.Int
		if bal, err = s.reader.GetBalance(ctx, session.Contract.Address); err != nil {
			return session, fmt.Errorf("reading contract balance: %w", err)
		}
		ref := *session.Contract
		ref.CachedBalanceWei = bal
		session.Contract = &ref
		s.metrics.SetBalance(HolderContract, bal)
	}

	session.UpdatedAt = s.now()
	return session, nil
}

// Balance reads the balance of any address.
func (s *Service) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	return s.reader.GetBalance(ctx, address)
}

// Status reads the deployed contract's owner, unlock time and balance.
func (s *Service) Status(ctx context.Context, session Session) (ContractStatus, error) {
	if !session.HasContract() {
		return ContractStatus{}, tlerr.WithDetails(tlerr.ErrNoDeployedContract, map[string]string{"network": session.Network})
	}
	addr := session.Contract.Address

	unlockOut, err := s.view(ctx, addr, contract.MethodUnlockTime)
	if err != nil {
		return ContractStatus{}, err
	}
	unlockTime, err := s.lock.DecodeUnlockTime(unlockOut)
	if err != nil {
		return ContractStatus{}, err
	}

	ownerOut, err := s.view(ctx, addr, contract.MethodOwner)
	if err != nil {
		return ContractStatus{}, err
	}
	owner, err := s.lock.DecodeOwner(ownerOut)
	if err != nil {
		return ContractStatus{}, err
	}

	balance, err := s.reader.GetBalance(ctx, addr)
	if err != nil {
		return ContractStatus{}, err
	}
	latest, err := s.reader.LatestBlockTimestamp(ctx)
	if err != nil {
		return ContractStatus{}, err
	}

	return ContractStatus{
		Address:    addr,
		Owner:      owner,
		UnlockTime: unlockTime,
		BalanceWei: balance,
		Unlocked:   latest >= unlockTime,
		BlockTime:  latest,
	}, nil
}

func (s *Service) view(ctx context.Context, addr common.Address, method string) ([]byte, error) {
	data, err := s.lock.EncodeCall(method)
	if err != nil {
		return nil, err
	}
	out, err := s.reader.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data})
	if err != nil {
		return nil, fmt.Errorf("calling %s(): %w", method, err)
	}
	return out, nil
}

// ensureWallet connects when the session has no wallet yet.
func (s *Service) ensureWallet(ctx context.Context, session Session) (Session, error) {
	if session.Active() {
		return session, nil
	}
	return s.Connect(ctx, session)
}

// InvalidUnlockTimeError describes a rejected unlock time with a corrected value.
func InvalidUnlockTimeError(v Validity) error {
	err := tlerr.WithDetails(tlerr.ErrInvalidUnlockTime, map[string]string{
		"candidate":        strconv.FormatUint(v.Candidate, 10),
		"latest_timestamp": strconv.FormatUint(v.ReferenceTimestamp, 10),
	})
	return tlerr.WithSuggestion(err, "use an unlock time after "+strconv.FormatUint(v.ReferenceTimestamp, 10)+
		", for example "+strconv.FormatUint(v.Suggested, 10))
}
