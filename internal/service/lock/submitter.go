package lock

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/wallet"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// reasonRejected is the failure reason of a transaction the user declined.
const reasonRejected = "rejected by the user"

// SubmitterConfig controls receipt confirmation.
type SubmitterConfig struct {
	ReceiptPolicy chain.RetryConfig
	// ConfirmCalls waits for unlock and withdraw receipts too.
	// Deployments always wait since the contract address comes from the receipt.
	ConfirmCalls bool
}

// Submitter sends intents through the wallet provider.
type Submitter struct {
	provider wallet.Provider
	receipts ReceiptWaiter
	cfg      SubmitterConfig
	logger   LogWriter
}

// NewSubmitter returns a submitter. A nil logger discards output.
func NewSubmitter(provider wallet.Provider, receipts ReceiptWaiter, cfg SubmitterConfig, logger LogWriter) *Submitter {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Submitter{provider: provider, receipts: receipts, cfg: cfg, logger: logger}
}

// Submit sends intent via eth_sendTransaction and resolves its outcome.
// Reverts and user rejections are Failure outcomes. Provider errors that
// cannot be decoded, transport errors and receipt timeouts are returned as
// errors.
func (s *Submitter) Submit(ctx context.Context, intent TransactionIntent) (Outcome, error) {
	if s.provider == nil {
		return Outcome{}, tlerr.ErrNoProvider
	}
	intent = intent.Clone()
	if d, ok := s.logger.(dumper); ok {
		d.Dump(intent.Operation.String()+" intent", intent)
	}

	hash, err := wallet.SendTransaction(ctx, s.provider, intent.TxRequest())
	if err != nil {
		return s.rejected(intent, err)
	}
	s.logger.Debug("%s submitted: tx=%s nonce=%d", intent.Operation, hash.Hex(), intent.Nonce)

	if intent.Operation != OpDeploy && !s.cfg.ConfirmCalls {
		return Success(hash, nil), nil
	}

	receipt, err := s.receipts.WaitForReceipt(ctx, hash, s.cfg.ReceiptPolicy)
	if err != nil {
		return Submitted(hash), err
	}
	if !eth.ReceiptSucceeded(receipt) {
		s.logger.Error("%s mined with failure status: tx=%s block=%v", intent.Operation, hash.Hex(), receipt.BlockNumber)
		return Failure(hash, ""), nil
	}

	if intent.Operation == OpDeploy {
		if receipt.ContractAddress == (common.Address{}) {
			return Failure(hash, "receipt has no contract address"), nil
		}
		addr := receipt.ContractAddress
		return Success(hash, &addr), nil
	}
	return Success(hash, nil), nil
}

func (s *Submitter) rejected(intent TransactionIntent, err error) (Outcome, error) {
	decoded := wallet.DecodeProviderError(err)
	switch {
	case errors.Is(decoded, tlerr.ErrUserRejected):
		s.logger.Debug("%s rejected by the user", intent.Operation)
		out := Failure(common.Hash{}, reasonRejected)
		out.Cancelled = true
		return out, nil
	case errors.Is(decoded, tlerr.ErrProviderRevert):
		reason, _ := wallet.RevertReason(decoded)
		s.logger.Error("%s reverted: %s", intent.Operation, reason)
		return Failure(common.Hash{}, reason), nil
	default:
		s.logger.Error("%s submission failed: %v", intent.Operation, err)
		return Outcome{}, decoded
	}
}
