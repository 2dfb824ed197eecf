package eth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/timelock/internal/chain"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// errReceiptPending marks a poll that found no receipt yet.
var errReceiptPending = errors.New("receipt not yet available")

// WaitForReceipt polls for the receipt of hash until it is mined or the
// policy's attempts are spent, in which case it returns ErrReceiptTimeout.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, policy chain.RetryConfig) (*types.Receipt, error) {
	receipt, err := chain.RetryWithConfig(ctx, policy, func() (*types.Receipt, error) {
		r, err := c.TransactionReceipt(ctx, hash)
		switch {
		case errors.Is(err, ethereum.NotFound):
			return nil, chain.WrapRetryable(errReceiptPending)
		case err != nil:
			return nil, err
		case r == nil:
			return nil, chain.WrapRetryable(errReceiptPending)
		}
		return r, nil
	})
	if err == nil {
		return receipt, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if chain.IsRetryable(err) {
		return nil, tlerr.WithCause(tlerr.WithDetails(tlerr.ErrReceiptTimeout, map[string]string{
			"hash":     hash.Hex(),
			"attempts": strconv.Itoa(policy.MaxAttempts),
		}), err)
	}
	return nil, fmt.Errorf("waiting for receipt %s: %w", hash.Hex(), err)
}

// ReceiptSucceeded reports whether a mined receipt has success status.
func ReceiptSucceeded(r *types.Receipt) bool {
	return r != nil && r.Status == types.ReceiptStatusSuccessful
}
