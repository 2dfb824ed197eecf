package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/config"
)

// defaultCommandTimeout applies when rpc.timeout is unset.
const defaultCommandTimeout = 30 * time.Second

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}

// readTimeout bounds commands that only read from the chain.
func readTimeout(c *config.Config) time.Duration {
	if c.RPC.Timeout <= 0 {
		return defaultCommandTimeout
	}
	return c.RPC.Timeout
}

// txTimeout bounds commands that submit a transaction and wait for its
// receipt: the read budget plus the worst case of the receipt polling.
func txTimeout(c *config.Config) time.Duration {
	wait := time.Duration(c.Transaction.ReceiptAttempts) * c.Transaction.ReceiptMaxDelay
	return readTimeout(c) + wait
}
