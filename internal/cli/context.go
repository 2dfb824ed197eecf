package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/config"
	"github.com/mrz1836/timelock/internal/metrics"
	"github.com/mrz1836/timelock/internal/output"
	"github.com/mrz1836/timelock/internal/state"
	"github.com/mrz1836/timelock/internal/wallet"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config  *config.Config
	Logger  *config.Logger
	Format  output.Format
	Store   *state.Store
	Metrics *metrics.Metrics

	// Backend replaces the dialed chain connection, mainly in tests.
	Backend eth.Backend
	// Approver replaces the terminal transaction prompt.
	Approver wallet.Approver
	// Passphrase unlocks the keystore of the keyed provider.
	Passphrase func() (string, error)
}

type cmdContextKey struct{}

// SetCmdContext attaches cc to cmd.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the context attached to cmd, falling back to the
// one built by initGlobals.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if ctx := cmd.Context(); ctx != nil {
		if cc, ok := ctx.Value(cmdContextKey{}).(*CommandContext); ok && cc != nil {
			return cc
		}
	}
	return cmdCtx
}

// formatterFor returns a formatter writing to the command's output.
func (c *CommandContext) formatterFor(cmd *cobra.Command) *output.Formatter {
	format := c.Format
	if format == "" || format == output.FormatAuto {
		format = output.FormatText
	}
	return output.NewFormatter(format, cmd.OutOrStdout())
}

// logger returns the configured logger or a null logger.
func (c *CommandContext) logger() *config.Logger {
	if c.Logger == nil {
		return config.NullLogger()
	}
	return c.Logger
}
