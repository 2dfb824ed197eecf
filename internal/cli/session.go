package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/output"
	"github.com/mrz1836/timelock/internal/service/lock"
	"github.com/mrz1836/timelock/internal/state"
)

// sessionCmd is the parent command for session operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the stored session",
	Long: `The session keeps the connected wallet, the deployed Lock contract and the
last known balances of each network between invocations. It lives in
<home>/sessions/<network>.json.`,
}

// sessionShowCmd prints the stored session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Show the stored session of the network",
	Example: `  timelock session show --network sepolia`,
	Args:    cobra.NoArgs,
	RunE:    runSessionShow,
}

// sessionResetCmd forgets the stored session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the wallet and contract of the network",
	Long: `Remove the stored session of the network. The next operation connects the
wallet again; the deployed contract is no longer tracked.`,
	Example: `  timelock session reset`,
	Args:    cobra.NoArgs,
	RunE:    runSessionReset,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionResetCmd)
}

// sessionNetwork returns the selected network name and chain ID without
// resolving its endpoint.
func (c *CommandContext) sessionNetwork() (string, int64, error) {
	name := strings.ToLower(strings.TrimSpace(c.Config.Network))
	nc, ok := c.Config.Networks[name]
	if !ok {
		_, err := c.Config.ResolveNetworkByName(name)
		return "", 0, err
	}
	return name, nc.ChainID, nil
}

func runSessionShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	name, chainID, err := cc.sessionNetwork()
	if err != nil {
		return err
	}

	session, err := cc.Store.Load(name, chainID)
	if errors.Is(err, state.ErrCorruptSession) {
		output.Warnf(cmd.ErrOrStderr(), "%v", err)
	} else if err != nil {
		return err
	}

	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(newSessionJSON(session))
	}
	return renderSession(f, session)
}

func renderSession(f *output.Formatter, s lock.Session) error {
	table := output.NewTable().
		AddRow("Network:", s.Network).
		AddRow("Chain ID:", strconv.FormatInt(s.ChainID, 10))

	if s.Wallet == nil {
		table.AddRow("Wallet:", "(not connected)")
	} else {
		table.AddRow("Wallet:", s.Wallet.Address.Hex())
		if s.Wallet.BalanceWei != nil {
			table.AddRow("Wallet balance:", chain.FormatEther(s.Wallet.BalanceWei)+" ETH")
		}
	}

	if s.Contract == nil {
		table.AddRow("Contract:", "(not deployed)")
	} else {
		table.AddRow("Contract:", s.Contract.Address.Hex())
		table.AddRow("Unlock time:", formatTimestamp(s.Contract.UnlockTime))
		table.AddRow("Deploy tx:", s.Contract.DeployTx.Hex())
		if s.Contract.CachedBalanceWei != nil {
			table.AddRow("Contract balance:", chain.FormatEther(s.Contract.CachedBalanceWei)+" ETH")
		}
	}

	if !s.UpdatedAt.IsZero() {
		table.AddRow("Updated:", s.UpdatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	return table.Render(f.Writer())
}

func runSessionReset(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	name, _, err := cc.sessionNetwork()
	if err != nil {
		return err
	}

	existed := cc.Store.Exists(name)
	if err := cc.Store.Reset(name); err != nil {
		return err
	}
	cc.logger().Debug("session reset for %s (existed: %t)", name, existed)

	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(map[string]any{"network": name, "removed": existed})
	}
	if existed {
		output.Successf(f.Writer(), "Session for %s removed", name)
	} else {
		output.Infof(f.Writer(), "No session stored for %s", name)
	}
	return nil
}
