package cli

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/output"
)

// statusCmd reads the deployed contract back from the chain.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the on-chain state of the deployed contract",
	Long: `Call unlockTime() and owner() on the contract deployed in this session and
show them with its balance and whether the unlock time has passed.

Example:
  timelock status
  timelock status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusJSON struct {
	Network      string         `json:"network"`
	Address      common.Address `json:"address"`
	Owner        common.Address `json:"owner"`
	UnlockTime   uint64         `json:"unlock_time"`
	BlockTime    uint64         `json:"block_time"`
	Unlocked     bool           `json:"unlocked"`
	BalanceWei   string         `json:"balance_wei"`
	BalanceEther string         `json:"balance_ether"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, readTimeout(cc.Config))
	defer cancel()

	rt, err := openRuntime(ctx, cc, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.close()

	st, err := rt.service.Status(ctx, rt.session)
	if err != nil {
		return err
	}

	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(statusJSON{
			Network:      rt.network.Name,
			Address:      st.Address,
			Owner:        st.Owner,
			UnlockTime:   st.UnlockTime,
			BlockTime:    st.BlockTime,
			Unlocked:     st.Unlocked,
			BalanceWei:   st.BalanceWei.String(),
			BalanceEther: chain.FormatEther(st.BalanceWei),
		})
	}

	state := "locked"
	if st.Unlocked {
		state = "unlocked"
	}
	table := output.NewTable().
		AddRow("Network:", rt.network.Name).
		AddRow("Contract:", st.Address.Hex()).
		AddRow("Owner:", st.Owner.Hex()).
		AddRow("Unlock time:", formatTimestamp(st.UnlockTime)).
		AddRow("Latest block:", formatTimestamp(st.BlockTime)).
		AddRow("State:", state).
		AddRow("Balance:", chain.FormatEther(st.BalanceWei)+" ETH")
	return table.Render(f.Writer())
}

// formatTimestamp renders a unix timestamp with its UTC time.
func formatTimestamp(ts uint64) string {
	if ts > uint64(1<<62) {
		return strconv.FormatUint(ts, 10)
	}
	t := time.Unix(int64(ts), 0).UTC() //nolint:gosec // G115: bounded above
	return strconv.FormatUint(ts, 10) + " (" + t.Format(time.RFC3339) + ")"
}
