package cli

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/output"
	"github.com/mrz1836/timelock/internal/service/lock"
)

// balanceCmd shows balances.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance [address...]",
	Short: "Show ETH balances",
	Long: `Show the balance of the connected wallet and of the deployed Lock contract,
refreshing both in the session. With addresses, show the balance of each
address instead; no wallet is needed then.

Example:
  timelock balance
  timelock balance 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	addrs := make([]common.Address, 0, len(args))
	for _, arg := range args {
		addr, err := eth.ParseAddress(arg)
		if err != nil {
			return err
		}
		addrs = append(addrs, addr)
	}

	build := func(context.Context, *lockRuntime) (lock.Request, error) {
		return lock.Request{Addresses: addrs}, nil
	}
	return dispatchWith(cmd, lock.ActionBalance, len(addrs) == 0, build, balanceText)
}

// balanceText renders balance entries as a table.
func balanceText(res lock.Result) string {
	if len(res.Balances) == 0 {
		return res.Message
	}
	table := output.NewTable("HOLDER", "ADDRESS", "BALANCE (ETH)")
	for _, e := range res.Balances {
		table.AddRow(e.Holder, e.Address.Hex(), e.Ether)
	}
	return strings.TrimRight(table.String(), "\n")
}
