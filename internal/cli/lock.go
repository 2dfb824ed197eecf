package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/service/lock"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// connectCmd requests wallet access.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet provider",
	Long: `Request account access from the configured wallet provider and record the
first account and its balance in the session of the selected network.

Example:
  timelock connect
  timelock connect --network sepolia`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

// checkCmd validates a candidate unlock time.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var checkCmd = &cobra.Command{
	Use:   "check <unlock-time>",
	Short: "Check an unlock time against the latest block",
	Long: `Check whether a unix timestamp is later than the latest block timestamp,
which the Lock contract requires of its unlock time. An invalid time comes
with a suggested replacement 100 seconds after the latest block.

Example:
  timelock check 1767225600`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

// deployCmd deploys a Lock contract.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a Lock contract holding ETH until the unlock time",
	Long: `Deploy a Lock contract that holds the given amount until the unlock time.

The unlock time is checked against the latest block first. Give it either as
a unix timestamp (--unlock-time) or as a delay after the latest block
(--unlock-in). Deployment needs the Lock build artifact (contract.artifact).

Example:
  timelock deploy --unlock-time 1767225600 --amount 0.5
  timelock deploy --unlock-in 10m --amount 1000 --unit gwei`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

// unlockCmd calls unlock() on the deployed contract.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Call unlock() on the deployed contract",
	Long: `Call unlock() on the contract deployed in this session. Like withdraw,
the call reverts before the unlock time or for a caller other than the owner,
and the revert reason is shown. A deployment still pending from an earlier
command is looked up first.

Example:
  timelock unlock
  timelock unlock --network sepolia`,
	Args: cobra.NoArgs,
	RunE: runCall(lock.ActionUnlock),
}

// withdrawCmd calls withdraw() on the deployed contract.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the locked funds",
	Long: `Call withdraw() on the contract deployed in this session. The contract
reverts until the unlock time has passed or when the caller is not the owner;
the revert reason is shown.

Example:
  timelock withdraw`,
	Args: cobra.NoArgs,
	RunE: runCall(lock.ActionWithdraw),
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	deployUnlockTime uint64
	deployUnlockIn   time.Duration
	deployAmount     string
	deployUnit       string
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd, checkCmd, deployCmd, unlockCmd, withdrawCmd)

	deployCmd.Flags().Uint64Var(&deployUnlockTime, "unlock-time", 0, "unlock time as a unix timestamp")
	deployCmd.Flags().DurationVar(&deployUnlockIn, "unlock-in", 0, "unlock time as a delay after the latest block")
	deployCmd.Flags().StringVar(&deployAmount, "amount", "0", "amount to lock")
	deployCmd.Flags().StringVar(&deployUnit, "unit", string(chain.UnitEther), "amount unit: wei, gwei, ether")
	deployCmd.MarkFlagsMutuallyExclusive("unlock-time", "unlock-in")
	deployCmd.MarkFlagsOneRequired("unlock-time", "unlock-in")
}

// requestBuilder fills the inputs of an entry point once the runtime is open.
type requestBuilder func(ctx context.Context, rt *lockRuntime) (lock.Request, error)

// dispatch opens a runtime, runs one lock entry point and renders the result.
func dispatch(cmd *cobra.Command, action string, wallet bool, build requestBuilder) error {
	return dispatchWith(cmd, action, wallet, build, resultText)
}

// dispatchWith is dispatch with a custom text rendering.
func dispatchWith(cmd *cobra.Command, action string, wallet bool, build requestBuilder, text func(lock.Result) string) error {
	cc := GetCmdContext(cmd)
	timeout := readTimeout(cc.Config)
	if wallet {
		timeout = txTimeout(cc.Config)
	}
	ctx, cancel := contextWithTimeout(cmd, timeout)
	defer cancel()

	rt, err := openRuntime(ctx, cc, runtimeOptions{wallet: wallet})
	if err != nil {
		return err
	}
	defer rt.close()

	req := lock.Request{Session: rt.session}
	if build != nil {
		if req, err = build(ctx, rt); err != nil {
			return err
		}
		req.Session = rt.session
	}

	res := rt.service.Dispatch(ctx, action, req)
	return rt.finishWith(cmd, res, text)
}

func runConnect(cmd *cobra.Command, _ []string) error {
	return dispatch(cmd, lock.ActionConnect, true, nil)
}

func runCheck(cmd *cobra.Command, args []string) error {
	candidate, err := parseTimestamp(args[0])
	if err != nil {
		return err
	}
	return dispatch(cmd, lock.ActionCheck, false, func(context.Context, *lockRuntime) (lock.Request, error) {
		return lock.Request{Candidate: candidate}, nil
	})
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	unit, err := chain.ParseUnit(deployUnit)
	if err != nil {
		return err
	}
	amount, err := chain.ParseAmount(deployAmount, unit)
	if err != nil {
		return err
	}

	return dispatch(cmd, lock.ActionDeploy, true, func(ctx context.Context, rt *lockRuntime) (lock.Request, error) {
		unlockTime := deployUnlockTime
		if deployUnlockIn > 0 {
			latest, err := rt.client.LatestBlockTimestamp(ctx)
			if err != nil {
				return lock.Request{}, err
			}
			unlockTime = latest + uint64(deployUnlockIn/time.Second) //nolint:gosec // G115: duration checked positive
		}
		return lock.Request{Lock: lock.LockRequest{UnlockTimestamp: unlockTime, AmountWei: amount}}, nil
	})
}

func runCall(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return dispatch(cmd, action, true, nil)
	}
}

// parseTimestamp parses a unix timestamp argument.
func parseTimestamp(s string) (uint64, error) {
	ts, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || ts == 0 {
		return 0, tlerr.WithSuggestion(
			tlerr.WithDetails(tlerr.ErrInvalidUnlockTime, map[string]string{"value": s}),
			"give the unlock time as a unix timestamp in seconds, e.g. "+strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
		)
	}
	return ts, nil
}
