package cli

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/chain/eth/ethtest"
	"github.com/mrz1836/timelock/internal/config"
	"github.com/mrz1836/timelock/internal/metrics"
	"github.com/mrz1836/timelock/internal/output"
	"github.com/mrz1836/timelock/internal/service/lock"
	"github.com/mrz1836/timelock/internal/state"
	"github.com/mrz1836/timelock/internal/wallet"
)

const (
	testChainID  = 31337
	testArtifact = `{"contractName":"Lock","bytecode":"0x6080604052"}`
)

// devAddress is the first account of config.TestMnemonic.
var devAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, passphrase string, confirm bool) {
	t.Helper()
	origPassphrase := promptPassphraseFn
	origNewPassphrase := promptNewPassphraseFn
	origConfirm := promptConfirmFn
	origMnemonic := promptMnemonicFn
	t.Cleanup(func() {
		promptPassphraseFn = origPassphrase
		promptNewPassphraseFn = origNewPassphrase
		promptConfirmFn = origConfirm
		promptMnemonicFn = origMnemonic
	})
	promptPassphraseFn = func() (string, error) { return passphrase, nil }
	promptNewPassphraseFn = func() (string, error) { return passphrase, nil }
	promptConfirmFn = func(string) bool { return confirm }
	promptMnemonicFn = func() (string, error) { return config.TestMnemonic, nil }
}

// testEnv is a keyed wallet for the dev account over an in-memory chain.
type testEnv struct {
	home    string
	cfg     *config.Config
	backend *ethtest.Backend
	cc      *CommandContext
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	home := t.TempDir()
	artifact := filepath.Join(home, "Lock.json")
	require.NoError(t, os.WriteFile(artifact, []byte(testArtifact), 0o600))

	c := config.Defaults()
	c.Home = home
	c.Wallet.Provider = config.ProviderKeyed
	c.Mnemonic = config.TestMnemonic
	c.Contract.Artifact = artifact
	c.RPC.RetryAttempts = 1
	c.RPC.RateLimit = 0
	c.Transaction.ReceiptAttempts = 2
	c.Transaction.ReceiptBaseDelay = time.Millisecond
	c.Transaction.ReceiptMaxDelay = time.Millisecond
	c.Refresh.Interval = 10 * time.Millisecond

	backend := ethtest.NewBackend(testChainID)
	backend.SetBalance(devAddress, ether(100))

	return &testEnv{
		home:    home,
		cfg:     c,
		backend: backend,
		cc: &CommandContext{
			Config:   c,
			Logger:   config.NullLogger(),
			Format:   output.FormatText,
			Store:    state.NewStore(filepath.Join(home, "sessions")),
			Metrics:  metrics.New(),
			Backend:  backend,
			Approver: wallet.AutoApprove,
			Passphrase: func() (string, error) {
				return "", errors.New("no passphrase in tests")
			},
		},
	}
}

// command returns a command bound to the environment and its output buffer.
func (e *testEnv) command(format output.Format) (*cobra.Command, *bytes.Buffer) {
	e.cc.Format = format
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	SetCmdContext(cmd, e.cc)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &buf
}

// session reads the stored session of the default network.
func (e *testEnv) session(t *testing.T) lock.Session {
	t.Helper()
	s, err := e.cc.Store.Load(config.DefaultNetwork, testChainID)
	require.NoError(t, err)
	return s
}

// deploy runs a successful deploy of 1 ETH unlocking at 2000.
func (e *testEnv) deploy(t *testing.T) lock.Session {
	t.Helper()
	withDeployFlags(t, 2000, 0, "1", "ether")
	cmd, _ := e.command(output.FormatText)
	require.NoError(t, runDeploy(cmd, nil))
	s := e.session(t)
	require.True(t, s.HasContract())
	return s
}

// withDeployFlags sets the deploy flag variables and restores them on cleanup.
func withDeployFlags(t *testing.T, unlockTime uint64, unlockIn time.Duration, amount, unit string) {
	t.Helper()
	origTime, origIn, origAmount, origUnit := deployUnlockTime, deployUnlockIn, deployAmount, deployUnit
	t.Cleanup(func() {
		deployUnlockTime, deployUnlockIn, deployAmount, deployUnit = origTime, origIn, origAmount, origUnit
	})
	deployUnlockTime, deployUnlockIn, deployAmount, deployUnit = unlockTime, unlockIn, amount, unit
}
