// Package cli implements the timelock command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/config"
	"github.com/mrz1836/timelock/internal/metrics"
	"github.com/mrz1836/timelock/internal/output"
	"github.com/mrz1836/timelock/internal/state"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// BuildInfo describes the running binary. Values are injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	// Global flags
	homeDir      string
	networkName  string
	outputFormat string
	verbose      bool
	assumeYes    bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	cmdCtx    *CommandContext
	buildInfo BuildInfo
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "timelock",
	Short: "Deploy and operate time-locked ETH payments",
	Long: `timelock locks ETH in a Lock contract until an unlock time and lets the
owner release it afterwards.

It connects a wallet provider (a JSON-RPC node with unlocked accounts, or a
local mnemonic key), checks a candidate unlock time against the latest block,
deploys the contract and sends unlock and withdraw calls. The session (wallet,
deployed contract, balances) is kept per network between invocations.

Example:
  timelock connect
  timelock check 1767225600
  timelock deploy --unlock-time 1767225600 --amount 0.5
  timelock withdraw`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	buildInfo = info
	rootCmd.Version = formatVersion(info)

	err := rootCmd.Execute()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			formatErr(err)
		}
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return tlerr.ExitCode(err)
}

// formatVersion renders build information on one line.
func formatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// formatErr prints err to stderr in the active format.
func formatErr(err error) {
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(os.Stderr, err, format)
}

// initGlobals initializes configuration, logger, formatter and the command context.
func initGlobals(cmd *cobra.Command) error {
	// Determine home directory
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	// Load or create config
	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Defaults()
	}
	cfg.Home = home

	// Apply environment variable overrides
	config.ApplyEnvironment(cfg)

	// Override with command-line flags
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if networkName != "" {
		cfg.Network = networkName
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}
	if assumeYes {
		cfg.Wallet.AutoApprove = true
	}

	// Initialize logger
	logCfg := cfg.Logging
	if logCfg.File, err = cfg.HomePath(logCfg.File); err != nil {
		return err
	}
	logger, err = config.NewLoggerFromConfig(logCfg)
	if err != nil {
		// Use null logger if we can't create the file
		logger = config.NullLogger()
	}

	// Initialize formatter
	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), os.Stdout)

	expandedHome, err := config.ExpandPath(cfg.Home)
	if err != nil {
		return err
	}

	cmdCtx = &CommandContext{
		Config:     cfg,
		Logger:     logger,
		Format:     formatter.Format(),
		Store:      state.NewStore(filepath.Join(expandedHome, "sessions")),
		Metrics:    metrics.New(),
		Passphrase: func() (string, error) { return promptPassphraseFn() },
	}
	SetCmdContext(cmd, cmdCtx)
	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "timelock data directory (default: ~/.timelock)")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", "", "network name (default: localhost)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve transactions without prompting")
}
