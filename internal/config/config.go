// Package config provides configuration management for timelock.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/timelock/internal/fileutil"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Wallet provider kinds.
const (
	ProviderNode  = "node"
	ProviderKeyed = "keyed"
)

// Config represents the application configuration.
type Config struct {
	Version     int                      `yaml:"version"`
	Home        string                   `yaml:"home"`
	Network     string                   `yaml:"network"`
	Networks    map[string]NetworkConfig `yaml:"networks"`
	RPC         RPCConfig                `yaml:"rpc"`
	Wallet      WalletConfig             `yaml:"wallet"`
	Contract    ContractConfig           `yaml:"contract"`
	Transaction TransactionConfig        `yaml:"transaction"`
	Refresh     RefreshConfig            `yaml:"refresh"`
	Metrics     MetricsConfig            `yaml:"metrics"`
	Output      OutputConfig             `yaml:"output"`
	Logging     LoggingConfig            `yaml:"logging"`

	// Secrets that only come from the environment.
	AlchemyToken string `yaml:"-"`
	Mnemonic     string `yaml:"-"`
	CI           bool   `yaml:"-"`
}

// NetworkConfig defines a named Ethereum network.
// When Alchemy is set the RPC URL is built from the network name and
// the ALCHEMY_TOKEN environment variable.
type NetworkConfig struct {
	RPC     string `yaml:"rpc,omitempty"`
	ChainID int64  `yaml:"chain_id"`
	Alchemy bool   `yaml:"alchemy,omitempty"`
}

// RPCConfig defines network client behavior.
type RPCConfig struct {
	RateLimit     float64       `yaml:"rate_limit"`
	Burst         int           `yaml:"burst"`
	RetryAttempts int           `yaml:"retry_attempts"`
	Timeout       time.Duration `yaml:"timeout"`
}

// WalletConfig defines the wallet provider.
type WalletConfig struct {
	Provider       string `yaml:"provider"`
	ProviderURL    string `yaml:"provider_url,omitempty"`
	Keystore       string `yaml:"keystore"`
	DerivationPath string `yaml:"derivation_path"`
	AutoApprove    bool   `yaml:"auto_approve"`
}

// ContractConfig defines where the Lock contract build artifact lives.
type ContractConfig struct {
	Artifact string `yaml:"artifact"`
}

// TransactionConfig defines the fixed parameters of built transactions
// and the receipt wait policy.
type TransactionConfig struct {
	GasLimit          uint64        `yaml:"gas_limit"`
	GasPrice          string        `yaml:"gas_price"`
	DeployNonceOffset uint64        `yaml:"deploy_nonce_offset"`
	ConfirmCalls      bool          `yaml:"confirm_calls"`
	ReceiptAttempts   int           `yaml:"receipt_attempts"`
	ReceiptBaseDelay  time.Duration `yaml:"receipt_base_delay"`
	ReceiptMaxDelay   time.Duration `yaml:"receipt_max_delay"`
}

// RefreshConfig defines the scheduled balance refresher.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig defines the optional Prometheus endpoint of the watch command.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeKB int64  `yaml:"max_size_kb"`
	MaxRolls  int    `yaml:"max_rolls"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, tlerr.WithCause(tlerr.WithDetails(tlerr.ErrConfigInvalid, map[string]string{"path": path}), err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default timelock home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".timelock"
	}
	return filepath.Join(home, ".timelock")
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// HomePath resolves a configured file path. Relative paths live under the
// home directory.
func (c *Config) HomePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	path, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	home, err := ExpandPath(c.Home)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path), nil
}

// GasPriceWei parses the configured gas price.
func (c *Config) GasPriceWei() (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(c.Transaction.GasPrice), 10)
	if !ok || v.Sign() < 0 {
		return nil, tlerr.WithDetails(tlerr.ErrConfigInvalid, map[string]string{
			"transaction.gas_price": c.Transaction.GasPrice,
		})
	}
	return v, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var problems []error

	if c.Network == "" {
		problems = append(problems, errors.New("network must be set"))
	}
	switch c.Wallet.Provider {
	case ProviderNode, ProviderKeyed:
	default:
		problems = append(problems, fmt.Errorf("wallet.provider must be %q or %q, got %q", ProviderNode, ProviderKeyed, c.Wallet.Provider))
	}
	if c.Transaction.GasLimit == 0 {
		problems = append(problems, errors.New("transaction.gas_limit must be positive"))
	}
	if _, err := c.GasPriceWei(); err != nil {
		problems = append(problems, fmt.Errorf("transaction.gas_price must be a non-negative integer, got %q", c.Transaction.GasPrice))
	}
	if c.Transaction.ReceiptAttempts < 1 {
		problems = append(problems, errors.New("transaction.receipt_attempts must be at least 1"))
	}
	if c.Refresh.Interval <= 0 {
		problems = append(problems, errors.New("refresh.interval must be positive"))
	}
	for name, n := range c.Networks {
		if n.RPC == "" && !n.Alchemy {
			problems = append(problems, fmt.Errorf("networks.%s needs rpc or alchemy", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return tlerr.WithCause(tlerr.ErrConfigInvalid, errors.Join(problems...))
}

// GetHome returns the timelock home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetNetwork returns the selected network name.
func (c *Config) GetNetwork() string {
	return c.Network
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}
