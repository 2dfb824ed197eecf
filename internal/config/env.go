package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome         = "TIMELOCK_HOME"
	EnvNetwork      = "TIMELOCK_NETWORK"
	EnvRPC          = "TIMELOCK_RPC"
	EnvProvider     = "TIMELOCK_WALLET_PROVIDER"
	EnvMnemonic     = "TIMELOCK_MNEMONIC"
	EnvArtifact     = "TIMELOCK_ARTIFACT"
	EnvOutputFormat = "TIMELOCK_OUTPUT_FORMAT"
	EnvVerbose      = "TIMELOCK_VERBOSE"
	EnvLogLevel     = "TIMELOCK_LOG_LEVEL"
	EnvAlchemyToken = "ALCHEMY_TOKEN" // #nosec G101 -- false positive, this is a const name not a credential
	EnvCI           = "CI"
)

// TestMnemonic is the well-known development mnemonic used when running under CI.
const TestMnemonic = "test test test test test test test test test test test junk"

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network = strings.ToLower(strings.TrimSpace(v))
	}

	// TIMELOCK_RPC overrides the endpoint of the selected network only.
	if v := os.Getenv(EnvRPC); v != "" {
		SetNetworkRPC(cfg, cfg.Network, v)
	}

	if v := os.Getenv(EnvProvider); v != "" {
		cfg.Wallet.Provider = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvArtifact); v != "" {
		cfg.Contract.Artifact = v
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	cfg.AlchemyToken = strings.TrimSpace(os.Getenv(EnvAlchemyToken))

	// Under CI the keyed provider always uses the development mnemonic.
	cfg.CI = parseBool(os.Getenv(EnvCI))
	if cfg.CI {
		cfg.Mnemonic = TestMnemonic
	} else if v := os.Getenv(EnvMnemonic); v != "" {
		cfg.Mnemonic = strings.TrimSpace(v)
	}
}

// SetNetworkRPC points a network at an explicit RPC URL, creating the entry if needed.
func SetNetworkRPC(cfg *Config, name, rpcURL string) {
	if cfg.Networks == nil {
		cfg.Networks = map[string]NetworkConfig{}
	}
	nc := cfg.Networks[name]
	nc.RPC = SanitizeURL(rpcURL)
	cfg.Networks[name] = nc
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims whitespace and strips control characters and quotes
// left behind by copy-paste.
func SanitizeURL(raw string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' || r == '\'' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}
