package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"yes", "yes", true},
		{"on", "on", true},
		{"with spaces", "  true  ", true},
		{"0", "0", false},
		{"false", "false", false},
		{"no", "no", false},
		{"empty", "", false},
		{"random", "random", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, parseBool(tc.input))
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean", "http://localhost:8545", "http://localhost:8545"},
		{"surrounding spaces", "  http://127.0.0.1:8545  ", "http://127.0.0.1:8545"},
		{"quoted", `"https://eth-sepolia.alchemyapi.io/v2/abc"`, "https://eth-sepolia.alchemyapi.io/v2/abc"},
		{"trailing newline", "http://localhost:8545\n", "http://localhost:8545"},
		{"embedded tab", "http://local\thost:8545", "http://localhost:8545"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, SanitizeURL(tc.input))
		})
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvHome, EnvNetwork, EnvRPC, EnvProvider, EnvMnemonic, EnvArtifact,
		EnvOutputFormat, EnvVerbose, EnvLogLevel, EnvAlchemyToken, EnvCI,
	} {
		t.Setenv(k, "")
	}
}

func TestApplyEnvironment_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvHome, "/tmp/tlhome")
	t.Setenv(EnvNetwork, " Sepolia ")
	t.Setenv(EnvRPC, " https://node.example/rpc ")
	t.Setenv(EnvProvider, "KEYED")
	t.Setenv(EnvArtifact, "/tmp/Lock.json")
	t.Setenv(EnvOutputFormat, "JSON")
	t.Setenv(EnvVerbose, "yes")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvAlchemyToken, " tok ")
	t.Setenv(EnvMnemonic, "  abandon abandon  ")

	cfg := Defaults()
	ApplyEnvironment(cfg)

	assert.Equal(t, "/tmp/tlhome", cfg.Home)
	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, "https://node.example/rpc", cfg.Networks["sepolia"].RPC)
	assert.Equal(t, int64(11155111), cfg.Networks["sepolia"].ChainID)
	assert.Equal(t, ProviderKeyed, cfg.Wallet.Provider)
	assert.Equal(t, "/tmp/Lock.json", cfg.Contract.Artifact)
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "tok", cfg.AlchemyToken)
	assert.Equal(t, "abandon abandon", cfg.Mnemonic)
	assert.False(t, cfg.CI)
}

func TestApplyEnvironment_CIUsesTestMnemonic(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCI, "true")
	t.Setenv(EnvMnemonic, "should be ignored")

	cfg := Defaults()
	ApplyEnvironment(cfg)

	assert.True(t, cfg.CI)
	assert.Equal(t, TestMnemonic, cfg.Mnemonic)
}

func TestApplyEnvironment_NoOverrides(t *testing.T) {
	clearEnv(t)

	cfg := Defaults()
	ApplyEnvironment(cfg)

	require.Equal(t, Defaults().Network, cfg.Network)
	assert.Empty(t, cfg.Mnemonic)
	assert.Empty(t, cfg.AlchemyToken)
}

func TestSetNetworkRPC_CreatesEntry(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	SetNetworkRPC(cfg, "devnet", "http://10.0.0.1:8545")
	assert.Equal(t, "http://10.0.0.1:8545", cfg.Networks["devnet"].RPC)
}
