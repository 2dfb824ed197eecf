package config

import "time"

// Defaults of the local Hardhat development chain.
const (
	DefaultNetwork    = "localhost"
	DefaultLocalRPC   = "http://localhost:8545"
	DefaultLocalChain = 31337
)

// Transaction defaults. The gas price matches what the local node quotes
// for the Lock deployment; the limit covers all three Lock operations.
const (
	DefaultGasLimit          = 300000
	DefaultGasPrice          = "766184446"
	DefaultDeployNonceOffset = 1
)

// DefaultDerivationPath is the first account of the standard Ethereum BIP44 path.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// DefaultNetworks returns the built-in network table.
func DefaultNetworks() map[string]NetworkConfig {
	return map[string]NetworkConfig{
		"localhost": {RPC: DefaultLocalRPC, ChainID: DefaultLocalChain},
		"hardhat":   {RPC: DefaultLocalRPC, ChainID: DefaultLocalChain},
		"mainnet":   {ChainID: 1, Alchemy: true},
		"sepolia":   {ChainID: 11155111, Alchemy: true},
		"holesky":   {ChainID: 17000, Alchemy: true},
	}
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version:  1,
		Home:     "~/.timelock",
		Network:  DefaultNetwork,
		Networks: DefaultNetworks(),
		RPC: RPCConfig{
			RateLimit:     10,
			Burst:         20,
			RetryAttempts: 4,
			Timeout:       30 * time.Second,
		},
		Wallet: WalletConfig{
			Provider:       ProviderNode,
			Keystore:       "keystore.age",
			DerivationPath: DefaultDerivationPath,
		},
		Contract: ContractConfig{
			Artifact: "",
		},
		Transaction: TransactionConfig{
			GasLimit:          DefaultGasLimit,
			GasPrice:          DefaultGasPrice,
			DeployNonceOffset: DefaultDeployNonceOffset,
			ConfirmCalls:      true,
			ReceiptAttempts:   30,
			ReceiptBaseDelay:  500 * time.Millisecond,
			ReceiptMaxDelay:   4 * time.Second,
		},
		Refresh: RefreshConfig{
			Interval: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level:     "error",
			File:      "timelock.log",
			MaxSizeKB: 10 * 1024,
			MaxRolls:  3,
		},
	}
}
