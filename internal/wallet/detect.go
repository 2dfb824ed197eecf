package wallet

import (
	"fmt"

	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	"github.com/mrz1836/timelock/internal/config"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

const keyedNoKeySuggestion = "set TIMELOCK_MNEMONIC or run 'timelock key new --save'"

// DetectOptions carries what Detect needs beyond the configuration.
type DetectOptions struct {
	Network    config.Network
	Backend    TxBackend              // chain access for the keyed provider
	Approver   Approver               // nil approves every transaction
	Passphrase func() (string, error) // unlocks the keystore; nil skips it
}

// Detect builds the configured wallet provider. It fails with ErrNoProvider
// when no provider is configured or the keyed provider has no key material.
func Detect(cfg *config.Config, opts DetectOptions) (Provider, error) {
	switch cfg.Wallet.Provider {
	case config.ProviderNode:
		url := cfg.Wallet.ProviderURL
		if url == "" {
			url = opts.Network.RPC
		}
		if url == "" {
			return nil, tlerr.WithDetails(tlerr.ErrNoProvider, map[string]string{"provider": config.ProviderNode})
		}
		return NewNodeProvider(rpc.NewClient(url)), nil

	case config.ProviderKeyed:
		if opts.Backend == nil {
			return nil, tlerr.WithDetails(tlerr.ErrNoProvider, map[string]string{
				"provider": config.ProviderKeyed,
				"reason":   "no chain backend",
			})
		}
		mnemonic, err := keyedMnemonic(cfg, opts)
		if err != nil {
			return nil, err
		}
		key, err := KeyFromMnemonic(mnemonic, cfg.Wallet.DerivationPath)
		if err != nil {
			return nil, err
		}
		return NewKeyedProvider(key, opts.Backend, opts.Approver), nil

	default:
		return nil, tlerr.WithDetails(tlerr.ErrNoProvider, map[string]string{"provider": cfg.Wallet.Provider})
	}
}

func keyedMnemonic(cfg *config.Config, opts DetectOptions) (string, error) {
	if cfg.Mnemonic != "" {
		return cfg.Mnemonic, nil
	}

	noKey := tlerr.WithSuggestion(tlerr.WithDetails(tlerr.ErrNoProvider, map[string]string{
		"provider": config.ProviderKeyed,
		"reason":   "no mnemonic or keystore",
	}), keyedNoKeySuggestion)

	if cfg.Wallet.Keystore == "" || opts.Passphrase == nil {
		return "", noKey
	}
	path, err := cfg.HomePath(cfg.Wallet.Keystore)
	if err != nil {
		return "", fmt.Errorf("expanding keystore path: %w", err)
	}
	ks := NewKeystore(path)
	exists, err := ks.Exists()
	if err != nil {
		return "", fmt.Errorf("checking keystore: %w", err)
	}
	if !exists {
		return "", noKey
	}

	passphrase, err := opts.Passphrase()
	if err != nil {
		return "", err
	}
	return ks.Load(passphrase)
}
