package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"

	"github.com/mrz1836/timelock/internal/chain/eth"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// DefaultDerivationPath is the first external account of coin type 60.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// DeriveKey derives the secp256k1 key at path from a BIP39 seed.
func DeriveKey(seed []byte, path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		path = DefaultDerivationPath
	}
	indices, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, tlerr.WithCause(tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{"path": path}), err)
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}
	for _, idx := range indices {
		if key, err = key.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("deriving child %d: %w", idx, err)
		}
	}

	priv, err := crypto.ToECDSA(key.Key)
	eth.ZeroPrivateKey(key.Key)
	if err != nil {
		return nil, fmt.Errorf("converting key: %w", err)
	}
	return priv, nil
}

// KeyFromMnemonic validates mnemonic and derives the key at path.
func KeyFromMnemonic(mnemonic, path string) (*ecdsa.PrivateKey, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		if typos := DetectTypos(mnemonic); len(typos) > 0 {
			return nil, tlerr.WithSuggestion(tlerr.WithCause(tlerr.ErrInvalidInput, err), FormatTypoSuggestions(typos))
		}
		return nil, tlerr.WithCause(tlerr.ErrInvalidInput, err)
	}

	seed, err := MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer eth.ZeroPrivateKey(seed)

	return DeriveKey(seed, path)
}
