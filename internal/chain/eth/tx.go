package eth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// TxParams contains parameters for building a legacy transaction.
// A nil To creates a contract.
type TxParams struct {
	Nonce   uint64
	To      *common.Address
	Value   *big.Int
	Gas     GasParams
	Data    []byte
	ChainID *big.Int
}

// Validate checks that the transaction parameters are usable.
func (p *TxParams) Validate() error {
	if p.Value == nil || p.Value.Sign() < 0 {
		return tlerr.WithDetails(tlerr.ErrInvalidAmount, map[string]string{
			"reason": "value must be non-negative",
		})
	}
	if p.Gas.Limit == 0 || p.Gas.Price == nil {
		return ErrInvalidGas
	}
	if p.ChainID == nil || p.ChainID.Sign() <= 0 {
		return tlerr.ErrInvalidChainID
	}
	if p.To == nil && len(p.Data) == 0 {
		return tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{
			"reason": "contract creation requires bytecode",
		})
	}
	return nil
}

// BuildTransaction creates an unsigned legacy transaction.
func BuildTransaction(params *TxParams) (*types.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	return types.NewTx(&types.LegacyTx{
		Nonce:    params.Nonce,
		To:       params.To,
		Value:    params.Value,
		Gas:      params.Gas.Limit,
		GasPrice: params.Gas.Price,
		Data:     params.Data,
	}), nil
}

// SignTransaction signs a transaction with the EIP-155 signer for chainID.
func SignTransaction(tx *types.Transaction, key *ecdsa.PrivateKey, chainID *big.Int) (*types.Transaction, error) {
	signer := types.NewEIP155Signer(chainID)

	signedTx, err := types.SignTx(tx, signer, key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	return signedTx, nil
}

// ContractAddress returns the address a contract created by sender at nonce receives.
func ContractAddress(sender common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(sender, nonce)
}

// DeriveAddress derives an Ethereum address from a private key.
func DeriveAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// ZeroPrivateKey zeros out a private key byte slice.
func ZeroPrivateKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
