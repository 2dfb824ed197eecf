package eth

import (
	"math/big"

	"github.com/mrz1836/timelock/internal/chain"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// ErrInvalidGas indicates a gas limit or price that cannot be used.
var ErrInvalidGas = &tlerr.TimelockError{
	Code:     "ETH_INVALID_GAS",
	Message:  "invalid gas parameters",
	ExitCode: tlerr.ExitInput,
}

// GasParams is the fixed gas limit and legacy gas price attached to a transaction.
type GasParams struct {
	Limit uint64   // Maximum gas units
	Price *big.Int // Price per gas unit in wei
}

// NewGasParams validates and copies gas parameters.
func NewGasParams(limit uint64, price *big.Int) (GasParams, error) {
	if limit == 0 {
		return GasParams{}, tlerr.WithDetails(ErrInvalidGas, map[string]string{"reason": "gas limit must be positive"})
	}
	if price == nil || price.Sign() < 0 {
		return GasParams{}, tlerr.WithDetails(ErrInvalidGas, map[string]string{"reason": "gas price must be non-negative"})
	}
	return GasParams{Limit: limit, Price: new(big.Int).Set(price)}, nil
}

// MaxFee is the most the transaction can spend on gas (Limit * Price).
func (g GasParams) MaxFee() *big.Int {
	if g.Price == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(g.Price, new(big.Int).SetUint64(g.Limit))
}

// FormatGasPrice formats a gas price in wei as a Gwei string.
func FormatGasPrice(weiPrice *big.Int) string {
	if weiPrice == nil {
		return "0 Gwei"
	}
	return chain.FormatAmount(weiPrice, chain.UnitGwei) + " Gwei"
}
