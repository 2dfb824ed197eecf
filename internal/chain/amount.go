// Package chain provides chain-agnostic helpers shared by the Ethereum
// client and the lock workflow: amount conversion, bounded retry and
// per-endpoint rate limiting.
package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Unit is a denomination of ether.
type Unit string

// Supported units.
const (
	UnitWei   Unit = "wei"
	UnitGwei  Unit = "gwei"
	UnitEther Unit = "ether"
)

// Decimals returns the number of decimal places between wei and the unit.
func (u Unit) Decimals() (int32, bool) {
	switch u {
	case UnitWei:
		return 0, true
	case UnitGwei:
		return 9, true
	case UnitEther, "eth":
		return 18, true
	default:
		return 0, false
	}
}

// ParseUnit normalizes a unit name. An empty name means wei.
func ParseUnit(name string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(name)))
	if u == "" {
		return UnitWei, nil
	}
	if u == "eth" {
		u = UnitEther
	}
	if _, ok := u.Decimals(); !ok {
		return "", tlerr.WithDetails(tlerr.ErrInvalidAmount, map[string]string{"unit": name})
	}
	return u, nil
}

// ParseAmount converts a decimal string in the given unit to wei.
// Negative values and fractions of a wei are rejected.
// For example, "1.5" ether returns 1500000000000000000.
func ParseAmount(amount string, unit Unit) (*big.Int, error) {
	places, ok := unit.Decimals()
	if !ok {
		return nil, tlerr.WithDetails(tlerr.ErrInvalidAmount, map[string]string{"unit": string(unit)})
	}

	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, tlerr.ErrInvalidAmount
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, tlerr.WithDetails(tlerr.ErrInvalidAmount, map[string]string{"amount": amount})
	}
	if d.IsNegative() {
		return nil, tlerr.WithDetails(tlerr.ErrInvalidAmount, map[string]string{
			"amount": amount,
			"reason": "amount must not be negative",
		})
	}

	wei := d.Shift(places)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, tlerr.WithDetails(tlerr.ErrInvalidAmount, map[string]string{
			"amount": amount,
			"reason": "amount has more precision than one wei",
		})
	}
	return wei.BigInt(), nil
}

// FormatAmount renders a wei amount in the given unit with trailing zeros removed.
// For example, 1500000000000000000 wei in ether returns "1.5".
func FormatAmount(wei *big.Int, unit Unit) string {
	if wei == nil {
		return "0"
	}
	places, ok := unit.Decimals()
	if !ok {
		places = 0
	}
	return decimal.NewFromBigInt(wei, -places).String()
}

// FormatEther renders a wei amount as ether.
func FormatEther(wei *big.Int) string {
	return FormatAmount(wei, UnitEther)
}
