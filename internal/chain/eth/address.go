package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// IsValidAddress checks if the address is a valid Ethereum address format.
// This validates the format (40 hex chars with 0x prefix) but does not validate checksum.
func IsValidAddress(address string) bool {
	return len(address) == 42 && strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// ToChecksumAddress converts an Ethereum address to EIP-55 checksum format.
// If the input is invalid, it returns the original input unchanged.
func ToChecksumAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}

// ParseAddress validates an address string and returns it as a common.Address.
// All lowercase and all uppercase addresses are accepted as non-checksummed;
// mixed-case addresses must carry a correct EIP-55 checksum.
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !IsValidAddress(address) {
		return common.Address{}, tlerr.WithDetails(tlerr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	body := address[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if expected := ToChecksumAddress(address); expected != address {
			return common.Address{}, tlerr.WithDetails(tlerr.ErrInvalidAddress, map[string]string{
				"address":  address,
				"expected": expected,
				"reason":   "checksum mismatch",
			})
		}
	}

	return common.HexToAddress(address), nil
}
