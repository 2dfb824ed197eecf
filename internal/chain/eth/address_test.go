package eth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/chain/eth"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

func TestIsValidAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"checksummed", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", true},
		{"lowercase", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", true},
		{"no prefix", "f39fd6e51aad88f6f4ce6ab8827279cfffb92266", false},
		{"too short", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb9226", false},
		{"non hex", "0xg39fd6e51aad88f6f4ce6ab8827279cfffb92266", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, eth.IsValidAddress(tt.address))
		})
	}
}

func TestToChecksumAddress(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		eth.ToChecksumAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"),
	)
	assert.Equal(t, "bogus", eth.ToChecksumAddress("bogus"))
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	t.Run("lowercase accepted", func(t *testing.T) {
		t.Parallel()
		addr, err := eth.ParseAddress(" 0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266 ")
		require.NoError(t, err)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", addr.Hex())
	})

	t.Run("valid checksum accepted", func(t *testing.T) {
		t.Parallel()
		_, err := eth.ParseAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
		require.NoError(t, err)
	})

	t.Run("bad checksum rejected", func(t *testing.T) {
		t.Parallel()
		_, err := eth.ParseAddress("0xF39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
		require.ErrorIs(t, err, tlerr.ErrInvalidAddress)

		var te *tlerr.TimelockError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "checksum mismatch", te.Details["reason"])
	})

	t.Run("garbage rejected", func(t *testing.T) {
		t.Parallel()
		_, err := eth.ParseAddress("0x1234")
		require.ErrorIs(t, err, tlerr.ErrInvalidAddress)
	})
}
