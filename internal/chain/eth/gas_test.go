package eth_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/chain/eth"
)

func TestNewGasParams(t *testing.T) {
	t.Parallel()

	price := big.NewInt(766184446)
	g, err := eth.NewGasParams(300000, price)
	require.NoError(t, err)
	assert.Equal(t, uint64(300000), g.Limit)

	price.SetInt64(1)
	assert.Equal(t, int64(766184446), g.Price.Int64(), "price is copied")

	_, err = eth.NewGasParams(0, price)
	require.ErrorIs(t, err, eth.ErrInvalidGas)
	_, err = eth.NewGasParams(1, nil)
	require.ErrorIs(t, err, eth.ErrInvalidGas)
	_, err = eth.NewGasParams(1, big.NewInt(-1))
	require.ErrorIs(t, err, eth.ErrInvalidGas)
}

func TestGasParams_MaxFee(t *testing.T) {
	t.Parallel()
	g := eth.GasParams{Limit: 300000, Price: big.NewInt(766184446)}
	assert.Equal(t, "229855333800000", g.MaxFee().String())
	assert.Equal(t, int64(0), eth.GasParams{Limit: 5}.MaxFee().Int64())
}

func TestFormatGasPrice(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0 Gwei", eth.FormatGasPrice(nil))
	assert.Equal(t, "0.766184446 Gwei", eth.FormatGasPrice(big.NewInt(766184446)))
	assert.Equal(t, "20 Gwei", eth.FormatGasPrice(big.NewInt(20_000_000_000)))
}
