package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/chain/eth/ethtest"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		candidate uint64
		latest    uint64
		valid     bool
		suggested uint64
	}{
		{"equal to latest", 1000, 1000, false, 1100},
		{"one second later", 1001, 1000, true, 0},
		{"in the past", 10, 1000, false, 1100},
		{"far future", 4102444800, 1000, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := validate(tt.candidate, tt.latest)
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.candidate, v.Candidate)
			assert.Equal(t, tt.latest, v.ReferenceTimestamp)
			assert.Equal(t, tt.suggested, v.Suggested)
		})
	}
}

func TestService_CheckUnlockTime(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.SetBlockTime(1000)

	v, err := f.svc.CheckUnlockTime(context.Background(), 1000)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, uint64(1100), v.Suggested)

	v, err = f.svc.CheckUnlockTime(context.Background(), 1001)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, f.backend.Sent(), "checking never submits a transaction")
}

func TestService_CheckUnlockTime_NetworkError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.Fail(ethtest.MethodHeaderByNumber, ethtest.ErrUnreachable)

	_, err := f.svc.CheckUnlockTime(context.Background(), 1001)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading latest block")
}

func TestValidityMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Unlock time 1001 is valid (latest block timestamp is 1000)",
		ValidityMessage(validate(1001, 1000)))
	assert.Equal(t, "Unlock time 1000 is not valid: it must be later than the latest block timestamp 1000, try 1100",
		ValidityMessage(validate(1000, 1000)))
}
