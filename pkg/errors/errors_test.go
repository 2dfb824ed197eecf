package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

var (
	errInner = errors.New("inner")
	errPlain = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, tlerr.ExitSuccess},
		{"general error", tlerr.ErrGeneral, tlerr.ExitGeneral},
		{"input error", tlerr.ErrInvalidInput, tlerr.ExitInput},
		{"no provider", tlerr.ErrNoProvider, tlerr.ExitNotFound},
		{"user rejected", tlerr.ErrUserRejected, tlerr.ExitRejected},
		{"no deployed contract", tlerr.ErrNoDeployedContract, tlerr.ExitInput},
		{"network error", tlerr.ErrNetwork, tlerr.ExitGeneral},
		{"plain error", errPlain, tlerr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tlerr.ExitCode(tt.err))
		})
	}
}

func TestSentinelIdentitySurvivesWrapping(t *testing.T) {
	t.Parallel()
	sentinels := []*tlerr.TimelockError{
		tlerr.ErrNoProvider,
		tlerr.ErrUserRejected,
		tlerr.ErrNetwork,
		tlerr.ErrProviderRevert,
		tlerr.ErrProviderUnparseable,
		tlerr.ErrNoDeployedContract,
		tlerr.ErrReceiptTimeout,
	}

	for _, sentinel := range sentinels {
		t.Run(sentinel.Code, func(t *testing.T) {
			t.Parallel()
			wrapped := tlerr.Wrap(sentinel, "context")
			require.ErrorIs(t, wrapped, sentinel)

			detailed := tlerr.WithDetails(sentinel, map[string]string{"k": "v"})
			require.ErrorIs(t, detailed, sentinel)

			caused := tlerr.WithCause(sentinel, errInner)
			require.ErrorIs(t, caused, sentinel)
			require.ErrorIs(t, caused, errInner)
		})
	}
}

func TestTimelockError_Error(t *testing.T) {
	t.Parallel()

	t.Run("message only", func(t *testing.T) {
		t.Parallel()
		err := &tlerr.TimelockError{Code: "TEST", Message: "something failed"}
		assert.Equal(t, "something failed", err.Error())
	})

	t.Run("with details sorted", func(t *testing.T) {
		t.Parallel()
		err := &tlerr.TimelockError{
			Code:    "TEST",
			Message: "failed",
			Details: map[string]string{"beta": "2", "alpha": "1"},
		}
		assert.Equal(t, "failed (alpha: 1) (beta: 2)", err.Error())
	})

	t.Run("with details and cause", func(t *testing.T) {
		t.Parallel()
		err := &tlerr.TimelockError{
			Code:    "TEST",
			Message: "outer",
			Details: map[string]string{"key": "val"},
			Cause:   errInner,
		}
		assert.Equal(t, "outer (key: val): inner", err.Error())
	})
}

func TestTimelockError_Is(t *testing.T) {
	t.Parallel()

	a := &tlerr.TimelockError{Code: "SAME_CODE", Message: "a"}
	b := &tlerr.TimelockError{Code: "SAME_CODE", Message: "b"}
	c := &tlerr.TimelockError{Code: "OTHER", Message: "c"}

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
	assert.False(t, a.Is(errPlain))
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, tlerr.Wrap(nil, "context"))
	})

	t.Run("field preservation", func(t *testing.T) {
		t.Parallel()
		original := tlerr.WithDetails(tlerr.ErrNoDeployedContract, map[string]string{"network": "localhost"})
		wrapped := tlerr.Wrap(original, "unlock %s", "call")

		var te *tlerr.TimelockError
		require.ErrorAs(t, wrapped, &te)
		assert.Equal(t, "NO_DEPLOYED_CONTRACT", te.Code)
		assert.Contains(t, te.Message, "unlock call")
		assert.Equal(t, map[string]string{"network": "localhost"}, te.Details)
		assert.Equal(t, "run 'timelock deploy' first", te.Suggestion)
		assert.Equal(t, tlerr.ExitInput, te.ExitCode)
	})

	t.Run("plain error", func(t *testing.T) {
		t.Parallel()
		wrapped := tlerr.Wrap(errPlain, "context")
		var te *tlerr.TimelockError
		require.ErrorAs(t, wrapped, &te)
		assert.Equal(t, "GENERAL_ERROR", te.Code)
		assert.Equal(t, errPlain, te.Cause)
	})
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()
	err := tlerr.WithSuggestion(tlerr.ErrInvalidUnlockTime, "try 1100")

	var te *tlerr.TimelockError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "try 1100", te.Suggestion)
	assert.Equal(t, "INVALID_UNLOCK_TIME", te.Code)
}

func TestWithCause_plainSentinel(t *testing.T) {
	t.Parallel()
	err := tlerr.WithCause(errPlain, errInner)
	require.ErrorIs(t, err, errPlain)
	require.ErrorIs(t, err, errInner)
	assert.NoError(t, tlerr.WithCause(nil, errInner))
}

func TestCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "NETWORK_ERROR", tlerr.Code(tlerr.ErrNetwork))
	assert.Equal(t, "GENERAL_ERROR", tlerr.Code(errPlain))
	assert.Equal(t, "GENERAL_ERROR", tlerr.Code(nil))
}
