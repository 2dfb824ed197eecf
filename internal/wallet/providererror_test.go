package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// revertData returns the ABI encoding of Error(reason) as 0x-prefixed hex.
func revertData(t *testing.T, reason string) string {
	t.Helper()
	head := "08c379a0" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		fmt.Sprintf("%064x", len(reason))
	body := hex.EncodeToString([]byte(reason))
	for len(body)%64 != 0 {
		body += "0"
	}
	return "0x" + head + body
}

func TestDecodeProviderError_Reverts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{
			name:   "rpc marker fragment",
			err:    errors.New(`RPC '{"value":{"data":{"message":"revert X"}}}'`),
			reason: "revert X",
		},
		{
			name: "rpc marker inside provider message",
			err: &rpc.Error{
				Code:    -32603,
				Message: `[ethjs-query] while formatting outputs from RPC '{"value":{"code":-32603,"data":{"code":-32603,"message":"VM Exception while processing transaction: revert You can't withdraw yet"}}}'`,
			},
			reason: "VM Exception while processing transaction: revert You can't withdraw yet",
		},
		{
			name:   "data message object",
			err:    &rpc.Error{Code: -32000, Message: "execution failed", Data: []byte(`{"message":"revert You aren't the owner"}`)},
			reason: "revert You aren't the owner",
		},
		{
			name:   "abi encoded revert data",
			err:    &rpc.Error{Code: 3, Message: "execution reverted", Data: []byte(`"` + revertData(t, "You can't withdraw yet") + `"`)},
			reason: "You can't withdraw yet",
		},
		{
			name:   "nested data",
			err:    &rpc.Error{Code: -32603, Message: "Internal error", Data: []byte(`{"data":{"reason":"Unlock time should be in the future"}}`)},
			reason: "Unlock time should be in the future",
		},
		{
			name:   "hardhat reason string",
			err:    &rpc.Error{Code: -32603, Message: "Error: VM Exception while processing transaction: reverted with reason string 'You can't withdraw yet'"},
			reason: "You can't withdraw yet",
		},
		{
			name:   "geth execution reverted",
			err:    &rpc.Error{Code: 3, Message: "execution reverted: You aren't the owner"},
			reason: "You aren't the owner",
		},
		{
			name:   "ganache vm exception",
			err:    errors.New("Error: VM Exception while processing transaction: revert You can't withdraw yet"),
			reason: "VM Exception while processing transaction: revert You can't withdraw yet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decoded := DecodeProviderError(tt.err)
			require.ErrorIs(t, decoded, tlerr.ErrProviderRevert)

			reason, ok := RevertReason(decoded)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestDecodeProviderError_Classification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"user rejected", &rpc.Error{Code: rpc.CodeUserRejected, Message: "User denied transaction signature."}, tlerr.ErrUserRejected},
		{"opaque message", errors.New("something odd happened"), tlerr.ErrProviderUnparseable},
		{"marker without json", errors.New("RPC '{not json'"), tlerr.ErrProviderUnparseable},
		{"marker without message", errors.New(`RPC '{"value":{}}'`), tlerr.ErrProviderUnparseable},
		{"unknown code", &rpc.Error{Code: -32000, Message: "insufficient funds for gas * price + value"}, tlerr.ErrProviderUnparseable},
		{"bare execution reverted", &rpc.Error{Code: 3, Message: "execution reverted"}, tlerr.ErrProviderUnparseable},
		{"vm exception without reason", errors.New("VM Exception while processing transaction: revert"), tlerr.ErrProviderUnparseable},
		{"mentions revert in passing", errors.New("wallet could not revert its nonce cache"), tlerr.ErrProviderUnparseable},
		{"custom error data", &rpc.Error{Code: 3, Message: "execution failed", Data: []byte(`"0xdeadbeef"`)}, tlerr.ErrProviderUnparseable},
		{"structured passes through", tlerr.ErrNetwork, tlerr.ErrNetwork},
		{"canceled passes through", context.Canceled, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decoded := DecodeProviderError(tt.err)
			require.ErrorIs(t, decoded, tt.want)
			_, ok := RevertReason(decoded)
			assert.False(t, ok)
		})
	}

	require.NoError(t, DecodeProviderError(nil))
}
