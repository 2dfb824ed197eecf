package contract

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

const fakeBytecode = "0x6080604052"

func newTestLock(t *testing.T) *Lock {
	t.Helper()
	lock, err := NewLock(&Artifact{ContractName: "Lock", Bytecode: fakeBytecode})
	require.NoError(t, err)
	return lock
}

func TestDefaultABI(t *testing.T) {
	t.Parallel()
	parsed, err := DefaultABI()
	require.NoError(t, err)

	require.Len(t, parsed.Constructor.Inputs, 1)
	assert.Equal(t, "_unlockTime", parsed.Constructor.Inputs[0].Name)
	for _, name := range []string{MethodUnlock, MethodWithdraw, MethodUnlockTime, MethodOwner} {
		assert.Contains(t, parsed.Methods, name)
	}
	assert.Contains(t, parsed.Events, "Withdrawal")
}

func TestLock_EncodeDeploy(t *testing.T) {
	t.Parallel()
	lock := newTestLock(t)

	data, err := lock.EncodeDeploy(1100)
	require.NoError(t, err)

	code := lock.Bytecode()
	require.Len(t, data, len(code)+32)
	assert.Equal(t, code, data[:len(code)])
	assert.Equal(t, big.NewInt(1100), new(big.Int).SetBytes(data[len(code):]))

	again, err := lock.EncodeDeploy(1100)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDefaultLock(t *testing.T) {
	t.Parallel()
	lock, err := DefaultLock()
	require.NoError(t, err)
	assert.False(t, lock.CanDeploy())

	_, err = lock.EncodeDeploy(1100)
	require.ErrorIs(t, err, tlerr.ErrArtifactInvalid)

	data, err := lock.EncodeCall(MethodWithdraw)
	require.NoError(t, err)
	assert.Len(t, data, 4)
}

func TestLock_DecodeDeployArg(t *testing.T) {
	t.Parallel()
	lock := newTestLock(t)

	for _, ts := range []uint64{1, 1001, 1700000000, ^uint64(0)} {
		data, err := lock.EncodeDeploy(ts)
		require.NoError(t, err)

		got, err := lock.DecodeDeployArg(data)
		require.NoError(t, err)
		assert.Equal(t, ts, got)
	}

	_, err := lock.DecodeDeployArg([]byte{0x01, 0x02})
	require.ErrorIs(t, err, tlerr.ErrInvalidInput)
}

func TestLock_EncodeCall(t *testing.T) {
	t.Parallel()
	lock := newTestLock(t)

	tests := []struct {
		method   string
		selector string
	}{
		{MethodUnlock, "a69df4b5"},
		{MethodWithdraw, "3ccfd60b"},
		{MethodUnlockTime, "251c1aa3"},
		{MethodOwner, "8da5cb5b"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			data, err := lock.EncodeCall(tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.selector, hex.EncodeToString(data))
		})
	}

	_, err := lock.EncodeCall("destroy")
	require.ErrorIs(t, err, tlerr.ErrUnknownOperation)
}

func TestLock_DecodeViews(t *testing.T) {
	t.Parallel()
	lock := newTestLock(t)

	word := common.LeftPadBytes(big.NewInt(1100).Bytes(), 32)
	ts, err := lock.DecodeUnlockTime(word)
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), ts)

	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	got, err := lock.DecodeOwner(common.LeftPadBytes(owner.Bytes(), 32))
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	_, err = lock.DecodeUnlockTime(nil)
	require.Error(t, err)
}

func TestNewLock_ArtifactABI(t *testing.T) {
	t.Parallel()

	t.Run("embedded abi is used when artifact has none", func(t *testing.T) {
		t.Parallel()
		lock, err := NewLock(&Artifact{Bytecode: fakeBytecode, ABI: []byte("null")})
		require.NoError(t, err)
		assert.Contains(t, lock.ABI().Methods, MethodWithdraw)
	})

	t.Run("artifact abi without withdraw is rejected", func(t *testing.T) {
		t.Parallel()
		abiJSON := `[{"type":"constructor","inputs":[{"name":"t","type":"uint256"}]},` +
			`{"type":"function","name":"unlock","inputs":[],"outputs":[]}]`
		_, err := NewLock(&Artifact{ContractName: "Partial", Bytecode: fakeBytecode, ABI: []byte(abiJSON)})
		require.ErrorIs(t, err, tlerr.ErrArtifactInvalid)
	})

	t.Run("constructor without arguments is rejected", func(t *testing.T) {
		t.Parallel()
		abiJSON := `[{"type":"function","name":"unlock","inputs":[],"outputs":[]},` +
			`{"type":"function","name":"withdraw","inputs":[],"outputs":[]}]`
		_, err := NewLock(&Artifact{Bytecode: fakeBytecode, ABI: []byte(abiJSON)})
		require.ErrorIs(t, err, tlerr.ErrArtifactInvalid)
	})

	t.Run("missing bytecode", func(t *testing.T) {
		t.Parallel()
		_, err := NewLock(&Artifact{Bytecode: "0x"})
		require.ErrorIs(t, err, tlerr.ErrArtifactInvalid)
	})
}

func TestDecodeRevert(t *testing.T) {
	t.Parallel()

	errorString, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Type: errorString}}
	packed, err := args.Pack("You can't withdraw yet")
	require.NoError(t, err)
	data := append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)

	reason, ok := DecodeRevert(data)
	require.True(t, ok)
	assert.Equal(t, "You can't withdraw yet", reason)

	_, ok = DecodeRevert([]byte{0xde, 0xad})
	assert.False(t, ok)
}
