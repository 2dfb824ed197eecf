package contract

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Lock contract method names.
const (
	MethodUnlock     = "unlock"
	MethodWithdraw   = "withdraw"
	MethodUnlockTime = "unlockTime"
	MethodOwner      = "owner"
)

//go:embed lock_abi.json
var lockABIJSON string

// DefaultABI parses the embedded Lock ABI.
func DefaultABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(lockABIJSON))
}

// Lock encodes and decodes Lock contract payloads.
type Lock struct {
	abi  abi.ABI
	code []byte
}

// NewLock builds a codec from an artifact. The artifact's own ABI is used
// when present, otherwise the embedded one.
func NewLock(a *Artifact) (*Lock, error) {
	code, err := a.Code()
	if err != nil {
		return nil, err
	}

	parsed, err := DefaultABI()
	if err != nil {
		return nil, fmt.Errorf("parsing embedded abi: %w", err)
	}
	if a.HasABI() {
		if parsed, err = a.ParsedABI(); err != nil {
			return nil, err
		}
	}

	if err := checkLockABI(parsed); err != nil {
		return nil, tlerr.WithDetails(err, map[string]string{"contract": a.ContractName})
	}

	return &Lock{abi: parsed, code: code}, nil
}

// DefaultLock builds a codec from the embedded ABI without creation
// bytecode. It can call a deployed contract but not deploy one.
func DefaultLock() (*Lock, error) {
	parsed, err := DefaultABI()
	if err != nil {
		return nil, fmt.Errorf("parsing embedded abi: %w", err)
	}
	return &Lock{abi: parsed}, nil
}

// CanDeploy reports whether creation bytecode is available.
func (l *Lock) CanDeploy() bool {
	return len(l.code) > 0
}

// checkLockABI verifies the shapes the workflow relies on.
func checkLockABI(parsed abi.ABI) error {
	in := parsed.Constructor.Inputs
	if len(in) != 1 || in[0].Type.T != abi.UintTy {
		return tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{
			"reason": "constructor must take a single uint unlock time",
		})
	}
	for _, name := range []string{MethodUnlock, MethodWithdraw} {
		m, ok := parsed.Methods[name]
		if !ok || len(m.Inputs) != 0 {
			return tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{
				"reason": "missing zero-argument " + name + "()",
			})
		}
	}
	return nil
}

// ABI returns the parsed ABI.
func (l *Lock) ABI() abi.ABI {
	return l.abi
}

// Bytecode returns a copy of the creation bytecode.
func (l *Lock) Bytecode() []byte {
	return bytes.Clone(l.code)
}

// EncodeDeploy returns creation bytecode followed by the ABI-encoded unlock time.
func (l *Lock) EncodeDeploy(unlockTime uint64) ([]byte, error) {
	if !l.CanDeploy() {
		return nil, tlerr.WithSuggestion(
			tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{"reason": "no creation bytecode"}),
			"set contract.artifact (or TIMELOCK_ARTIFACT) to the Lock.json build artifact")
	}
	args, err := l.abi.Pack("", new(big.Int).SetUint64(unlockTime))
	if err != nil {
		return nil, fmt.Errorf("encoding constructor: %w", err)
	}
	data := make([]byte, 0, len(l.code)+len(args))
	data = append(data, l.code...)
	return append(data, args...), nil
}

// DecodeDeployArg recovers the unlock time from deployment data built by EncodeDeploy.
func (l *Lock) DecodeDeployArg(data []byte) (uint64, error) {
	if !bytes.HasPrefix(data, l.code) {
		return 0, tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{"reason": "data does not start with lock bytecode"})
	}
	values, err := l.abi.Constructor.Inputs.Unpack(data[len(l.code):])
	if err != nil {
		return 0, fmt.Errorf("decoding constructor: %w", err)
	}
	return uintArg(values)
}

// EncodeCall encodes a zero-argument call such as unlock() or withdraw().
func (l *Lock) EncodeCall(method string) ([]byte, error) {
	if _, ok := l.abi.Methods[method]; !ok {
		return nil, tlerr.WithDetails(tlerr.ErrUnknownOperation, map[string]string{"method": method})
	}
	data, err := l.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	return data, nil
}

// DecodeUnlockTime decodes the result of unlockTime().
func (l *Lock) DecodeUnlockTime(out []byte) (uint64, error) {
	values, err := l.abi.Unpack(MethodUnlockTime, out)
	if err != nil {
		return 0, fmt.Errorf("decoding unlockTime: %w", err)
	}
	return uintArg(values)
}

// DecodeOwner decodes the result of owner().
func (l *Lock) DecodeOwner(out []byte) (common.Address, error) {
	values, err := l.abi.Unpack(MethodOwner, out)
	if err != nil {
		return common.Address{}, fmt.Errorf("decoding owner: %w", err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("decoding owner: got %d values", len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decoding owner: unexpected type %T", values[0])
	}
	return addr, nil
}

// DecodeRevert extracts the reason string from Error(string) revert data.
func DecodeRevert(data []byte) (string, bool) {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return "", false
	}
	return reason, true
}

func uintArg(values []any) (uint64, error) {
	if len(values) != 1 {
		return 0, fmt.Errorf("expected one value, got %d", len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", values[0])
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("value %s overflows uint64", v)
	}
	return v.Uint64(), nil
}
