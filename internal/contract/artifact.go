// Package contract loads the Lock contract build artifact and encodes the
// constructor and function calls the lock workflow sends.
package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Artifact is the subset of a Hardhat compilation artifact the client uses.
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads and validates a Hardhat artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	// #nosec G304 -- artifact path comes from user configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tlerr.WithCause(tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{"path": path}), err)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes artifact JSON.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, tlerr.WithCause(tlerr.ErrArtifactInvalid, fmt.Errorf("decoding artifact: %w", err))
	}
	if _, err := a.Code(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Code decodes the creation bytecode.
func (a *Artifact) Code() ([]byte, error) {
	raw := strings.TrimSpace(a.Bytecode)
	if raw == "" || raw == "0x" {
		return nil, tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{
			"contract": a.ContractName,
			"reason":   "artifact has no bytecode",
		})
	}
	if !strings.HasPrefix(raw, "0x") {
		raw = "0x" + raw
	}
	code, err := hexutil.Decode(raw)
	if err != nil {
		return nil, tlerr.WithCause(tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{
			"contract": a.ContractName,
			"reason":   "bytecode is not hex",
		}), err)
	}
	return code, nil
}

// HasABI reports whether the artifact carries an ABI.
func (a *Artifact) HasABI() bool {
	trimmed := strings.TrimSpace(string(a.ABI))
	return trimmed != "" && trimmed != "null" && trimmed != "[]"
}

// ParsedABI parses the artifact's ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(string(a.ABI)))
	if err != nil {
		return abi.ABI{}, tlerr.WithCause(tlerr.WithDetails(tlerr.ErrArtifactInvalid, map[string]string{
			"contract": a.ContractName,
			"reason":   "abi does not parse",
		}), err)
	}
	return parsed, nil
}
