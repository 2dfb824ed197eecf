// Package lock implements the time-locked payment workflow: connecting a
// wallet, checking an unlock time against the chain, building and
// submitting deploy, unlock and withdraw transactions, and reporting their
// outcome.
package lock

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Operation is a transaction-producing action on the Lock contract.
type Operation int

// Operations.
const (
	OpDeploy Operation = iota + 1
	OpUnlock
	OpWithdraw
)

// String returns the command name of the operation.
func (o Operation) String() string {
	switch o {
	case OpDeploy:
		return "deploy"
	case OpUnlock:
		return "unlock"
	case OpWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// Label is the name used in status messages.
func (o Operation) Label() string {
	switch o {
	case OpDeploy:
		return "Contract creation"
	case OpUnlock:
		return "Unlock"
	case OpWithdraw:
		return "Withdraw"
	default:
		return "Unknown"
	}
}

// ParseOperation parses an operation name.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deploy":
		return OpDeploy, nil
	case "unlock":
		return OpUnlock, nil
	case "withdraw":
		return OpWithdraw, nil
	default:
		return 0, tlerr.WithDetails(tlerr.ErrUnknownOperation, map[string]string{"operation": s})
	}
}

// WalletSession is the connected account and its last known balance.
type WalletSession struct {
	Address    common.Address `json:"address"`
	BalanceWei *big.Int       `json:"balance_wei"`
}

// LockContractRef is the contract deployed in this session.
type LockContractRef struct {
	Address          common.Address `json:"address"`
	CachedBalanceWei *big.Int       `json:"cached_balance_wei"`
	UnlockTime       uint64         `json:"unlock_time,omitempty"`
	DeployTx         common.Hash    `json:"deploy_tx"`
}

// PendingDeploy is a deployment that was sent but whose receipt had not
// been seen when the command gave up waiting.
type PendingDeploy struct {
	TxHash      common.Hash `json:"tx_hash"`
	UnlockTime  uint64      `json:"unlock_time"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Session is the state shared by successive operations on one network.
// Operations take a Session and return the updated value.
type Session struct {
	Network       string           `json:"network"`
	ChainID       int64            `json:"chain_id"`
	Wallet        *WalletSession   `json:"wallet,omitempty"`
	Contract      *LockContractRef `json:"contract,omitempty"`
	PendingDeploy *PendingDeploy   `json:"pending_deploy,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewSession returns an inactive session for a network.
func NewSession(network string, chainID int64) Session {
	return Session{Network: network, ChainID: chainID}
}

// Active reports whether a wallet is connected.
func (s Session) Active() bool {
	return s.Wallet != nil
}

// HasContract reports whether a Lock contract has been deployed.
func (s Session) HasContract() bool {
	return s.Contract != nil
}

// LockRequest is the user's intent for a deployment.
type LockRequest struct {
	UnlockTimestamp uint64
	AmountWei       *big.Int
}

// Validate checks the amount and timestamp.
func (r LockRequest) Validate() error {
	if r.AmountWei == nil || r.AmountWei.Sign() < 0 {
		return tlerr.WithDetails(tlerr.ErrInvalidAmount, map[string]string{"reason": "amount must be non-negative"})
	}
	if r.UnlockTimestamp == 0 {
		return tlerr.WithDetails(tlerr.ErrInvalidUnlockTime, map[string]string{"reason": "unlock time is required"})
	}
	return nil
}

// TransactionIntent is a fully specified transaction awaiting submission.
// A nil To is a contract creation.
type TransactionIntent struct {
	Operation Operation
	From      common.Address
	To        *common.Address
	ValueWei  *big.Int
	Data      []byte
	GasLimit  uint64
	GasPrice  *big.Int
	Nonce     uint64
	ChainID   int64
}

// Clone returns a deep copy.
func (i TransactionIntent) Clone() TransactionIntent {
	c := i
	if i.To != nil {
		to := *i.To
		c.To = &to
	}
	if i.ValueWei != nil {
		c.ValueWei = new(big.Int).Set(i.ValueWei)
	}
	if i.GasPrice != nil {
		c.GasPrice = new(big.Int).Set(i.GasPrice)
	}
	c.Data = append([]byte(nil), i.Data...)
	return c
}

// TxRequest converts the intent to eth_sendTransaction parameters.
func (i TransactionIntent) TxRequest() rpc.TxRequest {
	value := i.ValueWei
	if value == nil {
		value = new(big.Int)
	}
	return rpc.TxRequest{
		From:     i.From,
		To:       i.To,
		Nonce:    hexutil.Uint64(i.Nonce),
		Gas:      hexutil.Uint64(i.GasLimit),
		GasPrice: (*hexutil.Big)(i.GasPrice),
		Value:    (*hexutil.Big)(value),
		Data:     i.Data,
		ChainID:  hexutil.Uint64(uint64(i.ChainID)), //nolint:gosec // chain IDs are validated positive
	}
}

// Outcome is the result of a submitted transaction: a success carrying the
// hash and, for deployments, the contract address, or a failure carrying an
// optional reason. A pending outcome was sent but never confirmed.
type Outcome struct {
	Succeeded       bool
	TxHash          common.Hash
	ContractAddress *common.Address
	Reason          string
	Cancelled       bool // the user declined in the wallet
	Pending         bool
}

// Success builds a successful outcome.
func Success(hash common.Hash, contractAddress *common.Address) Outcome {
	return Outcome{Succeeded: true, TxHash: hash, ContractAddress: contractAddress}
}

// Failure builds a failed outcome.
func Failure(hash common.Hash, reason string) Outcome {
	return Outcome{TxHash: hash, Reason: reason}
}

// Submitted builds the outcome of a transaction whose receipt never arrived.
func Submitted(hash common.Hash) Outcome {
	return Outcome{TxHash: hash, Pending: true}
}

// Validity is the result of checking a candidate unlock time.
type Validity struct {
	Valid              bool   `json:"valid"`
	Candidate          uint64 `json:"candidate"`
	ReferenceTimestamp uint64 `json:"reference_timestamp"`
	Suggested          uint64 `json:"suggested,omitempty"`
}

// ContractStatus is the on-chain view of the deployed Lock contract.
type ContractStatus struct {
	Address    common.Address `json:"address"`
	Owner      common.Address `json:"owner"`
	UnlockTime uint64         `json:"unlock_time"`
	BalanceWei *big.Int       `json:"balance_wei"`
	Unlocked   bool           `json:"unlocked"`
	BlockTime  uint64         `json:"block_time"`
}
