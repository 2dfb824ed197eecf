package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/service/lock"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// out writes formatted output, ignoring write errors.
func out(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// outln writes a line, ignoring write errors.
func outln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

// reportedError is a failure whose report has already been written.
// Execute does not print it again but still exits with its code.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// outcomeJSON is the JSON form of a transaction outcome.
type outcomeJSON struct {
	Succeeded       bool            `json:"succeeded"`
	TxHash          *common.Hash    `json:"tx_hash,omitempty"`
	ContractAddress *common.Address `json:"contract_address,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Cancelled       bool            `json:"cancelled,omitempty"`
	Pending         bool            `json:"pending,omitempty"`
}

// resultJSON is the JSON form of a dispatched operation.
type resultJSON struct {
	Action   string              `json:"action"`
	Message  string              `json:"message"`
	Outcome  *outcomeJSON        `json:"outcome,omitempty"`
	Validity *lock.Validity      `json:"validity,omitempty"`
	Balances []lock.BalanceEntry `json:"balances,omitempty"`
	Session  sessionJSON         `json:"session"`
	Error    string              `json:"error,omitempty"`
}

// sessionJSON is the JSON form of a session with ether amounts alongside wei.
type sessionJSON struct {
	Network       string              `json:"network"`
	ChainID       int64               `json:"chain_id"`
	Wallet        *walletJSON         `json:"wallet,omitempty"`
	Contract      *contractJSON       `json:"contract,omitempty"`
	PendingDeploy *lock.PendingDeploy `json:"pending_deploy,omitempty"`
	UpdatedAt     string              `json:"updated_at,omitempty"`
}

type walletJSON struct {
	Address      common.Address `json:"address"`
	BalanceWei   string         `json:"balance_wei,omitempty"`
	BalanceEther string         `json:"balance_ether,omitempty"`
}

type contractJSON struct {
	Address      common.Address `json:"address"`
	UnlockTime   uint64         `json:"unlock_time,omitempty"`
	DeployTx     common.Hash    `json:"deploy_tx"`
	BalanceWei   string         `json:"balance_wei,omitempty"`
	BalanceEther string         `json:"balance_ether,omitempty"`
}

func newSessionJSON(s lock.Session) sessionJSON {
	v := sessionJSON{Network: s.Network, ChainID: s.ChainID, PendingDeploy: s.PendingDeploy}
	if !s.UpdatedAt.IsZero() {
		v.UpdatedAt = s.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	if s.Wallet != nil {
		v.Wallet = &walletJSON{Address: s.Wallet.Address}
		if s.Wallet.BalanceWei != nil {
			v.Wallet.BalanceWei = s.Wallet.BalanceWei.String()
			v.Wallet.BalanceEther = chain.FormatEther(s.Wallet.BalanceWei)
		}
	}
	if s.Contract != nil {
		v.Contract = &contractJSON{
			Address:    s.Contract.Address,
			UnlockTime: s.Contract.UnlockTime,
			DeployTx:   s.Contract.DeployTx,
		}
		if s.Contract.CachedBalanceWei != nil {
			v.Contract.BalanceWei = s.Contract.CachedBalanceWei.String()
			v.Contract.BalanceEther = chain.FormatEther(s.Contract.CachedBalanceWei)
		}
	}
	return v
}

func newResultJSON(res lock.Result) resultJSON {
	v := resultJSON{
		Action:   res.Action,
		Message:  res.Message,
		Validity: res.Validity,
		Balances: res.Balances,
		Session:  newSessionJSON(res.Session),
	}
	if res.Outcome != nil {
		o := &outcomeJSON{
			Succeeded:       res.Outcome.Succeeded,
			ContractAddress: res.Outcome.ContractAddress,
			Reason:          res.Outcome.Reason,
			Cancelled:       res.Outcome.Cancelled,
			Pending:         res.Outcome.Pending,
		}
		if res.Outcome.TxHash != (common.Hash{}) {
			hash := res.Outcome.TxHash
			o.TxHash = &hash
		}
		v.Outcome = o
	}
	if res.Err != nil {
		v.Error = tlerr.Code(res.Err)
	}
	return v
}

// finish saves the session of a dispatched operation and renders its result.
// Errors without a report are returned for Execute to format; failures that
// were reported come back as reportedError so the exit code still reflects them.
func (rt *lockRuntime) finish(cmd *cobra.Command, res lock.Result) error {
	return rt.finishWith(cmd, res, resultText)
}

// finishWith is finish with a custom text rendering.
func (rt *lockRuntime) finishWith(cmd *cobra.Command, res lock.Result, text func(lock.Result) string) error {
	if err := rt.save(res.Session); err != nil {
		return err
	}
	if res.Err != nil && res.Outcome == nil {
		return res.Err
	}

	rendered := text(res)
	if res.Err != nil {
		rendered += "\n   error: " + res.Err.Error()
	}
	f := rt.cc.formatterFor(cmd)
	if err := f.Result(rendered, newResultJSON(res)); err != nil {
		return err
	}

	switch {
	case res.Err != nil:
		return &reportedError{err: res.Err}
	case res.Outcome != nil && res.Outcome.Cancelled:
		return &reportedError{err: tlerr.ErrUserRejected}
	case res.Outcome != nil && !res.Outcome.Succeeded:
		details := map[string]string{"operation": res.Action}
		if res.Outcome.Reason != "" {
			details["reason"] = res.Outcome.Reason
		}
		return &reportedError{err: tlerr.WithDetails(tlerr.ErrProviderRevert, details)}
	}
	return nil
}

// resultText is the text form of a result: the report line, plus the
// transaction hash when one exists.
func resultText(res lock.Result) string {
	if res.Outcome == nil {
		return res.Message
	}

	prefix := "✅ "
	switch {
	case res.Outcome.Pending:
		prefix = "⏳ "
	case !res.Outcome.Succeeded:
		prefix = "❌ "
	}
	lines := []string{prefix + res.Message}
	if res.Outcome.TxHash != (common.Hash{}) {
		lines = append(lines, "   tx: "+res.Outcome.TxHash.Hex())
	}
	return strings.Join(lines, "\n")
}
