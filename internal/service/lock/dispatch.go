package lock

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/timelock/internal/chain"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Entry points served by Dispatch.
const (
	ActionConnect  = "connect"
	ActionCheck    = "check"
	ActionDeploy   = "deploy"
	ActionUnlock   = "unlock"
	ActionWithdraw = "withdraw"
	ActionBalance  = "balance"
)

// Request carries the inputs of one entry point.
type Request struct {
	Session   Session
	Lock      LockRequest      // deploy
	Candidate uint64           // check
	Addresses []common.Address // balance; empty means the wallet and the contract
}

// BalanceEntry is one balance line.
type BalanceEntry struct {
	Holder  string         `json:"holder"`
	Address common.Address `json:"address"`
	Wei     *big.Int       `json:"wei"`
	Ether   string         `json:"ether"`
}

// Result is what an entry point hands back to the presentation layer.
// Message is always set, including when Err is.
type Result struct {
	Action   string
	Session  Session
	Message  string
	Outcome  *Outcome
	Validity *Validity
	Balances []BalanceEntry
	Err      error
}

type handler func(ctx context.Context, s *Service, req Request) Result

//nolint:gochecknoglobals // Static dispatch table
var dispatchTable = map[string]handler{
	ActionConnect:  handleConnect,
	ActionCheck:    handleCheck,
	ActionDeploy:   handleDeploy,
	ActionUnlock:   handleCall(OpUnlock),
	ActionWithdraw: handleCall(OpWithdraw),
	ActionBalance:  handleBalance,
}

// Actions lists the entry point names.
func Actions() []string {
	names := make([]string, 0, len(dispatchTable))
	for name := range dispatchTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one entry point. Errors, including panics, are converted
// into a Result with a display message.
func (s *Service) Dispatch(ctx context.Context, action string, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("%s panicked: %v", action, r)
			err := tlerr.Wrap(fmt.Errorf("%v", r), "%s failed unexpectedly", action)
			res = Result{Action: action, Session: req.Session, Message: err.Error(), Err: err}
		}
	}()

	h, ok := dispatchTable[action]
	if !ok {
		err := tlerr.WithDetails(tlerr.ErrUnknownOperation, map[string]string{"operation": action})
		if suggestion := suggestAction(action); suggestion != "" {
			err = tlerr.WithSuggestion(err, "did you mean '"+suggestion+"'?")
		}
		return Result{Action: action, Session: req.Session, Message: err.Error(), Err: err}
	}

	res = h(ctx, s, req)
	res.Action = action
	if res.Err != nil && res.Message == "" {
		res.Message = res.Err.Error()
	}
	return res
}

func handleConnect(ctx context.Context, s *Service, req Request) Result {
	session, err := s.Connect(ctx, req.Session)
	if err != nil {
		return Result{Session: req.Session, Err: err}
	}
	msg := "Connected account " + session.Wallet.Address.Hex()
	if session.Wallet.BalanceWei != nil {
		msg += " with balance " + chain.FormatEther(session.Wallet.BalanceWei) + " ETH"
	}
	return Result{Session: session, Message: msg}
}

func handleCheck(ctx context.Context, s *Service, req Request) Result {
	v, err := s.CheckUnlockTime(ctx, req.Candidate)
	if err != nil {
		return Result{Session: req.Session, Err: err}
	}
	return Result{Session: req.Session, Validity: &v, Message: ValidityMessage(v)}
}

func handleDeploy(ctx context.Context, s *Service, req Request) Result {
	session, outcome, err := s.Deploy(ctx, req.Session, req.Lock)
	return operationResult(OpDeploy, session, outcome, err)
}

func handleCall(op Operation) handler {
	return func(ctx context.Context, s *Service, req Request) Result {
		var (
			session Session
			outcome Outcome
			err     error
		)
		if op == OpUnlock {
			session, outcome, err = s.Unlock(ctx, req.Session)
		} else {
			session, outcome, err = s.Withdraw(ctx, req.Session)
		}
		return operationResult(op, session, outcome, err)
	}
}

func operationResult(op Operation, session Session, outcome Outcome, err error) Result {
	res := Result{Session: session, Err: err}
	switch {
	case err == nil, outcome.Pending:
		res.Outcome = &outcome
		res.Message = Report(outcome, op)
	case outcome.TxHash != (common.Hash{}),
		errors.Is(err, tlerr.ErrProviderUnparseable):
		failed := Failure(outcome.TxHash, "")
		res.Outcome = &failed
		res.Message = Report(failed, op)
	}
	return res
}

func handleBalance(ctx context.Context, s *Service, req Request) Result {
	session := req.Session
	entries := make([]BalanceEntry, 0, 2)

	if len(req.Addresses) == 0 {
		var err error
		if session, err = s.ensureWallet(ctx, session); err != nil {
			return Result{Session: req.Session, Err: err}
		}
		if session, err = s.RefreshBalances(ctx, session); err != nil {
			return Result{Session: req.Session, Err: err}
		}
		entries = append(entries, newBalanceEntry(HolderWallet, session.Wallet.Address, session.Wallet.BalanceWei))
		if session.Contract != nil {
			entries = append(entries, newBalanceEntry(HolderContract, session.Contract.Address, session.Contract.CachedBalanceWei))
		}
	}

	for _, addr := range req.Addresses {
		wei, err := s.Balance(ctx, addr)
		if err != nil {
			return Result{Session: session, Err: err}
		}
		entries = append(entries, newBalanceEntry(holderOf(session, addr), addr, wei))
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s: %s ETH", e.Holder, e.Address.Hex(), e.Ether))
	}
	return Result{Session: session, Balances: entries, Message: strings.Join(lines, "\n")}
}

func newBalanceEntry(holder string, addr common.Address, wei *big.Int) BalanceEntry {
	return BalanceEntry{Holder: holder, Address: addr, Wei: wei, Ether: chain.FormatEther(wei)}
}

func holderOf(session Session, addr common.Address) string {
	switch {
	case session.Wallet != nil && session.Wallet.Address == addr:
		return HolderWallet
	case session.Contract != nil && session.Contract.Address == addr:
		return HolderContract
	default:
		return "address"
	}
}

// ValidityMessage renders the result of an unlock time check.
func ValidityMessage(v Validity) string {
	if v.Valid {
		return fmt.Sprintf("Unlock time %d is valid (latest block timestamp is %d)", v.Candidate, v.ReferenceTimestamp)
	}
	return fmt.Sprintf("Unlock time %d is not valid: it must be later than the latest block timestamp %d, try %d",
		v.Candidate, v.ReferenceTimestamp, v.Suggested)
}

func suggestAction(input string) string {
	best, bestDist := "", 3
	for _, name := range Actions() {
		if d := levenshtein.ComputeDistance(strings.ToLower(input), name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
