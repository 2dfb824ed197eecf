package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	"github.com/mrz1836/timelock/internal/contract"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// rpcMarker precedes the JSON fragment some injected wallets embed in
// their error messages.
const rpcMarker = "RPC"

// Node message shapes that carry a revert reason. A message that only
// mentions a revert, such as a bare "execution reverted", has no reason.
var (
	reasonStringRegex      = regexp.MustCompile(`reverted with reason string '(.*)'`)
	executionRevertedRegex = regexp.MustCompile(`execution reverted: (.+)`)
	vmRevertRegex          = regexp.MustCompile(`VM Exception while processing transaction: revert \S.*`)
)

type codedError interface {
	ErrorCode() int
}

type dataError interface {
	ErrorData() any
}

// markerPayload is the fragment found after rpcMarker.
type markerPayload struct {
	Value struct {
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	} `json:"value"`
}

// DecodeProviderError classifies an error returned by a provider request:
// ErrUserRejected for code 4001, ErrProviderRevert with a "reason" detail
// when a revert reason can be recovered, ErrProviderUnparseable otherwise.
// Context errors and already structured errors are returned unchanged.
func DecodeProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var te *tlerr.TimelockError
	if errors.As(err, &te) {
		return err
	}

	var coded codedError
	if errors.As(err, &coded) && coded.ErrorCode() == rpc.CodeUserRejected {
		return tlerr.WithCause(tlerr.ErrUserRejected, err)
	}

	var withData dataError
	if errors.As(err, &withData) {
		if reason, ok := reasonFromData(withData.ErrorData()); ok {
			return revert(reason, err)
		}
	}

	msg := providerMessage(err)
	if reason, ok := reasonFromMarker(msg); ok {
		return revert(reason, err)
	}
	if m := reasonStringRegex.FindStringSubmatch(msg); m != nil {
		return revert(m[1], err)
	}
	if m := executionRevertedRegex.FindStringSubmatch(msg); m != nil {
		return revert(m[1], err)
	}
	if m := vmRevertRegex.FindString(msg); m != "" {
		return revert(m, err)
	}

	return tlerr.WithCause(tlerr.ErrProviderUnparseable, err)
}

// RevertReason returns the reason carried by an ErrProviderRevert error.
func RevertReason(err error) (string, bool) {
	var te *tlerr.TimelockError
	if !errors.As(err, &te) || te.Code != tlerr.ErrProviderRevert.Code {
		return "", false
	}
	reason, ok := te.Details["reason"]
	return reason, ok
}

func revert(reason string, cause error) error {
	return tlerr.WithCause(tlerr.WithDetails(tlerr.ErrProviderRevert, map[string]string{"reason": reason}), cause)
}

func providerMessage(err error) string {
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return err.Error()
}

func reasonFromMarker(msg string) (string, bool) {
	idx := strings.Index(msg, rpcMarker)
	if idx < 0 {
		return "", false
	}
	rest := msg[idx+len(rpcMarker):]
	start := strings.Index(rest, "{")
	end := strings.LastIndex(rest, "}")
	if start < 0 || end < start {
		return "", false
	}

	var payload markerPayload
	if err := json.Unmarshal([]byte(rest[start:end+1]), &payload); err != nil {
		return "", false
	}
	reason := payload.Value.Data.Message
	return reason, reason != ""
}

// reasonFromData handles the shapes nodes put in the error data field:
// ABI-encoded Error(string) hex, or objects with a message or nested data.
func reasonFromData(data any) (string, bool) {
	switch v := data.(type) {
	case nil:
		return "", false
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return "", false
		}
		return reasonFromData(decoded)
	case string:
		if !strings.HasPrefix(v, "0x") {
			return "", false
		}
		raw, err := hexutil.Decode(v)
		if err != nil {
			return "", false
		}
		return contract.DecodeRevert(raw)
	case map[string]any:
		for _, key := range []string{"reason", "message"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s, true
			}
		}
		return reasonFromData(v["data"])
	default:
		return "", false
	}
}
