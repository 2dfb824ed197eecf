// Package rpc provides a minimal JSON-RPC 2.0 client used as the wallet
// provider request channel (eth_requestAccounts, eth_sendTransaction, ...).
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// JSON-RPC and EIP-1193 error codes the workflow reacts to.
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

var (
	// ErrRPCResponse indicates an invalid RPC response.
	ErrRPCResponse = &tlerr.TimelockError{
		Code:     "RPC_INVALID_RESPONSE",
		Message:  "invalid RPC response",
		ExitCode: tlerr.ExitGeneral,
	}

	// ErrNilResponse indicates a null result where a value was required.
	ErrNilResponse = &tlerr.TimelockError{
		Code:     "RPC_NIL_RESPONSE",
		Message:  "nil RPC response",
		ExitCode: tlerr.ExitGeneral,
	}
)

// ClientOptions contains optional configuration for the RPC client.
type ClientOptions struct {
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// Headers are added to every request.
	Headers map[string]string
}

// Client is a minimal JSON-RPC 2.0 client over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	headers    map[string]string
	idCounter  atomic.Uint64
}

// NewClient creates a new RPC client.
func NewClient(url string) *Client {
	return NewClientWithOptions(url, nil)
}

// NewClientWithOptions creates a new RPC client with options.
func NewClientWithOptions(url string, opts *ClientOptions) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
	}
	if opts != nil {
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		c.headers = opts.Headers
	}
	return c
}

// URL returns the endpoint of the client.
func (c *Client) URL() string {
	return c.url
}

// request represents a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// response represents a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object as returned by the provider.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the JSON-RPC error code.
func (e *Error) ErrorCode() int {
	return e.Code
}

// ErrorData returns the raw error data, if any.
func (e *Error) ErrorData() any {
	if len(e.Data) == 0 {
		return nil
	}
	return e.Data
}

// Call performs a JSON-RPC call.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.idCounter.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, tlerr.WithCause(tlerr.ErrNetwork, fmt.Errorf("sending %s: %w", method, err))
	}
	// Body.Close error is intentionally ignored as it only fails if the
	// connection is already broken, and there's no recovery action.
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, tlerr.WithCause(tlerr.ErrNetwork, fmt.Errorf("reading response body: %w", err))
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, tlerr.WithDetails(tlerr.ErrNetwork, map[string]string{
				"method": method,
				"status": httpResp.Status,
			})
		}
		return nil, tlerr.WithCause(ErrRPCResponse, fmt.Errorf("unmarshaling response: %w", err))
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// RequestAccounts asks the provider for account access (eth_requestAccounts).
func (c *Client) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return c.accounts(ctx, "eth_requestAccounts")
}

// Accounts lists already-authorized accounts (eth_accounts).
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	return c.accounts(ctx, "eth_accounts")
}

func (c *Client) accounts(ctx context.Context, method string) ([]common.Address, error) {
	result, err := c.Call(ctx, method)
	if err != nil {
		return nil, err
	}

	var addrs []common.Address
	if err := json.Unmarshal(result, &addrs); err != nil {
		return nil, tlerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing accounts: %w", err))
	}
	return addrs, nil
}

// ChainID returns the chain ID (eth_chainId).
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	result, err := c.Call(ctx, "eth_chainId")
	if err != nil {
		return nil, err
	}

	var id hexutil.Big
	if err := json.Unmarshal(result, &id); err != nil {
		return nil, tlerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing chain ID: %w", err))
	}
	return id.ToInt(), nil
}

// PendingTransactionCount returns the nonce the next transaction of addr
// takes, counting transactions still in the node's pool
// (eth_getTransactionCount with the pending tag).
func (c *Client) PendingTransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	result, err := c.Call(ctx, "eth_getTransactionCount", addr, "pending")
	if err != nil {
		return 0, err
	}

	var n hexutil.Uint64
	if err := json.Unmarshal(result, &n); err != nil {
		return 0, tlerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing transaction count: %w", err))
	}
	return uint64(n), nil
}

// TxRequest is the parameter object of eth_sendTransaction.
// A nil To creates a contract.
type TxRequest struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     hexutil.Bytes   `json:"data"`
	ChainID  hexutil.Uint64  `json:"chainId"`
}

// SendTransaction asks the provider to sign and broadcast a transaction
// (eth_sendTransaction) and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	result, err := c.Call(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return common.Hash{}, err
	}
	return ParseHash(result)
}

// ParseHash decodes a JSON string result into a transaction hash.
func ParseHash(result json.RawMessage) (common.Hash, error) {
	if len(result) == 0 || string(result) == "null" {
		return common.Hash{}, ErrNilResponse
	}

	var hexHash string
	if err := json.Unmarshal(result, &hexHash); err != nil {
		return common.Hash{}, tlerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing tx hash: %w", err))
	}
	hexHash = strings.TrimSpace(hexHash)
	b, err := hexutil.Decode(hexHash)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, tlerr.WithDetails(ErrRPCResponse, map[string]string{"hash": hexHash})
	}
	return common.BytesToHash(b), nil
}
