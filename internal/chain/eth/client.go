// Package eth provides the Ethereum chain reader used by the lock workflow.
// It wraps go-ethereum's ethclient with per-endpoint rate limiting, bounded
// retry, and a uniform network error classification.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/timelock/internal/chain"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

var (
	// ErrRPCURLRequired indicates the RPC URL was not provided.
	ErrRPCURLRequired = &tlerr.TimelockError{
		Code:     "ETH_RPC_URL_REQUIRED",
		Message:  "RPC URL is required",
		ExitCode: tlerr.ExitInput,
	}

	// ErrNoHeader indicates the node returned no latest block header.
	ErrNoHeader = &tlerr.TimelockError{
		Code:     "ETH_NO_HEADER",
		Message:  "node returned no block header",
		ExitCode: tlerr.ExitGeneral,
	}
)

// Backend is the part of ethclient.Client the chain reader depends on.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

// Compile-time interface check
var _ Backend = (*ethclient.Client)(nil)

// DialFunc opens a backend for an RPC URL.
type DialFunc func(ctx context.Context, rpcURL string) (Backend, error)

// ClientOptions contains optional configuration for the ETH client.
type ClientOptions struct {
	// ChainID overrides chain ID detection.
	ChainID *big.Int
	// Backend bypasses dialing; used by tests and by callers sharing a connection.
	Backend Backend
	// Dial overrides how the backend is opened.
	Dial DialFunc
	// RateLimiter is shared between clients talking to the same endpoint.
	RateLimiter *chain.RateLimiter
	// Retry overrides the default retry policy for reads.
	Retry *chain.RetryConfig
}

// Client provides Ethereum chain reads and raw transaction submission.
type Client struct {
	rpcURL   string
	endpoint string
	dial     DialFunc
	limiter  *chain.RateLimiter
	retry    chain.RetryConfig

	mu      sync.Mutex
	backend Backend
	chainID *big.Int
}

// NewClient creates a new ETH client. The connection is opened lazily.
func NewClient(rpcURL string, opts *ClientOptions) (*Client, error) {
	if rpcURL == "" && (opts == nil || opts.Backend == nil) {
		return nil, ErrRPCURLRequired
	}

	c := &Client{
		rpcURL:   rpcURL,
		endpoint: chain.EndpointKey(rpcURL),
		dial:     dialEthclient,
		limiter:  chain.DefaultRateLimiter(),
		retry:    chain.DefaultRetryConfig(),
	}

	if opts != nil {
		if opts.ChainID != nil {
			c.chainID = new(big.Int).Set(opts.ChainID)
		}
		if opts.Backend != nil {
			c.backend = opts.Backend
		}
		if opts.Dial != nil {
			c.dial = opts.Dial
		}
		if opts.RateLimiter != nil {
			c.limiter = opts.RateLimiter
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
	}

	return c, nil
}

func dialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

// RPCURL returns the endpoint the client talks to.
func (c *Client) RPCURL() string {
	return c.rpcURL
}

// GetBalance returns the latest balance of an address in wei.
func (c *Client) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return call(ctx, c, c.retry, "getting balance", func(b Backend) (*big.Int, error) {
		return b.BalanceAt(ctx, address, nil)
	})
}

// LatestBlockTimestamp returns the timestamp of the latest block in seconds.
func (c *Client) LatestBlockTimestamp(ctx context.Context) (uint64, error) {
	return call(ctx, c, c.retry, "getting latest block", func(b Backend) (uint64, error) {
		header, err := b.HeaderByNumber(ctx, nil)
		if err != nil {
			return 0, err
		}
		if header == nil {
			return 0, ErrNoHeader
		}
		return header.Time, nil
	})
}

// TransactionCount returns the number of transactions sent from an address
// as of the latest block.
func (c *Client) TransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return call(ctx, c, c.retry, "getting transaction count", func(b Backend) (uint64, error) {
		return b.NonceAt(ctx, address, nil)
	})
}

// PendingTransactionCount returns the next nonce including pending transactions.
func (c *Client) PendingTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return call(ctx, c, c.retry, "getting pending nonce", func(b Backend) (uint64, error) {
		return b.PendingNonceAt(ctx, address)
	})
}

// ChainID returns the configured chain ID, asking the node once if none was set.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	known := c.chainID
	c.mu.Unlock()
	if known != nil {
		return new(big.Int).Set(known), nil
	}

	id, err := call(ctx, c, c.retry, "getting chain ID", func(b Backend) (*big.Int, error) {
		return b.ChainID(ctx)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// TransactionReceipt fetches a receipt once. A transaction that is not yet
// mined reports ethereum.NotFound.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	once := c.retry
	once.MaxAttempts = 1
	return call(ctx, c, once, "getting receipt", func(b Backend) (*types.Receipt, error) {
		return b.TransactionReceipt(ctx, hash)
	})
}

// CallContract executes a read-only contract call against the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return call(ctx, c, c.retry, "calling contract", func(b Backend) ([]byte, error) {
		return b.CallContract(ctx, msg, nil)
	})
}

// SendTransaction broadcasts a signed transaction. It is never retried so a
// transaction is not submitted twice.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	once := c.retry
	once.MaxAttempts = 1
	_, err := call(ctx, c, once, "broadcasting transaction", func(b Backend) (struct{}, error) {
		return struct{}{}, b.SendTransaction(ctx, tx)
	})
	return err
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
}

// connect opens the backend if not already open.
func (c *Client) connect(ctx context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return c.backend, nil
	}

	b, err := c.dial(ctx, c.rpcURL)
	if err != nil {
		return nil, tlerr.WithCause(tlerr.WithDetails(tlerr.ErrNetwork, map[string]string{"rpc": c.endpoint}), err)
	}
	c.backend = b
	return b, nil
}

// call runs fn against the backend under the rate limiter and retry policy.
func call[T any](ctx context.Context, c *Client, cfg chain.RetryConfig, op string, fn func(Backend) (T, error)) (T, error) {
	var zero T

	b, err := c.connect(ctx)
	if err != nil {
		return zero, err
	}

	result, err := chain.RetryWithConfig(ctx, cfg, func() (T, error) {
		if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
			return zero, err
		}
		v, err := fn(b)
		return v, classify(err)
	})
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// classify maps transport failures to ErrNetwork. Answers from the node,
// including JSON-RPC errors and not-found results, pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ethereum.NotFound) {
		return err
	}
	var te *tlerr.TimelockError
	if errors.As(err, &te) {
		return err
	}

	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", chain.ErrRateLimited, err)
		}
		return tlerr.WithCause(tlerr.ErrNetwork, err)
	}

	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return err
	}

	return tlerr.WithCause(tlerr.ErrNetwork, err)
}
