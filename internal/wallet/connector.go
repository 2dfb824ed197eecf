package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// Connector requests account access from a provider.
type Connector struct {
	provider Provider
}

// NewConnector returns a connector for p. A nil provider is allowed and
// makes Connect report ErrNoProvider.
func NewConnector(p Provider) *Connector {
	return &Connector{provider: p}
}

// Connect asks for account access and returns the first account.
// Nodes that do not implement eth_requestAccounts are asked for eth_accounts.
func (c *Connector) Connect(ctx context.Context) (common.Address, error) {
	if c.provider == nil {
		return common.Address{}, tlerr.ErrNoProvider
	}

	addrs, err := Accounts(ctx, c.provider, MethodRequestAccounts)
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.Code == rpc.CodeMethodNotFound {
		addrs, err = Accounts(ctx, c.provider, MethodAccounts)
	}
	if err != nil {
		if errors.As(err, &rpcErr) && rpcErr.Code == rpc.CodeUserRejected {
			return common.Address{}, tlerr.WithCause(tlerr.ErrUserRejected, err)
		}
		return common.Address{}, tlerr.Wrap(err, "connecting to %s", c.provider.Name())
	}

	if len(addrs) == 0 {
		return common.Address{}, tlerr.WithDetails(tlerr.ErrNoProvider, map[string]string{
			"provider": c.provider.Name(),
			"reason":   "provider returned no accounts",
		})
	}
	return addrs[0], nil
}
