package wallet

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
)

// NodeProvider forwards requests to a JSON-RPC endpoint that manages its own
// accounts, such as a Hardhat or Anvil node or a remote signer.
//
// Like a browser wallet it sends transactions with the account's pending
// nonce; the nonce of the request is replaced before forwarding.
type NodeProvider struct {
	client *rpc.Client
}

// NewNodeProvider returns a provider over client.
func NewNodeProvider(client *rpc.Client) *NodeProvider {
	return &NodeProvider{client: client}
}

// Name identifies the provider in output and logs.
func (p *NodeProvider) Name() string {
	return "node (" + p.client.URL() + ")"
}

// Request performs the JSON-RPC call.
func (p *NodeProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if method == MethodSendTransaction && len(params) == 1 {
		if tx, ok := params[0].(rpc.TxRequest); ok {
			nonce, err := p.client.PendingTransactionCount(ctx, tx.From)
			if err != nil {
				return nil, err
			}
			tx.Nonce = hexutil.Uint64(nonce)
			params = []any{tx}
		}
	}
	return p.client.Call(ctx, method, params...)
}
