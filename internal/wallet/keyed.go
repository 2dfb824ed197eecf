package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
)

// TxBackend is the chain access the keyed provider needs to sign and broadcast.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingTransactionCount(ctx context.Context, address common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Approver decides whether a transaction may be signed.
type Approver interface {
	Approve(ctx context.Context, req rpc.TxRequest) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req rpc.TxRequest) (bool, error)

// Approve calls f.
func (f ApproverFunc) Approve(ctx context.Context, req rpc.TxRequest) (bool, error) {
	return f(ctx, req)
}

// AutoApprove approves every transaction.
var AutoApprove Approver = ApproverFunc(func(context.Context, rpc.TxRequest) (bool, error) { return true, nil })

// KeyedProvider signs with a locally held key and broadcasts through a node.
// Like a browser wallet it picks the nonce itself from the pending count.
type KeyedProvider struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	backend  TxBackend
	approver Approver
}

// NewKeyedProvider returns a provider for key. A nil approver approves everything.
func NewKeyedProvider(key *ecdsa.PrivateKey, backend TxBackend, approver Approver) *KeyedProvider {
	if approver == nil {
		approver = AutoApprove
	}
	return &KeyedProvider{
		key:      key,
		address:  eth.DeriveAddress(key),
		backend:  backend,
		approver: approver,
	}
}

// Name identifies the provider in output and logs.
func (p *KeyedProvider) Name() string {
	return "keyed (" + p.address.Hex() + ")"
}

// Address returns the account the provider signs for.
func (p *KeyedProvider) Address() common.Address {
	return p.address
}

// Request serves the subset of EIP-1193 methods the lock workflow uses.
func (p *KeyedProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodRequestAccounts, MethodAccounts:
		return json.Marshal([]common.Address{p.address})
	case MethodChainID:
		id, err := p.backend.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal((*hexutil.Big)(id))
	case MethodSendTransaction:
		if len(params) != 1 {
			return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "eth_sendTransaction takes one transaction object"}
		}
		req, err := decodeTxRequest(params[0])
		if err != nil {
			return nil, err
		}
		hash, err := p.send(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)
	default:
		return nil, &rpc.Error{Code: rpc.CodeMethodNotFound, Message: "the method " + method + " does not exist/is not available"}
	}
}

func (p *KeyedProvider) send(ctx context.Context, req rpc.TxRequest) (common.Hash, error) {
	if req.From != p.address {
		return common.Hash{}, &rpc.Error{
			Code:    rpc.CodeUnauthorized,
			Message: "the requested account has not been authorized: " + req.From.Hex(),
		}
	}

	ok, err := p.approver.Approve(ctx, req)
	if err != nil {
		return common.Hash{}, err
	}
	if !ok {
		return common.Hash{}, &rpc.Error{Code: rpc.CodeUserRejected, Message: "User denied transaction signature."}
	}

	nonce, err := p.backend.PendingTransactionCount(ctx, p.address)
	if err != nil {
		return common.Hash{}, err
	}

	chainID := new(big.Int).SetUint64(uint64(req.ChainID))
	if req.ChainID == 0 {
		if chainID, err = p.backend.ChainID(ctx); err != nil {
			return common.Hash{}, err
		}
	}

	gas, err := eth.NewGasParams(uint64(req.Gas), req.GasPrice.ToInt())
	if err != nil {
		return common.Hash{}, &rpc.Error{Code: rpc.CodeInvalidParams, Message: err.Error()}
	}
	value := big.NewInt(0)
	if req.Value != nil {
		value = req.Value.ToInt()
	}

	tx, err := eth.BuildTransaction(&eth.TxParams{
		Nonce:   nonce,
		To:      req.To,
		Value:   value,
		Gas:     gas,
		Data:    req.Data,
		ChainID: chainID,
	})
	if err != nil {
		return common.Hash{}, &rpc.Error{Code: rpc.CodeInvalidParams, Message: err.Error()}
	}

	signed, err := eth.SignTransaction(tx, p.key, chainID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := p.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// decodeTxRequest accepts a TxRequest or anything that marshals to one.
func decodeTxRequest(param any) (rpc.TxRequest, error) {
	if req, ok := param.(rpc.TxRequest); ok {
		return req, nil
	}

	raw, err := json.Marshal(param)
	if err != nil {
		return rpc.TxRequest{}, fmt.Errorf("encoding transaction params: %w", err)
	}
	var req *rpc.TxRequest
	if err := json.Unmarshal(raw, &req); err != nil || req == nil {
		return rpc.TxRequest{}, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "invalid transaction object"}
	}
	return *req, nil
}
