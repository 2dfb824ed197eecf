package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/timelock/internal/chain"
)

// Balance is the wei balance of one address.
type Balance struct {
	Address common.Address
	Amount  *big.Int
}

// Ether formats the balance in ether.
func (b Balance) Ether() string {
	return chain.FormatEther(b.Amount)
}

// GetBalances fetches balances for several addresses in order.
// The first failure aborts the batch.
func (c *Client) GetBalances(ctx context.Context, addresses ...common.Address) ([]Balance, error) {
	out := make([]Balance, 0, len(addresses))
	for _, addr := range addresses {
		amount, err := c.GetBalance(ctx, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, Balance{Address: addr, Amount: amount})
	}
	return out, nil
}
