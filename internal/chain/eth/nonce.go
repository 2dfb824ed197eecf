package eth

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NonceManager tracks the next nonce per address so that transactions
// built in rapid succession (before the first is visible on chain) never
// share a nonce.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[common.Address]uint64 // address -> next nonce (one past the highest used)
}

// NewNonceManager creates a new NonceManager.
func NewNonceManager() *NonceManager {
	return &NonceManager{
		nonces: make(map[common.Address]uint64),
	}
}

// Next returns the next nonce to use for the given address.
// It takes the chain-reported transaction count and returns the higher of
// that count and the locally tracked nonce. The local nonce is then
// incremented for the next call.
func (nm *NonceManager) Next(address common.Address, chainNonce uint64) uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nonce := chainNonce
	if local, exists := nm.nonces[address]; exists && local > chainNonce {
		nonce = local
	}

	nm.nonces[address] = nonce + 1

	return nonce
}

// Reset clears the local nonce tracking for an address.
// Used after a submission fails so the next build trusts the chain again.
func (nm *NonceManager) Reset(address common.Address) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, address)
}
