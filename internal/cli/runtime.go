package cli

import (
	"context"
	"errors"
	"math/big"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/config"
	"github.com/mrz1836/timelock/internal/contract"
	"github.com/mrz1836/timelock/internal/service/lock"
	"github.com/mrz1836/timelock/internal/state"
	"github.com/mrz1836/timelock/internal/wallet"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// lockRuntime is everything a lock command needs for one invocation.
type lockRuntime struct {
	cc      *CommandContext
	network config.Network
	client  *eth.Client
	service *lock.Service
	session lock.Session
}

// runtimeOptions selects what openRuntime sets up.
type runtimeOptions struct {
	// wallet detects the wallet provider. Read-only commands skip it so
	// they never prompt for a keystore passphrase.
	wallet bool
}

// openRuntime resolves the network, dials the chain, detects the wallet
// provider and loads the network's session.
func openRuntime(ctx context.Context, cc *CommandContext, opts runtimeOptions) (*lockRuntime, error) {
	c := cc.Config
	if err := c.Validate(); err != nil {
		return nil, err
	}
	network, err := c.ResolveNetwork()
	if err != nil {
		return nil, err
	}
	log := cc.logger()
	log.Debug("using network %s (chain %d) at %s", network.Name, network.ChainID, chain.EndpointKey(network.RPC))

	client, err := eth.NewClient(network.RPC, &eth.ClientOptions{
		ChainID:     big.NewInt(network.ChainID),
		Backend:     cc.Backend,
		RateLimiter: chain.NewRateLimiter(c.RPC.RateLimit, c.RPC.Burst),
		Retry: &chain.RetryConfig{
			MaxAttempts: c.RPC.RetryAttempts,
			BaseDelay:   chain.DefaultRetryConfig().BaseDelay,
			MaxDelay:    chain.DefaultRetryConfig().MaxDelay,
			OnRetry: func(attempt int, err error) {
				log.Debug("rpc attempt %d failed: %v", attempt, err)
			},
		},
	})
	if err != nil {
		return nil, err
	}

	rt := &lockRuntime{cc: cc, network: network, client: client}
	if err := rt.init(ctx, opts); err != nil {
		client.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *lockRuntime) init(_ context.Context, opts runtimeOptions) error {
	c := rt.cc.Config

	var provider wallet.Provider
	if opts.wallet {
		var err error
		provider, err = wallet.Detect(c, wallet.DetectOptions{
			Network:    rt.network,
			Backend:    rt.client,
			Approver:   rt.cc.approver(),
			Passphrase: rt.cc.Passphrase,
		})
		if err != nil {
			return err
		}
		rt.cc.logger().Debug("wallet provider: %s", provider.Name())
	}

	codec, err := loadLock(c)
	if err != nil {
		return err
	}
	gasPrice, err := c.GasPriceWei()
	if err != nil {
		return err
	}

	svcCfg := &lock.Config{
		Provider: provider,
		Chain:    rt.client,
		Lock:     codec,
		Builder: lock.BuilderConfig{
			GasLimit:          c.Transaction.GasLimit,
			GasPrice:          gasPrice,
			ChainID:           rt.network.ChainID,
			DeployNonceOffset: c.Transaction.DeployNonceOffset,
		},
		Submitter: lock.SubmitterConfig{
			ReceiptPolicy: chain.RetryConfig{
				MaxAttempts: c.Transaction.ReceiptAttempts,
				BaseDelay:   c.Transaction.ReceiptBaseDelay,
				MaxDelay:    c.Transaction.ReceiptMaxDelay,
			},
			ConfirmCalls: c.Transaction.ConfirmCalls,
		},
		Logger: rt.cc.logger(),
	}
	if rt.cc.Metrics != nil {
		svcCfg.Metrics = rt.cc.Metrics
	}
	if rt.service, err = lock.NewService(svcCfg); err != nil {
		return err
	}

	rt.session, err = rt.loadSession()
	return err
}

// loadSession reads the stored session. A corrupted file has already been
// moved aside by the store, so the fresh session is used.
func (rt *lockRuntime) loadSession() (lock.Session, error) {
	if rt.cc.Store == nil {
		return lock.NewSession(rt.network.Name, rt.network.ChainID), nil
	}
	session, err := rt.cc.Store.Load(rt.network.Name, rt.network.ChainID)
	if errors.Is(err, state.ErrCorruptSession) {
		rt.cc.logger().Error("discarding session: %v", err)
		return session, nil
	}
	return session, err
}

// save persists session as the network's current session.
func (rt *lockRuntime) save(session lock.Session) error {
	rt.session = session
	if rt.cc.Store == nil {
		return nil
	}
	if err := rt.cc.Store.Save(session); err != nil {
		return tlerr.Wrap(err, "saving session")
	}
	return nil
}

func (rt *lockRuntime) close() {
	rt.client.Close()
}

// loadLock builds the contract codec from the configured artifact, or from
// the embedded ABI when none is configured.
func loadLock(c *config.Config) (*contract.Lock, error) {
	if c.Contract.Artifact == "" {
		return contract.DefaultLock()
	}
	path, err := config.ExpandPath(c.Contract.Artifact)
	if err != nil {
		return nil, err
	}
	artifact, err := contract.LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return contract.NewLock(artifact)
}
