package lock

import (
	"context"
	"time"
)

// DefaultRefreshInterval is the watch polling period.
const DefaultRefreshInterval = 5 * time.Second

// Snapshot is one refresh result delivered to a watcher.
type Snapshot struct {
	Session Session
	At      time.Time
	Err     error
}

// Refresher re-reads session balances on a fixed interval.
type Refresher struct {
	service  *Service
	interval time.Duration
}

// NewRefresher returns a refresher. A non-positive interval uses
// DefaultRefreshInterval.
func NewRefresher(service *Service, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{service: service, interval: interval}
}

// Run refreshes immediately and then on every tick until ctx is done,
// passing each result to onSnapshot. A failed refresh keeps the previous
// session. Run returns the last good session.
func (r *Refresher) Run(ctx context.Context, session Session, onSnapshot func(Snapshot)) Session {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	session = r.tick(ctx, session, onSnapshot)
	for {
		select {
		case <-ctx.Done():
			return session
		case <-ticker.C:
			session = r.tick(ctx, session, onSnapshot)
		}
	}
}

func (r *Refresher) tick(ctx context.Context, session Session, onSnapshot func(Snapshot)) Session {
	refreshed, err := r.service.RefreshBalances(ctx, session)
	if err != nil {
		if ctx.Err() != nil {
			return session
		}
		r.service.logger.Error("watch refresh failed: %v", err)
		refreshed = session
	}
	if onSnapshot != nil {
		onSnapshot(Snapshot{Session: refreshed, At: r.service.now(), Err: err})
	}
	return refreshed
}
