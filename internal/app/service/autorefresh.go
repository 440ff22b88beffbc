package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"satotrack/internal/app/port"
)

// AutoRefresher periodically refreshes every tracked wallet, standing in for
// the server-side cron of the hosted backend. Individual refresh failures
// are logged and do not stop the loop.
type AutoRefresher struct {
	store         port.WalletService
	logger        port.Logger
	interval      time.Duration
	maxConcurrent int
	stopChan      chan struct{}
}

// NewAutoRefresher creates an AutoRefresher. A non-positive interval
// disables the loop entirely.
func NewAutoRefresher(store port.WalletService, l port.Logger, interval time.Duration, maxConcurrent int) *AutoRefresher {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &AutoRefresher{
		store:         store,
		logger:        l,
		interval:      interval,
		maxConcurrent: maxConcurrent,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the refresh loop in a goroutine.
func (a *AutoRefresher) Start(ctx context.Context) {
	if a.interval <= 0 {
		a.logger.Info("Auto-refresh disabled")
		return
	}
	go a.loop(ctx)
}

// Stop stops the refresh loop.
func (a *AutoRefresher) Stop() {
	close(a.stopChan)
}

func (a *AutoRefresher) loop(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.refreshAll(ctx)
		case <-a.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *AutoRefresher) refreshAll(ctx context.Context) {
	wallets := a.store.Wallets()
	if len(wallets) == 0 {
		return
	}
	a.logger.Debug("Auto-refresh cycle starting", "count", len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)
	for _, w := range wallets {
		id := w.ID
		if a.store.IsUpdating(id) {
			continue
		}
		g.Go(func() error {
			if err := a.store.Refresh(gctx, id); err != nil {
				a.logger.Warn("Auto-refresh failed for wallet", "id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
