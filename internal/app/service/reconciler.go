package service

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
	"satotrack/internal/pkg/metrics"
)

// Subscription states of the reconciler.
const (
	ReconcilerSubscribing = "subscribing"
	ReconcilerActive      = "active"
	ReconcilerClosed      = "closed"
)

// RealtimeReconciler applies out-of-band push events to the wallet store so
// the collection reflects changes made by other sessions or server-side jobs
// without a manual refresh. It may patch a wallet while a refresh for the
// same wallet is in flight; whichever completes later wins.
type RealtimeReconciler struct {
	store    *WalletServiceImpl
	feed     port.RealtimeFeed
	notifier port.Notifier
	logger   port.Logger

	mu     sync.Mutex
	state  string
	cancel func()
	done   chan struct{}
}

// NewRealtimeReconciler creates a reconciler bound to the given store and feed.
func NewRealtimeReconciler(store *WalletServiceImpl, feed port.RealtimeFeed, notifier port.Notifier, l port.Logger) *RealtimeReconciler {
	return &RealtimeReconciler{
		store:    store,
		feed:     feed,
		notifier: notifier,
		logger:   l,
		state:    ReconcilerSubscribing,
	}
}

// Start subscribes to the feed and begins applying events until Close.
func (r *RealtimeReconciler) Start() {
	events, cancel := r.feed.Subscribe()

	r.mu.Lock()
	r.cancel = cancel
	r.state = ReconcilerActive
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		for ev := range events {
			r.apply(ev)
		}
	}()
	r.logger.Info("Realtime reconciler active")
}

// Close tears the subscription down. Leaving it open would leak a live
// channel that keeps mutating the store after its owner is gone.
func (r *RealtimeReconciler) Close() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.state = ReconcilerClosed
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	r.logger.Info("Realtime reconciler closed")
}

// State returns the current subscription state.
func (r *RealtimeReconciler) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *RealtimeReconciler) apply(ev port.RealtimeEvent) {
	switch e := ev.(type) {
	case port.WalletInserted:
		metrics.ObserveRealtimeEvent("wallet_inserted")
		r.applyWalletInserted(e.Wallet)
	case port.WalletUpdated:
		metrics.ObserveRealtimeEvent("wallet_updated")
		r.applyWalletUpdated(e.Wallet)
	case port.WalletDeleted:
		metrics.ObserveRealtimeEvent("wallet_deleted")
		r.applyWalletDeleted(e.WalletID)
	case port.TransactionInserted:
		metrics.ObserveRealtimeEvent("transaction_inserted")
		r.applyTransactionInserted(e.WalletID, e.Transaction)
	default:
		r.logger.Warn("Unknown realtime event shape", "event", fmt.Sprintf("%T", ev))
	}
}

// applyWalletInserted appends a wallet created elsewhere. If the id is
// already present (race with a local add) the event is ignored: first
// writer wins, no merge.
func (r *RealtimeReconciler) applyWalletInserted(wallet entity.TrackedWallet) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.findLocked(wallet.ID); found {
		r.logger.Debug("Realtime insert for known wallet ignored", "id", wallet.ID)
		return
	}
	s.wallets = append(s.wallets, wallet)
	metrics.SetTrackedWallets(len(s.wallets))
	r.logger.Info("Wallet inserted via realtime", "id", wallet.ID, "network", wallet.Network)
}

// applyWalletUpdated replaces the refreshable fields of a known wallet and
// emits a user-facing notification when the balance changed. Events for
// wallets this client does not track are ignored; row-level filtering should
// prevent them, but they are handled defensively.
func (r *RealtimeReconciler) applyWalletUpdated(incoming entity.TrackedWallet) {
	s := r.store
	s.mu.Lock()
	current, found := s.findLocked(incoming.ID)
	if !found {
		s.mu.Unlock()
		r.logger.Debug("Realtime update for unknown wallet ignored", "id", incoming.ID)
		return
	}

	updated := current
	updated.Balance = incoming.Balance
	updated.TotalReceived = incoming.TotalReceived
	updated.TotalSent = incoming.TotalSent
	updated.TransactionCount = incoming.TransactionCount
	if len(incoming.TokenBalances) > 0 {
		updated.TokenBalances = incoming.TokenBalances
	}
	updated.LastUpdated = incoming.LastUpdated
	for i := range s.wallets {
		if s.wallets[i].ID == updated.ID {
			s.wallets[i] = updated
			break
		}
	}
	s.mu.Unlock()

	// The delta notification is a required side effect, not an optimization.
	if !current.Balance.Equal(incoming.Balance) {
		delta := incoming.Balance.Sub(current.Balance)
		symbol := current.Network.Symbol()
		if delta.IsPositive() {
			r.notify(entity.NotifySuccess, "Saldo atualizado",
				fmt.Sprintf("%s recebeu +%s %s", current.Label, delta.String(), symbol))
		} else {
			r.notify(entity.NotifyWarning, "Saldo atualizado",
				fmt.Sprintf("%s enviou %s %s", current.Label, delta.Abs().String(), symbol))
		}
	}
}

// applyWalletDeleted removes the wallet if present; no-op when absent.
func (r *RealtimeReconciler) applyWalletDeleted(id string) {
	s := r.store
	s.mu.Lock()
	next := make([]entity.TrackedWallet, 0, len(s.wallets))
	removed := false
	for _, w := range s.wallets {
		if w.ID == id {
			removed = true
			continue
		}
		next = append(next, w)
	}
	s.wallets = next
	metrics.SetTrackedWallets(len(s.wallets))
	s.mu.Unlock()

	if removed {
		s.txCache.Delete(id)
		r.logger.Info("Wallet removed via realtime", "id", id)
	}
}

// applyTransactionInserted prepends a new transaction to the owning wallet's
// cached list. A hash already present is ignored: the push channel may
// redeliver, and the list must stay deduplicated.
func (r *RealtimeReconciler) applyTransactionInserted(walletID string, tx entity.Transaction) {
	s := r.store
	s.mu.RLock()
	wallet, found := s.findLocked(walletID)
	s.mu.RUnlock()
	if !found {
		r.logger.Debug("Realtime transaction for untracked wallet ignored", "wallet_id", walletID)
		return
	}

	var txs []entity.Transaction
	if cached, ok := s.txCache.Get(walletID); ok {
		txs = cached.([]entity.Transaction)
	}
	for _, existing := range txs {
		if existing.Hash == tx.Hash {
			r.logger.Debug("Duplicate realtime transaction ignored", "wallet_id", walletID, "hash", tx.Hash)
			return
		}
	}
	s.txCache.Set(walletID, append([]entity.Transaction{tx}, txs...), gocache.DefaultExpiration)

	symbol := wallet.Network.Symbol()
	if tx.Direction == entity.TxIncoming {
		r.notify(entity.NotifySuccess, "Nova transação",
			fmt.Sprintf("%s recebeu %s %s", wallet.Label, tx.Amount.String(), symbol))
	} else {
		r.notify(entity.NotifyInfo, "Nova transação",
			fmt.Sprintf("%s enviou %s %s", wallet.Label, tx.Amount.String(), symbol))
	}
}

func (r *RealtimeReconciler) notify(level entity.NotificationLevel, title, message string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(entity.Notification{Level: level, Title: title, Message: message, CreatedAt: time.Now().UTC()})
}
