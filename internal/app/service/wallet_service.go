package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/address"
	"satotrack/internal/domain/entity"
	"satotrack/internal/pkg/metrics"
)

// Compile-time check: *WalletServiceImpl must satisfy port.WalletService.
var _ port.WalletService = (*WalletServiceImpl)(nil)

// WalletServiceImpl implements port.WalletService. The in-memory collection
// is the single view the API serves; it is mutated from direct operations,
// the auto-refresh loop and the realtime reconciler, always by replacing
// records wholesale under the mutex.
type WalletServiceImpl struct {
	repo      port.WalletRepository
	fetcher   port.BalanceFetcher
	txFetcher port.TransactionFetcher
	auth      port.AuthProvider
	prefs     port.PreferenceStore
	notifier  port.Notifier
	logger    port.Logger

	mu       sync.RWMutex
	wallets  []entity.TrackedWallet
	updating map[string]bool
	loading  int

	// Per-wallet transaction lists, most-recent-first, keyed by wallet id.
	txCache *gocache.Cache

	unsubscribeAuth func()
}

// NewWalletService creates a new WalletServiceImpl and wires it to the auth
// state: the collection empties on sign-out and reloads on sign-in.
func NewWalletService(
	repo port.WalletRepository,
	fetcher port.BalanceFetcher,
	txFetcher port.TransactionFetcher,
	auth port.AuthProvider,
	prefs port.PreferenceStore,
	notifier port.Notifier,
	l port.Logger,
	txCacheTTL time.Duration,
) *WalletServiceImpl {
	if txCacheTTL <= 0 {
		txCacheTTL = 30 * time.Minute
	}
	s := &WalletServiceImpl{
		repo:      repo,
		fetcher:   fetcher,
		txFetcher: txFetcher,
		auth:      auth,
		prefs:     prefs,
		notifier:  notifier,
		logger:    l,
		updating:  make(map[string]bool),
		txCache:   gocache.New(txCacheTTL, 2*txCacheTTL),
	}
	s.unsubscribeAuth = auth.OnAuthChange(func(u *port.User) {
		if u == nil {
			s.logger.Info("Session ended, clearing wallet collection")
			s.mu.Lock()
			s.wallets = nil
			s.mu.Unlock()
			s.txCache.Flush()
			metrics.SetTrackedWallets(0)
			return
		}
		s.logger.Info("Session started, loading wallets", "user_id", u.ID)
		s.LoadAll(context.Background(), port.SortByCreatedAt, false)
	})
	return s
}

// Close detaches the service from auth state changes.
func (s *WalletServiceImpl) Close() {
	if s.unsubscribeAuth != nil {
		s.unsubscribeAuth()
	}
}

// LoadAll replaces the whole in-memory collection from the repository.
// Degrades to an empty list both without a session and on a read failure:
// the bulk load runs on mount and must never crash the view.
func (s *WalletServiceImpl) LoadAll(ctx context.Context, sortKey string, descending bool) []entity.TrackedWallet {
	user := s.auth.CurrentUser()
	if user == nil {
		s.logger.Debug("LoadAll without session, returning empty collection")
		s.replaceAll(nil)
		return nil
	}

	s.setLoading(true)
	defer s.setLoading(false)

	wallets, err := s.repo.ListByUser(ctx, user.ID, sortKey, descending)
	if err != nil {
		s.logger.Error("Failed to load wallets", "user_id", user.ID, "error", err)
		s.notify(entity.NotifyError, "Carteiras", "Não foi possível carregar suas carteiras.")
		s.replaceAll(nil)
		return nil
	}

	s.replaceAll(wallets)
	s.logger.Debug("Wallet collection loaded", "count", len(wallets), "sort", sortKey)

	// The stored slice is patched in place by Refresh and the realtime
	// reconciler; callers get their own copy so those writes never race
	// with a returned slice.
	out := make([]entity.TrackedWallet, len(wallets))
	copy(out, wallets)
	return out
}

// Add classifies the raw address, fetches its balance and persists the
// wallet. Classification and authentication are checked before any external
// call, so a failed Add never leaves a partial record.
func (s *WalletServiceImpl) Add(ctx context.Context, label, rawAddress string) (*entity.TrackedWallet, error) {
	user := s.auth.CurrentUser()
	if user == nil {
		s.notify(entity.NotifyError, "Sessão", "Faça login para gerenciar suas carteiras.")
		return nil, entity.ErrNotAuthenticated
	}

	classification, ok := address.Classify(rawAddress)
	if !ok {
		s.notify(entity.NotifyError, "Endereço inválido", "O endereço informado não corresponde a nenhuma rede suportada.")
		return nil, entity.ErrInvalidAddress
	}

	s.setLoading(true)
	defer s.setLoading(false)

	exists, err := s.repo.ExistsByAddress(ctx, user.ID, classification.Address)
	if err != nil {
		s.notify(entity.NotifyError, "Carteiras", "Falha ao verificar endereços existentes.")
		return nil, fmt.Errorf("duplicate check for %s: %w", classification.Address, err)
	}
	if exists {
		s.notify(entity.NotifyWarning, "Carteiras", "Este endereço já está sendo monitorado.")
		return nil, entity.ErrDuplicateAddress
	}

	snapshot, err := s.fetcher.FetchBalance(ctx, classification.Address, classification.Network)
	if err != nil {
		fetchErr := &entity.NetworkFetchError{Network: classification.Network, Address: classification.Address, Err: err}
		s.logger.Error("Balance fetch failed on add", "address", classification.Address, "network", classification.Network, "error", err)
		s.notify(entity.NotifyError, "Carteiras", "Não foi possível consultar o saldo do endereço.")
		return nil, fetchErr
	}

	now := time.Now().UTC()
	wallet := entity.TrackedWallet{
		UserID:           user.ID,
		Label:            label,
		Address:          classification.Address,
		Network:          classification.Network,
		AddressSubtype:   classification.Subtype,
		Balance:          snapshot.NativeBalance,
		TotalReceived:    snapshot.TotalReceived,
		TotalSent:        snapshot.TotalSent,
		TransactionCount: snapshot.TransactionCount,
		TokenBalances:    snapshot.Tokens,
		TotalUSDValue:    snapshot.TotalUSDValue,
		LastUpdated:      now,
		CreatedAt:        now,
	}
	if err := s.repo.Insert(ctx, &wallet); err != nil {
		s.logger.Error("Failed to persist wallet", "address", wallet.Address, "error", err)
		s.notify(entity.NotifyError, "Carteiras", "Não foi possível salvar a carteira.")
		return nil, fmt.Errorf("insert wallet %s: %w", wallet.Address, err)
	}

	s.mu.Lock()
	s.wallets = append(s.wallets, wallet)
	metrics.SetTrackedWallets(len(s.wallets))
	s.mu.Unlock()

	s.notify(entity.NotifySuccess, "Carteiras", fmt.Sprintf("Carteira %q adicionada.", wallet.Label))
	s.logger.Info("Wallet added", "id", wallet.ID, "network", wallet.Network, "subtype", wallet.AddressSubtype)
	return &wallet, nil
}

// Refresh re-fetches one wallet. The updating flag is cleared in a defer so
// it is never left stuck after a failure. Concurrent refreshes of the same
// id are not blocked here; the caller disables its control instead.
func (s *WalletServiceImpl) Refresh(ctx context.Context, id string) error {
	if s.auth.CurrentUser() == nil {
		s.notify(entity.NotifyError, "Sessão", "Faça login para gerenciar suas carteiras.")
		return entity.ErrNotAuthenticated
	}
	s.mu.RLock()
	wallet, found := s.findLocked(id)
	s.mu.RUnlock()
	if !found {
		s.notify(entity.NotifyError, "Carteiras", "Carteira não encontrada.")
		return entity.ErrNotFound
	}

	s.setUpdating(id, true)
	defer s.setUpdating(id, false)

	snapshot, err := s.fetcher.FetchBalance(ctx, wallet.Address, wallet.Network)
	if err != nil {
		metrics.ObserveRefresh(false)
		s.logger.Error("Refresh failed", "id", id, "address", wallet.Address, "error", err)
		s.notify(entity.NotifyError, "Carteiras", "Falha ao atualizar a carteira.")
		return &entity.NetworkFetchError{Network: wallet.Network, Address: wallet.Address, Err: err}
	}

	updated := wallet
	applySnapshot(&updated, snapshot, time.Now().UTC())

	if err := s.repo.Update(ctx, updated); err != nil {
		metrics.ObserveRefresh(false)
		s.logger.Error("Failed to persist refreshed wallet", "id", id, "error", err)
		s.notify(entity.NotifyError, "Carteiras", "Falha ao salvar os dados atualizados.")
		return fmt.Errorf("update wallet %s: %w", id, err)
	}

	s.replaceOne(updated)
	metrics.ObserveRefresh(true)
	s.logger.Debug("Wallet refreshed", "id", id, "balance", updated.Balance.String())
	return nil
}

// Remove deletes the wallet and, as one logical step, drops its cached
// transactions and clears the primary designation if it pointed at it.
func (s *WalletServiceImpl) Remove(ctx context.Context, id string) error {
	if s.auth.CurrentUser() == nil {
		s.notify(entity.NotifyError, "Sessão", "Faça login para gerenciar suas carteiras.")
		return entity.ErrNotAuthenticated
	}
	s.mu.RLock()
	wallet, found := s.findLocked(id)
	s.mu.RUnlock()
	if !found {
		s.notify(entity.NotifyError, "Carteiras", "Carteira não encontrada.")
		return entity.ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete wallet", "id", id, "error", err)
		s.notify(entity.NotifyError, "Carteiras", "Não foi possível remover a carteira.")
		return fmt.Errorf("delete wallet %s: %w", id, err)
	}

	s.mu.Lock()
	next := make([]entity.TrackedWallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		if w.ID != id {
			next = append(next, w)
		}
	}
	s.wallets = next
	metrics.SetTrackedWallets(len(s.wallets))
	s.mu.Unlock()

	s.txCache.Delete(id)
	if s.Primary() == id {
		if err := s.prefs.Set(port.PrefPrimaryWallet, ""); err != nil {
			// A dangling primary reference pointing at nothing is worse than
			// a lost preference write, so this failure is surfaced.
			s.logger.Error("Failed to clear primary wallet designation", "id", id, "error", err)
			return fmt.Errorf("clear primary wallet: %w", err)
		}
	}

	s.notify(entity.NotifyInfo, "Carteiras", fmt.Sprintf("Carteira %q removida.", wallet.Label))
	return nil
}

// Rename updates the display label only.
func (s *WalletServiceImpl) Rename(ctx context.Context, id, newLabel string) error {
	if s.auth.CurrentUser() == nil {
		s.notify(entity.NotifyError, "Sessão", "Faça login para gerenciar suas carteiras.")
		return entity.ErrNotAuthenticated
	}
	s.mu.RLock()
	wallet, found := s.findLocked(id)
	s.mu.RUnlock()
	if !found {
		s.notify(entity.NotifyError, "Carteiras", "Carteira não encontrada.")
		return entity.ErrNotFound
	}

	if err := s.repo.UpdateLabel(ctx, id, newLabel); err != nil {
		s.logger.Error("Failed to rename wallet", "id", id, "error", err)
		s.notify(entity.NotifyError, "Carteiras", "Não foi possível renomear a carteira.")
		return fmt.Errorf("rename wallet %s: %w", id, err)
	}

	wallet.Label = newLabel
	s.replaceOne(wallet)
	return nil
}

// SetPrimary persists the primary wallet designation. An unknown id is
// rejected rather than stored, so the preference can never point at nothing.
func (s *WalletServiceImpl) SetPrimary(id string) error {
	if id != "" {
		s.mu.RLock()
		_, found := s.findLocked(id)
		s.mu.RUnlock()
		if !found {
			return entity.ErrNotFound
		}
	}
	return s.prefs.Set(port.PrefPrimaryWallet, id)
}

// Primary returns the designated primary wallet id, or "" when unset.
func (s *WalletServiceImpl) Primary() string {
	id, _ := s.prefs.Get(port.PrefPrimaryWallet)
	return id
}

// Transactions returns the wallet's cached list, loading it lazily. When the
// first read comes back empty the balance-fetch collaborator is triggered as
// a fallback and the read retried once.
func (s *WalletServiceImpl) Transactions(ctx context.Context, id string) ([]entity.Transaction, error) {
	s.mu.RLock()
	wallet, found := s.findLocked(id)
	s.mu.RUnlock()
	if !found {
		return nil, entity.ErrNotFound
	}

	if cached, ok := s.txCache.Get(id); ok {
		return cached.([]entity.Transaction), nil
	}

	txs, err := s.txFetcher.FetchTransactions(ctx, wallet)
	if err != nil {
		s.notify(entity.NotifyError, "Transações", "Não foi possível carregar as transações.")
		return nil, &entity.NetworkFetchError{Network: wallet.Network, Address: wallet.Address, Err: err}
	}
	if len(txs) == 0 {
		// Cold upstream cache: prime it through the balance collaborator,
		// then retry the read once.
		if _, fetchErr := s.fetcher.FetchBalance(ctx, wallet.Address, wallet.Network); fetchErr != nil {
			s.logger.Warn("Balance fallback before transaction retry failed", "id", id, "error", fetchErr)
		}
		txs, err = s.txFetcher.FetchTransactions(ctx, wallet)
		if err != nil {
			s.notify(entity.NotifyError, "Transações", "Não foi possível carregar as transações.")
			return nil, &entity.NetworkFetchError{Network: wallet.Network, Address: wallet.Address, Err: err}
		}
	}

	s.txCache.Set(id, txs, gocache.DefaultExpiration)
	return txs, nil
}

// Wallets returns a copy of the current in-memory collection.
func (s *WalletServiceImpl) Wallets() []entity.TrackedWallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.TrackedWallet, len(s.wallets))
	copy(out, s.wallets)
	return out
}

// IsUpdating reports whether a refresh is in flight for the wallet.
func (s *WalletServiceImpl) IsUpdating(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updating[id]
}

// IsLoading reports whether a store-wide operation is in flight.
func (s *WalletServiceImpl) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// findLocked looks up a wallet by id. Callers must hold s.mu.
func (s *WalletServiceImpl) findLocked(id string) (entity.TrackedWallet, bool) {
	for _, w := range s.wallets {
		if w.ID == id {
			return w, true
		}
	}
	return entity.TrackedWallet{}, false
}

func (s *WalletServiceImpl) replaceAll(wallets []entity.TrackedWallet) {
	s.mu.Lock()
	s.wallets = wallets
	metrics.SetTrackedWallets(len(wallets))
	s.mu.Unlock()
}

func (s *WalletServiceImpl) replaceOne(wallet entity.TrackedWallet) {
	s.mu.Lock()
	for i := range s.wallets {
		if s.wallets[i].ID == wallet.ID {
			s.wallets[i] = wallet
			break
		}
	}
	s.mu.Unlock()
}

func (s *WalletServiceImpl) setUpdating(id string, v bool) {
	s.mu.Lock()
	if v {
		s.updating[id] = true
	} else {
		delete(s.updating, id)
	}
	s.mu.Unlock()
}

func (s *WalletServiceImpl) setLoading(v bool) {
	s.mu.Lock()
	if v {
		s.loading++
	} else {
		s.loading--
	}
	s.mu.Unlock()
}

func (s *WalletServiceImpl) notify(level entity.NotificationLevel, title, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(entity.Notification{Level: level, Title: title, Message: message, CreatedAt: time.Now().UTC()})
}

// applySnapshot replaces the refreshable fields of a wallet wholesale.
// Native-only snapshots carry no totals or token data, so those fields keep
// their stored values instead of being zeroed.
func applySnapshot(w *entity.TrackedWallet, snap *port.BalanceSnapshot, at time.Time) {
	w.Balance = snap.NativeBalance
	w.TransactionCount = snap.TransactionCount
	if !snap.NativeOnly {
		w.TotalReceived = snap.TotalReceived
		w.TotalSent = snap.TotalSent
		w.TokenBalances = snap.Tokens
		w.TotalUSDValue = snap.TotalUSDValue
	}
	w.LastUpdated = at
}
