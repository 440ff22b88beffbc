package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ListByUser(ctx context.Context, userID, sortKey string, descending bool) ([]entity.TrackedWallet, error) {
	args := m.Called(ctx, userID, sortKey, descending)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TrackedWallet), args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*entity.TrackedWallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TrackedWallet), args.Error(1)
}

func (m *mockRepository) ExistsByAddress(ctx context.Context, userID, address string) (bool, error) {
	args := m.Called(ctx, userID, address)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Insert(ctx context.Context, wallet *entity.TrackedWallet) error {
	args := m.Called(ctx, wallet)
	if args.Error(0) == nil && wallet.ID == "" {
		wallet.ID = "wallet-" + wallet.Address[:6]
	}
	return args.Error(0)
}

func (m *mockRepository) Update(ctx context.Context, wallet entity.TrackedWallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *mockRepository) UpdateLabel(ctx context.Context, id, label string) error {
	args := m.Called(ctx, id, label)
	return args.Error(0)
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchBalance(ctx context.Context, address string, network entity.Network) (*port.BalanceSnapshot, error) {
	args := m.Called(ctx, address, network)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.BalanceSnapshot), args.Error(1)
}

type mockTxFetcher struct {
	mock.Mock
}

func (m *mockTxFetcher) FetchTransactions(ctx context.Context, wallet entity.TrackedWallet) ([]entity.Transaction, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Transaction), args.Error(1)
}

// stubAuth is a minimal in-memory auth provider for tests.
type stubAuth struct {
	mu        sync.Mutex
	user      *port.User
	listeners []func(*port.User)
}

func (a *stubAuth) CurrentUser() *port.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

func (a *stubAuth) OnAuthChange(fn func(*port.User)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
	return func() {}
}

func (a *stubAuth) set(u *port.User) {
	a.mu.Lock()
	a.user = u
	listeners := append([]func(*port.User){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(u)
	}
}

type stubPrefs struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newStubPrefs() *stubPrefs {
	return &stubPrefs{values: make(map[string]string)}
}

func (p *stubPrefs) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	if v == "" {
		return "", false
	}
	return v, ok
}

func (p *stubPrefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return p.setErr
	}
	p.values[key] = value
	return nil
}

// recordingNotifier collects every emitted notification.
type recordingNotifier struct {
	mu      sync.Mutex
	entries []entity.Notification
}

func (n *recordingNotifier) Notify(notification entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, notification)
}

func (n *recordingNotifier) all() []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.Notification{}, n.entries...)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type serviceFixture struct {
	repo      *mockRepository
	fetcher   *mockFetcher
	txFetcher *mockTxFetcher
	auth      *stubAuth
	prefs     *stubPrefs
	notifier  *recordingNotifier
	svc       *WalletServiceImpl
}

func newFixture(t *testing.T, user *port.User) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:      &mockRepository{},
		fetcher:   &mockFetcher{},
		txFetcher: &mockTxFetcher{},
		auth:      &stubAuth{user: user},
		prefs:     newStubPrefs(),
		notifier:  &recordingNotifier{},
	}
	f.svc = NewWalletService(f.repo, f.fetcher, f.txFetcher, f.auth, f.prefs, f.notifier, noopLogger{}, time.Minute)
	t.Cleanup(f.svc.Close)
	return f
}

func btcSnapshot(balance string) *port.BalanceSnapshot {
	return &port.BalanceSnapshot{
		NativeBalance:    decimal.RequireFromString(balance),
		NativeSymbol:     "BTC",
		TotalReceived:    decimal.RequireFromString(balance),
		TotalSent:        decimal.Zero,
		TransactionCount: 3,
	}
}

func TestAddBech32WalletRoundTrip(t *testing.T) {
	user := &port.User{ID: "user-1"}
	f := newFixture(t, user)
	ctx := context.Background()

	const addr = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
	f.repo.On("ExistsByAddress", mock.Anything, "user-1", addr).Return(false, nil)
	f.fetcher.On("FetchBalance", mock.Anything, addr, entity.NetworkBitcoin).Return(btcSnapshot("0.5"), nil)
	f.repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	wallet, err := f.svc.Add(ctx, "Savings", "  "+addr+"  ")
	require.NoError(t, err)
	require.NotNil(t, wallet)

	assert.Equal(t, "Savings", wallet.Label)
	assert.Equal(t, addr, wallet.Address, "address should be trimmed before storage")
	assert.Equal(t, entity.NetworkBitcoin, wallet.Network)
	assert.Equal(t, "bech32", wallet.AddressSubtype)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("0.5")))

	wallets := f.svc.Wallets()
	require.Len(t, wallets, 1)
	assert.Equal(t, wallet.ID, wallets[0].ID)
	f.repo.AssertExpectations(t)
}

func TestAddRejectsInvalidAddressWithoutSideEffects(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})

	_, err := f.svc.Add(context.Background(), "Bad", "not-an-address")
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)
	assert.Empty(t, f.svc.Wallets())
	f.repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.fetcher.AssertNotCalled(t, "FetchBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddRejectsDuplicateAddress(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})

	const addr = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	f.repo.On("ExistsByAddress", mock.Anything, "user-1", addr).Return(true, nil)

	_, err := f.svc.Add(context.Background(), "Dup", addr)
	assert.ErrorIs(t, err, entity.ErrDuplicateAddress)
	assert.Empty(t, f.svc.Wallets())
	f.repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestAddUnauthenticated(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Add(context.Background(), "Orphan", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)
}

func TestAddFetchFailureLeavesNoPartialRecord(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})

	const addr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	f.repo.On("ExistsByAddress", mock.Anything, "user-1", addr).Return(false, nil)
	f.fetcher.On("FetchBalance", mock.Anything, addr, entity.NetworkBitcoin).Return(nil, errors.New("upstream down"))

	_, err := f.svc.Add(context.Background(), "Genesis", addr)

	var fetchErr *entity.NetworkFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, entity.NetworkBitcoin, fetchErr.Network)
	assert.Empty(t, f.svc.Wallets())
	assert.False(t, f.svc.IsLoading())
	f.repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func seedWallet(f *serviceFixture, id, label, addr string, network entity.Network, balance string) entity.TrackedWallet {
	w := entity.TrackedWallet{
		ID:      id,
		UserID:  "user-1",
		Label:   label,
		Address: addr,
		Network: network,
		Balance: decimal.RequireFromString(balance),
	}
	f.svc.mu.Lock()
	f.svc.wallets = append(f.svc.wallets, w)
	f.svc.mu.Unlock()
	return w
}

func TestRefreshUpdatesRecordAndClearsFlag(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")

	f.fetcher.On("FetchBalance", mock.Anything, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin).
		Return(btcSnapshot("0.7"), nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.svc.Refresh(context.Background(), "w1"))

	wallets := f.svc.Wallets()
	require.Len(t, wallets, 1)
	assert.True(t, wallets[0].Balance.Equal(decimal.RequireFromString("0.7")))
	assert.False(t, wallets[0].LastUpdated.IsZero())
	assert.False(t, f.svc.IsUpdating("w1"))
}

func TestRefreshFailureClearsUpdatingFlag(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")

	f.fetcher.On("FetchBalance", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	err := f.svc.Refresh(context.Background(), "w1")
	var fetchErr *entity.NetworkFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.False(t, f.svc.IsUpdating("w1"), "updating flag must clear even on failure")

	wallets := f.svc.Wallets()
	require.Len(t, wallets, 1)
	assert.True(t, wallets[0].Balance.Equal(decimal.RequireFromString("0.1")), "failed refresh must not touch the record")
}

func TestLoadAllReturnsDetachedCopy(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	ctx := context.Background()

	stored := []entity.TrackedWallet{{
		ID:      "w1",
		UserID:  "user-1",
		Label:   "Main",
		Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		Network: entity.NetworkBitcoin,
		Balance: decimal.RequireFromString("0.1"),
	}}
	f.repo.On("ListByUser", mock.Anything, "user-1", port.SortByCreatedAt, false).Return(stored, nil)

	loaded := f.svc.LoadAll(ctx, port.SortByCreatedAt, false)
	require.Len(t, loaded, 1)

	f.fetcher.On("FetchBalance", mock.Anything, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin).
		Return(btcSnapshot("0.9"), nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, f.svc.Refresh(ctx, "w1"))

	// The slice handed to the caller must not share backing memory with the
	// collection that Refresh patches in place.
	assert.True(t, loaded[0].Balance.Equal(decimal.RequireFromString("0.1")))
	wallets := f.svc.Wallets()
	require.Len(t, wallets, 1)
	assert.True(t, wallets[0].Balance.Equal(decimal.RequireFromString("0.9")))
}

func TestRefreshNativeOnlySnapshotKeepsTotalsAndTokens(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", entity.NetworkEthereum, "1")
	f.svc.mu.Lock()
	f.svc.wallets[0].TotalReceived = decimal.RequireFromString("5")
	f.svc.wallets[0].TotalSent = decimal.RequireFromString("4")
	f.svc.wallets[0].TotalUSDValue = 2500
	f.svc.wallets[0].TokenBalances = []entity.TokenBalance{{Symbol: "USDT", Balance: decimal.RequireFromString("12")}}
	f.svc.mu.Unlock()

	f.fetcher.On("FetchBalance", mock.Anything, mock.Anything, entity.NetworkEthereum).
		Return(&port.BalanceSnapshot{
			NativeBalance:    decimal.RequireFromString("2"),
			NativeSymbol:     "ETH",
			TransactionCount: 7,
			NativeOnly:       true,
		}, nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.svc.Refresh(context.Background(), "w1"))

	wallets := f.svc.Wallets()
	require.Len(t, wallets, 1)
	assert.True(t, wallets[0].Balance.Equal(decimal.RequireFromString("2")))
	assert.Equal(t, int64(7), wallets[0].TransactionCount)
	assert.True(t, wallets[0].TotalReceived.Equal(decimal.RequireFromString("5")), "RPC snapshots carry no totals and must not wipe them")
	assert.True(t, wallets[0].TotalSent.Equal(decimal.RequireFromString("4")))
	assert.Equal(t, float64(2500), wallets[0].TotalUSDValue)
	require.Len(t, wallets[0].TokenBalances, 1)
	assert.Equal(t, "USDT", wallets[0].TokenBalances[0].Symbol)
}

func TestRefreshUnauthenticated(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.Refresh(context.Background(), "w1")
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)
	f.fetcher.AssertNotCalled(t, "FetchBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshUnknownWallet(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	assert.ErrorIs(t, f.svc.Refresh(context.Background(), "ghost"), entity.ErrNotFound)
}

func TestRemoveClearsPrimaryDesignation(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")
	require.NoError(t, f.svc.SetPrimary("w1"))
	require.Equal(t, "w1", f.svc.Primary())

	f.repo.On("Delete", mock.Anything, "w1").Return(nil)
	require.NoError(t, f.svc.Remove(context.Background(), "w1"))

	assert.Empty(t, f.svc.Wallets())
	assert.Equal(t, "", f.svc.Primary(), "primary designation must not dangle")
}

func TestRemoveKeepsPrimaryOfOtherWallet(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")
	seedWallet(f, "w2", "Side", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", entity.NetworkEthereum, "2")
	require.NoError(t, f.svc.SetPrimary("w2"))

	f.repo.On("Delete", mock.Anything, "w1").Return(nil)
	require.NoError(t, f.svc.Remove(context.Background(), "w1"))

	assert.Equal(t, "w2", f.svc.Primary())
	require.Len(t, f.svc.Wallets(), 1)
}

func TestRenameUnauthenticated(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")
	f.auth.set(nil)

	err := f.svc.Rename(context.Background(), "w1", "Renamed")
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)
}

func TestRename(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")

	f.repo.On("UpdateLabel", mock.Anything, "w1", "Cold storage").Return(nil)
	require.NoError(t, f.svc.Rename(context.Background(), "w1", "Cold storage"))

	wallets := f.svc.Wallets()
	require.Len(t, wallets, 1)
	assert.Equal(t, "Cold storage", wallets[0].Label)
}

func TestSetPrimaryRejectsUnknownID(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	assert.ErrorIs(t, f.svc.SetPrimary("ghost"), entity.ErrNotFound)
	assert.Equal(t, "", f.svc.Primary())
}

func TestSetPrimaryEmptyClears(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")
	require.NoError(t, f.svc.SetPrimary("w1"))
	require.NoError(t, f.svc.SetPrimary(""))
	assert.Equal(t, "", f.svc.Primary())
}

func TestLoadAllWithoutSessionReturnsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	wallets := f.svc.LoadAll(context.Background(), port.SortByLabel, false)
	assert.Empty(t, wallets)
	f.repo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoadAllRepositoryFailureDegradesToEmpty(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")

	f.repo.On("ListByUser", mock.Anything, "user-1", port.SortByBalance, true).Return(nil, errors.New("db locked"))

	wallets := f.svc.LoadAll(context.Background(), port.SortByBalance, true)
	assert.Empty(t, wallets)
	assert.Empty(t, f.svc.Wallets())
	assert.NotEmpty(t, f.notifier.all(), "a failed bulk load should be surfaced to the user")
}

func TestSignOutClearsCollection(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")

	f.auth.set(nil)
	assert.Empty(t, f.svc.Wallets())
}

func TestTransactionsCachesAfterFirstFetch(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	w := seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")

	txs := []entity.Transaction{{Hash: "aa11", WalletID: "w1", Amount: decimal.RequireFromString("0.2"), Direction: entity.TxIncoming}}
	f.txFetcher.On("FetchTransactions", mock.Anything, w).Return(txs, nil).Once()

	got, err := f.svc.Transactions(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Second read must come from the cache.
	got, err = f.svc.Transactions(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	f.txFetcher.AssertNumberOfCalls(t, "FetchTransactions", 1)
}

func TestTransactionsEmptyTriggersBalanceFallbackAndRetry(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	w := seedWallet(f, "w1", "Main", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", entity.NetworkBitcoin, "0.1")

	txs := []entity.Transaction{{Hash: "bb22", WalletID: "w1", Amount: decimal.RequireFromString("0.3"), Direction: entity.TxOutgoing}}
	f.txFetcher.On("FetchTransactions", mock.Anything, w).Return([]entity.Transaction{}, nil).Once()
	f.fetcher.On("FetchBalance", mock.Anything, w.Address, w.Network).Return(btcSnapshot("0.1"), nil).Once()
	f.txFetcher.On("FetchTransactions", mock.Anything, w).Return(txs, nil).Once()

	got, err := f.svc.Transactions(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bb22", got[0].Hash)
	f.fetcher.AssertExpectations(t)
	f.txFetcher.AssertNumberOfCalls(t, "FetchTransactions", 2)
}

func TestUnauthenticatedMutationsNotify(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, "L", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)
	assert.ErrorIs(t, f.svc.Refresh(ctx, "w1"), entity.ErrNotAuthenticated)
	assert.ErrorIs(t, f.svc.Remove(ctx, "w1"), entity.ErrNotAuthenticated)
	assert.ErrorIs(t, f.svc.Rename(ctx, "w1", "X"), entity.ErrNotAuthenticated)

	notes := f.notifier.all()
	require.Len(t, notes, 4, "every rejected mutation surfaces a notification")
	for _, n := range notes {
		assert.Equal(t, entity.NotifyError, n.Level)
	}
}

func TestUnknownWalletMutationsNotify(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Refresh(ctx, "ghost"), entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.Remove(ctx, "ghost"), entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.Rename(ctx, "ghost", "X"), entity.ErrNotFound)

	notes := f.notifier.all()
	require.Len(t, notes, 3)
	for _, n := range notes {
		assert.Equal(t, entity.NotifyError, n.Level)
	}
}

func TestTransactionsUnknownWallet(t *testing.T) {
	f := newFixture(t, &port.User{ID: "user-1"})
	_, err := f.svc.Transactions(context.Background(), "ghost")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
