package port

import (
	"context"

	"satotrack/internal/domain/entity"
)

// WalletService is the authoritative client-side view of the user's tracked
// wallets, reconciling the initial bulk load, individual operations and
// asynchronous realtime patches.
type WalletService interface {
	// LoadAll replaces the in-memory collection from the repository. Without
	// a session or on a read failure it degrades to an empty list instead of
	// returning an error, so callers can always render a "no wallets" state.
	LoadAll(ctx context.Context, sortKey string, descending bool) []entity.TrackedWallet

	// Add classifies the address, fetches its balance and persists the new
	// wallet. No partial record is created on any failure path.
	Add(ctx context.Context, label, rawAddress string) (*entity.TrackedWallet, error)

	// Refresh re-fetches balance data for one wallet and replaces its
	// balance, totals, transaction count and token list wholesale.
	Refresh(ctx context.Context, id string) error

	// Remove deletes the wallet, drops its cached transactions and clears
	// the primary designation if it pointed at the removed wallet.
	Remove(ctx context.Context, id string) error

	// Rename updates the display label only.
	Rename(ctx context.Context, id, newLabel string) error

	// SetPrimary persists the primary wallet designation; an empty id clears it.
	SetPrimary(id string) error
	Primary() string

	// Transactions returns the wallet's cached transaction list, loading it
	// lazily on first access.
	Transactions(ctx context.Context, id string) ([]entity.Transaction, error)

	// Wallets returns the current in-memory collection.
	Wallets() []entity.TrackedWallet

	// IsUpdating reports whether a refresh is in flight for the wallet.
	IsUpdating(id string) bool
	// IsLoading reports whether a store-wide operation (bulk load or add) is in flight.
	IsLoading() bool
}
