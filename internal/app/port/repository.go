package port

import (
	"context"

	"satotrack/internal/domain/entity"
)

// Wallet list sort keys accepted by the repository.
const (
	SortByLabel       = "label"
	SortByBalance     = "balance"
	SortByCreatedAt   = "created_at"
	SortByLastUpdated = "last_updated"
)

// WalletRepository is the persistent storage collaborator for tracked
// wallets. Insert assigns the wallet its opaque unique id.
type WalletRepository interface {
	ListByUser(ctx context.Context, userID, sortKey string, descending bool) ([]entity.TrackedWallet, error)
	GetByID(ctx context.Context, id string) (*entity.TrackedWallet, error)
	ExistsByAddress(ctx context.Context, userID, address string) (bool, error)
	Insert(ctx context.Context, wallet *entity.TrackedWallet) error
	Update(ctx context.Context, wallet entity.TrackedWallet) error
	UpdateLabel(ctx context.Context, id, label string) error
	Delete(ctx context.Context, id string) error
}
