package port

import (
	"context"

	"github.com/shopspring/decimal"

	"satotrack/internal/domain/entity"
)

// BalanceSnapshot is the external collaborator's view of a wallet at fetch
// time. The token list replaces the stored one wholesale.
type BalanceSnapshot struct {
	NativeBalance    decimal.Decimal
	NativeSymbol     string
	TotalReceived    decimal.Decimal
	TotalSent        decimal.Decimal
	TransactionCount int64
	Tokens           []entity.TokenBalance
	TotalUSDValue    float64

	// NativeOnly marks a snapshot from a source that exposes only the
	// native balance and transaction count (direct JSON-RPC reads). The
	// totals and token fields are unknown there, not zero; consumers keep
	// their stored values for those fields.
	NativeOnly bool
}

// BalanceFetcher retrieves current balance data for an address on a network.
// A failure must not corrupt existing store state; callers wrap the error in
// entity.NetworkFetchError and leave their records untouched.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, address string, network entity.Network) (*BalanceSnapshot, error)
}

// TransactionFetcher retrieves the transaction history for a tracked wallet,
// ordered most-recent-first.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, wallet entity.TrackedWallet) ([]entity.Transaction, error)
}
