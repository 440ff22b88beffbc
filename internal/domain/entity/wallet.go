package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackedWallet represents a wallet address the user is watching.
// ID is assigned by the repository at creation time; Address and Network are
// immutable after creation (there is no edit-address operation).
type TrackedWallet struct {
	ID               string          `json:"id"`
	UserID           string          `json:"-"`
	Label            string          `json:"label"`
	Address          string          `json:"address"`
	Network          Network         `json:"network"`
	AddressSubtype   string          `json:"addressSubtype"`
	Balance          decimal.Decimal `json:"balance"`
	TotalReceived    decimal.Decimal `json:"totalReceived"`
	TotalSent        decimal.Decimal `json:"totalSent"`
	TransactionCount int64           `json:"transactionCount"`
	TokenBalances    []TokenBalance  `json:"tokenBalances"`
	TotalUSDValue    float64         `json:"totalUsdValue"`
	LastUpdated      time.Time       `json:"lastUpdated"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// TokenBalance is a single token holding inside a wallet. The whole list is
// replaced on each refresh, never merged incrementally.
type TokenBalance struct {
	TokenAddress string          `json:"tokenAddress"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	Decimals     uint8           `json:"decimals"`
	USDValue     float64         `json:"usdValue"`
}
