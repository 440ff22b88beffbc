package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxDirection tells whether a transaction moved funds into or out of the wallet.
type TxDirection string

const (
	// TxIncoming marks funds received by the wallet.
	TxIncoming TxDirection = "incoming"
	// TxOutgoing marks funds sent from the wallet.
	TxOutgoing TxDirection = "outgoing"
)

// Transaction is a single on-chain transaction as reported by the external
// data source. Hash is unique within a wallet's cached transaction list.
type Transaction struct {
	Hash      string          `json:"hash"`
	WalletID  string          `json:"walletId"`
	Amount    decimal.Decimal `json:"amount"`
	Direction TxDirection     `json:"direction"`
	Timestamp time.Time       `json:"timestamp"`
}
