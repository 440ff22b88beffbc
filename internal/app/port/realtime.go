package port

import "satotrack/internal/domain/entity"

// RealtimeEvent is a tagged variant delivered by the push channel. Exactly
// four shapes exist; consumers switch on the concrete type.
type RealtimeEvent interface {
	realtimeEvent()
}

// WalletInserted announces a wallet row created by another session or device.
type WalletInserted struct {
	Wallet entity.TrackedWallet
}

// WalletUpdated announces new balance data for an existing wallet row.
type WalletUpdated struct {
	Wallet entity.TrackedWallet
}

// WalletDeleted announces a removed wallet row.
type WalletDeleted struct {
	WalletID string
}

// TransactionInserted announces a transaction appended to a wallet's history.
type TransactionInserted struct {
	WalletID    string
	Transaction entity.Transaction
}

func (WalletInserted) realtimeEvent()      {}
func (WalletUpdated) realtimeEvent()       {}
func (WalletDeleted) realtimeEvent()       {}
func (TransactionInserted) realtimeEvent() {}

// RealtimeFeed delivers push events from the backend. Subscribe returns a
// receive channel plus a cancellation handle; the handle must be called when
// the consumer goes away, otherwise the live channel keeps mutating state
// after its owner is gone.
type RealtimeFeed interface {
	Subscribe() (<-chan RealtimeEvent, func())
}
