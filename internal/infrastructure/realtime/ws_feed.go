// Package realtime consumes the backend's push channel over a websocket and
// converts its row-change messages into the tagged event variants the
// reconciler consumes.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Compile-time check: *Feed must satisfy port.RealtimeFeed.
var _ port.RealtimeFeed = (*Feed)(nil)

const reconnectDelay = 5 * time.Second

// Feed maintains the websocket connection and fans events out to
// subscribers. Slow subscribers are skipped rather than blocking delivery.
type Feed struct {
	url              string
	handshakeTimeout time.Duration
	logger           *zap.Logger

	mu          sync.Mutex
	subscribers []chan port.RealtimeEvent
	stopChan    chan struct{}
	done        chan struct{}
}

// NewFeed creates a feed for the given websocket URL.
func NewFeed(url string, handshakeTimeout time.Duration, logger *zap.Logger) *Feed {
	return &Feed{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		logger:           logger.Named("RealtimeFeed"),
		stopChan:         make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Subscribe implements port.RealtimeFeed.
func (f *Feed) Subscribe() (<-chan port.RealtimeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan port.RealtimeEvent, 100)
	f.subscribers = append(f.subscribers, ch)

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, sub := range f.subscribers {
			if sub == ch {
				f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel
}

// Start begins the read loop in a goroutine, reconnecting on failure until
// Stop is called or the context ends.
func (f *Feed) Start(ctx context.Context) {
	go f.run(ctx)
}

// Stop closes the feed. All subscriber channels stay open; their owners
// cancel their own subscriptions.
func (f *Feed) Stop() {
	close(f.stopChan)
	<-f.done
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-f.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := f.readLoop(ctx); err != nil {
			f.logger.Warn("Realtime connection lost, reconnecting", zap.Error(err))
		}

		select {
		case <-f.stopChan:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *Feed) readLoop(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.logger.Info("Realtime channel connected", zap.String("url", f.url))

	// Close the connection when stopping so ReadMessage unblocks.
	go func() {
		select {
		case <-f.stopChan:
			_ = conn.Close()
		case <-ctx.Done():
			_ = conn.Close()
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		event, ok := f.decode(message)
		if !ok {
			continue
		}
		f.publish(event)
	}
}

func (f *Feed) publish(event port.RealtimeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subscribers {
		select {
		case sub <- event:
		default:
			f.logger.Warn("Dropping realtime event for slow subscriber")
		}
	}
}

// wireMessage is the server's generic row-change envelope.
type wireMessage struct {
	Table     string              `json:"table"`
	EventType string              `json:"eventType"`
	New       jsoniter.RawMessage `json:"new"`
	Old       jsoniter.RawMessage `json:"old"`
}

// walletRow mirrors the server's wallet table columns.
type walletRow struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Nome           string          `json:"nome"`
	Endereco       string          `json:"endereco"`
	Rede           string          `json:"rede"`
	TipoEndereco   string          `json:"tipo_endereco"`
	Saldo          decimal.Decimal `json:"saldo"`
	TotalEntradas  decimal.Decimal `json:"total_entradas"`
	TotalSaidas    decimal.Decimal `json:"total_saidas"`
	QtdeTransacoes int64           `json:"qtde_transacoes"`
	UltimoUpdate   time.Time       `json:"ultimo_update"`
	DataCriacao    time.Time       `json:"data_criacao"`
}

// transactionRow mirrors the server's transaction table columns.
type transactionRow struct {
	Hash          string          `json:"hash"`
	CarteiraID    string          `json:"carteira_id"`
	Valor         decimal.Decimal `json:"valor"`
	Tipo          string          `json:"tipo"` // "entrada" | "saida"
	DataTransacao time.Time       `json:"data_transacao"`
}

// decode maps a wire message to a tagged event variant. Unknown tables and
// event types are dropped with a debug log.
func (f *Feed) decode(message []byte) (port.RealtimeEvent, bool) {
	var msg wireMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		f.logger.Warn("Failed to decode realtime message", zap.Error(err))
		return nil, false
	}

	switch msg.Table {
	case "carteiras":
		switch msg.EventType {
		case "INSERT", "UPDATE":
			var row walletRow
			if err := json.Unmarshal(msg.New, &row); err != nil {
				f.logger.Warn("Failed to decode wallet row", zap.Error(err))
				return nil, false
			}
			wallet := mapWalletRow(row)
			if msg.EventType == "INSERT" {
				return port.WalletInserted{Wallet: wallet}, true
			}
			return port.WalletUpdated{Wallet: wallet}, true
		case "DELETE":
			var row walletRow
			if err := json.Unmarshal(msg.Old, &row); err != nil {
				f.logger.Warn("Failed to decode deleted wallet row", zap.Error(err))
				return nil, false
			}
			return port.WalletDeleted{WalletID: row.ID}, true
		}
	case "transacoes":
		if msg.EventType != "INSERT" {
			break
		}
		var row transactionRow
		if err := json.Unmarshal(msg.New, &row); err != nil {
			f.logger.Warn("Failed to decode transaction row", zap.Error(err))
			return nil, false
		}
		direction := entity.TxIncoming
		if row.Tipo == "saida" {
			direction = entity.TxOutgoing
		}
		return port.TransactionInserted{
			WalletID: row.CarteiraID,
			Transaction: entity.Transaction{
				Hash:      row.Hash,
				WalletID:  row.CarteiraID,
				Amount:    row.Valor,
				Direction: direction,
				Timestamp: row.DataTransacao,
			},
		}, true
	}

	f.logger.Debug("Ignoring unhandled realtime message",
		zap.String("table", msg.Table), zap.String("event", msg.EventType))
	return nil, false
}

// mapWalletRow converts server column names to the entity's field names.
func mapWalletRow(row walletRow) entity.TrackedWallet {
	return entity.TrackedWallet{
		ID:               row.ID,
		UserID:           row.UserID,
		Label:            row.Nome,
		Address:          row.Endereco,
		Network:          entity.Network(row.Rede),
		AddressSubtype:   row.TipoEndereco,
		Balance:          row.Saldo,
		TotalReceived:    row.TotalEntradas,
		TotalSent:        row.TotalSaidas,
		TransactionCount: row.QtdeTransacoes,
		LastUpdated:      row.UltimoUpdate,
		CreatedAt:        row.DataCriacao,
	}
}
