// Package sqliterepo persists tracked wallets in SQLite. Decimal values are
// stored as text to avoid float rounding; the token list is stored as a JSON
// column because it is always replaced wholesale, never queried into.
package sqliterepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
)

// Compile-time check: *Repository must satisfy port.WalletRepository.
var _ port.WalletRepository = (*Repository)(nil)

// Repository is the SQLite-backed wallet store.
type Repository struct {
	db *sql.DB
}

// Options configures the repository connection.
type Options struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	PingTimeout  time.Duration
}

// New opens (or creates) the database and initializes the schema.
func New(ctx context.Context, opts Options) (*Repository, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}

	zap.L().Info("Opening SQLite database", zap.String("file", opts.Path))
	db, err := sql.Open("sqlite3", opts.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Wallet repository initialized")
	return repo, nil
}

// Close closes the underlying database handle.
func (r *Repository) Close() {
	if err := r.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		label TEXT NOT NULL,
		address TEXT NOT NULL,
		network TEXT NOT NULL,
		address_subtype TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		total_received TEXT NOT NULL DEFAULT '0',
		total_sent TEXT NOT NULL DEFAULT '0',
		transaction_count INTEGER NOT NULL DEFAULT 0,
		token_balances TEXT NOT NULL DEFAULT '[]',
		total_usd_value REAL NOT NULL DEFAULT 0,
		last_updated TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, address)
	);
	CREATE INDEX IF NOT EXISTS idx_wallets_user_id ON wallets(user_id);
	`
	_, err := r.db.Exec(schema)
	return err
}

// sortColumns whitelists ORDER BY targets; anything else falls back to created_at.
var sortColumns = map[string]string{
	port.SortByLabel:       "label",
	port.SortByBalance:     "CAST(balance AS REAL)",
	port.SortByCreatedAt:   "created_at",
	port.SortByLastUpdated: "last_updated",
}

// ListByUser returns the user's wallets in the requested order.
func (r *Repository) ListByUser(ctx context.Context, userID, sortKey string, descending bool) ([]entity.TrackedWallet, error) {
	column, ok := sortColumns[sortKey]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT id, user_id, label, address, network, address_subtype,
		balance, total_received, total_sent, transaction_count, token_balances,
		total_usd_value, last_updated, created_at
		FROM wallets WHERE user_id = ? ORDER BY %s %s`, column, direction)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		zap.L().Error("Failed to list wallets", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var wallets []entity.TrackedWallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}

	zap.L().Debug("Listed wallets", zap.String("user_id", userID), zap.Int("count", len(wallets)))
	return wallets, nil
}

// GetByID returns a single wallet, or entity.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.TrackedWallet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, label, address, network, address_subtype,
		balance, total_received, total_sent, transaction_count, token_balances,
		total_usd_value, last_updated, created_at FROM wallets WHERE id = ?`, id)
	wallet, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %s: %w", id, err)
	}
	return wallet, nil
}

// ExistsByAddress reports whether the user already tracks the address.
func (r *Repository) ExistsByAddress(ctx context.Context, userID, address string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM wallets WHERE user_id = ? AND address = ?`, userID, address).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check address existence: %w", err)
	}
	return count > 0, nil
}

// Insert persists a new wallet and assigns its id.
func (r *Repository) Insert(ctx context.Context, wallet *entity.TrackedWallet) error {
	wallet.ID = uuid.New().String()

	tokens, err := json.Marshal(wallet.TokenBalances)
	if err != nil {
		return fmt.Errorf("failed to marshal token balances: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO wallets
		(id, user_id, label, address, network, address_subtype, balance, total_received,
		 total_sent, transaction_count, token_balances, total_usd_value, last_updated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wallet.ID, wallet.UserID, wallet.Label, wallet.Address, string(wallet.Network),
		wallet.AddressSubtype, wallet.Balance.String(), wallet.TotalReceived.String(),
		wallet.TotalSent.String(), wallet.TransactionCount, string(tokens),
		wallet.TotalUSDValue, wallet.LastUpdated, wallet.CreatedAt)
	if err != nil {
		zap.L().Error("Failed to insert wallet", zap.String("address", wallet.Address), zap.Error(err))
		return fmt.Errorf("failed to insert wallet: %w", err)
	}

	zap.L().Debug("Inserted wallet", zap.String("id", wallet.ID), zap.String("network", string(wallet.Network)))
	return nil
}

// Update replaces the refreshable fields of an existing wallet.
func (r *Repository) Update(ctx context.Context, wallet entity.TrackedWallet) error {
	tokens, err := json.Marshal(wallet.TokenBalances)
	if err != nil {
		return fmt.Errorf("failed to marshal token balances: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE wallets SET
		balance = ?, total_received = ?, total_sent = ?, transaction_count = ?,
		token_balances = ?, total_usd_value = ?, last_updated = ?
		WHERE id = ?`,
		wallet.Balance.String(), wallet.TotalReceived.String(), wallet.TotalSent.String(),
		wallet.TransactionCount, string(tokens), wallet.TotalUSDValue, wallet.LastUpdated, wallet.ID)
	if err != nil {
		return fmt.Errorf("failed to update wallet %s: %w", wallet.ID, err)
	}
	return requireOneRow(res, wallet.ID)
}

// UpdateLabel changes the display label only.
func (r *Repository) UpdateLabel(ctx context.Context, id, label string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE wallets SET label = ? WHERE id = ?`, label, id)
	if err != nil {
		return fmt.Errorf("failed to rename wallet %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

// Delete removes a wallet row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wallet %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

func requireOneRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("wallet %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*entity.TrackedWallet, error) {
	var (
		w           entity.TrackedWallet
		network     string
		balanceStr  string
		receivedStr string
		sentStr     string
		tokensJSON  string
		lastUpdated sql.NullTime
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Label, &w.Address, &network, &w.AddressSubtype,
		&balanceStr, &receivedStr, &sentStr, &w.TransactionCount, &tokensJSON,
		&w.TotalUSDValue, &lastUpdated, &w.CreatedAt)
	if err != nil {
		return nil, err
	}

	w.Network = entity.Network(network)
	if w.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	if w.TotalReceived, err = decimal.NewFromString(receivedStr); err != nil {
		return nil, fmt.Errorf("failed to parse total_received '%s': %w", receivedStr, err)
	}
	if w.TotalSent, err = decimal.NewFromString(sentStr); err != nil {
		return nil, fmt.Errorf("failed to parse total_sent '%s': %w", sentStr, err)
	}
	if err := json.Unmarshal([]byte(tokensJSON), &w.TokenBalances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token balances: %w", err)
	}
	if lastUpdated.Valid {
		w.LastUpdated = lastUpdated.Time
	}
	return &w, nil
}
