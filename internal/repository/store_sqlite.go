package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"cardvault-price-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite price store.
// dbPath is the path to the SQLite database file (e.g., "./data/prices.db")
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

// createSQLiteTables creates the price pipeline tables.
func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS cards (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		card_id INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		recorded_at DATETIME NOT NULL,
		price_min_market_us REAL,
		price_avg_market_us REAL,
		price_max_market_us REAL,
		price_market_market_us REAL,
		source TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_price_history_card ON price_history(card_id, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_price_history_recorded ON price_history(recorded_at);
	CREATE TABLE IF NOT EXISTS price_update_log (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_update TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at DATETIME
	);
	`
	_, err := db.Exec(query)
	return err
}

// ExistingCardIDs returns the subset of ids present in the cards table.
func (s *SQLiteStore) ExistingCardIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM cards WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up card ids: %w", err)
	}
	defer rows.Close()

	var found []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		found = append(found, id)
	}

	return found, rows.Err()
}

// UpsertCard inserts or updates a catalog card.
func (s *SQLiteStore) UpsertCard(ctx context.Context, card model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO cards (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`

	_, err := s.db.ExecContext(ctx, query, card.ID, card.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert card %d: %w", card.ID, err)
	}
	return nil
}

// InsertSnapshots appends snapshot rows in one transaction.
func (s *SQLiteStore) InsertSnapshots(ctx context.Context, snapshots []model.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history
			(card_id, recorded_at, price_min_market_us, price_avg_market_us, price_max_market_us, price_market_market_us, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		_, err := stmt.ExecContext(ctx, snap.CardID, snap.RecordedAt,
			snap.PriceMinMarketUS, snap.PriceAvgMarketUS, snap.PriceMaxMarketUS, snap.PriceMarketUS, snap.Source)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot for card %d: %w", snap.CardID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountSnapshotsBefore counts snapshots recorded strictly before cutoff.
func (s *SQLiteStore) CountSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM price_history WHERE recorded_at < ?", cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count old snapshots: %w", err)
	}
	return count, nil
}

// DeleteSnapshotsBefore deletes snapshots recorded strictly before cutoff.
func (s *SQLiteStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM price_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Printf("[SQLiteStore] Deleted %d snapshots older than %v", deleted, cutoff)
	}

	return deleted, nil
}

// LatestSnapshot returns the most recent snapshot for a card.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, cardID int64) (*model.PriceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, card_id, recorded_at, price_min_market_us, price_avg_market_us, price_max_market_us, price_market_market_us, source
		FROM price_history WHERE card_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT 1`

	var snap model.PriceSnapshot
	err := s.db.QueryRowContext(ctx, query, cardID).Scan(
		&snap.ID, &snap.CardID, &snap.RecordedAt,
		&snap.PriceMinMarketUS, &snap.PriceAvgMarketUS, &snap.PriceMaxMarketUS, &snap.PriceMarketUS, &snap.Source)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &snap, nil
}

// SnapshotsSince returns a card's snapshots recorded at or after since, newest first.
func (s *SQLiteStore) SnapshotsSince(ctx context.Context, cardID int64, since time.Time) ([]model.PriceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, card_id, recorded_at, price_min_market_us, price_avg_market_us, price_max_market_us, price_market_market_us, source
		FROM price_history WHERE card_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, cardID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []model.PriceSnapshot{}
	for rows.Next() {
		var snap model.PriceSnapshot
		if err := rows.Scan(&snap.ID, &snap.CardID, &snap.RecordedAt,
			&snap.PriceMinMarketUS, &snap.PriceAvgMarketUS, &snap.PriceMaxMarketUS, &snap.PriceMarketUS, &snap.Source); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

// LastUpdate returns the persisted feed marker, or "" if none is recorded.
func (s *SQLiteStore) LastUpdate(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT last_update FROM price_update_log WHERE id = 1").Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to read ingestion marker: %w", err)
	}
	return value, nil
}

// SetLastUpdate persists the feed marker.
func (s *SQLiteStore) SetLastUpdate(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO price_update_log (id, last_update) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_update = excluded.last_update`

	_, err := s.db.ExecContext(ctx, query, value)
	if err != nil {
		return fmt.Errorf("failed to update ingestion marker: %w", err)
	}
	return nil
}

// GetRate reads a cached rate from the config table.
func (s *SQLiteStore) GetRate(ctx context.Context, key string) (*float64, *time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value sql.NullString
	var updatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT value, updated_at FROM config WHERE key = ?", key).Scan(&value, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read config key %s: %w", key, err)
	}

	return parseRateRow(value, updatedAt)
}

// UpsertRate writes a cached rate and its update timestamp.
func (s *SQLiteStore) UpsertRate(ctx context.Context, key string, rate float64, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, key, strconv.FormatFloat(rate, 'f', -1, 64), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert config key %s: %w", key, err)
	}
	return nil
}

// Ping checks store connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats returns statistics about the price store.
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	var cards, snapshots int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&cards); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM price_history").Scan(&snapshots); err != nil {
		return nil, err
	}
	stats["total_cards"] = cards
	stats["total_snapshots"] = snapshots

	var lastRecorded sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(recorded_at) FROM price_history").Scan(&lastRecorded); err == nil && lastRecorded.Valid {
		stats["last_recorded_at"] = lastRecorded.Time
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// parseRateRow converts raw config columns into a rate and timestamp.
// A row with a NULL value is a cache entry that never received an update.
func parseRateRow(value sql.NullString, updatedAt sql.NullTime) (*float64, *time.Time, error) {
	var rate *float64
	var at *time.Time

	if value.Valid {
		parsed, err := strconv.ParseFloat(value.String, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("malformed cached rate %q: %w", value.String, err)
		}
		rate = &parsed
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		at = &t
	}

	return rate, at, nil
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
