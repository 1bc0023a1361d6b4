package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"cardvault-price-api/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore implements Store using MySQL (hosted MySQL offerings such as Aiven).
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore creates a new MySQL price store.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLStore] Initialized")
	return &MySQLStore{db: db}, nil
}

// createMySQLTables creates the price pipeline tables.
// MySQL needs one statement per Exec.
func createMySQLTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			card_id BIGINT NOT NULL,
			recorded_at DATETIME(6) NOT NULL,
			price_min_market_us DECIMAL(12,4) NULL,
			price_avg_market_us DECIMAL(12,4) NULL,
			price_max_market_us DECIMAL(12,4) NULL,
			price_market_market_us DECIMAL(12,4) NULL,
			source VARCHAR(32) NOT NULL,
			INDEX idx_price_history_card (card_id, recorded_at),
			INDEX idx_price_history_recorded (recorded_at),
			CONSTRAINT fk_price_history_card FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS price_update_log (
			id INT PRIMARY KEY,
			last_update VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS config (
			` + "`key`" + ` VARCHAR(128) PRIMARY KEY,
			value VARCHAR(255) NULL,
			updated_at DATETIME(6) NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ExistingCardIDs returns the subset of ids present in the cards table.
func (s *MySQLStore) ExistingCardIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

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
func (s *MySQLStore) UpsertCard(ctx context.Context, card model.Card) error {
	query := `
		INSERT INTO cards (id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name)`

	_, err := s.db.ExecContext(ctx, query, card.ID, card.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert card %d: %w", card.ID, err)
	}
	return nil
}

// InsertSnapshots appends snapshot rows in one transaction.
func (s *MySQLStore) InsertSnapshots(ctx context.Context, snapshots []model.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

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
func (s *MySQLStore) CountSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM price_history WHERE recorded_at < ?", cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count old snapshots: %w", err)
	}
	return count, nil
}

// DeleteSnapshotsBefore deletes snapshots recorded strictly before cutoff.
func (s *MySQLStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
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
		log.Printf("[MySQLStore] Deleted %d snapshots older than %v", deleted, cutoff)
	}

	return deleted, nil
}

// LatestSnapshot returns the most recent snapshot for a card.
func (s *MySQLStore) LatestSnapshot(ctx context.Context, cardID int64) (*model.PriceSnapshot, error) {
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
func (s *MySQLStore) SnapshotsSince(ctx context.Context, cardID int64, since time.Time) ([]model.PriceSnapshot, error) {
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
func (s *MySQLStore) LastUpdate(ctx context.Context) (string, error) {
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
func (s *MySQLStore) SetLastUpdate(ctx context.Context, value string) error {
	query := `
		INSERT INTO price_update_log (id, last_update) VALUES (1, ?)
		ON DUPLICATE KEY UPDATE last_update = VALUES(last_update)`

	_, err := s.db.ExecContext(ctx, query, value)
	if err != nil {
		return fmt.Errorf("failed to update ingestion marker: %w", err)
	}
	return nil
}

// GetRate reads a cached rate from the config table.
func (s *MySQLStore) GetRate(ctx context.Context, key string) (*float64, *time.Time, error) {
	var value sql.NullString
	var updatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT value, updated_at FROM config WHERE `key` = ?", key).Scan(&value, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read config key %s: %w", key, err)
	}

	return parseRateRow(value, updatedAt)
}

// UpsertRate writes a cached rate and its update timestamp.
func (s *MySQLStore) UpsertRate(ctx context.Context, key string, rate float64, updatedAt time.Time) error {
	query := "INSERT INTO config (`key`, value, updated_at) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)"

	_, err := s.db.ExecContext(ctx, query, key, strconv.FormatFloat(rate, 'f', -1, 64), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert config key %s: %w", key, err)
	}
	return nil
}

// Ping checks store connectivity.
func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats returns statistics about the price store.
func (s *MySQLStore) Stats(ctx context.Context) (map[string]interface{}, error) {
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

	dbStats := s.db.Stats()
	stats["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}

	return stats, nil
}

// Close closes the database connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)
