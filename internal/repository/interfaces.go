package repository

import (
	"context"
	"time"

	"cardvault-price-api/internal/model"
)

// CardRepository defines card catalog data access methods.
type CardRepository interface {
	// ExistingCardIDs returns the subset of ids that exist in the cards table.
	// Callers are expected to keep each call under the store's query-size
	// limit; the ingestion service chunks its lookups.
	ExistingCardIDs(ctx context.Context, ids []int64) ([]int64, error)

	// UpsertCard inserts or updates a catalog card.
	UpsertCard(ctx context.Context, card model.Card) error
}

// PriceHistoryRepository defines price snapshot data access methods.
type PriceHistoryRepository interface {
	// InsertSnapshots appends snapshot rows. Rows are never updated.
	InsertSnapshots(ctx context.Context, snapshots []model.PriceSnapshot) error

	// CountSnapshotsBefore counts snapshots recorded strictly before cutoff.
	CountSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteSnapshotsBefore deletes snapshots recorded strictly before cutoff
	// and returns the number of deleted rows.
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// LatestSnapshot returns the most recent snapshot for a card, or nil if
	// the card has no snapshots.
	LatestSnapshot(ctx context.Context, cardID int64) (*model.PriceSnapshot, error)

	// SnapshotsSince returns a card's snapshots recorded at or after since,
	// newest first.
	SnapshotsSince(ctx context.Context, cardID int64, since time.Time) ([]model.PriceSnapshot, error)
}

// MarkerRepository defines access to the persisted ingestion marker.
type MarkerRepository interface {
	// LastUpdate returns the last processed feed marker, or "" if no run has
	// ever completed.
	LastUpdate(ctx context.Context) (string, error)

	// SetLastUpdate persists the feed marker after a successful run.
	SetLastUpdate(ctx context.Context, value string) error
}

// ConfigRepository defines access to keyed config rows (exchange-rate cache).
type ConfigRepository interface {
	// GetRate reads a cached rate. Both return values are nil if no update
	// has ever succeeded for the key.
	GetRate(ctx context.Context, key string) (*float64, *time.Time, error)

	// UpsertRate writes a cached rate and its update timestamp.
	UpsertRate(ctx context.Context, key string, rate float64, updatedAt time.Time) error
}

// Store combines all data access interfaces backed by one database.
type Store interface {
	CardRepository
	PriceHistoryRepository
	MarkerRepository
	ConfigRepository

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	// Stats returns store statistics for the admin endpoint.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}
