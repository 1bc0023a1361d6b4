package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"cardvault-price-api/internal/model"
	"cardvault-price-api/internal/repository"
)

// PriceFeed defines the upstream feed operations the ingestion job needs.
type PriceFeed interface {
	// LastUpdated fetches the feed's freshness marker.
	LastUpdated(ctx context.Context) (string, error)

	// SetPrices fetches the price records for one set.
	SetPrices(ctx context.Context, setID int) ([]model.FeedPriceRecord, error)
}

// IngestConfig holds ingestion run settings.
type IngestConfig struct {
	SetIDs          []int
	LookupChunkSize int
	InsertBatchSize int
	// SkipIfUnchanged short-circuits the run when the feed marker matches the
	// persisted one. Off by default: every invocation re-ingests.
	SkipIfUnchanged bool
}

// IngestSummary is the result of one ingestion run.
type IngestSummary struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

// IngestService synchronizes card prices from the external feed into the
// price history table.
type IngestService struct {
	feed    PriceFeed
	cards   repository.CardRepository
	history repository.PriceHistoryRepository
	marker  repository.MarkerRepository
	cfg     IngestConfig

	now func() time.Time
}

// NewIngestService creates a new price ingestion service.
func NewIngestService(
	feed PriceFeed,
	cards repository.CardRepository,
	history repository.PriceHistoryRepository,
	marker repository.MarkerRepository,
	cfg IngestConfig,
) *IngestService {
	if cfg.LookupChunkSize <= 0 {
		cfg.LookupChunkSize = 500
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 100
	}

	return &IngestService{
		feed:    feed,
		cards:   cards,
		history: history,
		marker:  marker,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run performs one synchronization pass: fetch the feed marker, pull per-set
// price documents, validate product IDs against the card catalog, append
// snapshots in batches, then persist the marker.
//
// Runs are at-least-once: a failure after some batches have been inserted
// leaves those rows in place without updating the marker, and the next run
// re-ingests. Snapshots are an append-only log, so duplicates are accepted.
func (s *IngestService) Run(ctx context.Context) (*IngestSummary, error) {
	external, err := s.feed.LastUpdated(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed marker: %w", err)
	}

	persisted, err := s.marker.LastUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingestion marker: %w", err)
	}

	if s.cfg.SkipIfUnchanged && external == persisted {
		log.Printf("[IngestService] Feed unchanged (marker %q), skipping run", external)
		return &IngestSummary{Message: "Feed unchanged, nothing to ingest", Updated: 0}, nil
	}

	// A failed set endpoint is logged and skipped; one dead set must not
	// abort the whole run.
	var records []model.FeedPriceRecord
	for _, setID := range s.cfg.SetIDs {
		recs, err := s.feed.SetPrices(ctx, setID)
		if err != nil {
			log.Printf("[IngestService] Skipping set %d: %v", setID, err)
			continue
		}
		records = append(records, recs...)
	}

	known, err := s.lookupKnownIDs(ctx, records)
	if err != nil {
		return nil, err
	}

	// Unknown product IDs are dropped silently: the feed may reference cards
	// not yet imported into the catalog.
	runAt := s.now().UTC()
	var snapshots []model.PriceSnapshot
	for _, rec := range records {
		if _, ok := known[rec.ProductID]; !ok {
			continue
		}
		snapshots = append(snapshots, model.SnapshotFromRecord(rec, runAt))
	}

	for start := 0; start < len(snapshots); start += s.cfg.InsertBatchSize {
		end := start + s.cfg.InsertBatchSize
		if end > len(snapshots) {
			end = len(snapshots)
		}
		if err := s.history.InsertSnapshots(ctx, snapshots[start:end]); err != nil {
			return nil, fmt.Errorf("failed to insert snapshot batch at %d: %w", start, err)
		}
	}

	if err := s.marker.SetLastUpdate(ctx, external); err != nil {
		// Snapshots are already inserted; reporting failure makes the next
		// run re-attempt, an accepted duplication risk.
		return nil, fmt.Errorf("failed to persist ingestion marker: %w", err)
	}

	log.Printf("[IngestService] Ingested %d snapshots from %d feed records (marker %q)",
		len(snapshots), len(records), external)

	return &IngestSummary{
		Message: fmt.Sprintf("Synced %d price snapshots", len(snapshots)),
		Updated: len(snapshots),
	}, nil
}

// lookupKnownIDs deduplicates the product IDs referenced by records and
// queries the catalog for them in fixed-size chunks to stay under query-size
// limits. A failed chunk aborts the run.
func (s *IngestService) lookupKnownIDs(ctx context.Context, records []model.FeedPriceRecord) (map[int64]struct{}, error) {
	seen := make(map[int64]struct{}, len(records))
	unique := make([]int64, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ProductID]; ok {
			continue
		}
		seen[rec.ProductID] = struct{}{}
		unique = append(unique, rec.ProductID)
	}

	known := make(map[int64]struct{}, len(unique))
	for start := 0; start < len(unique); start += s.cfg.LookupChunkSize {
		end := start + s.cfg.LookupChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		found, err := s.cards.ExistingCardIDs(ctx, unique[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to look up cards: %w", err)
		}
		for _, id := range found {
			known[id] = struct{}{}
		}
	}

	return known, nil
}
