package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"cardvault-price-api/internal/repository"
)

// RetentionResult is the result of one retention run.
type RetentionResult struct {
	Message      string    `json:"message"`
	DeletedCount int64     `json:"deletedCount"`
	CutoffDate   time.Time `json:"cutoffDate"`
}

// RetentionService deletes price snapshots older than the retention window.
type RetentionService struct {
	history repository.PriceHistoryRepository
	window  time.Duration

	now func() time.Time
}

// NewRetentionService creates a retention service with the given window.
func NewRetentionService(history repository.PriceHistoryRepository, window time.Duration) *RetentionService {
	if window <= 0 {
		window = 14 * 24 * time.Hour
	}
	return &RetentionService{
		history: history,
		window:  window,
		now:     time.Now,
	}
}

// Run counts then deletes snapshots older than the cutoff. The two calls are
// not one atomic transaction, so the reported count can drift slightly from
// what was actually deleted under concurrent writes.
func (s *RetentionService) Run(ctx context.Context) (*RetentionResult, error) {
	cutoff := s.now().UTC().Add(-s.window)

	count, err := s.history.CountSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count expired snapshots: %w", err)
	}

	if _, err := s.history.DeleteSnapshotsBefore(ctx, cutoff); err != nil {
		return nil, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}

	log.Printf("[RetentionService] Deleted %d snapshots older than %s", count, cutoff.Format(time.RFC3339))

	return &RetentionResult{
		Message:      fmt.Sprintf("Deleted %d price snapshots", count),
		DeletedCount: count,
		CutoffDate:   cutoff,
	}, nil
}
