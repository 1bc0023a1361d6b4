package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockRateFetcher struct {
	rate float64
	err  error
}

func (m *mockRateFetcher) FetchUSDBRL(ctx context.Context) (float64, error) {
	return m.rate, m.err
}

type mockConfigRepo struct {
	rate      *float64
	updatedAt *time.Time
	getErr    error
	upsertErr error
}

func (m *mockConfigRepo) GetRate(ctx context.Context, key string) (*float64, *time.Time, error) {
	if m.getErr != nil {
		return nil, nil, m.getErr
	}
	return m.rate, m.updatedAt, nil
}

func (m *mockConfigRepo) UpsertRate(ctx context.Context, key string, rate float64, updatedAt time.Time) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.rate = &rate
	m.updatedAt = &updatedAt
	return nil
}

func TestExchangeRateServeBeforeFirstUpdate(t *testing.T) {
	svc := NewExchangeRateService(&mockRateFetcher{}, &mockConfigRepo{}, "CURRENT_USD_BRL_RATE")

	cached, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	if cached.Rate != nil {
		t.Errorf("expected nil rate before first update, got %v", *cached.Rate)
	}
	if cached.UpdatedAt != nil {
		t.Errorf("expected nil lastUpdated before first update, got %v", cached.UpdatedAt)
	}
}

func TestExchangeRateUpdateThenServe(t *testing.T) {
	store := &mockConfigRepo{}
	svc := NewExchangeRateService(&mockRateFetcher{rate: 5.43}, store, "CURRENT_USD_BRL_RATE")
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

	rate, err := svc.Update(context.Background())
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if rate != 5.43 {
		t.Errorf("expected rate 5.43, got %v", rate)
	}

	cached, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if cached.Rate == nil || *cached.Rate != 5.43 {
		t.Errorf("expected cached rate 5.43, got %v", cached.Rate)
	}
	if cached.UpdatedAt == nil {
		t.Fatal("expected lastUpdated to be set after update")
	}
}

func TestExchangeRateUpdateFailureKeepsCache(t *testing.T) {
	existing := 5.10
	store := &mockConfigRepo{rate: &existing}
	svc := NewExchangeRateService(&mockRateFetcher{err: errors.New("upstream down")}, store, "CURRENT_USD_BRL_RATE")

	if _, err := svc.Update(context.Background()); err == nil {
		t.Fatal("expected error from failed fetch")
	}

	// Stale cache is preferred over no cache.
	cached, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if cached.Rate == nil || *cached.Rate != 5.10 {
		t.Errorf("expected previous cached rate 5.10 to survive, got %v", cached.Rate)
	}
}
