package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardvault-price-api/internal/model"

	"github.com/go-chi/chi/v5"
)

type mockHistoryRepo struct {
	latest   *model.PriceSnapshot
	history  []model.PriceSnapshot
	sinceArg time.Time
}

func (m *mockHistoryRepo) InsertSnapshots(ctx context.Context, snapshots []model.PriceSnapshot) error {
	return nil
}

func (m *mockHistoryRepo) CountSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *mockHistoryRepo) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *mockHistoryRepo) LatestSnapshot(ctx context.Context, cardID int64) (*model.PriceSnapshot, error) {
	return m.latest, nil
}

func (m *mockHistoryRepo) SnapshotsSince(ctx context.Context, cardID int64, since time.Time) ([]model.PriceSnapshot, error) {
	m.sinceArg = since
	return m.history, nil
}

func getPrices(h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/cards/{card_id}/price", h)
	router.Get("/cards/{card_id}/price-history", h)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLatestPriceNotFound(t *testing.T) {
	h := NewPriceHandler(&mockHistoryRepo{})

	rec := getPrices(h.LatestPrice, "/cards/101/price")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for card without prices, got %d", rec.Code)
	}
}

func TestLatestPriceBadCardID(t *testing.T) {
	h := NewPriceHandler(&mockHistoryRepo{})

	rec := getPrices(h.LatestPrice, "/cards/abc/price")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric card id, got %d", rec.Code)
	}
}

func TestLatestPriceReturnsSnapshot(t *testing.T) {
	market := 1.8
	repo := &mockHistoryRepo{
		latest: &model.PriceSnapshot{
			CardID:        101,
			RecordedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			PriceMarketUS: &market,
			Source:        model.PriceSourceTCG,
		},
	}
	h := NewPriceHandler(repo)

	rec := getPrices(h.LatestPrice, "/cards/101/price")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var envelope struct {
		Data model.PriceSnapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if envelope.Data.PriceMarketUS == nil || *envelope.Data.PriceMarketUS != 1.8 {
		t.Errorf("unexpected market price: %v", envelope.Data.PriceMarketUS)
	}
}

func TestPriceHistoryClampsDays(t *testing.T) {
	for _, tc := range []struct {
		query    string
		expected int
	}{
		{"", 14},
		{"?days=7", 7},
		{"?days=0", 14},
		{"?days=90", 14},
		{"?days=junk", 14},
	} {
		repo := &mockHistoryRepo{}
		h := NewPriceHandler(repo)

		rec := getPrices(h.PriceHistory, "/cards/101/price-history"+tc.query)
		if rec.Code != http.StatusOK {
			t.Fatalf("query %q: expected 200, got %d", tc.query, rec.Code)
		}

		var envelope struct {
			Data struct {
				Days int `json:"days"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("query %q: failed to parse response: %v", tc.query, err)
		}
		if envelope.Data.Days != tc.expected {
			t.Errorf("query %q: expected %d days, got %d", tc.query, tc.expected, envelope.Data.Days)
		}

		wantSince := time.Now().UTC().AddDate(0, 0, -tc.expected)
		if repo.sinceArg.Sub(wantSince) > time.Minute || wantSince.Sub(repo.sinceArg) > time.Minute {
			t.Errorf("query %q: since cutoff off by more than a minute: %v", tc.query, repo.sinceArg)
		}
	}
}
