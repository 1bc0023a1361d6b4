package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cardvault-price-api/internal/ratelimit"
	"cardvault-price-api/internal/service"
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
}

func (m *mockConfigRepo) GetRate(ctx context.Context, key string) (*float64, *time.Time, error) {
	return m.rate, m.updatedAt, nil
}

func (m *mockConfigRepo) UpsertRate(ctx context.Context, key string, rate float64, updatedAt time.Time) error {
	m.rate = &rate
	m.updatedAt = &updatedAt
	return nil
}

func newExchangeHandler(fetcher *mockRateFetcher, repo *mockConfigRepo, limiter ratelimit.Limiter) *ExchangeRateHandler {
	svc := service.NewExchangeRateService(fetcher, repo, "CURRENT_USD_BRL_RATE")
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(30, time.Minute)
	}
	return NewExchangeRateHandler(svc, limiter)
}

func postExchangeRate(h *ExchangeRateHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange-rate", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	h.ExchangeRate(rec, req)
	return rec
}

func TestExchangeRateServeEmptyCache(t *testing.T) {
	h := newExchangeHandler(&mockRateFetcher{}, &mockConfigRepo{}, nil)

	rec := postExchangeRate(h, `{}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Rate        *float64 `json:"rate"`
			LastUpdated *string  `json:"lastUpdated"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !envelope.Success {
		t.Error("expected success envelope")
	}
	if envelope.Data.Rate != nil || envelope.Data.LastUpdated != nil {
		t.Errorf("expected null rate before first update, got %+v", envelope.Data)
	}
}

func TestExchangeRateUpdateThenServe(t *testing.T) {
	repo := &mockConfigRepo{}
	h := newExchangeHandler(&mockRateFetcher{rate: 5.43}, repo, nil)

	rec := postExchangeRate(h, `{"isUpdate":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", rec.Code)
	}

	var update struct {
		Data struct {
			Rate float64 `json:"rate"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &update); err != nil {
		t.Fatalf("failed to parse update response: %v", err)
	}
	if update.Data.Rate != 5.43 {
		t.Errorf("expected updated rate 5.43, got %v", update.Data.Rate)
	}

	rec = postExchangeRate(h, `{}`)
	var serve struct {
		Data struct {
			Rate *float64 `json:"rate"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &serve); err != nil {
		t.Fatalf("failed to parse serve response: %v", err)
	}
	if serve.Data.Rate == nil || *serve.Data.Rate != 5.43 {
		t.Errorf("expected cached rate 5.43, got %v", serve.Data.Rate)
	}
}

func TestExchangeRateUpdateFailureReturns503(t *testing.T) {
	stale := 5.10
	repo := &mockConfigRepo{rate: &stale}
	h := newExchangeHandler(&mockRateFetcher{err: errors.New("upstream down")}, repo, nil)

	rec := postExchangeRate(h, `{"isUpdate":true}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on failed update, got %d", rec.Code)
	}

	// Stale cache survives the failed update.
	if repo.rate == nil || *repo.rate != 5.10 {
		t.Errorf("expected stale rate to survive, got %v", repo.rate)
	}
}

func TestExchangeRateMalformedBodyServes(t *testing.T) {
	h := newExchangeHandler(&mockRateFetcher{err: errors.New("should not be called")}, &mockConfigRepo{}, nil)

	rec := postExchangeRate(h, `{broken`)
	if rec.Code != http.StatusOK {
		t.Errorf("expected malformed body to fall back to serve mode, got %d", rec.Code)
	}
}

func TestExchangeRateLimitExceeded(t *testing.T) {
	h := newExchangeHandler(&mockRateFetcher{}, &mockConfigRepo{}, ratelimit.NewMemoryLimiter(2, time.Minute))

	postExchangeRate(h, `{}`)
	postExchangeRate(h, `{}`)
	rec := postExchangeRate(h, `{}`)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("expected Retry-After 60, got %q", got)
	}

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if envelope.Success {
		t.Error("expected failure envelope")
	}
}

func TestClientIdentifierPrecedence(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"

	if got := clientIdentifier(req); got != "203.0.113.7" {
		t.Errorf("expected remote host, got %q", got)
	}

	req.Header.Set("X-Client-Info", "deckbuilder-web")
	if got := clientIdentifier(req); got != "deckbuilder-web" {
		t.Errorf("expected X-Client-Info, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.4, 203.0.113.7")
	if got := clientIdentifier(req); got != "198.51.100.4" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}
}
