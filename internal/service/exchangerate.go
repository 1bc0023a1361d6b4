package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"cardvault-price-api/internal/model"
	"cardvault-price-api/internal/repository"
)

// RateFetcher defines the external exchange-rate API operation.
type RateFetcher interface {
	FetchUSDBRL(ctx context.Context) (float64, error)
}

// ExchangeRateService serves the cached USD→BRL rate and refreshes it on the
// scheduled update path. The cached value is only touched on a fully
// successful update; a stale cache is preferred over no cache.
type ExchangeRateService struct {
	fetcher  RateFetcher
	config   repository.ConfigRepository
	cacheKey string

	now func() time.Time
}

// NewExchangeRateService creates an exchange-rate cache service.
func NewExchangeRateService(fetcher RateFetcher, config repository.ConfigRepository, cacheKey string) *ExchangeRateService {
	return &ExchangeRateService{
		fetcher:  fetcher,
		config:   config,
		cacheKey: cacheKey,
		now:      time.Now,
	}
}

// Update fetches the current rate and writes it to the config store.
func (s *ExchangeRateService) Update(ctx context.Context) (float64, error) {
	rate, err := s.fetcher.FetchUSDBRL(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}

	if err := s.config.UpsertRate(ctx, s.cacheKey, rate, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("failed to store exchange rate: %w", err)
	}

	log.Printf("[ExchangeRateService] Updated USD→BRL rate to %.4f", rate)
	return rate, nil
}

// Current reads the cached rate. Rate and UpdatedAt are nil until the first
// successful update.
func (s *ExchangeRateService) Current(ctx context.Context) (*model.ExchangeRate, error) {
	rate, updatedAt, err := s.config.GetRate(ctx, s.cacheKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached exchange rate: %w", err)
	}

	return &model.ExchangeRate{Rate: rate, UpdatedAt: updatedAt}, nil
}
