package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RateClient fetches the current USD conversion rates from the external
// exchange-rate API.
type RateClient struct {
	apiURL     string
	httpClient *http.Client
}

// NewRateClient creates an exchange-rate API client.
func NewRateClient(apiURL string, timeout time.Duration) *RateClient {
	return &RateClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ratesDocument is the JSON shape of the exchange-rate API response.
type ratesDocument struct {
	Rates map[string]float64 `json:"rates"`
}

// FetchUSDBRL returns the current USD→BRL conversion rate.
func (c *RateClient) FetchUSDBRL(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("exchange rate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read exchange rate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("exchange rate http %d", resp.StatusCode)
	}

	var doc ratesDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("failed to parse exchange rate response: %w", err)
	}

	rate, ok := doc.Rates["BRL"]
	if !ok {
		return 0, fmt.Errorf("exchange rate response missing BRL rate")
	}

	return rate, nil
}
