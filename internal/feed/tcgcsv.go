package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardvault-price-api/internal/model"
)

// TCGClient fetches price documents from the tcgcsv feed.
type TCGClient struct {
	baseURL    string
	categoryID int
	httpClient *http.Client
}

// NewTCGClient creates a feed client for the given base URL and category.
func NewTCGClient(baseURL string, categoryID int, timeout time.Duration) *TCGClient {
	return &TCGClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		categoryID: categoryID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LastUpdated fetches the feed's plaintext freshness marker.
func (c *TCGClient) LastUpdated(ctx context.Context) (string, error) {
	endpoint := c.baseURL + "/last-updated.txt"

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}

// setPricesDocument is the JSON shape of a per-set price endpoint.
type setPricesDocument struct {
	Results []model.FeedPriceRecord `json:"results"`
}

// SetPrices fetches the price records for one set.
func (c *TCGClient) SetPrices(ctx context.Context, setID int) ([]model.FeedPriceRecord, error) {
	endpoint := fmt.Sprintf("%s/tcgplayer/%d/%d/prices", c.baseURL, c.categoryID, setID)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var doc setPricesDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prices for set %d: %w", setID, err)
	}

	return doc.Results, nil
}

// get issues a GET request and returns the body, treating non-OK as an error.
func (c *TCGClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed http %d: %s", resp.StatusCode, endpoint)
	}

	return body, nil
}
