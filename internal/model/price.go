package model

import "time"

// PriceSourceTCG tags snapshots ingested from the tcgcsv feed.
const PriceSourceTCG = "tcg"

// FeedPriceRecord is one entry of a per-set price document from the feed.
// All price fields are nullable upstream.
type FeedPriceRecord struct {
	ProductID   int64    `json:"productId"`
	LowPrice    *float64 `json:"lowPrice"`
	MidPrice    *float64 `json:"midPrice"`
	HighPrice   *float64 `json:"highPrice"`
	MarketPrice *float64 `json:"marketPrice"`
}

// PriceSnapshot is one recorded price reading for a card at a point in time.
// Snapshots form an append-only log: rows are never updated, only inserted by
// the ingestion job and deleted by the retention job.
type PriceSnapshot struct {
	ID                int64     `json:"id"`
	CardID            int64     `json:"card_id"`
	RecordedAt        time.Time `json:"recorded_at"`
	PriceMinMarketUS  *float64  `json:"price_min_market_us"`
	PriceAvgMarketUS  *float64  `json:"price_avg_market_us"`
	PriceMaxMarketUS  *float64  `json:"price_max_market_us"`
	PriceMarketUS     *float64  `json:"price_market_market_us"`
	Source            string    `json:"source"`
}

// SnapshotFromRecord maps a feed record to a snapshot stamped with the
// ingestion-run timestamp.
func SnapshotFromRecord(rec FeedPriceRecord, recordedAt time.Time) PriceSnapshot {
	return PriceSnapshot{
		CardID:           rec.ProductID,
		RecordedAt:       recordedAt,
		PriceMinMarketUS: rec.LowPrice,
		PriceAvgMarketUS: rec.MidPrice,
		PriceMaxMarketUS: rec.HighPrice,
		PriceMarketUS:    rec.MarketPrice,
		Source:           PriceSourceTCG,
	}
}
