package model

import "time"

// ExchangeRate is the cached USD→BRL conversion rate from the config table.
// Rate and UpdatedAt are nil until the first successful update.
type ExchangeRate struct {
	Rate      *float64   `json:"rate"`
	UpdatedAt *time.Time `json:"lastUpdated"`
}
