package model

// Card represents a row in the cards catalog table.
// Card IDs equal the external feed's product IDs, so price records
// can be matched against the catalog without a mapping table.
type Card struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}
