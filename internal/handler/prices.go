package handler

import (
	"net/http"
	"strconv"
	"time"

	"cardvault-price-api/internal/repository"
	"cardvault-price-api/pkg/apierror"
	"cardvault-price-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// PriceHandler serves price snapshot reads for deck-builder clients.
type PriceHandler struct {
	history repository.PriceHistoryRepository
}

// NewPriceHandler creates a new price read handler.
func NewPriceHandler(history repository.PriceHistoryRepository) *PriceHandler {
	return &PriceHandler{history: history}
}

// LatestPrice handles GET /api/v1/cards/{card_id}/price
// Snapshots are an append-only log with accepted duplicates, so "latest"
// always picks the most recent row rather than assuming uniqueness.
func (h *PriceHandler) LatestPrice(w http.ResponseWriter, r *http.Request) {
	cardID, err := strconv.ParseInt(chi.URLParam(r, "card_id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("card_id must be an integer"))
		return
	}

	snap, err := h.history.LatestSnapshot(r.Context(), cardID)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to load latest price"))
		return
	}
	if snap == nil {
		response.Error(w, apierror.NotFound("no price recorded for card"))
		return
	}

	response.OK(w, snap)
}

// PriceHistory handles GET /api/v1/cards/{card_id}/price-history?days=N
func (h *PriceHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	cardID, err := strconv.ParseInt(chi.URLParam(r, "card_id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("card_id must be an integer"))
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days < 1 || days > 14 {
		days = 14
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	snapshots, err := h.history.SnapshotsSince(r.Context(), cardID, since)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to load price history"))
		return
	}

	response.OK(w, map[string]interface{}{
		"card_id":   cardID,
		"days":      days,
		"snapshots": snapshots,
	})
}
