package handler

import (
	"net/http"

	"cardvault-price-api/internal/repository"
	"cardvault-price-api/pkg/apierror"
	"cardvault-price-api/pkg/response"
)

// AdminHandler exposes operational statistics about the price store.
type AdminHandler struct {
	store  repository.Store
	dbType string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(store repository.Store, dbType string) *AdminHandler {
	return &AdminHandler{
		store:  store,
		dbType: dbType,
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.Error(w, apierror.InternalError("store unavailable"))
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to collect stats"))
		return
	}

	marker, err := h.store.LastUpdate(r.Context())
	if err == nil && marker != "" {
		stats["ingestion_marker"] = marker
	}
	stats["db_type"] = h.dbType

	response.OK(w, stats)
}
