package handler

import (
	"log"
	"net/http"

	"cardvault-price-api/internal/service"
	"cardvault-price-api/pkg/apierror"
	"cardvault-price-api/pkg/response"
)

// JobHandler exposes the scheduler-triggered pipeline jobs over HTTP.
type JobHandler struct {
	ingest    *service.IngestService
	retention *service.RetentionService
}

// NewJobHandler creates a new job handler.
func NewJobHandler(ingest *service.IngestService, retention *service.RetentionService) *JobHandler {
	return &JobHandler{
		ingest:    ingest,
		retention: retention,
	}
}

// PriceSync handles POST /api/v1/jobs/price-sync
// Retries are the scheduler's responsibility: a failed run surfaces as 500
// and the next cron tick runs again.
func (h *JobHandler) PriceSync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ingest.Run(r.Context())
	if err != nil {
		log.Printf("[JobHandler] Price sync failed: %v", err)
		response.Error(w, apierror.InternalError("price sync failed").WithDetails(err.Error()))
		return
	}

	response.OK(w, summary)
}

// PriceRetention handles POST /api/v1/jobs/price-retention
func (h *JobHandler) PriceRetention(w http.ResponseWriter, r *http.Request) {
	result, err := h.retention.Run(r.Context())
	if err != nil {
		log.Printf("[JobHandler] Price retention failed: %v", err)
		response.Error(w, apierror.InternalError("price retention failed").WithDetails(err.Error()))
		return
	}

	response.OK(w, result)
}
