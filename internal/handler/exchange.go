package handler

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"cardvault-price-api/internal/ratelimit"
	"cardvault-price-api/internal/service"
	"cardvault-price-api/pkg/apierror"
	"cardvault-price-api/pkg/response"
)

// ExchangeRateHandler serves the cached USD→BRL rate behind a rate limiter.
type ExchangeRateHandler struct {
	rates   *service.ExchangeRateService
	limiter ratelimit.Limiter
}

// NewExchangeRateHandler creates a new exchange-rate handler.
func NewExchangeRateHandler(rates *service.ExchangeRateService, limiter ratelimit.Limiter) *ExchangeRateHandler {
	return &ExchangeRateHandler{
		rates:   rates,
		limiter: limiter,
	}
}

// exchangeRateRequest is the request body. An absent or unparseable body
// defaults to serve mode.
type exchangeRateRequest struct {
	IsUpdate bool `json:"isUpdate"`
}

// updateResponse is the update-mode success payload.
type updateResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Rate    float64 `json:"rate"`
}

// ExchangeRate handles POST /api/v1/exchange-rate
func (h *ExchangeRateHandler) ExchangeRate(w http.ResponseWriter, r *http.Request) {
	clientID := clientIdentifier(r)

	allowed, err := h.limiter.Allow(r.Context(), clientID)
	if err != nil {
		// A broken limiter backend fails open; the endpoint stays usable.
		log.Printf("[ExchangeRateHandler] Rate limit check failed for %s: %v", clientID, err)
		allowed = true
	}
	if !allowed {
		w.Header().Set("Retry-After", "60")
		response.Error(w, apierror.TooManyRequests("Rate limit exceeded").
			WithDetails("Maximum 30 requests per 60 seconds"))
		return
	}

	var req exchangeRateRequest
	if r.Body != nil {
		// Malformed bodies default to serve mode rather than failing.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.IsUpdate {
		h.update(w, r)
		return
	}

	h.serve(w, r)
}

// update refreshes the cached rate from the external API.
func (h *ExchangeRateHandler) update(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.Update(r.Context())
	if err != nil {
		log.Printf("[ExchangeRateHandler] Update failed: %v", err)
		response.Error(w, apierror.ServiceUnavailable("exchange rate update failed").
			WithDetails(err.Error()))
		return
	}

	response.OK(w, updateResponse{
		Success: true,
		Message: "Exchange rate updated",
		Rate:    rate,
	})
}

// serve returns the cached rate; rate and lastUpdated are null until the
// first successful update.
func (h *ExchangeRateHandler) serve(w http.ResponseWriter, r *http.Request) {
	cached, err := h.rates.Current(r.Context())
	if err != nil {
		log.Printf("[ExchangeRateHandler] Read failed: %v", err)
		response.Error(w, apierror.ServiceUnavailable("exchange rate unavailable").
			WithDetails(err.Error()))
		return
	}

	response.OK(w, cached)
}

// clientIdentifier extracts the rate-limiting key for a request: the first
// X-Forwarded-For hop, else the X-Client-Info header, else the remote host.
func clientIdentifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}

	if info := r.Header.Get("X-Client-Info"); info != "" {
		return info
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
