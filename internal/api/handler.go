package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stockfolio/config"
	"stockfolio/internal/app"
	"stockfolio/models"
	"stockfolio/observability"
	"stockfolio/quotes"
	"stockfolio/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Health(r.Context()))
}

// HandleSearch searches symbols by ticker or company name
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.app.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, results)
}

// HandleQuote returns the current quote for one symbol
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.app.Quote(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, q)
}

// HandleLogo returns logo information for a ticker
func (h *Handler) HandleLogo(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if strings.TrimSpace(ticker) == "" {
		h.jsonError(w, "ticker is required", http.StatusBadRequest)
		return
	}

	logo, err := h.app.Logo(r.Context(), ticker)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, logo)
}

// HandleAPIStatus reports provider configuration and quota usage
func (h *Handler) HandleAPIStatus(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.APIStatus())
}

// HandleGetInvestments returns the caller's enriched portfolio
func (h *Handler) HandleGetInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	status := models.InvestmentStatus(strings.ToLower(r.URL.Query().Get("status")))
	view, err := h.app.Portfolio(r.Context(), userID, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, view)
}

// HandleGetInvestment returns one of the caller's investments, priced
func (h *Handler) HandleGetInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "invalid investment id", http.StatusBadRequest)
		return
	}

	ep, err := h.app.Investment(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, ep)
}

// writeError maps domain errors to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quotes.ErrInvalidSymbol),
		errors.Is(err, quotes.ErrQueryTooShort),
		errors.Is(err, app.ErrInvalidStatus):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrSymbolNotFound),
		errors.Is(err, app.ErrInvestmentNotFound):
		h.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, app.ErrLogosNotConfigured):
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrLogoTimeout),
		errors.Is(err, context.DeadlineExceeded):
		h.jsonError(w, "upstream timeout", http.StatusGatewayTimeout)
	default:
		observability.Error("request failed", "path", r.URL.Path, "error", err)
		h.jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	writeJSONError(w, message, status)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
