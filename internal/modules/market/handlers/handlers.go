// Package handlers provides HTTP handlers proxying the market data provider.
// This layer is pure translation: no caching, no retries; provider failures
// surface verbatim as 500s and the client decides what to do with them.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// MarketData is the provider surface the handlers need.
type MarketData interface {
	TopGainers(ctx context.Context) (json.RawMessage, error)
	TopLosers(ctx context.Context) (json.RawMessage, error)
	MostActive(ctx context.Context) (json.RawMessage, error)
	LargeCap(ctx context.Context) (json.RawMessage, error)
	MidCap(ctx context.Context) (json.RawMessage, error)
	SmallCap(ctx context.Context) (json.RawMessage, error)
	Search(ctx context.Context, query string) (json.RawMessage, error)
	Profile(ctx context.Context, symbol string) (json.RawMessage, error)
	Historical(ctx context.Context, symbol, from, to string) (json.RawMessage, error)
}

// Handler handles market data HTTP requests.
type Handler struct {
	market MarketData
	log    zerolog.Logger
}

// NewHandler creates a new market data handler.
func NewHandler(market MarketData, log zerolog.Logger) *Handler {
	return &Handler{
		market: market,
		log:    log.With().Str("handler", "market").Logger(),
	}
}

// RegisterRoutes registers all market data routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleDashboard)

	r.Route("/stocks", func(r chi.Router) {
		r.Get("/top-gainers", h.proxy("Failed to fetch top gainers", h.market.TopGainers))
		r.Get("/top-losers", h.proxy("Failed to fetch top losers", h.market.TopLosers))
		r.Get("/actives", h.proxy("Failed to fetch most active stocks", h.market.MostActive))
		r.Get("/large-cap", h.proxy("Failed to fetch large cap stocks", h.market.LargeCap))
		r.Get("/mid-cap", h.proxy("Failed to fetch mid cap stocks", h.market.MidCap))
		r.Get("/small-cap", h.proxy("Failed to fetch small cap stocks", h.market.SmallCap))
	})

	r.Get("/search", h.HandleSearch)
	r.Get("/chart/{symbol}", h.HandleChart)
	r.Get("/company/{symbol}", h.HandleCompany)
}

// proxy wraps a zero-argument provider call into a passthrough handler.
func (h *Handler) proxy(errMsg string, fetch func(ctx context.Context) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fetch(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg(errMsg)
			h.writeError(w, http.StatusInternalServerError, errMsg, err.Error())
			return
		}
		h.writeRaw(w, http.StatusOK, data)
	}
}

// dashboardSections names each aggregate and its provider call, in response
// field order.
var dashboardSections = []string{"top_gainers", "top_losers", "most_active", "large_cap", "mid_cap", "small_cap"}

// HandleDashboard handles GET /dashboard. All six aggregates are fetched
// concurrently, mirroring how the views consume them together.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	fetchers := []func(ctx context.Context) (json.RawMessage, error){
		h.market.TopGainers,
		h.market.TopLosers,
		h.market.MostActive,
		h.market.LargeCap,
		h.market.MidCap,
		h.market.SmallCap,
	}

	results := make([]json.RawMessage, len(fetchers))
	errs := make([]error, len(fetchers))

	var wg sync.WaitGroup
	for i, fetch := range fetchers {
		wg.Add(1)
		go func(i int, fetch func(ctx context.Context) (json.RawMessage, error)) {
			defer wg.Done()
			results[i], errs[i] = fetch(r.Context())
		}(i, fetch)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			h.log.Error().Err(err).Str("section", dashboardSections[i]).Msg("Failed to fetch dashboard data")
			h.writeError(w, http.StatusInternalServerError, "Failed to fetch dashboard data", err.Error())
			return
		}
	}

	response := make(map[string]json.RawMessage, len(results))
	for i, section := range dashboardSections {
		response[section] = results[i]
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleSearch handles GET /search?query=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "Query parameter is required", "")
		return
	}

	data, err := h.market.Search(r.Context(), query)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Failed to fetch search results")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch search results", err.Error())
		return
	}
	h.writeRaw(w, http.StatusOK, data)
}

// HandleChart handles GET /chart/{symbol}?from=&to=
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Stock symbol is required", "")
		return
	}

	series, err := h.market.Historical(r.Context(), symbol, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch chart data")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch chart data", err.Error())
		return
	}
	if series == nil {
		h.writeError(w, http.StatusNotFound, "No historical data found", "")
		return
	}
	h.writeRaw(w, http.StatusOK, series)
}

// HandleCompany handles GET /company/{symbol}. The provider answers with a
// one-element array; the first element is returned, 404 when empty.
func (h *Handler) HandleCompany(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Stock symbol is required", "")
		return
	}

	data, err := h.market.Profile(r.Context(), symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch company details")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch company details", err.Error())
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || len(items) == 0 {
		h.writeError(w, http.StatusNotFound, "Company details not found", "")
		return
	}
	h.writeRaw(w, http.StatusOK, items[0])
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.log.Error().Err(err).Msg("Failed to write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	h.writeJSON(w, status, body)
}
