// Package handlers provides HTTP handlers for portfolio operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tickerdesk/tickerdesk/internal/auth"
	"github.com/tickerdesk/tickerdesk/internal/modules/portfolio"
)

// PortfolioStore is the persistence surface the handlers need.
type PortfolioStore interface {
	Add(ctx context.Context, userID int64, symbol string) (*portfolio.Holding, error)
	ListSymbols(ctx context.Context, userID int64) ([]string, error)
	Remove(ctx context.Context, userID int64, symbol string) error
}

// QuoteFetcher provides live quotes for held symbols.
type QuoteFetcher interface {
	BatchQuotes(ctx context.Context, symbols []string) (json.RawMessage, error)
}

// Handler handles portfolio HTTP requests.
type Handler struct {
	store  PortfolioStore
	quotes QuoteFetcher
	log    zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(store PortfolioStore, quotes QuoteFetcher, log zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		quotes: quotes,
		log:    log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/", h.HandleAdd)
		r.Get("/", h.HandleList)
		r.Delete("/", h.HandleRemove)
		r.Get("/live", h.HandleLive)
	})
}

type symbolRequest struct {
	StockSymbol string `json:"stock_symbol"`
}

// HandleAdd handles POST /portfolio
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Missing authentication", "")
		return
	}

	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StockSymbol == "" {
		h.writeError(w, http.StatusBadRequest, "stock_symbol is required", "")
		return
	}

	holding, err := h.store.Add(r.Context(), claims.UserID, req.StockSymbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.StockSymbol).Msg("Failed to add stock")
		h.writeError(w, http.StatusInternalServerError, "Failed to add stock", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, holding)
}

// HandleList handles GET /portfolio
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Missing authentication", "")
		return
	}

	symbols, err := h.store.ListSymbols(r.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch portfolio", err.Error())
		return
	}

	rows := make([]symbolRequest, 0, len(symbols))
	for _, s := range symbols {
		rows = append(rows, symbolRequest{StockSymbol: s})
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// HandleRemove handles DELETE /portfolio
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Missing authentication", "")
		return
	}

	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StockSymbol == "" {
		h.writeError(w, http.StatusBadRequest, "stock_symbol is required", "")
		return
	}

	err := h.store.Remove(r.Context(), claims.UserID, req.StockSymbol)
	if errors.Is(err, portfolio.ErrNotFound) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"message": "Stock not found in portfolio"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.StockSymbol).Msg("Failed to remove stock")
		h.writeError(w, http.StatusInternalServerError, "Failed to remove stock", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Stock removed from portfolio"})
}

// HandleLive handles GET /portfolio/live
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Missing authentication", "")
		return
	}

	symbols, err := h.store.ListSymbols(r.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch portfolio for live quotes")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch portfolio live prices", err.Error())
		return
	}

	if len(symbols) == 0 {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "No stocks in portfolio"})
		return
	}

	quotes, err := h.quotes.BatchQuotes(r.Context(), symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch live quotes")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch portfolio live prices", err.Error())
		return
	}

	h.writeRaw(w, http.StatusOK, quotes)
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
