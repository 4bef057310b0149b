// Package handlers proxies prediction requests to the forecasting service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Predictor is the forecasting service surface the handler needs.
type Predictor interface {
	Predict(ctx context.Context, symbol string, days int) (json.RawMessage, error)
}

// Handler handles prediction HTTP requests.
type Handler struct {
	predictor Predictor
	log       zerolog.Logger
}

// NewHandler creates a new prediction handler.
func NewHandler(predictor Predictor, log zerolog.Logger) *Handler {
	return &Handler{
		predictor: predictor,
		log:       log.With().Str("handler", "predict").Logger(),
	}
}

// RegisterRoutes registers prediction routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/predict", h.HandlePredict)
}

// HandlePredict handles POST /predict.
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		Days   int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "Stock symbol is required")
		return
	}
	if req.Days <= 0 {
		req.Days = 7
	}

	forecast, err := h.predictor.Predict(r.Context(), req.Symbol, req.Days)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Prediction request failed")
		h.writeError(w, http.StatusInternalServerError, "Failed to generate prediction")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(forecast); err != nil {
		h.log.Error().Err(err).Msg("Failed to write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
