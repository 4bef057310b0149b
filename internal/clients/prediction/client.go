// Package prediction provides the client for the ML prediction service.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Request asks the model for a forecast.
type Request struct {
	Symbol string `json:"symbol"`
	Days   int    `json:"days"`
}

// Client for the prediction service.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a prediction service client.
// Model inference can take a while, hence the generous timeout.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log.With().Str("client", "prediction").Logger(),
	}
}

// Predict forwards a forecast request and returns the raw model response.
func (c *Client) Predict(ctx context.Context, symbol string, days int) (json.RawMessage, error) {
	req := Request{Symbol: symbol, Days: days}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("symbol", req.Symbol).Int("days", req.Days).Msg("Requesting prediction")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prediction service returned status %d", resp.StatusCode)
	}

	return json.RawMessage(respBody), nil
}
