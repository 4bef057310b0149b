// Package fmp provides the market data provider client.
// Endpoint shapes and field names are provider-specific; everything the rest
// of the system consumes goes through the normalization in normalize.go so a
// provider change stays contained here.
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client for a financialmodelingprep-compatible market data API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a market data client.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "fmp").Logger(),
	}
}

// Market cap boundaries for the screener lists, in USD.
const (
	largeCapFloor   = 10_000_000_000
	midCapFloor     = 2_000_000_000
	smallCapFloor   = 300_000_000
	screenerLimit   = 20
	searchListLimit = 10
)

// get performs a GET against the provider and returns the raw JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("apikey", c.apiKey)

	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.log.Debug().Str("path", path).Msg("Fetching market data")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read market data response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market data API returned status %d", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}

// TopGainers returns the day's biggest gainers.
func (c *Client) TopGainers(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/stock_market/gainers", nil)
}

// TopLosers returns the day's biggest losers.
func (c *Client) TopLosers(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/stock_market/losers", nil)
}

// MostActive returns the most traded stocks.
func (c *Client) MostActive(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/stock_market/actives", nil)
}

// screener queries the stock screener for a market cap band. An upper bound
// of 0 means unbounded.
func (c *Client) screener(ctx context.Context, capFloor, capCeiling int64) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("marketCapMoreThan", fmt.Sprintf("%d", capFloor))
	if capCeiling > 0 {
		q.Set("marketCapLowerThan", fmt.Sprintf("%d", capCeiling))
	}
	q.Set("limit", fmt.Sprintf("%d", screenerLimit))
	return c.get(ctx, "/stock-screener", q)
}

// LargeCap returns large cap stocks (market cap above $10B).
func (c *Client) LargeCap(ctx context.Context) (json.RawMessage, error) {
	return c.screener(ctx, largeCapFloor, 0)
}

// MidCap returns mid cap stocks ($2B to $10B).
func (c *Client) MidCap(ctx context.Context) (json.RawMessage, error) {
	return c.screener(ctx, midCapFloor, largeCapFloor)
}

// SmallCap returns small cap stocks ($300M to $2B).
func (c *Client) SmallCap(ctx context.Context) (json.RawMessage, error) {
	return c.screener(ctx, smallCapFloor, midCapFloor)
}

// Search looks up symbols and company names matching query.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", fmt.Sprintf("%d", searchListLimit))
	return c.get(ctx, "/search", q)
}

// Profile returns company details for a symbol. The provider responds with a
// one-element array; the caller unwraps it.
func (c *Client) Profile(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.get(ctx, "/profile/"+url.PathEscape(symbol), nil)
}

// historicalResponse is the provider envelope around daily price history.
type historicalResponse struct {
	Symbol     string          `json:"symbol"`
	Historical json.RawMessage `json:"historical"`
}

// Historical returns the daily price series for a symbol, optionally bounded
// by from/to dates (YYYY-MM-DD). Returns only the series, not the envelope.
func (c *Client) Historical(ctx context.Context, symbol, from, to string) (json.RawMessage, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}

	raw, err := c.get(ctx, "/historical-price-full/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, err
	}

	var envelope historicalResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode historical response: %w", err)
	}
	if len(envelope.Historical) == 0 || string(envelope.Historical) == "null" {
		return nil, nil
	}
	return envelope.Historical, nil
}

// BatchQuotes returns live quotes for a set of symbols in one call. The
// provider payload is normalized to the fixed Quote shape before it leaves
// this package.
func (c *Client) BatchQuotes(ctx context.Context, symbols []string) (json.RawMessage, error) {
	if len(symbols) == 0 {
		return json.RawMessage("[]"), nil
	}

	raw, err := c.get(ctx, "/quote/"+url.PathEscape(strings.Join(symbols, ",")), nil)
	if err != nil {
		return nil, err
	}

	quotes, err := NormalizeQuotes(raw)
	if err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(quotes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quotes: %w", err)
	}
	return json.RawMessage(normalized), nil
}
