// Package client implements the dashboard side of the application: an API
// client, a token-scoped session, and cached views over the server data.
package client

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

	"github.com/tickerdesk/tickerdesk/internal/auth"
)

// API talks to the tickerdesk server.
type API struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewAPI creates an unauthenticated API client.
func NewAPI(baseURL string, log zerolog.Logger) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "api").Logger(),
	}
}

// SetToken sets the bearer token used on subsequent requests.
func (a *API) SetToken(token string) {
	a.token = token
}

// LoginResult is the server's answer to a successful login.
type LoginResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// Login authenticates and stores the returned token on the client.
func (a *API) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	raw, err := a.do(ctx, http.MethodPost, "/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}

	a.token = result.Token
	return &result, nil
}

// Dashboard fetches the aggregated market overview.
func (a *API) Dashboard(ctx context.Context) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, "/api/dashboard", nil)
}

// PortfolioLive fetches live quotes for the user's holdings.
func (a *API) PortfolioLive(ctx context.Context) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, "/api/portfolio/live", nil)
}

// Portfolio fetches the user's saved holdings.
func (a *API) Portfolio(ctx context.Context) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, "/api/portfolio", nil)
}

// AddHolding saves a symbol to the user's portfolio.
func (a *API) AddHolding(ctx context.Context, symbol string) error {
	body, err := json.Marshal(map[string]string{"stock_symbol": symbol})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	_, err = a.do(ctx, http.MethodPost, "/api/portfolio", bytes.NewReader(body))
	return err
}

// RemoveHolding deletes a symbol from the user's portfolio.
func (a *API) RemoveHolding(ctx context.Context, symbol string) error {
	body, err := json.Marshal(map[string]string{"stock_symbol": symbol})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	_, err = a.do(ctx, http.MethodDelete, "/api/portfolio", bytes.NewReader(body))
	return err
}

// Company fetches a company profile.
func (a *API) Company(ctx context.Context, symbol string) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, "/api/company/"+symbol, nil)
}

// Chart fetches the historical price series for a symbol.
func (a *API) Chart(ctx context.Context, symbol string) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, "/api/chart/"+symbol, nil)
}

// Search looks up symbols matching the query.
func (a *API) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, "/api/search?query="+query, nil)
}

// Profile fetches the authenticated user's profile.
func (a *API) Profile(ctx context.Context) (json.RawMessage, error) {
	return a.do(ctx, http.MethodGet, "/api/profile", nil)
}

// do performs the HTTP call. A 401 answer always maps to
// auth.ErrUnauthorized so callers can tell a dead session apart from a
// transient failure.
func (a *API) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%s %s: %w", method, path, auth.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return json.RawMessage(respBody), nil
}
