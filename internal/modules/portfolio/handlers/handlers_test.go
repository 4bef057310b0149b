package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdesk/tickerdesk/internal/auth"
	"github.com/tickerdesk/tickerdesk/internal/modules/portfolio"
)

// fakeStore is an in-memory PortfolioStore keyed by user.
type fakeStore struct {
	nextID   int64
	holdings map[int64][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, holdings: make(map[int64][]string)}
}

func (f *fakeStore) Add(_ context.Context, userID int64, symbol string) (*portfolio.Holding, error) {
	f.holdings[userID] = append(f.holdings[userID], symbol)
	h := &portfolio.Holding{ID: f.nextID, UserID: userID, StockSymbol: symbol}
	f.nextID++
	return h, nil
}

func (f *fakeStore) ListSymbols(_ context.Context, userID int64) ([]string, error) {
	return f.holdings[userID], nil
}

func (f *fakeStore) Remove(_ context.Context, userID int64, symbol string) error {
	for i, s := range f.holdings[userID] {
		if s == symbol {
			f.holdings[userID] = append(f.holdings[userID][:i], f.holdings[userID][i+1:]...)
			return nil
		}
	}
	return portfolio.ErrNotFound
}

// fakeQuotes returns a canned payload or error.
type fakeQuotes struct {
	payload json.RawMessage
	err     error
	asked   []string
}

func (f *fakeQuotes) BatchQuotes(_ context.Context, symbols []string) (json.RawMessage, error) {
	f.asked = symbols
	return f.payload, f.err
}

func authedRequest(method, target, body string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserID: userID}))
}

func TestAddHolding(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store, &fakeQuotes{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleAdd(rec, authedRequest(http.MethodPost, "/portfolio", `{"stock_symbol":"AAPL"}`, 7))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"AAPL"}, store.holdings[7])
}

func TestAddHoldingRequiresSymbol(t *testing.T) {
	h := NewHandler(newFakeStore(), &fakeQuotes{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleAdd(rec, authedRequest(http.MethodPost, "/portfolio", `{}`, 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHoldings(t *testing.T) {
	store := newFakeStore()
	store.holdings[7] = []string{"AAPL", "MSFT"}
	h := NewHandler(store, &fakeQuotes{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleList(rec, authedRequest(http.MethodGet, "/portfolio", "", 7))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"stock_symbol":"AAPL"},{"stock_symbol":"MSFT"}]`, rec.Body.String())
}

func TestRemoveMissingHolding(t *testing.T) {
	h := NewHandler(newFakeStore(), &fakeQuotes{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleRemove(rec, authedRequest(http.MethodDelete, "/portfolio", `{"stock_symbol":"TSLA"}`, 7))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Stock not found in portfolio"}`, rec.Body.String())
}

func TestRemoveHolding(t *testing.T) {
	store := newFakeStore()
	store.holdings[7] = []string{"TSLA"}
	h := NewHandler(store, &fakeQuotes{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleRemove(rec, authedRequest(http.MethodDelete, "/portfolio", `{"stock_symbol":"TSLA"}`, 7))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.holdings[7])
}

func TestLiveEmptyPortfolio(t *testing.T) {
	h := NewHandler(newFakeStore(), &fakeQuotes{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleLive(rec, authedRequest(http.MethodGet, "/portfolio/live", "", 7))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"No stocks in portfolio"}`, rec.Body.String())
}

func TestLivePassesQuotesThrough(t *testing.T) {
	store := newFakeStore()
	store.holdings[7] = []string{"AAPL", "MSFT"}
	quotes := &fakeQuotes{payload: json.RawMessage(`[{"symbol":"AAPL","price":190.5}]`)}
	h := NewHandler(store, quotes, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleLive(rec, authedRequest(http.MethodGet, "/portfolio/live", "", 7))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL", "MSFT"}, quotes.asked)
	assert.JSONEq(t, `[{"symbol":"AAPL","price":190.5}]`, rec.Body.String())
}

func TestLiveUpstreamFailure(t *testing.T) {
	store := newFakeStore()
	store.holdings[7] = []string{"AAPL"}
	h := NewHandler(store, &fakeQuotes{err: errors.New("provider down")}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleLive(rec, authedRequest(http.MethodGet, "/portfolio/live", "", 7))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch portfolio live prices")
}
