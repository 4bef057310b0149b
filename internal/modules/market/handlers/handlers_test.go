package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	gainers    json.RawMessage
	losers     json.RawMessage
	active     json.RawMessage
	largeCap   json.RawMessage
	midCap     json.RawMessage
	smallCap   json.RawMessage
	searchData json.RawMessage
	profile    json.RawMessage
	historical json.RawMessage
	err        error

	lastQuery  string
	lastSymbol string
}

func (f *fakeMarket) TopGainers(ctx context.Context) (json.RawMessage, error) {
	return f.gainers, f.err
}

func (f *fakeMarket) TopLosers(ctx context.Context) (json.RawMessage, error) {
	return f.losers, f.err
}

func (f *fakeMarket) MostActive(ctx context.Context) (json.RawMessage, error) {
	return f.active, f.err
}

func (f *fakeMarket) LargeCap(ctx context.Context) (json.RawMessage, error) {
	return f.largeCap, f.err
}

func (f *fakeMarket) MidCap(ctx context.Context) (json.RawMessage, error) {
	return f.midCap, f.err
}

func (f *fakeMarket) SmallCap(ctx context.Context) (json.RawMessage, error) {
	return f.smallCap, f.err
}

func (f *fakeMarket) Search(ctx context.Context, query string) (json.RawMessage, error) {
	f.lastQuery = query
	return f.searchData, f.err
}

func (f *fakeMarket) Profile(ctx context.Context, symbol string) (json.RawMessage, error) {
	f.lastSymbol = symbol
	return f.profile, f.err
}

func (f *fakeMarket) Historical(ctx context.Context, symbol, from, to string) (json.RawMessage, error) {
	f.lastSymbol = symbol
	return f.historical, f.err
}

func newTestRouter(market *fakeMarket) chi.Router {
	h := NewHandler(market, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func populatedMarket() *fakeMarket {
	return &fakeMarket{
		gainers:  json.RawMessage(`[{"symbol":"UP"}]`),
		losers:   json.RawMessage(`[{"symbol":"DOWN"}]`),
		active:   json.RawMessage(`[{"symbol":"BUSY"}]`),
		largeCap: json.RawMessage(`[{"symbol":"BIG"}]`),
		midCap:   json.RawMessage(`[{"symbol":"MID"}]`),
		smallCap: json.RawMessage(`[{"symbol":"SML"}]`),
	}
}

func TestDashboardAggregatesAllSections(t *testing.T) {
	router := newTestRouter(populatedMarket())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `[{"symbol":"UP"}]`, string(body["top_gainers"]))
	assert.JSONEq(t, `[{"symbol":"DOWN"}]`, string(body["top_losers"]))
	assert.JSONEq(t, `[{"symbol":"BUSY"}]`, string(body["most_active"]))
	assert.JSONEq(t, `[{"symbol":"BIG"}]`, string(body["large_cap"]))
	assert.JSONEq(t, `[{"symbol":"MID"}]`, string(body["mid_cap"]))
	assert.JSONEq(t, `[{"symbol":"SML"}]`, string(body["small_cap"]))
}

func TestDashboardProviderFailure(t *testing.T) {
	market := populatedMarket()
	market.err = errors.New("provider down")
	router := newTestRouter(market)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch dashboard data")
}

func TestStockListPassthrough(t *testing.T) {
	router := newTestRouter(populatedMarket())

	cases := map[string]string{
		"/stocks/top-gainers": `[{"symbol":"UP"}]`,
		"/stocks/top-losers":  `[{"symbol":"DOWN"}]`,
		"/stocks/actives":     `[{"symbol":"BUSY"}]`,
		"/stocks/large-cap":   `[{"symbol":"BIG"}]`,
		"/stocks/mid-cap":     `[{"symbol":"MID"}]`,
		"/stocks/small-cap":   `[{"symbol":"SML"}]`,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, want, rec.Body.String(), path)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	router := newTestRouter(populatedMarket())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Query parameter is required")
}

func TestSearchPassesQueryThrough(t *testing.T) {
	market := populatedMarket()
	market.searchData = json.RawMessage(`[{"symbol":"AAPL"}]`)
	router := newTestRouter(market)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?query=apple", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "apple", market.lastQuery)
	assert.JSONEq(t, `[{"symbol":"AAPL"}]`, rec.Body.String())
}

func TestChartNoData(t *testing.T) {
	market := populatedMarket()
	market.historical = nil
	router := newTestRouter(market)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart/ZZZZ", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No historical data found")
}

func TestChartReturnsSeries(t *testing.T) {
	market := populatedMarket()
	market.historical = json.RawMessage(`[{"date":"2026-08-28","close":231.5}]`)
	router := newTestRouter(market)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart/AAPL?from=2026-08-01&to=2026-08-28", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", market.lastSymbol)
	assert.JSONEq(t, `[{"date":"2026-08-28","close":231.5}]`, rec.Body.String())
}

func TestCompanyUnwrapsFirstElement(t *testing.T) {
	market := populatedMarket()
	market.profile = json.RawMessage(`[{"symbol":"AAPL","companyName":"Apple Inc."}]`)
	router := newTestRouter(market)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/company/AAPL", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbol":"AAPL","companyName":"Apple Inc."}`, rec.Body.String())
}

func TestCompanyNotFound(t *testing.T) {
	market := populatedMarket()
	market.profile = json.RawMessage(`[]`)
	router := newTestRouter(market)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/company/ZZZZ", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Company details not found")
}
