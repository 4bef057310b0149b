package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdesk/tickerdesk/internal/clientcache"
)

func newTestStore(t *testing.T) *clientcache.SQLiteStore {
	t.Helper()
	store, err := clientcache.OpenSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDashboardIsServedFromCacheOnSecondRead(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`{"top_gainers":[{"symbol":"UP"}]}`))
	}))
	defer server.Close()

	store := newTestStore(t)
	api := NewAPI(server.URL, zerolog.Nop())
	views := NewViews(api, clientcache.New(store, zerolog.Nop()), nil, zerolog.Nop())

	first, err := views.Dashboard(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Stale)

	second, err := views.Dashboard(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Stale)
	assert.JSONEq(t, string(first.Data), string(second.Data))

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestStockViewsAreCachedPerSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	}))
	defer server.Close()

	store := newTestStore(t)
	api := NewAPI(server.URL, zerolog.Nop())
	views := NewViews(api, clientcache.New(store, zerolog.Nop()), nil, zerolog.Nop())

	aapl, err := views.Stock(context.Background(), "AAPL")
	require.NoError(t, err)
	tsla, err := views.Stock(context.Background(), "TSLA")
	require.NoError(t, err)

	assert.JSONEq(t, `{"path":"/api/company/AAPL"}`, string(aapl.Data))
	assert.JSONEq(t, `{"path":"/api/company/TSLA"}`, string(tsla.Data))
}

func newHoldingsStore(t *testing.T) *HoldingsStore {
	t.Helper()
	store, err := OpenHoldingsStore(filepath.Join(t.TempDir(), "holdings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTotalsDefaultsToOneShareAtCurrentPrice(t *testing.T) {
	views := &Views{}

	view := View{Data: json.RawMessage(`[
		{"symbol":"AAPL","price":231.50,"change":1.25},
		{"symbol":"MSFT","price":410.10,"change":-0.35}
	]`)}

	totals, err := views.Totals(view)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Positions)
	assert.Equal(t, "641.6", totals.TotalValue.String())
	assert.Equal(t, "641.6", totals.TotalCost.String())
	assert.True(t, totals.Gain.IsZero(), "unedited positions carry no gain")
	assert.Equal(t, "0.9", totals.TotalChange.String())
}

func TestTotalsMergesHoldings(t *testing.T) {
	holdings := newHoldingsStore(t)
	require.NoError(t, holdings.Set("AAPL", 3, decimal.NewFromInt(600)))
	views := &Views{holdings: holdings}

	view := View{Data: json.RawMessage(`[
		{"symbol":"AAPL","price":231.50,"change":1.25},
		{"symbol":"MSFT","price":410.10,"change":-0.35}
	]`)}

	totals, err := views.Totals(view)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Positions)
	// AAPL: 3 shares at 231.50 = 694.50; MSFT defaults to one share.
	assert.Equal(t, "1104.6", totals.TotalValue.String())
	// Cost: 600 invested in AAPL plus MSFT at current price.
	assert.Equal(t, "1010.1", totals.TotalCost.String())
	assert.Equal(t, "94.5", totals.Gain.String())
	// Day change scales with shares: 3*1.25 - 0.35.
	assert.Equal(t, "3.4", totals.TotalChange.String())
}

func TestTotalsZeroInvestedFallsBackToPrice(t *testing.T) {
	holdings := newHoldingsStore(t)
	require.NoError(t, holdings.Set("MSFT", 2, decimal.Zero))
	views := &Views{holdings: holdings}

	view := View{Data: json.RawMessage(`[{"symbol":"MSFT","price":410.10,"change":-0.35}]`)}

	totals, err := views.Totals(view)
	require.NoError(t, err)
	assert.Equal(t, "820.2", totals.TotalValue.String())
	assert.Equal(t, "410.1", totals.TotalCost.String(), "cost basis defaults to the live price")
	assert.Equal(t, "410.1", totals.Gain.String())
}

func TestSetHoldingRejectsNegativeValues(t *testing.T) {
	holdings := newHoldingsStore(t)
	views := &Views{holdings: holdings}

	require.Error(t, views.SetHolding("AAPL", -1, decimal.NewFromInt(100)))
	require.Error(t, views.SetHolding("AAPL", 1, decimal.NewFromInt(-100)))
	require.NoError(t, views.SetHolding("AAPL", 0, decimal.Zero))
}

func TestHoldingsRoundTrip(t *testing.T) {
	holdings := newHoldingsStore(t)
	require.NoError(t, holdings.Set("aapl", 5, decimal.NewFromFloat(1050.25)))

	all, err := holdings.All()
	require.NoError(t, err)
	require.Contains(t, all, "AAPL", "symbols are stored upper-case")
	assert.Equal(t, int64(5), all["AAPL"].Shares)
	assert.Equal(t, "1050.25", all["AAPL"].Invested.String())

	require.NoError(t, holdings.Delete("AAPL"))
	all, err = holdings.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTotalsHandlesEmptyPortfolioMessage(t *testing.T) {
	views := &Views{}

	totals, err := views.Totals(View{Data: json.RawMessage(`{"message":"No stocks in portfolio"}`)})
	require.NoError(t, err)
	assert.Equal(t, 0, totals.Positions)
	assert.True(t, totals.TotalValue.IsZero())
}
