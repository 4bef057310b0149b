package fmp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsAPIKey(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apikey")
		w.Write([]byte(`[{"symbol":"AAPL","price":190.5}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", zerolog.Nop())
	raw, err := client.TopGainers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/stock_market/gainers", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.JSONEq(t, `[{"symbol":"AAPL","price":190.5}]`, string(raw))
}

func TestClientNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit reached", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", zerolog.Nop())
	_, err := client.MostActive(context.Background())
	assert.ErrorContains(t, err, "status 429")
}

func TestHistoricalUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		w.Write([]byte(`{"symbol":"AAPL","historical":[{"date":"2024-01-02","close":185.6}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", zerolog.Nop())
	series, err := client.Historical(context.Background(), "AAPL", "2024-01-01", "")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2024-01-02","close":185.6}]`, string(series))
}

func TestHistoricalEmptySeriesReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ZZZZ"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", zerolog.Nop())
	series, err := client.Historical(context.Background(), "ZZZZ", "", "")
	require.NoError(t, err)
	assert.Nil(t, series)
}

func TestBatchQuotesJoinsSymbols(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", zerolog.Nop())
	_, err := client.BatchQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, "/quote/AAPL,MSFT", gotPath)
}

func TestBatchQuotesNormalizesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"ticker":"AAPL","companyName":"Apple Inc.","price":200,"changes":2}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", zerolog.Nop())
	raw, err := client.BatchQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"symbol":"AAPL","name":"Apple Inc.","price":200,"change":2,"changesPercentage":1,"marketCap":0}]`, string(raw))
}

func TestBatchQuotesEmptyIsLocal(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", "k", zerolog.Nop())
	raw, err := client.BatchQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}
