package fmp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuotesFieldFallbacks(t *testing.T) {
	raw := json.RawMessage(`[
		{"symbol":"AAPL","companyName":"Apple Inc.","price":190.5,"changes":-1.2,"changesPercentage":-0.63,"marketCap":2950000000000},
		{"ticker":"MSFT","name":"Microsoft","price":410,"change":4.1},
		{"symbol":"NVDA","price":100,"changes":2}
	]`)

	quotes, err := NormalizeQuotes(raw)
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, "Apple Inc.", quotes[0].Name)
	assert.InDelta(t, -0.63, quotes[0].ChangePercent, 0.001)

	// ticker falls back for symbol, name for companyName
	assert.Equal(t, "MSFT", quotes[1].Symbol)
	assert.Equal(t, "Microsoft", quotes[1].Name)
	assert.InDelta(t, 4.1, quotes[1].Change, 0.001)
	// percentage derived from change/price
	assert.InDelta(t, 1.0, quotes[1].ChangePercent, 0.001)

	// name falls all the way back to the symbol
	assert.Equal(t, "NVDA", quotes[2].Name)
	assert.InDelta(t, 2.0, quotes[2].Change, 0.001)
	assert.InDelta(t, 2.0, quotes[2].ChangePercent, 0.001)
}

func TestNormalizeQuotesEmptyRecord(t *testing.T) {
	quotes, err := NormalizeQuotes(json.RawMessage(`[{}]`))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "N/A", quotes[0].Symbol)
	assert.Equal(t, "Unknown", quotes[0].Name)
	assert.Zero(t, quotes[0].Price)
}

func TestNormalizeQuotesMalformedPayload(t *testing.T) {
	_, err := NormalizeQuotes(json.RawMessage(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestNormalizeQuotesEmptyPayload(t *testing.T) {
	quotes, err := NormalizeQuotes(nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
