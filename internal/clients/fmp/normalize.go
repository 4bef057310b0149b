package fmp

import (
	"encoding/json"
	"fmt"
)

// Quote is the one shape the cache and views consume.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changesPercentage"`
	MarketCap     float64 `json:"marketCap"`
}

// rawQuote accepts the union of field names the provider uses across its
// endpoints. The screener, mover lists and quote endpoint disagree on naming,
// so every alternative is mapped here and nowhere else.
type rawQuote struct {
	Symbol        string      `json:"symbol"`
	Ticker        string      `json:"ticker"`
	Name          string      `json:"name"`
	CompanyName   string      `json:"companyName"`
	Price         json.Number `json:"price"`
	Change        json.Number `json:"change"`
	Changes       json.Number `json:"changes"`
	ChangePercent json.Number `json:"changesPercentage"`
	MarketCap     json.Number `json:"marketCap"`
}

func number(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalize maps one raw provider record onto Quote.
func normalize(r rawQuote) Quote {
	q := Quote{
		Symbol:        firstNonEmpty(r.Symbol, r.Ticker, "N/A"),
		Price:         number(r.Price),
		Change:        number(r.Change),
		ChangePercent: number(r.ChangePercent),
		MarketCap:     number(r.MarketCap),
	}
	q.Name = firstNonEmpty(r.CompanyName, r.Name, r.Symbol, "Unknown")
	if q.Change == 0 {
		q.Change = number(r.Changes)
	}
	// Some endpoints omit the percentage; derive it when the price allows.
	if q.ChangePercent == 0 && q.Price != 0 {
		q.ChangePercent = q.Change / q.Price * 100
	}
	return q
}

// NormalizeQuotes decodes a provider array payload into the fixed Quote shape.
func NormalizeQuotes(raw json.RawMessage) ([]Quote, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var records []rawQuote
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode quote payload: %w", err)
	}

	quotes := make([]Quote, 0, len(records))
	for _, r := range records {
		quotes = append(quotes, normalize(r))
	}
	return quotes, nil
}
