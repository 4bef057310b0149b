package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tickerdesk/tickerdesk/internal/clientcache"
)

// View is cached data plus its freshness. Stale views are rendered as-is
// with an indicator; the dashboard never blocks on a flaky provider.
type View struct {
	Data  json.RawMessage
	Stale bool
}

// Views serves dashboard, portfolio and per-stock data through the cache.
// Every read goes through clientcache.Cache: fresh entries are returned
// without touching the network, expired ones trigger a refresh with stale
// fallback. Holdings carry the locally-edited share counts and cost basis
// that turn live quotes into portfolio totals; a nil store means every
// position counts as one share bought at the current price.
type Views struct {
	api      *API
	cache    *clientcache.Cache
	holdings *HoldingsStore
	ttl      time.Duration
	log      zerolog.Logger
}

// NewViews creates the cached view layer.
func NewViews(api *API, cache *clientcache.Cache, holdings *HoldingsStore, log zerolog.Logger) *Views {
	return &Views{
		api:      api,
		cache:    cache,
		holdings: holdings,
		ttl:      clientcache.DefaultTTL,
		log:      log.With().Str("component", "views").Logger(),
	}
}

// SetHolding records the user's share count and invested amount for a symbol.
func (v *Views) SetHolding(symbol string, shares int64, invested decimal.Decimal) error {
	if v.holdings == nil {
		return fmt.Errorf("no holdings store configured")
	}
	return v.holdings.Set(symbol, shares, invested)
}

// RemoveHolding forgets the local position state for a symbol.
func (v *Views) RemoveHolding(symbol string) error {
	if v.holdings == nil {
		return nil
	}
	return v.holdings.Delete(symbol)
}

// Dashboard returns the market overview, refreshing at most every TTL.
func (v *Views) Dashboard(ctx context.Context) (View, error) {
	data, stale, err := v.cache.GetOrRefresh(ctx, clientcache.KeyDashboard, v.ttl, v.api.Dashboard)
	if err != nil {
		return View{}, err
	}
	return View{Data: data, Stale: stale}, nil
}

// Portfolio returns live quotes for the user's holdings.
func (v *Views) Portfolio(ctx context.Context) (View, error) {
	data, stale, err := v.cache.GetOrRefresh(ctx, clientcache.KeyPortfolio, v.ttl, v.api.PortfolioLive)
	if err != nil {
		return View{}, err
	}
	return View{Data: data, Stale: stale}, nil
}

// Stock returns the company profile for a single symbol, cached per symbol.
func (v *Views) Stock(ctx context.Context, symbol string) (View, error) {
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		return v.api.Company(ctx, symbol)
	}
	data, stale, err := v.cache.GetOrRefresh(ctx, clientcache.StockKey(symbol), v.ttl, fetch)
	if err != nil {
		return View{}, err
	}
	return View{Data: data, Stale: stale}, nil
}

// PortfolioTotals summarizes the cached portfolio quotes merged with the
// local holdings: current value, cost basis and the gain between them.
type PortfolioTotals struct {
	Positions   int
	TotalValue  decimal.Decimal
	TotalCost   decimal.Decimal
	Gain        decimal.Decimal
	TotalChange decimal.Decimal
}

// Totals merges a portfolio view with the local holdings and aggregates.
// Per position: value is price times shares held, cost is the invested
// amount. A symbol without a recorded holding counts as one share bought at
// the current price, and a zero invested amount likewise falls back to the
// price, so unedited positions show zero gain. Money math uses decimals so
// the totals do not drift with float rounding.
func (v *Views) Totals(view View) (PortfolioTotals, error) {
	var quotes []struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
		Change float64 `json:"change"`
	}
	if err := json.Unmarshal(view.Data, &quotes); err != nil {
		// The empty-portfolio answer is an object, not an array.
		var msg map[string]string
		if json.Unmarshal(view.Data, &msg) == nil {
			return PortfolioTotals{}, nil
		}
		return PortfolioTotals{}, fmt.Errorf("failed to decode portfolio quotes: %w", err)
	}

	holdings := map[string]Holding{}
	if v.holdings != nil {
		var err error
		holdings, err = v.holdings.All()
		if err != nil {
			return PortfolioTotals{}, err
		}
	}

	totals := PortfolioTotals{Positions: len(quotes)}
	for _, q := range quotes {
		price := decimal.NewFromFloat(q.Price)
		shares := decimal.NewFromInt(1)
		invested := price
		if h, ok := holdings[strings.ToUpper(q.Symbol)]; ok {
			shares = decimal.NewFromInt(h.Shares)
			if !h.Invested.IsZero() {
				invested = h.Invested
			}
		}

		totals.TotalValue = totals.TotalValue.Add(price.Mul(shares))
		totals.TotalCost = totals.TotalCost.Add(invested)
		totals.TotalChange = totals.TotalChange.Add(decimal.NewFromFloat(q.Change).Mul(shares))
	}
	totals.Gain = totals.TotalValue.Sub(totals.TotalCost)
	return totals, nil
}
