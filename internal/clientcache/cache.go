package clientcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickerdesk/tickerdesk/internal/auth"
)

// DefaultTTL is the uniform freshness window used by all views.
const DefaultTTL = 6 * time.Hour

// Cache keys, one per data domain.
const (
	KeyDashboard = "dashboardData"
	KeyPortfolio = "portfolioStocks"
	keyStock     = "stockData:"
)

// StockKey returns the cache key for a single stock detail view.
func StockKey(symbol string) string {
	return keyStock + symbol
}

// FetchFunc performs the network call when no fresh snapshot exists.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Cache decides between a stored snapshot and a refresh for each data domain.
type Cache struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// New creates a cache over the given store.
func New(store Store, log zerolog.Logger) *Cache {
	return &Cache{
		store: store,
		log:   log.With().Str("component", "clientcache").Logger(),
		now:   time.Now,
	}
}

// GetOrRefresh returns the freshest available payload for key.
//
// A stored entry younger than ttl is returned as-is without calling fetch.
// Otherwise fetch runs: on success the new payload is persisted and returned;
// on failure the previous snapshot (even an expired one) is returned with
// stale=true. With no prior snapshot the fetch error propagates. An
// authorization failure always propagates so the session can be torn down;
// stale data under an invalid session is not meaningful.
func (c *Cache) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (json.RawMessage, bool, error) {
	entry, err := c.store.Get(key)
	if err != nil {
		// A broken store read is treated like a miss; the fetch below decides.
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		entry = nil
	}

	now := c.now()
	if entry != nil && now.Sub(time.UnixMilli(entry.FetchedAt)) < ttl {
		c.log.Debug().Str("key", key).Msg("Cache hit")
		return entry.Payload, false, nil
	}

	payload, fetchErr := fetch(ctx)
	if fetchErr == nil {
		if putErr := c.store.Put(key, payload, now.UnixMilli()); putErr != nil {
			c.log.Warn().Err(putErr).Str("key", key).Msg("Failed to persist cache entry")
		}
		return payload, false, nil
	}

	if errors.Is(fetchErr, auth.ErrUnauthorized) {
		return nil, false, fetchErr
	}

	if entry != nil {
		c.log.Warn().Err(fetchErr).Str("key", key).Msg("Refresh failed, serving stale snapshot")
		return entry.Payload, true, nil
	}

	return nil, false, fetchErr
}
