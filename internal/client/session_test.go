package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdesk/tickerdesk/internal/clientcache"
)

func newLoginServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": "Login successful",
				"token":   "tok-1",
				"user":    map[string]interface{}{"id": 3, "name": "Ada", "email": "ada@example.com"},
			})
		case "/api/portfolio/live":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`[{"symbol":"AAPL","price":231.5}]`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSessionLoginAndTeardownClearsCache(t *testing.T) {
	server := newLoginServer(t)
	defer server.Close()

	store := newTestStore(t)
	api := NewAPI(server.URL, zerolog.Nop())

	session, err := NewSession(context.Background(), api, store, "ada@example.com", "secret1", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(3), session.UserID)
	assert.Equal(t, "ada@example.com", session.Email)

	// Populate the cache through the views layer.
	views := NewViews(api, clientcache.New(store, zerolog.Nop()), nil, zerolog.Nop())
	_, err = views.Portfolio(context.Background())
	require.NoError(t, err)

	entry, err := store.Get(clientcache.KeyPortfolio)
	require.NoError(t, err)
	require.NotNil(t, entry)

	require.NoError(t, session.Teardown())

	entry, err = store.Get(clientcache.KeyPortfolio)
	require.NoError(t, err)
	assert.Nil(t, entry, "teardown must wipe cached payloads")

	// The token is gone too; the next call comes back unauthorized.
	_, err = api.PortfolioLive(context.Background())
	require.Error(t, err)
}

func TestSessionLoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid password"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	store := newTestStore(t)
	api := NewAPI(server.URL, zerolog.Nop())

	_, err := NewSession(context.Background(), api, store, "ada@example.com", "wrong", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
}
