package client

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tickerdesk/tickerdesk/internal/clientcache"
)

// Session is an authenticated connection to the server. Tearing it down
// forgets the token and wipes all cached data in one step, so a dead session
// never leaves stale payloads behind for the next user.
type Session struct {
	UserID int64
	Name   string
	Email  string

	api   *API
	store clientcache.Store
	log   zerolog.Logger
}

// NewSession logs in and returns a live session.
func NewSession(ctx context.Context, api *API, store clientcache.Store, email, password string, log zerolog.Logger) (*Session, error) {
	result, err := api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return &Session{
		UserID: result.User.ID,
		Name:   result.User.Name,
		Email:  result.User.Email,
		api:    api,
		store:  store,
		log:    log.With().Str("component", "session").Logger(),
	}, nil
}

// API returns the authenticated API client.
func (s *Session) API() *API {
	return s.api
}

// Teardown drops the token and clears the cache store atomically. It is
// called on logout and whenever the server answers 401.
func (s *Session) Teardown() error {
	s.api.SetToken("")
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache on teardown: %w", err)
	}
	s.log.Info().Int64("user_id", s.UserID).Msg("Session torn down")
	return nil
}
