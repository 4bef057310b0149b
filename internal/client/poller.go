package client

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickerdesk/tickerdesk/internal/auth"
)

// PollJob refreshes the portfolio view in the background so an open
// dashboard keeps moving without user interaction. It satisfies the
// scheduler Job interface.
type PollJob struct {
	views          *Views
	onUnauthorized func()
	timeout        time.Duration
	log            zerolog.Logger

	ctx context.Context
}

// NewPollJob creates a portfolio polling job. onUnauthorized fires when the
// server rejects the token, letting the caller tear the session down.
func NewPollJob(ctx context.Context, views *Views, onUnauthorized func(), log zerolog.Logger) *PollJob {
	return &PollJob{
		views:          views,
		onUnauthorized: onUnauthorized,
		timeout:        30 * time.Second,
		log:            log.With().Str("job", "portfolio_poll").Logger(),
		ctx:            ctx,
	}
}

// Name returns the job name.
func (j *PollJob) Name() string { return "portfolio_poll" }

// Run refreshes the portfolio view once. A stale result is fine here: the
// cache already logged the failed refresh and kept the previous payload.
func (j *PollJob) Run() error {
	if err := j.ctx.Err(); err != nil {
		// Lifecycle context is gone, a late tick must not fire callbacks.
		return nil
	}

	ctx, cancel := context.WithTimeout(j.ctx, j.timeout)
	defer cancel()

	view, err := j.views.Portfolio(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			j.log.Warn().Msg("Session rejected during poll")
			if j.onUnauthorized != nil {
				j.onUnauthorized()
			}
			return nil
		}
		return err
	}

	j.log.Debug().Bool("stale", view.Stale).Msg("Portfolio refreshed")
	return nil
}
