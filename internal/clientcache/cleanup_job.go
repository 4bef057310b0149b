package clientcache

import (
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes snapshots old enough to be useless even as a stale
// fallback. Scheduled daily by the client.
type CleanupJob struct {
	store  Store
	maxAge time.Duration
	log    zerolog.Logger
}

// NewCleanupJob creates a cleanup job. Entries older than maxAge are removed.
func NewCleanupJob(store Store, maxAge time.Duration, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		store:  store,
		maxAge: maxAge,
		log:    log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	deleted, err := j.store.DeleteExpired(j.maxAge)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired cache entries")
		return err
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired cache entries")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
