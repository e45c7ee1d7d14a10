package history

import (
	"context"
	"fmt"
	"time"

	"focusgate/internal/focus/common/clock"
	"focusgate/internal/focus/common/log"
)

// DefaultRetentionDays is how long sessions are kept when the caller
// does not override the window.
const DefaultRetentionDays = 90

// PruneJob deletes sessions older than the retention window. It is
// designed to run once at startup and then on a daily schedule; a run
// that deletes nothing is not an error.
type PruneJob struct {
	store  *Store
	clock  clock.Clock
	logger log.Logger

	RetentionDays int
}

// NewPruneJob creates a retention job over the given store. A nil clock
// falls back to the system clock, a nil logger to a noop.
func NewPruneJob(store *Store, c clock.Clock, logger log.Logger) *PruneJob {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &PruneJob{
		store:         store,
		clock:         c,
		logger:        logger,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run prunes sessions whose end time predates the retention window.
func (j *PruneJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := j.clock.Now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)
	deleted, err := j.store.Prune(cutoff)
	if err != nil {
		j.logger.Error(map[string]any{
			"error":          err.Error(),
			"retention_days": j.RetentionDays,
		}, "session prune failed")
		return fmt.Errorf("prune sessions: %w", err)
	}
	j.logger.Info(map[string]any{
		"deleted":        deleted,
		"retention_days": j.RetentionDays,
		"cutoff":         cutoff.Format(time.RFC3339),
	}, "session prune complete")
	return nil
}

// RunEvery reruns the prune on a fixed interval until ctx is canceled.
// Errors are logged by Run and do not stop the schedule.
func (j *PruneJob) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
