package sessionstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCleanupTask registers an hourly job that prunes expired session
// rows from the backing store, running alongside the challenge manager's
// hourly ban-tracker cleanup. A no-op for the Redis backend, which expires
// entries natively via SETEX; the memory and SQL backends both track
// their own expiry and rely on this job for eviction. Returns the running
// scheduler; the caller is responsible for calling Shutdown on it during
// graceful shutdown.
func (m *Manager) StartCleanupTask(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			if err := m.Store.Cleanup(ctx); err != nil {
				slog.Error("session cleanup job failed", slog.Any("error", err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
