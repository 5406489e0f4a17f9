package challenge

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCleanupTask registers an hourly job that prunes expired
// ban_tracker rows. Returns the running scheduler; the caller is
// responsible for calling Shutdown on it during graceful shutdown.
func (m *Manager) StartCleanupTask(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			if err := m.Cleanup(ctx); err != nil {
				slog.Error("ban tracker cleanup job failed", slog.Any("error", err))
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
