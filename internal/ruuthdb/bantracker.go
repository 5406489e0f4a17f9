package ruuthdb

import (
	"context"
	"fmt"

	"github.com/outurnate/ruuth/internal/apperror"
)

// InsertFailure records a single failed login attempt for host at the given
// minute-granularity timestamp.
func (db *DB) InsertFailure(ctx context.Context, host string, minutesSinceEpoch int64) error {
	query := fmt.Sprintf(
		"INSERT INTO ban_tracker (host, failure_timestamp) VALUES (%s, %s)",
		db.Placeholder(1), db.Placeholder(2),
	)
	if _, err := db.Pool.ExecContext(ctx, query, host, minutesSinceEpoch); err != nil {
		return apperror.NewInternal(fmt.Errorf("inserting ban tracker failure: %w", err))
	}
	return nil
}

// CountFailures returns the number of failures recorded for host at or
// after sinceMinutes (inclusive), i.e. within the current sliding window.
func (db *DB) CountFailures(ctx context.Context, host string, sinceMinutes int64) (uint64, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM ban_tracker WHERE host = %s AND failure_timestamp >= %s",
		db.Placeholder(1), db.Placeholder(2),
	)

	var count uint64
	if err := db.Pool.QueryRowContext(ctx, query, host, sinceMinutes).Scan(&count); err != nil {
		return 0, apperror.NewInternal(fmt.Errorf("counting ban tracker failures: %w", err))
	}
	return count, nil
}

// DeleteFailuresOlderThan removes all ban_tracker rows strictly older than
// cutoffMinutes. Called by the periodic GC task.
func (db *DB) DeleteFailuresOlderThan(ctx context.Context, cutoffMinutes int64) error {
	query := fmt.Sprintf("DELETE FROM ban_tracker WHERE failure_timestamp < %s", db.Placeholder(1))
	if _, err := db.Pool.ExecContext(ctx, query, cutoffMinutes); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting expired ban tracker rows: %w", err))
	}
	return nil
}
