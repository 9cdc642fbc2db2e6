package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// CounterRepo persists per-user daily action counters keyed by UTC date.
// One row per (user, category); the day column rolls the count over.
type CounterRepo struct {
	db *sqlx.DB
}

// Get returns today's count for the category. A row carrying a previous
// day counts as zero. Missing users and rows count as zero.
func (r *CounterRepo) Get(ctx context.Context, userID int64, category string, today time.Time) (int, error) {
	day := today.UTC().Format("2006-01-02")
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT count FROM daily_counters
		WHERE user_id = $1 AND category = $2 AND day = $3`,
		userID, category, day,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select counter: %w", err)
	}
	return count, nil
}

// Increment bumps today's count, resetting stale rows from prior days.
// Returns the new count.
func (r *CounterRepo) Increment(ctx context.Context, userID int64, category string, today time.Time) (int, error) {
	day := today.UTC().Format("2006-01-02")
	var count int
	err := r.db.GetContext(ctx, &count, `
		INSERT INTO daily_counters (user_id, category, day, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, category) DO UPDATE
		SET count = CASE WHEN daily_counters.day = EXCLUDED.day
			THEN daily_counters.count + 1 ELSE 1 END,
			day = EXCLUDED.day
		RETURNING count`,
		userID, category, day,
	)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return count, nil
}
