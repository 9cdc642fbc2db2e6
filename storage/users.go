package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/offerbot/models"
)

// UserRepo persists users, their conversation mode and transient context.
type UserRepo struct {
	db *sqlx.DB
}

// GetOrCreate inserts the user on first contact and returns the stored
// record. The second return value reports whether the row was just created.
// Legacy rows with a NULL mode are migrated to "none" as a side effect of
// the read.
func (r *UserRepo) GetOrCreate(ctx context.Context, id int64, displayName, username string) (*models.User, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, username, current_mode, mode_context)
		VALUES ($1, $2, $3, 'none', '{}')
		ON CONFLICT (id) DO NOTHING`,
		id, displayName, username,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert user rows: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		UPDATE users SET current_mode = 'none' WHERE id = $1 AND current_mode IS NULL`,
		id,
	); err != nil {
		return nil, false, fmt.Errorf("migrate user mode: %w", err)
	}

	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return u, inserted > 0, nil
}

// Get returns one user or models.ErrNotFound.
func (r *UserRepo) Get(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, display_name, username, current_mode, mode_context, created_at, updated_at
		FROM users WHERE id = $1`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// SetMode replaces the user's active mode and context in one statement.
func (r *UserRepo) SetMode(ctx context.Context, id int64, mode models.Mode, mc models.ModeContext) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET current_mode = $2, mode_context = $3, updated_at = now()
		WHERE id = $1`,
		id, mode, mc,
	)
	if err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set mode rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearMode resets the mode to none and empties the context.
func (r *UserRepo) ClearMode(ctx context.Context, id int64) error {
	return r.SetMode(ctx, id, models.ModeNone, models.ModeContext{})
}

// ListIDs returns all user ids, for broadcast fan-out.
func (r *UserRepo) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

// Recent returns the newest users, most recent first.
func (r *UserRepo) Recent(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, display_name, username, current_mode, mode_context, created_at, updated_at
		FROM users ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	return users, nil
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
