package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/offerbot/models"
)

// BanRepo persists ban records. Existence of a record silences the user.
type BanRepo struct {
	db *sqlx.DB
}

// Add inserts a ban record; banning an already-banned user is a no-op.
func (r *BanRepo) Add(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bans (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}

// Remove deletes a ban record, returning models.ErrNotFound when absent.
func (r *BanRepo) Remove(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bans WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ban rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Exists reports whether the user is banned.
func (r *BanRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	var banned bool
	err := r.db.GetContext(ctx, &banned,
		`SELECT EXISTS (SELECT 1 FROM bans WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("check ban: %w", err)
	}
	return banned, nil
}

// List returns all ban records, newest first.
func (r *BanRepo) List(ctx context.Context) ([]models.BanRecord, error) {
	var bans []models.BanRecord
	err := r.db.SelectContext(ctx, &bans,
		`SELECT user_id, created_at FROM bans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	return bans, nil
}
