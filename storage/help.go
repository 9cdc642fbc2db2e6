package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/offerbot/models"
)

// HelpRepo persists help requests and their one-shot admin replies.
type HelpRepo struct {
	db *sqlx.DB
}

// Create inserts a pending help request and returns its id.
func (r *HelpRepo) Create(ctx context.Context, userID int64, message string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO help_requests (user_id, message, status)
		VALUES ($1, $2, 'pending')
		RETURNING id`,
		userID, message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert help request: %w", err)
	}
	return id, nil
}

// Get returns one help request or models.ErrNotFound.
func (r *HelpRepo) Get(ctx context.Context, id int64) (*models.HelpRequest, error) {
	var h models.HelpRequest
	err := r.db.GetContext(ctx, &h, `
		SELECT id, user_id, message, status, reply, replied_at, created_at
		FROM help_requests WHERE id = $1`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select help request: %w", err)
	}
	return &h, nil
}

// ListPending returns unanswered requests, oldest first.
func (r *HelpRepo) ListPending(ctx context.Context, limit int) ([]models.HelpRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	var reqs []models.HelpRequest
	err := r.db.SelectContext(ctx, &reqs, `
		SELECT id, user_id, message, status, reply, replied_at, created_at
		FROM help_requests WHERE status = 'pending'
		ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending help requests: %w", err)
	}
	return reqs, nil
}

// Resolve records the admin reply exactly once. A request that is missing
// or already resolved yields models.ErrNotFound.
func (r *HelpRepo) Resolve(ctx context.Context, id int64, reply string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE help_requests
		SET status = 'resolved', reply = $2, replied_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, reply,
	)
	if err != nil {
		return fmt.Errorf("resolve help request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve help request rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountPending returns the number of unanswered requests.
func (r *HelpRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n,
		`SELECT count(*) FROM help_requests WHERE status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("count pending help requests: %w", err)
	}
	return n, nil
}
