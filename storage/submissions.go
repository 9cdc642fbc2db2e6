package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/offerbot/models"
)

// SubmissionRepo persists orchestration run records. Rows are write-once.
type SubmissionRepo struct {
	db *sqlx.DB
}

// Create inserts one submission and returns its generated id.
func (r *SubmissionRepo) Create(ctx context.Context, s *models.Submission) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO submissions (public_id, user_id, offer_id, raw_url, extracted_token, steps, all_success, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		s.PublicID, s.UserID, s.OfferID, s.RawURL, s.Token, s.Steps, s.AllSuccess, s.Elapsed.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

// CountByOffer returns how many submissions reference the given offer.
func (r *SubmissionRepo) CountByOffer(ctx context.Context, offerID int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n,
		`SELECT count(*) FROM submissions WHERE offer_id = $1`, offerID)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// Count returns the total number of submissions.
func (r *SubmissionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM submissions`); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// Recent returns the newest submissions, most recent first.
func (r *SubmissionRepo) Recent(ctx context.Context, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	var subs []models.Submission
	err := r.db.SelectContext(ctx, &subs, `
		SELECT id, public_id, user_id, offer_id, raw_url, extracted_token, steps, all_success, elapsed_ms, created_at
		FROM submissions ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent submissions: %w", err)
	}
	return subs, nil
}
