package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/offerbot/models"
)

const offerColumns = `id, name, link_pattern, postback_templates, postback_delays,
	enabled, submission_count, success_count, created_at, updated_at`

// OfferRepo persists admin-managed offers.
type OfferRepo struct {
	db *sqlx.DB
}

// Create inserts an offer and returns it with generated fields filled.
func (r *OfferRepo) Create(ctx context.Context, o *models.Offer) (*models.Offer, error) {
	var created models.Offer
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO offers (name, link_pattern, postback_templates, postback_delays, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+offerColumns,
		o.Name, o.LinkPattern, o.Templates, o.Delays, o.Enabled,
	)
	if err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}
	return &created, nil
}

// Get returns one offer or models.ErrNotFound.
func (r *OfferRepo) Get(ctx context.Context, id int64) (*models.Offer, error) {
	var o models.Offer
	err := r.db.GetContext(ctx, &o,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select offer: %w", err)
	}
	return &o, nil
}

// List returns offers ordered by id. When enabledOnly is set, disabled
// offers are filtered out.
func (r *OfferRepo) List(ctx context.Context, enabledOnly bool) ([]models.Offer, error) {
	q := `SELECT ` + offerColumns + ` FROM offers`
	if enabledOnly {
		q += ` WHERE enabled`
	}
	q += ` ORDER BY id`
	var offers []models.Offer
	if err := r.db.SelectContext(ctx, &offers, q); err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}

// Update replaces the mutable fields of an offer.
func (r *OfferRepo) Update(ctx context.Context, o *models.Offer) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE offers
		SET name = $2, link_pattern = $3, postback_templates = $4,
			postback_delays = $5, enabled = $6, updated_at = now()
		WHERE id = $1`,
		o.ID, o.Name, o.LinkPattern, o.Templates, o.Delays, o.Enabled,
	)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update offer rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes an offer. Submissions referencing it are removed by the
// ON DELETE CASCADE constraint.
func (r *OfferRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete offer rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// IncrementStats bumps the running totals of one offer atomically. The
// submission counter always advances; the success counter only on success.
func (r *OfferRepo) IncrementStats(ctx context.Context, id int64, success bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE offers
		SET submission_count = submission_count + 1,
			success_count = success_count + CASE WHEN $2 THEN 1 ELSE 0 END,
			updated_at = now()
		WHERE id = $1`,
		id, success,
	)
	if err != nil {
		return fmt.Errorf("increment offer stats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment offer stats rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns the total number of offers.
func (r *OfferRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM offers`); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}
	return n, nil
}
