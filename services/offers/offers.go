// Package offers implements the admin-managed offer registry: CRUD with
// template/delay validation and atomic run statistics.
package offers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/models"
)

// MaxSteps bounds how many postback templates one offer may carry.
const MaxSteps = 5

// OfferStore is the persistence surface of the registry.
type OfferStore interface {
	Create(ctx context.Context, o *models.Offer) (*models.Offer, error)
	Get(ctx context.Context, id int64) (*models.Offer, error)
	List(ctx context.Context, enabledOnly bool) ([]models.Offer, error)
	Update(ctx context.Context, o *models.Offer) error
	Delete(ctx context.Context, id int64) error
	IncrementStats(ctx context.Context, id int64, success bool) error
}

// Service validates and persists offers.
type Service struct {
	store    OfferStore
	validate *validator.Validate
}

// New builds the registry service.
func New(store OfferStore) *Service {
	return &Service{store: store, validate: validator.New()}
}

// Create validates and stores a new offer.
func (s *Service) Create(ctx context.Context, name, linkPattern string, templates []string, delays []int64) (*models.Offer, error) {
	if err := s.checkFields(name, linkPattern, templates, delays); err != nil {
		return nil, err
	}
	o, err := s.store.Create(ctx, &models.Offer{
		Name:        strings.TrimSpace(name),
		LinkPattern: strings.TrimSpace(linkPattern),
		Templates:   pq.StringArray(templates),
		Delays:      pq.Int64Array(delays),
		Enabled:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	logger.SVCOffers.InfoContext(ctx, "offer_created",
		"status", "ok", "offer_id", o.ID, "steps", o.Steps())
	return o, nil
}

// Get returns one offer or models.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.Offer, error) {
	return s.store.Get(ctx, id)
}

// ListEnabled returns offers visible to end users.
func (s *Service) ListEnabled(ctx context.Context) ([]models.Offer, error) {
	return s.store.List(ctx, true)
}

// ListAll returns every offer, for the admin panel.
func (s *Service) ListAll(ctx context.Context) ([]models.Offer, error) {
	return s.store.List(ctx, false)
}

// Update applies a partial update. Nil fields keep their stored value;
// count invariants are re-validated whenever templates or delays change.
func (s *Service) Update(ctx context.Context, id int64, upd UpdateFields) (*models.Offer, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		o.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.LinkPattern != nil {
		o.LinkPattern = strings.TrimSpace(*upd.LinkPattern)
	}
	if upd.Templates != nil {
		o.Templates = pq.StringArray(upd.Templates)
	}
	if upd.Delays != nil {
		o.Delays = pq.Int64Array(upd.Delays)
	}
	if upd.Enabled != nil {
		o.Enabled = *upd.Enabled
	}
	if err := s.checkFields(o.Name, o.LinkPattern, o.Templates, o.Delays); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}
	logger.SVCOffers.InfoContext(ctx, "offer_updated", "status", "ok", "offer_id", id)
	return o, nil
}

// UpdateFields selects which offer fields an update touches.
type UpdateFields struct {
	Name        *string
	LinkPattern *string
	Templates   []string
	Delays      []int64
	Enabled     *bool
}

// Delete removes an offer; submissions referencing it are removed by the
// storage-level cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.SVCOffers.InfoContext(ctx, "offer_deleted", "status", "ok", "offer_id", id)
	return nil
}

// IncrementStats advances the run totals for one completed orchestration.
func (s *Service) IncrementStats(ctx context.Context, id int64, success bool) error {
	return s.store.IncrementStats(ctx, id, success)
}

func (s *Service) checkFields(name, linkPattern string, templates []string, delays []int64) error {
	if strings.TrimSpace(name) == "" {
		return models.NewValidationError("name", "offer name is required")
	}
	n := len(templates)
	if n < 1 || n > MaxSteps {
		return models.NewValidationError("templates", "need between 1 and %d postback templates, got %d", MaxSteps, n)
	}
	if len(delays) != n {
		return models.NewValidationError("delays", "need one delay per template: %d templates, %d delays", n, len(delays))
	}
	if linkPattern != "" {
		if err := s.validate.Var(linkPattern, "url"); err != nil {
			return models.NewValidationError("link", "starting link %q is not a valid URL", linkPattern)
		}
	}
	for i, tpl := range templates {
		if err := s.validate.Var(tpl, "required,url"); err != nil {
			return models.NewValidationError("templates", "template %d is not a valid URL", i+1)
		}
		if !strings.Contains(tpl, models.TokenPlaceholder) {
			return models.NewValidationError("templates", "template %d is missing the %s placeholder", i+1, models.TokenPlaceholder)
		}
	}
	for i, d := range delays {
		if d < 0 {
			return models.NewValidationError("delays", "delay %d must be >= 0 seconds", i+1)
		}
	}
	return nil
}
