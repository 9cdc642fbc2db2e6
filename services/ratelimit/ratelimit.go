// Package ratelimit enforces per-user daily action quotas keyed by UTC date.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/m3rciful/offerbot/core/logger"
)

// CategoryHelp limits help requests per user per UTC day.
const CategoryHelp = "help"

// CounterStore is the persistence surface the limiter needs.
type CounterStore interface {
	Get(ctx context.Context, userID int64, category string, today time.Time) (int, error)
	Increment(ctx context.Context, userID int64, category string, today time.Time) (int, error)
}

// Service tracks daily counters per user and category.
type Service struct {
	store  CounterStore
	limits map[string]int
	now    func() time.Time
}

// New builds the limiter. Categories absent from limits are unlimited.
func New(store CounterStore, limits map[string]int) *Service {
	if limits == nil {
		limits = map[string]int{}
	}
	return &Service{store: store, limits: limits, now: time.Now}
}

// CanAct reports whether the user may perform one more action of the given
// category today. A user with no prior record is allowed. Pure read, no
// side effects. A store read error denies the action.
func (s *Service) CanAct(ctx context.Context, userID int64, category string) (bool, string, error) {
	limit, limited := s.limits[category]
	if !limited || limit <= 0 {
		return true, "", nil
	}
	count, err := s.store.Get(ctx, userID, category, s.now())
	if err != nil {
		logger.SVCRate.WarnContext(ctx, "rate_check",
			"status", "fail", "category", category, "err", err)
		return false, "limit check unavailable", fmt.Errorf("rate check: %w", err)
	}
	if count >= limit {
		logger.SVCRate.InfoContext(ctx, "rate_check",
			"status", "rate_limited", "category", category, "count", count)
		return false, fmt.Sprintf("daily limit of %d reached", limit), nil
	}
	return true, "", nil
}

// RecordAction registers one performed action of the category for today.
// Counters from previous days are reset to 1 as a side effect.
func (s *Service) RecordAction(ctx context.Context, userID int64, category string) error {
	count, err := s.store.Increment(ctx, userID, category, s.now())
	if err != nil {
		return fmt.Errorf("rate record: %w", err)
	}
	logger.SVCRate.DebugContext(ctx, "rate_record",
		"status", "ok", "category", category, "count", count)
	return nil
}
