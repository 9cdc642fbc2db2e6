// Package help manages end-user help requests: rate-limited intake and
// one-shot admin replies.
package help

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/models"
	"github.com/m3rciful/offerbot/services/ratelimit"
)

// Store is the persistence surface for help requests.
type Store interface {
	Create(ctx context.Context, userID int64, message string) (int64, error)
	Get(ctx context.Context, id int64) (*models.HelpRequest, error)
	ListPending(ctx context.Context, limit int) ([]models.HelpRequest, error)
	Resolve(ctx context.Context, id int64, reply string) error
	CountPending(ctx context.Context) (int64, error)
}

// Limiter is the daily-quota surface the intake path consults.
type Limiter interface {
	CanAct(ctx context.Context, userID int64, category string) (bool, string, error)
	RecordAction(ctx context.Context, userID int64, category string) error
}

// Service accepts help requests subject to the daily quota.
type Service struct {
	store   Store
	limiter Limiter
}

// New builds the help service.
func New(store Store, limiter Limiter) *Service {
	return &Service{store: store, limiter: limiter}
}

// Request stores one help request. Exceeding the daily quota yields
// models.ErrRateLimited; empty messages a ValidationError.
func (s *Service) Request(ctx context.Context, userID int64, message string) (int64, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return 0, models.NewValidationError("message", "help message is empty")
	}

	allowed, reason, err := s.limiter.CanAct(ctx, userID, ratelimit.CategoryHelp)
	if err != nil {
		return 0, fmt.Errorf("help quota check: %w", err)
	}
	if !allowed {
		logger.SVCHelp.InfoContext(ctx, "help_request",
			"status", "rate_limited", "cause", reason)
		return 0, models.ErrRateLimited
	}

	id, err := s.store.Create(ctx, userID, message)
	if err != nil {
		return 0, fmt.Errorf("store help request: %w", err)
	}
	if err := s.limiter.RecordAction(ctx, userID, ratelimit.CategoryHelp); err != nil {
		logger.SVCHelp.WarnContext(ctx, "help_quota_record",
			"status", "fail", "err", err)
	}

	logger.SVCHelp.InfoContext(ctx, "help_request", "status", "ok", "count", id)
	return id, nil
}

// Reply resolves a pending request exactly once and returns it so the
// caller can forward the reply to the requester. Replying to a missing or
// already-resolved request yields models.ErrNotFound.
func (s *Service) Reply(ctx context.Context, id int64, reply string) (*models.HelpRequest, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, models.NewValidationError("reply", "reply text is empty")
	}
	if err := s.store.Resolve(ctx, id, reply); err != nil {
		return nil, err
	}
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.SVCHelp.InfoContext(ctx, "help_replied", "status", "ok")
	return req, nil
}

// ListPending returns unanswered requests for the admin panel.
func (s *Service) ListPending(ctx context.Context, limit int) ([]models.HelpRequest, error) {
	return s.store.ListPending(ctx, limit)
}

// CountPending returns the pending queue length.
func (s *Service) CountPending(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}
