// Package sessions owns per-user conversational state: the active mode and
// its transient context. No other component writes these fields.
package sessions

import (
	"context"
	"fmt"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/models"
)

// UserStore is the persistence surface the session service needs.
type UserStore interface {
	GetOrCreate(ctx context.Context, id int64, displayName, username string) (*models.User, bool, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	SetMode(ctx context.Context, id int64, mode models.Mode, mc models.ModeContext) error
	ClearMode(ctx context.Context, id int64) error
}

// NewUserFunc is invoked exactly once when a user record is first created.
type NewUserFunc func(ctx context.Context, u *models.User)

// Service manages user records and mode transitions.
type Service struct {
	users UserStore
	onNew NewUserFunc
}

// New builds the session service. onNew may be nil.
func New(users UserStore, onNew NewUserFunc) *Service {
	return &Service{users: users, onNew: onNew}
}

// GetOrCreate returns the stored user, creating it on first contact.
// Creation fires the new-user notification exactly once.
func (s *Service) GetOrCreate(ctx context.Context, id int64, displayName, username string) (*models.User, bool, error) {
	u, isNew, err := s.users.GetOrCreate(ctx, id, displayName, username)
	if err != nil {
		return nil, false, fmt.Errorf("get or create user: %w", err)
	}
	if isNew {
		logger.SVCSessions.InfoContext(ctx, "user_created", "status", "ok", "username", u.Username)
		if s.onNew != nil {
			s.onNew(ctx, u)
		}
	}
	return u, isNew, nil
}

// Get returns one user or models.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.Get(ctx, id)
}

// SetMode enters a mode, silently replacing any prior one. The mode must be
// a member of the closed enum.
func (s *Service) SetMode(ctx context.Context, id int64, mode models.Mode, mc models.ModeContext) error {
	if !mode.Valid() {
		return models.NewValidationError("mode", "unknown mode %q", mode)
	}
	if err := s.users.SetMode(ctx, id, mode, mc); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	logger.SVCSessions.DebugContext(ctx, "mode_set", "status", "ok", "mode", string(mode))
	return nil
}

// ClearMode resets the user's mode to none and drops the context.
func (s *Service) ClearMode(ctx context.Context, id int64) error {
	if err := s.users.ClearMode(ctx, id); err != nil {
		return fmt.Errorf("clear mode: %w", err)
	}
	return nil
}

// TakeMode reads the active mode with its context and clears both before
// returning. Clearing up front guarantees the mode is released no matter
// what the moded handler does afterwards.
func (s *Service) TakeMode(ctx context.Context, id int64) (models.Mode, models.ModeContext, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return models.ModeNone, models.ModeContext{}, fmt.Errorf("take mode: %w", err)
	}
	if u.Mode == models.ModeNone || u.Mode == "" {
		return models.ModeNone, models.ModeContext{}, nil
	}
	if err := s.users.ClearMode(ctx, id); err != nil {
		return models.ModeNone, models.ModeContext{}, fmt.Errorf("take mode clear: %w", err)
	}
	logger.SVCSessions.DebugContext(ctx, "mode_taken", "status", "ok", "mode", string(u.Mode))
	return u.Mode, u.Context, nil
}
