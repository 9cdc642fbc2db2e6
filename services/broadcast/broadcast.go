// Package broadcast fans one admin message out to every known user.
package broadcast

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/models"
)

// UserLister provides the recipient set.
type UserLister interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

// BanChecker filters out silenced users.
type BanChecker interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// SendFunc delivers one message to one recipient.
type SendFunc func(ctx context.Context, userID int64, text string) error

// Result summarizes one broadcast run.
type Result struct {
	Sent    int
	Failed  int
	Skipped int
}

// Service delivers admin broadcasts. Banned users are skipped; individual
// delivery failures are counted, not fatal.
type Service struct {
	users UserLister
	bans  BanChecker
	send  SendFunc
}

// New builds the broadcast service.
func New(users UserLister, bans BanChecker, send SendFunc) *Service {
	return &Service{users: users, bans: bans, send: send}
}

// Send delivers text to every non-banned user sequentially, respecting ctx
// cancellation between recipients.
func (s *Service) Send(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("text", "broadcast text is empty")
	}

	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	res := &Result{}
	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		banned, err := s.bans.Exists(ctx, id)
		if err != nil || banned {
			res.Skipped++
			continue
		}
		if err := s.send(ctx, id, text); err != nil {
			res.Failed++
			logger.SVCBroadcast.WarnContext(ctx, "broadcast_send",
				"status", "fail", "user_id", id, "err", err)
			continue
		}
		res.Sent++
	}

	logger.SVCBroadcast.InfoContext(ctx, "broadcast_done",
		"status", "ok", "count", res.Sent, "messages", len(ids))
	return res, nil
}
