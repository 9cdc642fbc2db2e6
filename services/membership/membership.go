// Package membership gates protected actions behind channel membership.
package membership

import (
	"context"

	"github.com/m3rciful/offerbot/core/logger"
)

// Status is the membership state reported by the platform.
type Status string

const (
	StatusMember  Status = "member"
	StatusLeft    Status = "left"
	StatusRemoved Status = "removed"
	StatusUnknown Status = "unknown"
)

// StatusChecker resolves one user's membership status in one channel.
type StatusChecker interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (Status, error)
}

// Service checks a fixed list of required channels. Any uncertainty — a
// provider error, an unknown status — denies access.
type Service struct {
	checker  StatusChecker
	channels []string
}

// New builds the gate over the configured channel list.
func New(checker StatusChecker, channels []string) *Service {
	return &Service{checker: checker, channels: channels}
}

// Channels returns the configured required channel list.
func (s *Service) Channels() []string {
	return s.channels
}

// IsMember reports whether the user belongs to every required channel.
// On denial the second return value names the first missing channel.
// An empty channel list admits everyone.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, string) {
	for _, ch := range s.channels {
		status, err := s.checker.MemberStatus(ctx, ch, userID)
		if err != nil {
			logger.TG.WarnContext(ctx, "membership_check",
				"status", "fail", "username", ch, "err", err)
			return false, ch
		}
		switch status {
		case StatusMember:
			continue
		case StatusLeft, StatusRemoved, StatusUnknown:
			return false, ch
		default:
			return false, ch
		}
	}
	return true, ""
}
