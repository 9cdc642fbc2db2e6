package middleware

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram/helpers"
)

// BanChecker answers whether a user is silenced.
type BanChecker interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// BanGate silently drops every update from a banned user before any other
// handling. A check error also drops the update: when in doubt, stay quiet
// rather than talk to a possibly banned user.
func BanGate(bans BanChecker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || bans == nil {
				return next(c)
			}
			ctx := helpers.BuildContext(c)
			banned, err := bans.Exists(ctx, sender.ID)
			if err != nil {
				logger.TG.WarnContext(ctx, "ban_check",
					"status", "fail", "err", err)
				return nil
			}
			if banned {
				logger.TG.DebugContext(ctx, "update_dropped",
					"status", "denied", "cause", "banned")
				return nil
			}
			return next(c)
		}
	}
}
