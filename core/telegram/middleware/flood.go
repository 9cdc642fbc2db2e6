package middleware

import (
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
)

// FloodOptions configures the per-user minimum interval between updates.
type FloodOptions struct {
	Interval time.Duration
	// ExcludeCallbacks lets button presses through so menu navigation is
	// not throttled.
	ExcludeCallbacks bool
	OnLimited        tele.HandlerFunc
}

// Flood drops updates arriving faster than the configured interval from
// the same user.
func Flood(opts FloodOptions) tele.MiddlewareFunc {
	var (
		lastSeen   = make(map[int64]time.Time)
		lastSeenMu sync.Mutex
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if opts.ExcludeCallbacks && c.Update().Callback != nil {
				return next(c)
			}

			now := time.Now()
			lastSeenMu.Lock()
			last, ok := lastSeen[user.ID]
			if ok && now.Sub(last) < opts.Interval {
				lastSeenMu.Unlock()
				logger.TG.Warn("flood_limit",
					"status", "rate_limited",
					"user_id", user.ID,
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			lastSeen[user.ID] = now
			lastSeenMu.Unlock()
			return next(c)
		}
	}
}
