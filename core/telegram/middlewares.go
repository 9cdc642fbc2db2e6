package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/config"
	"github.com/m3rciful/offerbot/core/telegram/middleware"
)

// DefaultMiddlewares builds the global chain applied to every update:
// panic recovery, ban gate, flood control, logging, message counters.
func DefaultMiddlewares(cfg *config.Config, bans middleware.BanChecker, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.Recover},
	}

	if bans != nil {
		mws = append(mws, Middleware{Name: "ban_gate", Use: middleware.BanGate(bans)})
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			mws = append(mws, Middleware{
				Name: "flood",
				Use: middleware.Flood(middleware.FloodOptions{
					Interval:         interval,
					ExcludeCallbacks: cfg.RateLimit.ExcludeCallbacks,
					OnLimited:        onLimited,
				}),
			})
		}
	}

	mws = append(mws,
		Middleware{Name: "logging", Use: middleware.Logging},
		Middleware{Name: "counters", Use: middleware.Counters},
	)

	return mws
}
