package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/offerbot/core/telegram"
	"github.com/m3rciful/offerbot/core/telegram/middleware"
)

// ModeRouter decides whether the sender has an active conversation mode
// and, if so, consumes the update.
type ModeRouter interface {
	InMode(c tele.Context) bool
	HandleMode(c tele.Context) error
}

// TextOptions controls fallback behaviour for free-text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoute builds the OnText handler: active mode wins, then command
// lookup, then the registry fallback.
func TextRoute(modes ModeRouter, reg *tg.Registry, opts TextOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if modes != nil && modes.InMode(c) {
			return handleWithSummary(c, "mode", start, func() error {
				return modes.HandleMode(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		logSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	return tg.Route{
		Endpoint: tele.OnText,
		Handler:  middleware.Recover(middleware.Logging(middleware.Counters(handler))),
	}
}
