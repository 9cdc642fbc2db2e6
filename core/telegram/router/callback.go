package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/offerbot/core/telegram"
	"github.com/m3rciful/offerbot/core/telegram/callbacks"
	"github.com/m3rciful/offerbot/core/telegram/middleware"
)

// CallbackOptions customises behaviour for unknown callback keys.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes button presses through the registry. Every press is
// acknowledged up front so the client stops showing a spinner even when the
// handler fails afterwards.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key := callbacks.Key(c)
		name := "callback." + normalizeHandlerName(key)

		_ = c.Respond()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			return handleWithSummary(c, name, start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, "cb_key", key, "cause", "not_found")
		}

		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, "cb_key", key)
	}

	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.Recover(middleware.Logging(middleware.Counters(handler))),
	}
}
