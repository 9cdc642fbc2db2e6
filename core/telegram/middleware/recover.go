// Package middleware holds the transport-level handler chain: panic
// recovery, flood control, request logging, counters, access checks.
package middleware

import (
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
)

// Recover catches panics in handlers so one bad update never takes the bot
// down.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.Error("panic_recovered",
					"status", "fail",
					"err", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		return next(c)
	}
}
