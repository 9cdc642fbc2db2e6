// Package router dispatches inbound updates: active conversation mode
// first, then command match, then registered callbacks, then fallbacks.
package router

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram/helpers"
	"github.com/m3rciful/offerbot/core/telegram/middleware"
)

func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error, extras ...any) error {
	helpers.WithHandler(c, handlerName)
	err := fn()
	logSummary(c, handlerName, start, "", err, extras...)
	return err
}

func logSummary(c tele.Context, handlerName string, start time.Time, statusOverride string, err error, extras ...any) {
	ctx := helpers.WithHandler(c, handlerName)
	msgs, kb := middleware.GetCounters(c)

	status := statusOverride
	if status == "" {
		if err != nil {
			status = "fail"
		} else {
			status = "ok"
		}
	}

	kv := []any{
		"status", status,
		"handler", handlerName,
		"messages", msgs,
		"kb", kb,
		"duration", logger.Took(start),
	}
	if err != nil {
		kv = append(kv,
			"err", logger.SanitizeLimit(err.Error(), 256),
			"cause", handlerName,
		)
	}
	kv = append(kv, extras...)
	logger.TG.InfoContext(ctx, "handler_handled", kv...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
