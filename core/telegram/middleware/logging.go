package middleware

import (
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/core/telegram/callbacks"
	"github.com/m3rciful/offerbot/core/telegram/helpers"
)

// seenUpdates deduplicates receipt logging when the chain is applied on
// more than one endpoint.
var (
	seenMu      sync.Mutex
	seenUpdates = make(map[int]time.Time)
	seenKeepFor = 10 * time.Second
)

func firstSighting(updateID int) bool {
	now := time.Now()
	seenMu.Lock()
	defer seenMu.Unlock()
	for id, ts := range seenUpdates {
		if now.Sub(ts) > seenKeepFor {
			delete(seenUpdates, id)
		}
	}
	if _, ok := seenUpdates[updateID]; ok {
		return false
	}
	seenUpdates[updateID] = now
	return true
}

// Logging assigns the request correlation id, stores a derived context and
// emits one sampled receipt line per update.
func Logging(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}

		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(logger.WithLogger(nil, logger.TG), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		helpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && firstSighting(upd.ID) {
			kv := []any{"status", "ok"}
			if user := c.Sender(); user != nil && user.Username != "" {
				kv = append(kv, "username", logger.SanitizeLimit(user.Username, 64))
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.Parse(upd.Callback)
				kv = append(kv, "cb_key", logger.SanitizeLimit(key, 128))
				if payload != "" {
					kv = append(kv, "payload", logger.SanitizeLimit(payload, 256))
				}
			case upd.Message != nil:
				if t := c.Text(); t != "" {
					kv = append(kv, "payload", logger.SanitizeLimit(t, 256))
				}
			}
			logger.TG.DebugContext(ctx, "update_received", kv...)
		}

		return next(c)
	}
}
