package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLine(t *testing.T, format logFormat, fn func(log *slog.Logger, ctx context.Context)) string {
	t.Helper()
	var buf bytes.Buffer
	w := newFanoutWriter([]io.Writer{&buf}, 0)
	h := newOrderedHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: w,
		format: format,
	})
	log := slog.New(h)
	fn(log, context.Background())
	require.NoError(t, w.Close())
	return strings.TrimRight(buf.String(), "\n")
}

func TestHandlerKVKeyOrder(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger, ctx context.Context) {
		log.InfoContext(ctx, "postback_step",
			"component", "service.postback",
			"status", "ok",
			"offer_id", int64(7),
			"step", 2,
		)
	})

	idx := func(key string) int { return strings.Index(line, key+"=") }
	assert.Greater(t, idx("level"), idx("ts"))
	assert.Greater(t, idx("component"), idx("level"))
	assert.Greater(t, idx("event"), idx("component"))
	assert.Greater(t, idx("status"), idx("event"))
	assert.Greater(t, idx("step"), idx("offer_id"))
	assert.Contains(t, line, "event=postback_step")
	assert.Contains(t, line, "component=service.postback")
}

func TestHandlerJSONContextFields(t *testing.T) {
	line := captureLine(t, formatJSON, func(log *slog.Logger, _ context.Context) {
		ctx := WithRID(context.Background(), BuildRID(42, 100, 200))
		ctx = WithUpdateMeta(ctx, 42, 200, 100)
		ctx = WithHandler(ctx, "cmd:start")
		log.InfoContext(ctx, "update_handled", "status", "ok")
	})

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &fields))
	assert.Equal(t, "42:100:200", fields["rid"])
	assert.Equal(t, float64(200), fields["user_id"])
	assert.Equal(t, float64(100), fields["chat_id"])
	assert.Equal(t, float64(42), fields["update_id"])
	assert.Equal(t, "cmd:start", fields["handler"])
	assert.Equal(t, "INFO", fields["level"])
}

func TestHandlerDurationKeys(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger, ctx context.Context) {
		log.InfoContext(ctx, "db_query",
			"duration", 1530*time.Millisecond,
			"wait_ms", int64(12),
		)
	})
	assert.Contains(t, line, "duration_ms=1530")
	assert.Contains(t, line, "wait_ms=12")
	assert.NotContains(t, line, "duration=")
}

func TestHandlerQuotesUnsafeValues(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger, ctx context.Context) {
		log.InfoContext(ctx, "message_received", "payload", "two words")
	})
	assert.Contains(t, line, `payload="two words"`)
}

func TestHandlerDropsEmptyFields(t *testing.T) {
	line := captureLine(t, formatKV, func(log *slog.Logger, ctx context.Context) {
		log.InfoContext(ctx, "noop", "username", "")
	})
	assert.NotContains(t, line, "username=")
}

func TestSanitizeLimit(t *testing.T) {
	in := "hello\x00world​!"
	assert.Equal(t, "helloworld!", Sanitize(in))
	assert.Equal(t, "hel", SanitizeLimit("hello", 3))
	assert.Equal(t, "", SanitizeLimit("hello", 0))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var passed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			passed++
		}
	}
	assert.Equal(t, 3, passed)

	num, den := parseRatioSpec("1/50")
	assert.Equal(t, 1, num)
	assert.Equal(t, 50, den)
	num, den = parseRatioSpec("25")
	assert.Equal(t, 1, num)
	assert.Equal(t, 25, den)
}
