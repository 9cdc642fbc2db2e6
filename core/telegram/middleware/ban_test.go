package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type gateContext struct {
	tele.Context
	sender *tele.User
	chat   *tele.Chat
	sent   []string
	kv     map[string]any
}

func (c *gateContext) Sender() *tele.User  { return c.sender }
func (c *gateContext) Chat() *tele.Chat    { return c.chat }
func (c *gateContext) Update() tele.Update { return tele.Update{ID: 1} }

func (c *gateContext) Get(key string) any { return c.kv[key] }

func (c *gateContext) Set(key string, v any) {
	if c.kv == nil {
		c.kv = map[string]any{}
	}
	c.kv[key] = v
}

func (c *gateContext) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		c.sent = append(c.sent, s)
	}
	return nil
}

type banCheckerStub struct {
	banned map[int64]bool
	err    error
	calls  int
}

func (b *banCheckerStub) Exists(_ context.Context, userID int64) (bool, error) {
	b.calls++
	return b.banned[userID], b.err
}

func TestBanGateSilencesBannedUser(t *testing.T) {
	bans := &banCheckerStub{banned: map[int64]bool{13: true}}
	nextCalled := false
	h := BanGate(bans)(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	c := &gateContext{sender: &tele.User{ID: 13}, chat: &tele.Chat{ID: 13}}
	require.NoError(t, h(c))

	assert.False(t, nextCalled, "a banned update must not reach the handler")
	assert.Empty(t, c.sent, "a banned user gets no reply at all")
	assert.Equal(t, 1, bans.calls)
}

func TestBanGateDropsOnCheckError(t *testing.T) {
	bans := &banCheckerStub{err: errors.New("db down")}
	nextCalled := false
	h := BanGate(bans)(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	c := &gateContext{sender: &tele.User{ID: 5}, chat: &tele.Chat{ID: 5}}
	require.NoError(t, h(c))

	assert.False(t, nextCalled)
	assert.Empty(t, c.sent)
}

func TestBanGatePassesCleanUser(t *testing.T) {
	bans := &banCheckerStub{banned: map[int64]bool{13: true}}
	nextCalled := false
	h := BanGate(bans)(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	c := &gateContext{sender: &tele.User{ID: 5}, chat: &tele.Chat{ID: 5}}
	require.NoError(t, h(c))
	assert.True(t, nextCalled)
}

func TestBanGateNilCheckerPassesThrough(t *testing.T) {
	nextCalled := false
	h := BanGate(nil)(func(tele.Context) error {
		nextCalled = true
		return nil
	})

	c := &gateContext{sender: &tele.User{ID: 5}, chat: &tele.Chat{ID: 5}}
	require.NoError(t, h(c))
	assert.True(t, nextCalled)
}
