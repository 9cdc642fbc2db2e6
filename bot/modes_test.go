package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/offerbot/core/config"
	"github.com/m3rciful/offerbot/models"
	"github.com/m3rciful/offerbot/services/offers"
	"github.com/m3rciful/offerbot/services/postback"
	"github.com/m3rciful/offerbot/services/sessions"
)

// stubContext implements just enough of tele.Context for handler tests.
// Unimplemented methods panic, which is the assertion that a handler never
// reaches for them.
type stubContext struct {
	tele.Context
	sender *tele.User
	chat   *tele.Chat
	text   string
	sent   []string
	kv     map[string]any
}

func (c *stubContext) Sender() *tele.User       { return c.sender }
func (c *stubContext) Chat() *tele.Chat         { return c.chat }
func (c *stubContext) Text() string             { return c.text }
func (c *stubContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (c *stubContext) Callback() *tele.Callback { return nil }

func (c *stubContext) Get(key string) any { return c.kv[key] }

func (c *stubContext) Set(key string, v any) {
	if c.kv == nil {
		c.kv = map[string]any{}
	}
	c.kv[key] = v
}

func (c *stubContext) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		c.sent = append(c.sent, s)
	}
	return nil
}

// fakeUserStore keeps one user in memory and records every mode write.
type fakeUserStore struct {
	user     *models.User
	setCalls []models.Mode
}

func (f *fakeUserStore) GetOrCreate(_ context.Context, id int64, displayName, username string) (*models.User, bool, error) {
	if f.user == nil {
		f.user = &models.User{ID: id, DisplayName: displayName, Username: username, Mode: models.ModeNone}
		return f.user, true, nil
	}
	return f.user, false, nil
}

func (f *fakeUserStore) Get(_ context.Context, id int64) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, models.ErrNotFound
	}
	cp := *f.user
	return &cp, nil
}

func (f *fakeUserStore) SetMode(_ context.Context, _ int64, mode models.Mode, mc models.ModeContext) error {
	f.setCalls = append(f.setCalls, mode)
	f.user.Mode = mode
	f.user.Context = mc
	return nil
}

func (f *fakeUserStore) ClearMode(_ context.Context, _ int64) error {
	f.user.Mode = models.ModeNone
	f.user.Context = models.ModeContext{}
	return nil
}

type fakeOfferStore struct {
	offer *models.Offer
}

func (f *fakeOfferStore) Create(_ context.Context, o *models.Offer) (*models.Offer, error) {
	return o, nil
}

func (f *fakeOfferStore) Get(_ context.Context, id int64) (*models.Offer, error) {
	if f.offer == nil || f.offer.ID != id {
		return nil, models.ErrNotFound
	}
	return f.offer, nil
}

func (f *fakeOfferStore) List(_ context.Context, _ bool) ([]models.Offer, error) { return nil, nil }
func (f *fakeOfferStore) Update(_ context.Context, _ *models.Offer) error        { return nil }
func (f *fakeOfferStore) Delete(_ context.Context, _ int64) error                { return nil }
func (f *fakeOfferStore) IncrementStats(_ context.Context, _ int64, _ bool) error {
	return nil
}

func testApp(t *testing.T, users *fakeUserStore, offerStore *fakeOfferStore) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.AdminID = 99

	pool := postback.NewPool(1, 1)
	t.Cleanup(pool.Stop)

	return &App{
		cfg:      cfg,
		notifier: NewNotifier(0),
		sessions: sessions.New(users, nil),
		offers:   offers.New(offerStore),
		postback: postback.New(postback.NewRunner(nil, time.Second, 100), pool, nil, nil),
		pool:     pool,
	}
}

func TestHandleModeReleasesModeOnBadOfferForm(t *testing.T) {
	users := &fakeUserStore{user: &models.User{ID: 99, Mode: models.ModeAwaitOfferCreate}}
	app := testApp(t, users, &fakeOfferStore{})

	c := &stubContext{
		sender: &tele.User{ID: 99},
		chat:   &tele.Chat{ID: 99},
		text:   "definitely not a keyed form",
	}
	require.True(t, app.InMode(c))
	require.NoError(t, app.HandleMode(c))

	assert.Equal(t, models.ModeNone, users.user.Mode,
		"mode must be none after a validation failure")
	assert.Empty(t, users.setCalls, "no mode may be written back after release")
	require.NotEmpty(t, c.sent)
	assert.Contains(t, c.sent[len(c.sent)-1], "Reopen the offers panel")
	assert.False(t, app.InMode(c))
}

func TestHandleModeReleasesModeOnBadTrackingLink(t *testing.T) {
	offer := &models.Offer{
		ID:        3,
		Name:      "promo",
		Templates: []string{"https://cb.test/?tid=$clickid"},
		Delays:    []int64{0},
		Enabled:   true,
	}
	users := &fakeUserStore{user: &models.User{
		ID:      7,
		Mode:    models.ModeAwaitOfferSubmit,
		Context: models.ModeContext{OfferID: 3},
	}}
	app := testApp(t, users, &fakeOfferStore{offer: offer})

	c := &stubContext{
		sender: &tele.User{ID: 7},
		chat:   &tele.Chat{ID: 7},
		text:   "https://x.test/?cid=missing-token",
	}
	require.True(t, app.InMode(c))
	require.NoError(t, app.HandleMode(c))

	assert.Equal(t, models.ModeNone, users.user.Mode)
	assert.Empty(t, users.setCalls)
	assert.False(t, app.InMode(c))
}
