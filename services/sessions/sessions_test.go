package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/offerbot/models"
)

// fakeUsers keeps user rows in memory with the same contract as the
// Postgres repository, including the NULL-mode lazy migration.
type fakeUsers struct {
	rows map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: map[int64]*models.User{}}
}

func (f *fakeUsers) GetOrCreate(_ context.Context, id int64, displayName, username string) (*models.User, bool, error) {
	if u, ok := f.rows[id]; ok {
		if u.Mode == "" {
			u.Mode = models.ModeNone
		}
		cp := *u
		return &cp, false, nil
	}
	u := &models.User{
		ID:          id,
		DisplayName: displayName,
		Username:    username,
		Mode:        models.ModeNone,
		CreatedAt:   time.Now(),
	}
	f.rows[id] = u
	cp := *u
	return &cp, true, nil
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetMode(_ context.Context, id int64, mode models.Mode, mc models.ModeContext) error {
	u, ok := f.rows[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Mode = mode
	u.Context = mc
	return nil
}

func (f *fakeUsers) ClearMode(ctx context.Context, id int64) error {
	return f.SetMode(ctx, id, models.ModeNone, models.ModeContext{})
}

func TestGetOrCreateNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeUsers()
	var notified []int64
	svc := New(store, func(_ context.Context, u *models.User) {
		notified = append(notified, u.ID)
	})

	_, isNew, err := svc.GetOrCreate(ctx, 42, "Alice", "alice")
	require.NoError(t, err)
	assert.True(t, isNew)

	u, isNew, err := svc.GetOrCreate(ctx, 42, "Alice", "alice")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, models.ModeNone, u.Mode)

	assert.Equal(t, []int64{42}, notified, "new-user notification fires exactly once")
}

func TestLazyModeMigration(t *testing.T) {
	ctx := context.Background()
	store := newFakeUsers()
	store.rows[7] = &models.User{ID: 7, DisplayName: "Legacy"}

	svc := New(store, nil)
	u, isNew, err := svc.GetOrCreate(ctx, 7, "Legacy", "")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, models.ModeNone, u.Mode, "legacy record without mode reads as none")
}

func TestSetModeRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	store := newFakeUsers()
	svc := New(store, nil)
	_, _, err := svc.GetOrCreate(ctx, 1, "A", "a")
	require.NoError(t, err)

	err = svc.SetMode(ctx, 1, models.Mode("awaiting_nothing"), models.ModeContext{})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestSetModeReplacesPrior(t *testing.T) {
	ctx := context.Background()
	store := newFakeUsers()
	svc := New(store, nil)
	_, _, err := svc.GetOrCreate(ctx, 1, "A", "a")
	require.NoError(t, err)

	require.NoError(t, svc.SetMode(ctx, 1, models.ModeAwaitHelpMessage, models.ModeContext{}))
	require.NoError(t, svc.SetMode(ctx, 1, models.ModeAwaitOfferSubmit, models.ModeContext{OfferID: 9}))

	u, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ModeAwaitOfferSubmit, u.Mode)
	assert.Equal(t, int64(9), u.Context.OfferID)
}

func TestTakeModeClearsBeforeReturning(t *testing.T) {
	ctx := context.Background()
	store := newFakeUsers()
	svc := New(store, nil)
	_, _, err := svc.GetOrCreate(ctx, 1, "A", "a")
	require.NoError(t, err)
	require.NoError(t, svc.SetMode(ctx, 1, models.ModeAwaitOfferSubmit, models.ModeContext{OfferID: 3}))

	mode, mc, err := svc.TakeMode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ModeAwaitOfferSubmit, mode)
	assert.Equal(t, int64(3), mc.OfferID)

	u, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ModeNone, u.Mode, "mode is released before the handler runs")
	assert.True(t, u.Context.Empty())
}

func TestTakeModeIdleUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeUsers()
	svc := New(store, nil)
	_, _, err := svc.GetOrCreate(ctx, 1, "A", "a")
	require.NoError(t, err)

	mode, mc, err := svc.TakeMode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ModeNone, mode)
	assert.True(t, mc.Empty())
}
