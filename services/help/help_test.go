package help

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/offerbot/models"
)

type fakeStore struct {
	nextID int64
	rows   map[int64]*models.HelpRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, rows: map[int64]*models.HelpRequest{}}
}

func (f *fakeStore) Create(_ context.Context, userID int64, message string) (int64, error) {
	id := f.nextID
	f.nextID++
	f.rows[id] = &models.HelpRequest{
		ID: id, UserID: userID, Message: message,
		Status: models.HelpPending, CreatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (*models.HelpRequest, error) {
	h, ok := f.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeStore) ListPending(_ context.Context, _ int) ([]models.HelpRequest, error) {
	var out []models.HelpRequest
	for id := int64(1); id < f.nextID; id++ {
		if h, ok := f.rows[id]; ok && h.Status == models.HelpPending {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeStore) Resolve(_ context.Context, id int64, reply string) error {
	h, ok := f.rows[id]
	if !ok || h.Status != models.HelpPending {
		return models.ErrNotFound
	}
	now := time.Now()
	h.Status = models.HelpResolved
	h.Reply = reply
	h.RepliedAt = &now
	return nil
}

func (f *fakeStore) CountPending(ctx context.Context) (int64, error) {
	pending, err := f.ListPending(ctx, 0)
	return int64(len(pending)), err
}

type limiterStub struct {
	allowed  bool
	recorded int
}

func (l *limiterStub) CanAct(context.Context, int64, string) (bool, string, error) {
	return l.allowed, "daily limit of 2 reached", nil
}

func (l *limiterStub) RecordAction(context.Context, int64, string) error {
	l.recorded++
	return nil
}

func TestRequestStoresAndRecords(t *testing.T) {
	store := newFakeStore()
	lim := &limiterStub{allowed: true}
	svc := New(store, lim)

	id, err := svc.Request(context.Background(), 42, "my payout is stuck")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 1, lim.recorded, "quota recorded once per accepted request")

	pending, err := svc.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.HelpPending, pending[0].Status)
}

func TestRequestDeniedOverQuota(t *testing.T) {
	store := newFakeStore()
	lim := &limiterStub{allowed: false}
	svc := New(store, lim)

	_, err := svc.Request(context.Background(), 42, "again")
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Zero(t, lim.recorded)
	assert.Empty(t, store.rows, "denied requests are not stored")
}

func TestRequestRejectsEmptyMessage(t *testing.T) {
	svc := New(newFakeStore(), &limiterStub{allowed: true})
	_, err := svc.Request(context.Background(), 42, "   ")
	assert.True(t, models.IsValidation(err))
}

func TestReplyResolvesOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := New(store, &limiterStub{allowed: true})

	id, err := svc.Request(ctx, 42, "question")
	require.NoError(t, err)

	req, err := svc.Reply(ctx, id, "answer")
	require.NoError(t, err)
	assert.Equal(t, models.HelpResolved, req.Status)
	assert.Equal(t, "answer", req.Reply)
	assert.Equal(t, int64(42), req.UserID)

	_, err = svc.Reply(ctx, id, "second answer")
	assert.ErrorIs(t, err, models.ErrNotFound, "a resolved request cannot be replied to again")
}

func TestReplyMissingRequest(t *testing.T) {
	svc := New(newFakeStore(), &limiterStub{allowed: true})
	_, err := svc.Reply(context.Background(), 404, "answer")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
