package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounters mirrors the upsert semantics of the daily_counters table:
// one row per (user, category), count resets when the stored day changes.
type fakeCounters struct {
	rows   map[string]fakeRow
	getErr error
}

type fakeRow struct {
	day   string
	count int
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{rows: map[string]fakeRow{}}
}

func key(userID int64, category string) string {
	return fmt.Sprintf("%d/%s", userID, category)
}

func (f *fakeCounters) Get(_ context.Context, userID int64, category string, today time.Time) (int, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	row, ok := f.rows[key(userID, category)]
	if !ok || row.day != today.UTC().Format("2006-01-02") {
		return 0, nil
	}
	return row.count, nil
}

func (f *fakeCounters) Increment(_ context.Context, userID int64, category string, today time.Time) (int, error) {
	day := today.UTC().Format("2006-01-02")
	row, ok := f.rows[key(userID, category)]
	if !ok || row.day != day {
		row = fakeRow{day: day, count: 1}
	} else {
		row.count++
	}
	f.rows[key(userID, category)] = row
	return row.count, nil
}

func TestCanActFreshUserAllowed(t *testing.T) {
	svc := New(newFakeCounters(), map[string]int{CategoryHelp: 2})

	allowed, reason, err := svc.CanAct(context.Background(), 1001, CategoryHelp)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Empty(t, reason)
}

func TestDailyLimitDenies(t *testing.T) {
	ctx := context.Background()
	svc := New(newFakeCounters(), map[string]int{CategoryHelp: 2})

	for i := 0; i < 2; i++ {
		allowed, _, err := svc.CanAct(ctx, 1001, CategoryHelp)
		require.NoError(t, err)
		require.True(t, allowed)
		require.NoError(t, svc.RecordAction(ctx, 1001, CategoryHelp))
	}

	allowed, reason, err := svc.CanAct(ctx, 1001, CategoryHelp)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Contains(t, reason, "daily limit")
}

func TestCounterRollsOverAtMidnightUTC(t *testing.T) {
	ctx := context.Background()
	store := newFakeCounters()
	svc := New(store, map[string]int{CategoryHelp: 2})

	day1 := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	svc.now = func() time.Time { return day1 }
	require.NoError(t, svc.RecordAction(ctx, 1001, CategoryHelp))
	require.NoError(t, svc.RecordAction(ctx, 1001, CategoryHelp))

	allowed, _, err := svc.CanAct(ctx, 1001, CategoryHelp)
	require.NoError(t, err)
	assert.False(t, allowed)

	svc.now = func() time.Time { return day1.Add(20 * time.Minute) }
	allowed, _, err = svc.CanAct(ctx, 1001, CategoryHelp)
	require.NoError(t, err)
	assert.True(t, allowed, "new UTC day resets the quota")
}

func TestUnlimitedCategoryAlwaysAllowed(t *testing.T) {
	svc := New(newFakeCounters(), map[string]int{CategoryHelp: 2})
	allowed, _, err := svc.CanAct(context.Background(), 1001, "browse")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestStoreErrorDenies(t *testing.T) {
	store := newFakeCounters()
	store.getErr = errors.New("connection refused")
	svc := New(store, map[string]int{CategoryHelp: 2})

	allowed, _, err := svc.CanAct(context.Background(), 1001, CategoryHelp)
	require.Error(t, err)
	assert.False(t, allowed)
}
