package offers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/offerbot/models"
)

// fakeOffers keeps offers in memory with atomic stat increments, mirroring
// the Postgres repository contract.
type fakeOffers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Offer
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{nextID: 1, rows: map[int64]*models.Offer{}}
}

func (f *fakeOffers) Create(_ context.Context, o *models.Offer) (*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	cp.ID = f.nextID
	f.nextID++
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeOffers) Get(_ context.Context, id int64) (*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOffers) List(_ context.Context, enabledOnly bool) ([]models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Offer
	for id := int64(1); id < f.nextID; id++ {
		o, ok := f.rows[id]
		if !ok || (enabledOnly && !o.Enabled) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOffers) Update(_ context.Context, o *models.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[o.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *o
	f.rows[o.ID] = &cp
	return nil
}

func (f *fakeOffers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeOffers) IncrementStats(_ context.Context, id int64, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return models.ErrNotFound
	}
	o.SubmissionCount++
	if success {
		o.SuccessCount++
	}
	return nil
}

func validTemplates(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "https://cb.test/?tid=$clickid"
	}
	return out
}

func TestCreateValidOffer(t *testing.T) {
	svc := New(newFakeOffers())
	o, err := svc.Create(context.Background(), "Summer promo", "https://track.test/land",
		validTemplates(2), []int64{0, 30})
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.ID)
	assert.True(t, o.Enabled)
	assert.Equal(t, 2, o.Steps())
}

func TestCreateRejectsCountViolations(t *testing.T) {
	svc := New(newFakeOffers())
	ctx := context.Background()

	_, err := svc.Create(ctx, "x", "", nil, nil)
	assert.True(t, models.IsValidation(err), "zero templates rejected")

	_, err = svc.Create(ctx, "x", "", validTemplates(6), make([]int64, 6))
	assert.True(t, models.IsValidation(err), "more than five templates rejected")

	_, err = svc.Create(ctx, "x", "", validTemplates(2), []int64{0})
	assert.True(t, models.IsValidation(err), "delay count must match template count")
}

func TestCreateRejectsMissingPlaceholder(t *testing.T) {
	svc := New(newFakeOffers())
	_, err := svc.Create(context.Background(), "x", "",
		[]string{"https://cb.test/?tid=static"}, []int64{0})
	assert.True(t, models.IsValidation(err))
}

func TestUpdateRevalidatesCounts(t *testing.T) {
	svc := New(newFakeOffers())
	ctx := context.Background()
	o, err := svc.Create(ctx, "x", "", validTemplates(2), []int64{0, 5})
	require.NoError(t, err)

	_, err = svc.Update(ctx, o.ID, UpdateFields{Templates: validTemplates(3)})
	assert.True(t, models.IsValidation(err), "templates changed without matching delays")

	upd, err := svc.Update(ctx, o.ID, UpdateFields{
		Templates: validTemplates(3),
		Delays:    []int64{0, 5, 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, upd.Steps())
}

func TestUpdateMissingOffer(t *testing.T) {
	svc := New(newFakeOffers())
	name := "y"
	_, err := svc.Update(context.Background(), 404, UpdateFields{Name: &name})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListEnabledFiltersDisabled(t *testing.T) {
	svc := New(newFakeOffers())
	ctx := context.Background()
	o1, err := svc.Create(ctx, "a", "", validTemplates(1), []int64{0})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "b", "", validTemplates(1), []int64{0})
	require.NoError(t, err)

	off := false
	_, err = svc.Update(ctx, o1.ID, UpdateFields{Enabled: &off})
	require.NoError(t, err)

	enabled, err := svc.ListEnabled(ctx)
	require.NoError(t, err)
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 1)
	assert.Len(t, all, 2)
}

func TestIncrementStatsConcurrent(t *testing.T) {
	store := newFakeOffers()
	svc := New(store)
	ctx := context.Background()
	o, err := svc.Create(ctx, "x", "", validTemplates(1), []int64{0})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(success bool) {
			defer wg.Done()
			_ = svc.IncrementStats(ctx, o.ID, success)
		}(i%2 == 0)
	}
	wg.Wait()

	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.SubmissionCount)
	assert.Equal(t, int64(25), got.SuccessCount)
}

func TestParseForm(t *testing.T) {
	f, err := ParseForm(`
name: Summer promo
link: https://track.test/land
pb: https://cb.test/?tid=$clickid 0
pb: https://cb2.test/?tid=$clickid 30
`)
	require.NoError(t, err)
	assert.Equal(t, "Summer promo", f.Name)
	assert.Equal(t, "https://track.test/land", f.LinkPattern)
	assert.Equal(t, []string{"https://cb.test/?tid=$clickid", "https://cb2.test/?tid=$clickid"}, f.Templates)
	assert.Equal(t, []int64{0, 30}, f.Delays)
}

func TestParseFormDefaultsDelayToZero(t *testing.T) {
	f, err := ParseForm("name: x\npb: https://cb.test/?tid=$clickid")
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, f.Delays)
}

func TestParseFormRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing name":    "pb: https://cb.test/?tid=$clickid 0",
		"missing pb":      "name: x",
		"unknown key":     "name: x\nfoo: bar\npb: https://cb.test/?tid=$clickid 0",
		"negative delay":  "name: x\npb: https://cb.test/?tid=$clickid -5",
		"malformed delay": "name: x\npb: https://cb.test/?tid=$clickid soon",
		"no colon":        "name x",
	}
	for name, input := range cases {
		_, err := ParseForm(input)
		assert.True(t, models.IsValidation(err), name)
	}
}
