package postback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/offerbot/models"
)

type sinkRecorder struct {
	mu       sync.Mutex
	steps    []models.StepResult
	waits    []time.Duration
	finished []*models.Submission
}

func (s *sinkRecorder) StepCompleted(_ context.Context, step models.StepResult, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step)
}

func (s *sinkRecorder) Waiting(_ context.Context, _ int, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, delay)
}

func (s *sinkRecorder) RunFinished(_ context.Context, sub *models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, sub)
}

type subStoreStub struct {
	mu   sync.Mutex
	subs []*models.Submission
}

func (s *subStoreStub) Create(_ context.Context, sub *models.Submission) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs = append(s.subs, &cp)
	return int64(len(s.subs)), nil
}

type statsStub struct {
	mu    sync.Mutex
	calls []bool
}

func (s *statsStub) IncrementStats(_ context.Context, _ int64, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, success)
	return nil
}

func instantRunner(client *http.Client, bodyLimit int) *Runner {
	r := NewRunner(client, 2*time.Second, bodyLimit)
	r.waitFn = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("https://x.test/?clickid=abc123&sub=4")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	for name, raw := range map[string]string{
		"empty":       "",
		"no scheme":   "x.test/?clickid=a",
		"no param":    "https://x.test/?cid=a",
		"empty param": "https://x.test/?clickid=",
		"not a url":   "::::",
		"only spaces": "   ",
	} {
		_, err := ExtractToken(raw)
		assert.True(t, models.IsValidation(err), name)
	}
}

func TestRunStepsInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, r.URL.Query().Get("step"))
		mu.Unlock()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	templates := []string{
		srv.URL + "/?step=A&tid=$clickid",
		srv.URL + "/?step=B&tid=$clickid",
		srv.URL + "/?step=C&tid=$clickid",
	}
	sink := &sinkRecorder{}
	r := instantRunner(srv.Client(), 500)
	results, allSuccess, _ := r.Run(context.Background(), "tok", templates, []int64{1, 1, 0}, sink)

	require.Len(t, results, 3)
	assert.True(t, allSuccess)
	assert.Equal(t, []string{"A", "B", "C"}, order)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.True(t, res.Success)
		assert.Equal(t, http.StatusOK, res.HTTPStatus)
	}
	assert.Len(t, sink.steps, 3)
	assert.Len(t, sink.waits, 2, "waiting notice per non-zero inter-step delay")
}

func TestRunContinuesPastFailedStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	templates := []string{
		srv.URL + "/?tid=$clickid",
		"http://127.0.0.1:1/?tid=$clickid", // nothing listens here
		srv.URL + "/?tid=$clickid",
	}
	r := instantRunner(srv.Client(), 500)
	results, allSuccess, _ := r.Run(context.Background(), "tok", templates, []int64{0, 0, 0}, nil)

	require.Len(t, results, 3, "a failed step never aborts the sequence")
	assert.False(t, allSuccess)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, models.FailConnection, results[1].Reason)
	assert.True(t, results[2].Success)
}

func TestRunNon2xxCountsAsDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream sad"))
	}))
	defer srv.Close()

	r := instantRunner(srv.Client(), 500)
	results, allSuccess, _ := r.Run(context.Background(), "tok",
		[]string{srv.URL + "/?tid=$clickid"}, []int64{0}, nil)

	require.Len(t, results, 1)
	assert.True(t, allSuccess, "a received response is success at the transport level")
	assert.Equal(t, http.StatusBadGateway, results[0].HTTPStatus)
	assert.Contains(t, results[0].Body, "upstream sad")
}

func TestRunTruncatesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	r := instantRunner(srv.Client(), 100)
	results, _, _ := r.Run(context.Background(), "tok",
		[]string{srv.URL + "/?tid=$clickid"}, []int64{0}, nil)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Body, 100)
}

func TestRunTimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	r := NewRunner(srv.Client(), 50*time.Millisecond, 500)
	r.waitFn = func(context.Context, time.Duration) error { return nil }
	results, allSuccess, _ := r.Run(context.Background(), "tok",
		[]string{srv.URL + "/?tid=$clickid"}, []int64{0}, nil)

	require.Len(t, results, 1)
	assert.False(t, allSuccess)
	assert.Equal(t, models.FailTimeout, results[0].Reason)
}

func TestEndToEndSubmission(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.URL.String())
		mu.Unlock()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	offer := &models.Offer{
		ID:        7,
		Name:      "promo",
		Templates: []string{srv.URL + "/cb?tid=$clickid"},
		Delays:    []int64{0},
		Enabled:   true,
	}

	subs := &subStoreStub{}
	stats := &statsStub{}
	pool := NewPool(1, 4)
	defer pool.Stop()
	svc := New(instantRunner(srv.Client(), 500), pool, subs, stats)

	sink := &sinkRecorder{}
	err := svc.Submit(context.Background(), 42, offer, "https://x.test/?clickid=abc123", sink)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.finished) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	require.Len(t, calls, 1, "exactly one outbound call")
	assert.Equal(t, "/cb?tid=abc123", calls[0])
	mu.Unlock()

	require.Len(t, subs.subs, 1, "exactly one submission record per run")
	sub := subs.subs[0]
	assert.NotEmpty(t, sub.PublicID)
	assert.Equal(t, "abc123", sub.Token)
	assert.Equal(t, int64(42), sub.UserID)
	assert.Equal(t, int64(7), sub.OfferID)
	assert.True(t, sub.AllSuccess)

	require.Len(t, stats.calls, 1, "exactly one stat increment per run")
	assert.True(t, stats.calls[0])
}

func TestSubmitRejectsBadLink(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Stop()
	svc := New(instantRunner(http.DefaultClient, 500), pool, &subStoreStub{}, &statsStub{})

	err := svc.Submit(context.Background(), 1, &models.Offer{ID: 1}, "https://x.test/?cid=zzz", nil)
	assert.True(t, models.IsValidation(err))
}

func TestSubmitEnforcesLinkPrefix(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Stop()
	svc := New(instantRunner(http.DefaultClient, 500), pool, &subStoreStub{}, &statsStub{})

	offer := &models.Offer{ID: 1, LinkPattern: "https://track.example/"}
	err := svc.Submit(context.Background(), 1, offer, "https://elsewhere.test/?clickid=a", nil)
	assert.True(t, models.IsValidation(err))
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	pool := NewPool(1, 1)
	defer pool.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-block
	}))
	<-started
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {}))

	err := pool.Submit(context.Background(), func(context.Context) {})
	assert.ErrorIs(t, err, ErrQueueFull)
	close(block)
}

func TestPoolStopCancelsInFlightRuns(t *testing.T) {
	pool := NewPool(1, 1)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
	}))
	<-started

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight run was not cancelled by Stop")
	}
	<-done
}

func TestPoolSubmitAfterStopFails(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Stop()

	err := pool.Submit(context.Background(), func(context.Context) {})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrQueueFull)

	// Stop stays idempotent.
	pool.Stop()
}

func TestRunnerDelayHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	templates := []string{
		srv.URL + "/?tid=$clickid",
		srv.URL + "/?tid=$clickid",
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(srv.Client(), time.Second, 500)
	r.waitFn = func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	results, allSuccess, _ := r.Run(ctx, "tok", templates, []int64{60, 0}, nil)

	require.Len(t, results, 1, "cancellation mid-delay stops before the next step")
	assert.False(t, allSuccess)
}
