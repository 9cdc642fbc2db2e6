// Package postback drives the sequential outbound callback engine: ordered
// HTTP calls with per-step delays, partial-failure tracking and progress
// reporting back to the user.
package postback

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/models"
)

// ProgressSink receives run progress for user-facing notifications.
// Implementations must not block for long; they run on the worker goroutine.
type ProgressSink interface {
	StepCompleted(ctx context.Context, step models.StepResult, totalSteps int)
	Waiting(ctx context.Context, nextStep int, delay time.Duration)
	RunFinished(ctx context.Context, sub *models.Submission)
}

// Runner executes one orchestration sequence at a time. Steps run strictly
// in order; a failed step never aborts the sequence.
type Runner struct {
	client    *http.Client
	timeout   time.Duration
	bodyLimit int

	// waitFn pauses between steps; replaced in tests.
	waitFn func(ctx context.Context, d time.Duration) error
}

// NewRunner builds a runner with the given per-step timeout and response
// body cap in characters.
func NewRunner(client *http.Client, timeout time.Duration, bodyLimit int) *Runner {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if bodyLimit <= 0 {
		bodyLimit = 500
	}
	return &Runner{
		client:    client,
		timeout:   timeout,
		bodyLimit: bodyLimit,
		waitFn:    waitTimer,
	}
}

// Run substitutes the token into every template, calls each URL in order
// and reports progress. Delays are expressed in seconds and applied after
// the corresponding step; the final step's delay is skipped. The returned
// elapsed total is call latency plus applied delays.
func (r *Runner) Run(ctx context.Context, token string, templates []string, delays []int64, sink ProgressSink) ([]models.StepResult, bool, time.Duration) {
	results := make([]models.StepResult, 0, len(templates))
	allSuccess := true
	var total time.Duration

	for i, tpl := range templates {
		callURL := SubstituteToken(tpl, token)
		res := r.callOnce(ctx, i, callURL)
		total += res.Elapsed
		if !res.Success {
			allSuccess = false
		}
		results = append(results, res)

		stepsTotal.WithLabelValues(stepLabel(res)).Inc()
		stepSeconds.Observe(res.Elapsed.Seconds())
		logger.SVCPostback.InfoContext(ctx, "postback_step",
			"status", stepStatus(res),
			"step", i+1,
			"steps", len(templates),
			"http_status", res.HTTPStatus,
			"duration", res.Elapsed,
		)
		if sink != nil {
			sink.StepCompleted(ctx, res, len(templates))
		}

		if i == len(templates)-1 {
			break
		}
		delay := time.Duration(delays[i]) * time.Second
		if delay <= 0 {
			continue
		}
		if sink != nil {
			sink.Waiting(ctx, i+2, delay)
		}
		if err := r.waitFn(ctx, delay); err != nil {
			// Cancelled mid-delay: remaining steps are not attempted and
			// the run is recorded as-is.
			allSuccess = false
			logger.SVCPostback.WarnContext(ctx, "postback_wait",
				"status", "cancelled", "step", i+1, "err", err)
			break
		}
		total += delay
	}

	return results, allSuccess, total
}

func (r *Runner) callOnce(ctx context.Context, index int, callURL string) models.StepResult {
	res := models.StepResult{Index: index, URL: callURL}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, callURL, nil)
	if err != nil {
		res.Elapsed = logger.Took(start)
		res.Reason = models.FailOther
		res.Body = err.Error()
		return res
	}

	resp, err := r.client.Do(req)
	res.Elapsed = logger.Took(start)
	if err != nil {
		res.Reason = classify(err)
		res.Body = logger.SanitizeLimit(err.Error(), r.bodyLimit)
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	// Any response counts as delivered, whatever the status code says.
	res.Success = true
	res.HTTPStatus = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, int64(r.bodyLimit)*4))
	res.Body = logger.SanitizeLimit(string(body), r.bodyLimit)
	return res
}

// classify maps a transport error to its typed failure reason.
func classify(err error) models.FailReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.FailTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return models.FailConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.FailConnection
	}
	return models.FailOther
}

func stepLabel(res models.StepResult) string {
	if res.Success {
		return "succeeded"
	}
	return string(res.Reason)
}

func stepStatus(res models.StepResult) string {
	if res.Success {
		return "ok"
	}
	return "fail"
}

// waitTimer blocks for d using a cancellable timer rather than a sleep.
func waitTimer(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
