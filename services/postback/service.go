package postback

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/offerbot/core/logger"
	"github.com/m3rciful/offerbot/models"
)

// SubmissionStore persists completed run records.
type SubmissionStore interface {
	Create(ctx context.Context, s *models.Submission) (int64, error)
}

// StatsIncrementer advances offer run totals atomically.
type StatsIncrementer interface {
	IncrementStats(ctx context.Context, id int64, success bool) error
}

// Service ties the runner, the worker pool and persistence together. Each
// accepted submission produces exactly one Submission record and one stat
// increment, no matter how the individual steps fare.
type Service struct {
	runner *Runner
	pool   *Pool
	subs   SubmissionStore
	stats  StatsIncrementer
}

// New builds the orchestration service.
func New(runner *Runner, pool *Pool, subs SubmissionStore, stats StatsIncrementer) *Service {
	return &Service{runner: runner, pool: pool, subs: subs, stats: stats}
}

// Submit validates the tracking link and schedules the run on the pool.
// Returns a ValidationError for a bad link, ErrQueueFull under saturation;
// otherwise the run proceeds asynchronously, reporting through sink.
func (s *Service) Submit(ctx context.Context, userID int64, offer *models.Offer, rawURL string, sink ProgressSink) error {
	if offer.LinkPattern != "" && !strings.HasPrefix(rawURL, offer.LinkPattern) {
		return models.NewValidationError("link",
			"the link must start with %s", offer.LinkPattern)
	}
	token, err := ExtractToken(rawURL)
	if err != nil {
		return err
	}
	err = s.pool.Submit(ctx, func(ctx context.Context) {
		s.execute(ctx, userID, offer, rawURL, token, sink)
	})
	if err != nil {
		return err
	}
	logger.SVCPostback.InfoContext(ctx, "run_queued",
		"status", "ok", "offer_id", offer.ID, "steps", offer.Steps())
	return nil
}

func (s *Service) execute(ctx context.Context, userID int64, offer *models.Offer, rawURL, token string, sink ProgressSink) {
	start := time.Now()
	results, allSuccess, elapsed := s.runner.Run(ctx, token, offer.Templates, offer.Delays, sink)

	sub := &models.Submission{
		PublicID:   uuid.NewString(),
		UserID:     userID,
		OfferID:    offer.ID,
		RawURL:     rawURL,
		Token:      token,
		Steps:      results,
		AllSuccess: allSuccess,
		Elapsed:    elapsed,
	}

	id, err := s.subs.Create(ctx, sub)
	if err != nil {
		logger.SVCPostback.ErrorContext(ctx, "submission_write",
			"status", "fail", "offer_id", offer.ID, "err", err)
	} else {
		sub.ID = id
	}

	if err := s.stats.IncrementStats(ctx, offer.ID, allSuccess); err != nil {
		logger.SVCPostback.ErrorContext(ctx, "stat_increment",
			"status", "fail", "offer_id", offer.ID, "err", err)
	}

	runsTotal.WithLabelValues(outcomeLabel(allSuccess)).Inc()
	logger.SVCPostback.InfoContext(ctx, "run_finished",
		"status", logger.Status(outcomeToStatus(allSuccess)),
		"offer_id", offer.ID,
		"submission_id", sub.ID,
		"run_id", sub.PublicID,
		"steps", len(results),
		"duration", logger.Took(start),
	)

	if sink != nil {
		sink.RunFinished(ctx, sub)
	}
}

func outcomeLabel(allSuccess bool) string {
	if allSuccess {
		return "success"
	}
	return "partial"
}

func outcomeToStatus(allSuccess bool) string {
	if allSuccess {
		return "ok"
	}
	return "fail"
}
