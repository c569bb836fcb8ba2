// Package jobs adapts the usecases to the Redis queue's Job contract.
package jobs

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/queue"
)

// Collector runs one collection cycle for an exchange.
type Collector interface {
	Collect(ctx context.Context, exchange string) (int, error)
}

// RateLimiter spaces collection cycles per exchange.
type RateLimiter interface {
	ShouldSkip(ctx context.Context, exchange string) bool
	RecordRun(ctx context.Context, exchange string)
}

// CollectionJob consumes collection triggers: it drops expired messages,
// consults the rate limiter, runs one collection cycle, and records the run.
type CollectionJob struct {
	logger    *logger.Logger
	collector Collector
	limiter   RateLimiter

	now func() time.Time
}

func NewCollectionJob(lgr *logger.Logger, collector Collector, limiter RateLimiter) *CollectionJob {
	return &CollectionJob{
		logger:    lgr,
		collector: collector,
		limiter:   limiter,
		now:       time.Now,
	}
}

func (j *CollectionJob) Name() string {
	return "market-log-collection"
}

func (j *CollectionJob) Type() string {
	return models.MessageTypeCollection
}

func (j *CollectionJob) Handle(ctx context.Context, payload interface{}) error {
	trigger, err := queue.ParsePayload[models.CollectionTrigger](payload)
	if err != nil {
		// Malformed payloads are fatal for this job only, never retried.
		j.logger.Error("collection trigger malformed", logger.Error(err))
		return nil
	}

	if err := http.Validate(trigger); err != nil {
		j.logger.Error("collection trigger invalid",
			logger.Any("trigger", trigger),
			logger.Error(err))
		return nil
	}

	if trigger.Expired(j.now()) {
		j.logger.Warn("collection trigger expired, dropping",
			logger.String("exchange", trigger.Exchange),
			logger.String("expired_at", trigger.ExpiresAt.Format(time.RFC3339)))
		return nil
	}

	if j.limiter.ShouldSkip(ctx, trigger.Exchange) {
		j.logger.Debug("collection skipped by rate limiter",
			logger.String("exchange", trigger.Exchange))
		return nil
	}

	count, err := j.collector.Collect(ctx, trigger.Exchange)
	if err != nil {
		return err
	}

	j.limiter.RecordRun(ctx, trigger.Exchange)
	j.logger.Info("collection job done",
		logger.String("exchange", trigger.Exchange),
		logger.Int("snapshots", count))
	return nil
}
