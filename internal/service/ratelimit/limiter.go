// Package ratelimit spaces collection cycles per exchange. The last-run
// timestamp lives in the shared cache so every worker instance sees the same
// state; a limiter failure never blocks collection.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"MarketPulse/pkg/cache"
	"MarketPulse/pkg/logger"
)

const (
	keyPrefix = "market-logs:last-run:"
	stateTTL  = 24 * time.Hour
)

// Limiter tracks the last successful collection per exchange.
type Limiter struct {
	logger   *logger.Logger
	cache    cache.Service
	interval time.Duration

	now func() time.Time
}

// New creates a limiter with the given minimum interval between runs.
func New(lgr *logger.Logger, c cache.Service, interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	return &Limiter{
		logger:   lgr,
		cache:    c,
		interval: interval,
		now:      time.Now,
	}
}

// ShouldSkip reports whether a collection cycle for the exchange ran within
// the configured interval. Cache errors fail open.
func (l *Limiter) ShouldSkip(ctx context.Context, exchange string) bool {
	lastRun, ok := l.lastRun(ctx, exchange)
	if !ok {
		return false
	}
	return l.now().Sub(lastRun) < l.interval
}

// RecordRun stores now as the exchange's last successful run.
func (l *Limiter) RecordRun(ctx context.Context, exchange string) {
	millis := l.now().UnixMilli()
	if err := l.cache.Set(ctx, l.key(exchange), strconv.FormatInt(millis, 10), stateTTL); err != nil {
		l.logger.Warn("rate limiter state write failed",
			logger.String("exchange", exchange),
			logger.Error(err))
	}
}

// TimeUntilNext returns how long until the exchange may collect again.
// Zero means a run is allowed now.
func (l *Limiter) TimeUntilNext(ctx context.Context, exchange string) time.Duration {
	lastRun, ok := l.lastRun(ctx, exchange)
	if !ok {
		return 0
	}
	remaining := l.interval - l.now().Sub(lastRun)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clear drops the exchange's last-run state, releasing a stuck limiter.
func (l *Limiter) Clear(ctx context.Context, exchange string) error {
	return l.cache.Delete(ctx, l.key(exchange))
}

// Interval exposes the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

func (l *Limiter) lastRun(ctx context.Context, exchange string) (time.Time, bool) {
	var raw string
	err := l.cache.Get(ctx, l.key(exchange), &raw)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.logger.Warn("rate limiter state read failed, failing open",
				logger.String("exchange", exchange),
				logger.Error(err))
		}
		return time.Time{}, false
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		l.logger.Warn("rate limiter state corrupt, failing open",
			logger.String("exchange", exchange),
			logger.String("value", raw))
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

func (l *Limiter) key(exchange string) string {
	return keyPrefix + strings.ToLower(exchange)
}
