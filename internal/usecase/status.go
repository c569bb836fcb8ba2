package usecase

import (
	"context"
	"sort"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/pkg/logger"
)

// StatusUseCase exposes the operational collection surface: per-exchange
// limiter state and the ability to release a stuck limiter entry.
type StatusUseCase struct {
	logger   *logger.Logger
	registry ExchangeResolver
	limiter  *ratelimit.Limiter
}

func NewStatusUseCase(lgr *logger.Logger, registry ExchangeResolver, limiter *ratelimit.Limiter) *StatusUseCase {
	return &StatusUseCase{
		logger:   lgr,
		registry: registry,
		limiter:  limiter,
	}
}

// Status reports limiter state for every registered exchange.
func (uc *StatusUseCase) Status(ctx context.Context) *models.CollectionStats {
	names := uc.registry.Names()
	sort.Strings(names)

	statuses := make([]models.ExchangeStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, uc.exchangeStatus(ctx, name))
	}

	interval := uc.limiter.Interval()
	return &models.CollectionStats{
		CollectionIntervalMinutes: int(interval.Minutes()),
		CollectionIntervalMs:      interval.Milliseconds(),
		Exchanges:                 statuses,
		Timestamp:                 time.Now().UTC().Format(time.RFC3339),
	}
}

// StatusFor reports limiter state for one exchange.
func (uc *StatusUseCase) StatusFor(ctx context.Context, name string) (models.ExchangeStatus, error) {
	if _, err := uc.registry.Get(name); err != nil {
		return models.ExchangeStatus{}, err
	}
	return uc.exchangeStatus(ctx, name), nil
}

// ClearLimit drops the rate-limit entry so the next trigger collects
// immediately.
func (uc *StatusUseCase) ClearLimit(ctx context.Context, name string) error {
	if _, err := uc.registry.Get(name); err != nil {
		return err
	}
	if err := uc.limiter.Clear(ctx, name); err != nil {
		return err
	}
	uc.logger.Info("rate limit cleared", logger.String("exchange", name))
	return nil
}

func (uc *StatusUseCase) exchangeStatus(ctx context.Context, name string) models.ExchangeStatus {
	remaining := uc.limiter.TimeUntilNext(ctx, name)
	return models.ExchangeStatus{
		Name:                           name,
		TimeUntilNextCollectionMs:      remaining.Milliseconds(),
		TimeUntilNextCollectionMinutes: int64(remaining.Minutes()),
		CanCollectNow:                  remaining == 0,
	}
}
