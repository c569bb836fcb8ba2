package usecase

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// Scheduler emits collection triggers once a minute per exchange and one
// daily analysis trigger at a fixed UTC hour. The per-exchange rate limiter
// downstream decides whether a minute tick actually collects, so the tick
// cadence stays dumb on purpose.
type Scheduler struct {
	logger    *logger.Logger
	publisher domrepo.TriggerPublisher
	exchanges []string
	dailyHour int

	mu          sync.Mutex
	lastDailyAt time.Time

	now func() time.Time
}

func NewScheduler(lgr *logger.Logger, publisher domrepo.TriggerPublisher, exchanges []string, dailyHourUTC int) *Scheduler {
	if dailyHourUTC < 0 || dailyHourUTC > 23 {
		dailyHourUTC = 3
	}
	return &Scheduler{
		logger:    lgr,
		publisher: publisher,
		exchanges: exchanges,
		dailyHour: dailyHourUTC,
		now:       time.Now,
	}
}

// Run ticks until the context is cancelled. It blocks.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		logger.Strings("exchanges", s.exchanges),
		logger.Int("daily_hour_utc", s.dailyHour))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, name := range s.exchanges {
		trigger := models.NewCollectionTrigger(name)
		if err := s.publisher.PublishCollection(ctx, trigger); err != nil {
			s.logger.Error("publish collection trigger failed",
				logger.String("exchange", name),
				logger.Error(err))
		}
	}

	if s.dailyDue() {
		trigger := models.NewAnalysisTrigger(models.AnalysisDaily, "", "")
		if err := s.publisher.PublishAnalysis(ctx, trigger); err != nil {
			s.logger.Error("publish analysis trigger failed", logger.Error(err))
			return
		}
		s.logger.Info("daily analysis trigger published")
	}
}

// dailyDue fires once per UTC day, on the first tick at or after the
// configured hour.
func (s *Scheduler) dailyDue() bool {
	now := s.now().UTC()
	if now.Hour() < s.dailyHour {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	today := now.Truncate(24 * time.Hour)
	if !s.lastDailyAt.Before(today) {
		return false
	}
	s.lastDailyAt = today
	return true
}
