package usecase

import (
	"context"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

type fakePublisher struct {
	collections []*models.CollectionTrigger
	analyses    []*models.AnalysisTrigger
}

func (f *fakePublisher) PublishCollection(_ context.Context, t *models.CollectionTrigger) error {
	f.collections = append(f.collections, t)
	return nil
}

func (f *fakePublisher) PublishAnalysis(_ context.Context, t *models.AnalysisTrigger) error {
	f.analyses = append(f.analyses, t)
	return nil
}

func TestSchedulerTickPublishesPerExchange(t *testing.T) {
	pub := &fakePublisher{}
	s := NewScheduler(testLogger(t), pub, []string{"binance", "bybit"}, 3)
	s.now = func() time.Time {
		return time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)
	}

	s.tick(context.Background())

	if len(pub.collections) != 2 {
		t.Fatalf("collections = %d, want 2", len(pub.collections))
	}
	if pub.collections[0].Exchange != "binance" || pub.collections[1].Exchange != "bybit" {
		t.Fatalf("unexpected exchanges: %+v", pub.collections)
	}
	if len(pub.analyses) != 0 {
		t.Fatalf("analysis published before daily hour")
	}
}

func TestSchedulerDailyFiresOncePerDay(t *testing.T) {
	pub := &fakePublisher{}
	s := NewScheduler(testLogger(t), pub, []string{"binance"}, 3)

	clock := time.Date(2025, 6, 1, 3, 0, 30, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.tick(context.Background())
	if len(pub.analyses) != 1 {
		t.Fatalf("analyses = %d, want 1", len(pub.analyses))
	}
	if pub.analyses[0].AnalysisType != models.AnalysisDaily {
		t.Fatalf("type = %q", pub.analyses[0].AnalysisType)
	}

	// Later ticks the same day stay quiet.
	clock = clock.Add(time.Minute)
	s.tick(context.Background())
	clock = clock.Add(5 * time.Hour)
	s.tick(context.Background())
	if len(pub.analyses) != 1 {
		t.Fatalf("analyses = %d after same-day ticks, want 1", len(pub.analyses))
	}

	// Next day fires again once the hour passes.
	clock = clock.AddDate(0, 0, 1)
	s.tick(context.Background())
	if len(pub.analyses) != 2 {
		t.Fatalf("analyses = %d next day, want 2", len(pub.analyses))
	}
}

func TestSchedulerDailyWaitsForHour(t *testing.T) {
	pub := &fakePublisher{}
	s := NewScheduler(testLogger(t), pub, nil, 3)

	clock := time.Date(2025, 6, 1, 2, 59, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.tick(context.Background())
	if len(pub.analyses) != 0 {
		t.Fatalf("analysis fired before configured hour")
	}

	clock = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	s.tick(context.Background())
	if len(pub.analyses) != 1 {
		t.Fatalf("analyses = %d at configured hour, want 1", len(pub.analyses))
	}
}
