package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

type fakeCollector struct {
	calls []string
	err   error
}

func (f *fakeCollector) Collect(_ context.Context, exchange string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.calls = append(f.calls, exchange)
	return 3, nil
}

type fakeLimiter struct {
	skip     bool
	recorded []string
}

func (f *fakeLimiter) ShouldSkip(_ context.Context, _ string) bool {
	return f.skip
}

func (f *fakeLimiter) RecordRun(_ context.Context, exchange string) {
	f.recorded = append(f.recorded, exchange)
}

type fakeLabeler struct {
	runs     int
	cleanups int
	err      error
}

func (f *fakeLabeler) Run(_ context.Context, _ *models.AnalysisTrigger) ([]*models.ProfitableMarketLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.runs++
	return nil, nil
}

func (f *fakeLabeler) Cleanup(_ context.Context) (int64, error) {
	f.cleanups++
	return 0, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

// rawPayload round-trips a trigger through JSON the way the queue does.
func rawPayload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func TestCollectionJobHappyPath(t *testing.T) {
	collector := &fakeCollector{}
	limiter := &fakeLimiter{}
	job := NewCollectionJob(testLogger(t), collector, limiter)

	trigger := models.NewCollectionTrigger("binance")
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(collector.calls) != 1 || collector.calls[0] != "binance" {
		t.Errorf("collector calls = %v, want [binance]", collector.calls)
	}
	if len(limiter.recorded) != 1 {
		t.Errorf("limiter recorded %d runs, want 1", len(limiter.recorded))
	}
}

func TestCollectionJobDropsExpired(t *testing.T) {
	collector := &fakeCollector{}
	job := NewCollectionJob(testLogger(t), collector, &fakeLimiter{})
	job.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	trigger := models.NewCollectionTrigger("binance")
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(collector.calls) != 0 {
		t.Error("expired trigger must not reach the collector")
	}
}

func TestCollectionJobSkipsWhenRateLimited(t *testing.T) {
	collector := &fakeCollector{}
	limiter := &fakeLimiter{skip: true}
	job := NewCollectionJob(testLogger(t), collector, limiter)

	trigger := models.NewCollectionTrigger("binance")
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(collector.calls) != 0 {
		t.Error("rate-limited trigger must not reach the collector")
	}
	if len(limiter.recorded) != 0 {
		t.Error("skipped cycle must not record a run")
	}
}

func TestCollectionJobInvalidPayloadNotRetried(t *testing.T) {
	job := NewCollectionJob(testLogger(t), &fakeCollector{}, &fakeLimiter{})

	// Missing the required exchange field.
	trigger := &models.CollectionTrigger{TriggerMessage: models.NewTriggerMessage(models.MessageTypeCollection)}
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err != nil {
		t.Fatalf("invalid payload must return nil (no retry), got %v", err)
	}
}

func TestCollectionJobPropagatesCollectError(t *testing.T) {
	collector := &fakeCollector{err: errors.New("exchange down")}
	limiter := &fakeLimiter{}
	job := NewCollectionJob(testLogger(t), collector, limiter)

	trigger := models.NewCollectionTrigger("binance")
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err == nil {
		t.Fatal("collect errors must propagate so the queue can retry")
	}
	if len(limiter.recorded) != 0 {
		t.Error("failed cycle must not record a run")
	}
}

func TestAnalysisJobHappyPath(t *testing.T) {
	labeler := &fakeLabeler{}
	job := NewAnalysisJob(testLogger(t), labeler)

	trigger := models.NewAnalysisTrigger(models.AnalysisOnDemand, "", "")
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if labeler.runs != 1 {
		t.Errorf("labeler runs = %d, want 1", labeler.runs)
	}
	if labeler.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", labeler.cleanups)
	}
}

func TestAnalysisJobDropsExpired(t *testing.T) {
	labeler := &fakeLabeler{}
	job := NewAnalysisJob(testLogger(t), labeler)
	job.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	trigger := models.NewAnalysisTrigger(models.AnalysisDaily, "", "")
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if labeler.runs != 0 {
		t.Error("expired trigger must not start a labeling run")
	}
}

func TestAnalysisJobRejectsUnknownType(t *testing.T) {
	labeler := &fakeLabeler{}
	job := NewAnalysisJob(testLogger(t), labeler)

	trigger := models.NewAnalysisTrigger("weekly", "", "")
	if err := job.Handle(context.Background(), rawPayload(t, trigger)); err != nil {
		t.Fatalf("invalid payload must return nil (no retry), got %v", err)
	}
	if labeler.runs != 0 {
		t.Error("invalid analysis type must not start a run")
	}
}
