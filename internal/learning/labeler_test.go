package learning

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

type fakeLogStore struct {
	logs    []*models.MarketLog
	updates map[string]int
}

func (f *fakeLogStore) InsertMany(_ context.Context, logs []*models.MarketLog) error {
	f.logs = append(f.logs, logs...)
	return nil
}

func (f *fakeLogStore) FindBatchSince(_ context.Context, since time.Time, limit, offset int) ([]*models.MarketLog, error) {
	var matched []*models.MarketLog
	for _, l := range f.logs {
		if !l.CreatedAt.Before(since) {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (f *fakeLogStore) FindByAssetInWindow(_ context.Context, asset string, from, to time.Time) ([]*models.MarketLog, error) {
	var matched []*models.MarketLog
	for _, l := range f.logs {
		if l.Asset != asset || l.CreatedAt.Before(from) || l.CreatedAt.After(to) {
			continue
		}
		matched = append(matched, l)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}

func (f *fakeLogStore) UpdateProfitability(_ context.Context, id string, wasProfitable bool, maxChangePercent float64, checkedAt time.Time, timeToReach string) error {
	if f.updates == nil {
		f.updates = make(map[string]int)
	}
	f.updates[id]++
	for _, l := range f.logs {
		if l.ID == id {
			l.WasProfitable = &wasProfitable
			l.MaxPriceChangePercent = maxChangePercent
			l.ProfitabilityCheckedAt = &checkedAt
			l.TimeToReach = timeToReach
		}
	}
	return nil
}

type fakeProfitableStore struct {
	inserted     []*models.ProfitableMarketLog
	deleteCutoff time.Time
	deleted      int64
	deleteErr    error
}

func (f *fakeProfitableStore) InsertMany(_ context.Context, logs []*models.ProfitableMarketLog) error {
	f.inserted = append(f.inserted, logs...)
	return nil
}

func (f *fakeProfitableStore) FindTop(_ context.Context, limit int) ([]*models.ProfitableMarketLog, error) {
	return f.inserted, nil
}

func (f *fakeProfitableStore) FindByAsset(_ context.Context, asset string) ([]*models.ProfitableMarketLog, error) {
	return nil, nil
}

func (f *fakeProfitableStore) FindByDateRange(_ context.Context, start, end time.Time) ([]*models.ProfitableMarketLog, error) {
	return nil, nil
}

func (f *fakeProfitableStore) Stats(_ context.Context) (*models.ProfitableStats, error) {
	return &models.ProfitableStats{}, nil
}

func (f *fakeProfitableStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleteCutoff = cutoff
	return f.deleted, nil
}

type fakeArchive struct {
	rows []models.TrainingVector
}

func (f *fakeArchive) Append(_ context.Context, rows []models.TrainingVector) error {
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeMetrics struct {
	labeled int
	errors  int
}

func (f *fakeMetrics) RecordSnapshot(exchange, asset string)       {}
func (f *fakeMetrics) RecordLabeled(profitable bool)               { f.labeled++ }
func (f *fakeMetrics) RecordError(kind string)                     { f.errors++ }
func (f *fakeMetrics) RecordLastPrice(symbol string, price float64) {}
func (f *fakeMetrics) RecordLatency(op string, seconds float64)    {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func snapshot(id, asset string, price float64, createdAt time.Time) *models.MarketLog {
	return &models.MarketLog{
		ID:           id,
		Market:       "binance",
		Asset:        asset,
		Quote:        "USDT",
		CurrentPrice: price,
		CreatedAt:    createdAt,
	}
}

func newTestLabeler(t *testing.T, store *fakeLogStore, profitable *fakeProfitableStore, archive *fakeArchive, metrics *fakeMetrics, now time.Time) *Labeler {
	t.Helper()
	l := NewLabeler(testLogger(t), store, profitable, archive, metrics, LabelerConfig{
		WindowDays:       2,
		MaxHours:         24,
		ProfitThreshold:  2.0,
		PublishThreshold: 2.5,
		BatchSize:        400,
		RetentionDays:    30,
	})
	l.now = func() time.Time { return now }
	return l
}

func TestLabelerMarksProfitable(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeLogStore{logs: []*models.MarketLog{
		snapshot("s1", "BTC", 100, base),
		snapshot("s2", "BTC", 103, base.Add(2*time.Hour)),
	}}
	profitable := &fakeProfitableStore{}
	metrics := &fakeMetrics{}
	l := newTestLabeler(t, store, profitable, &fakeArchive{}, metrics, base.Add(3*time.Hour))

	published, err := l.Run(context.Background(), models.NewAnalysisTrigger(models.AnalysisDaily, "", ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s1 := store.logs[0]
	if s1.WasProfitable == nil || !*s1.WasProfitable {
		t.Fatal("s1 not labeled profitable")
	}
	if math.Abs(s1.MaxPriceChangePercent-3.0) > 0.01 {
		t.Errorf("maxPriceChangePercent = %v, want 3.0", s1.MaxPriceChangePercent)
	}
	if s1.TimeToReach != "2 hours" {
		t.Errorf("timeToReach = %q, want %q", s1.TimeToReach, "2 hours")
	}

	if len(published) != 1 {
		t.Fatalf("published = %d entries, want 1", len(published))
	}
	if published[0].OriginalLogID != "s1" {
		t.Errorf("published original id = %q, want s1", published[0].OriginalLogID)
	}
	if published[0].ID == "s1" || published[0].ID == "" {
		t.Errorf("published entry must carry a fresh id, got %q", published[0].ID)
	}
	if len(published[0].Vector) != VectorLen {
		t.Errorf("published vector length = %d, want %d", len(published[0].Vector), VectorLen)
	}
	if metrics.labeled == 0 {
		t.Error("labeled metric not recorded")
	}
}

func TestLabelerNegativeMoveCountsAsProfitable(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeLogStore{logs: []*models.MarketLog{
		snapshot("s1", "BTC", 100, base),
		snapshot("s2", "BTC", 96, base.Add(time.Hour)),
	}}
	l := newTestLabeler(t, store, &fakeProfitableStore{}, &fakeArchive{}, &fakeMetrics{}, base.Add(2*time.Hour))

	published, err := l.Run(context.Background(), models.NewAnalysisTrigger(models.AnalysisDaily, "", ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s1 := store.logs[0]
	if s1.WasProfitable == nil || !*s1.WasProfitable {
		t.Fatal("short move not labeled profitable")
	}
	if s1.MaxPriceChangePercent >= 0 {
		t.Errorf("maxPriceChangePercent = %v, want negative (sign preserved)", s1.MaxPriceChangePercent)
	}
	if len(published) != 1 {
		t.Fatalf("published = %d entries, want 1", len(published))
	}
}

func TestLabelerBestPerAsset(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeLogStore{logs: []*models.MarketLog{
		// First pair: 4.0% move within its 24h window.
		snapshot("a1", "ETH", 100, base),
		snapshot("a2", "ETH", 104, base.Add(time.Hour)),
		// Second pair sits outside the first pair's window: 2.1% move.
		snapshot("b1", "ETH", 100, base.Add(26*time.Hour)),
		snapshot("b2", "ETH", 102.1, base.Add(27*time.Hour)),
	}}
	profitable := &fakeProfitableStore{}
	l := newTestLabeler(t, store, profitable, &fakeArchive{}, &fakeMetrics{}, base.Add(28*time.Hour))

	published, err := l.Run(context.Background(), models.NewAnalysisTrigger(models.AnalysisDaily, "", ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	ethCount := 0
	for _, p := range published {
		if p.Asset == "ETH" {
			ethCount++
			if math.Abs(p.MaxPriceChangePercent-4.0) > 0.01 {
				t.Errorf("published ETH change = %v, want 4.0", p.MaxPriceChangePercent)
			}
		}
	}
	if ethCount != 1 {
		t.Fatalf("published %d ETH entries, want exactly 1", ethCount)
	}
}

func TestLabelerPublishThreshold(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	// 2.1% beats the profit threshold but not the stricter publish threshold.
	store := &fakeLogStore{logs: []*models.MarketLog{
		snapshot("s1", "BTC", 100, base),
		snapshot("s2", "BTC", 102.1, base.Add(time.Hour)),
	}}
	profitable := &fakeProfitableStore{}
	l := newTestLabeler(t, store, profitable, &fakeArchive{}, &fakeMetrics{}, base.Add(2*time.Hour))

	published, err := l.Run(context.Background(), models.NewAnalysisTrigger(models.AnalysisDaily, "", ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s1 := store.logs[0]
	if s1.WasProfitable == nil || !*s1.WasProfitable {
		t.Fatal("s1 should still be labeled profitable")
	}
	if len(published) != 0 {
		t.Fatalf("published = %d entries, want 0 below publish threshold", len(published))
	}
	if len(profitable.inserted) != 0 {
		t.Fatalf("derived store received %d entries, want 0", len(profitable.inserted))
	}
}

func TestLabelerIdempotent(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeLogStore{logs: []*models.MarketLog{
		snapshot("s1", "BTC", 100, base),
		snapshot("s2", "BTC", 103, base.Add(time.Hour)),
	}}
	l := newTestLabeler(t, store, &fakeProfitableStore{}, &fakeArchive{}, &fakeMetrics{}, base.Add(2*time.Hour))

	trigger := models.NewAnalysisTrigger(models.AnalysisDaily, "", "")
	if _, err := l.Run(context.Background(), trigger); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := store.logs[0].MaxPriceChangePercent

	if _, err := l.Run(context.Background(), trigger); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if store.logs[0].MaxPriceChangePercent != first {
		t.Errorf("relabeling changed outcome: %v != %v", store.logs[0].MaxPriceChangePercent, first)
	}
	if store.updates["s1"] != 2 {
		t.Errorf("s1 updated %d times, want 2 (idempotent overwrite)", store.updates["s1"])
	}
}

func TestLabelerEmptyLookaheadSkips(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeLogStore{logs: []*models.MarketLog{
		snapshot("s1", "BTC", 100, base),
	}}
	l := newTestLabeler(t, store, &fakeProfitableStore{}, &fakeArchive{}, &fakeMetrics{}, base.Add(time.Hour))

	if _, err := l.Run(context.Background(), models.NewAnalysisTrigger(models.AnalysisDaily, "", "")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.logs[0].WasProfitable != nil {
		t.Error("snapshot without look-ahead data must stay unlabeled")
	}
	if store.updates["s1"] != 0 {
		t.Errorf("s1 updated %d times, want 0", store.updates["s1"])
	}
}

func TestLabelerArchivesPublishedVectors(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeLogStore{logs: []*models.MarketLog{
		snapshot("s1", "BTC", 100, base),
		snapshot("s2", "BTC", 104, base.Add(time.Hour)),
	}}
	archive := &fakeArchive{}
	l := newTestLabeler(t, store, &fakeProfitableStore{}, archive, &fakeMetrics{}, base.Add(2*time.Hour))

	if _, err := l.Run(context.Background(), models.NewAnalysisTrigger(models.AnalysisDaily, "", "")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(archive.rows) != 1 {
		t.Fatalf("archive rows = %d, want 1", len(archive.rows))
	}
	if archive.rows[0].Asset != "BTC" || !archive.rows[0].WasProfitable {
		t.Errorf("unexpected archive row: %+v", archive.rows[0])
	}
	if len(archive.rows[0].Vector) != VectorLen {
		t.Errorf("archive vector length = %d, want %d", len(archive.rows[0].Vector), VectorLen)
	}
}

func TestCleanupDeletesAtRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	profitable := &fakeProfitableStore{deleted: 7}
	l := newTestLabeler(t, &fakeLogStore{}, profitable, &fakeArchive{}, &fakeMetrics{}, now)

	deleted, err := l.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 7 {
		t.Errorf("Cleanup returned %d, want 7", deleted)
	}
	want := now.Add(-30 * 24 * time.Hour)
	if !profitable.deleteCutoff.Equal(want) {
		t.Errorf("delete cutoff = %v, want %v (now minus 30 retention days)", profitable.deleteCutoff, want)
	}
}

func TestCleanupWrapsStoreErrors(t *testing.T) {
	profitable := &fakeProfitableStore{deleteErr: errors.New("pg down")}
	l := newTestLabeler(t, &fakeLogStore{}, profitable, &fakeArchive{}, &fakeMetrics{},
		time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC))

	if _, err := l.Cleanup(context.Background()); err == nil {
		t.Fatal("Cleanup must surface store errors")
	}
}
