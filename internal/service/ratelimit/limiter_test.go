package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"MarketPulse/pkg/cache"
	"MarketPulse/pkg/logger"
)

type fakeCache struct {
	data map[string]string
	err  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	switch v := value.(type) {
	case string:
		f.data[key] = v
	default:
		b, _ := json.Marshal(v)
		f.data[key] = string(b)
	}
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	if f.err != nil {
		return f.err
	}
	raw, ok := f.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	if strPtr, ok := dest.(*string); ok {
		*strPtr = raw
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	if f.err != nil {
		return f.err
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeCache) Exists(_ context.Context, keys ...string) (bool, error) {
	_, ok := f.data[keys[0]]
	return ok, nil
}

func (f *fakeCache) Expire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeCache) TryLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeCache) Unlock(_ context.Context, _ string) error {
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func TestShouldSkipAfterRecordRun(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	l := New(testLogger(t), fc, 3*time.Minute)

	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	if l.ShouldSkip(ctx, "binance") {
		t.Fatal("ShouldSkip before any run = true, want false")
	}

	l.RecordRun(ctx, "binance")
	if !l.ShouldSkip(ctx, "binance") {
		t.Fatal("ShouldSkip immediately after RecordRun = false, want true")
	}

	clock = clock.Add(2 * time.Minute)
	if !l.ShouldSkip(ctx, "binance") {
		t.Error("ShouldSkip inside interval = false, want true")
	}

	clock = clock.Add(2 * time.Minute)
	if l.ShouldSkip(ctx, "binance") {
		t.Error("ShouldSkip after interval elapsed = true, want false")
	}
}

func TestShouldSkipIsPerExchange(t *testing.T) {
	ctx := context.Background()
	l := New(testLogger(t), newFakeCache(), 3*time.Minute)

	l.RecordRun(ctx, "binance")
	if l.ShouldSkip(ctx, "bybit") {
		t.Error("run on binance must not block bybit")
	}
}

func TestTimeUntilNext(t *testing.T) {
	ctx := context.Background()
	l := New(testLogger(t), newFakeCache(), 3*time.Minute)

	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	if got := l.TimeUntilNext(ctx, "binance"); got != 0 {
		t.Errorf("TimeUntilNext before any run = %v, want 0", got)
	}

	l.RecordRun(ctx, "binance")
	clock = clock.Add(time.Minute)
	if got := l.TimeUntilNext(ctx, "binance"); got != 2*time.Minute {
		t.Errorf("TimeUntilNext = %v, want 2m", got)
	}

	clock = clock.Add(5 * time.Minute)
	if got := l.TimeUntilNext(ctx, "binance"); got != 0 {
		t.Errorf("TimeUntilNext past interval = %v, want 0", got)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	l := New(testLogger(t), newFakeCache(), 3*time.Minute)

	l.RecordRun(ctx, "binance")
	if err := l.Clear(ctx, "binance"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if l.ShouldSkip(ctx, "binance") {
		t.Error("ShouldSkip after Clear = true, want false")
	}
}

func TestFailsOpenOnCacheError(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	fc.err = errors.New("redis down")
	l := New(testLogger(t), fc, 3*time.Minute)

	if l.ShouldSkip(ctx, "binance") {
		t.Error("ShouldSkip with broken cache = true, want false (fail open)")
	}
	// RecordRun must not panic either.
	l.RecordRun(ctx, "binance")
}

func TestCorruptStateFailsOpen(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	fc.data["market-logs:last-run:binance"] = "not-a-number"
	l := New(testLogger(t), fc, 3*time.Minute)

	if l.ShouldSkip(ctx, "binance") {
		t.Error("ShouldSkip with corrupt state = true, want false")
	}
}
