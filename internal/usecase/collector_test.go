package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/indicator"
	"MarketPulse/internal/learning"
	"MarketPulse/internal/service/exchange"
	"MarketPulse/pkg/logger"
)

type fakeFetcher struct {
	candles    map[domrepo.Timeframe][]models.Candle
	book       *models.OrderBook
	prices     map[string]float64
	candlesErr error
}

func (f *fakeFetcher) Candles(_ context.Context, _, _ string, tf domrepo.Timeframe) ([]models.Candle, error) {
	if f.candlesErr != nil {
		return nil, f.candlesErr
	}
	return f.candles[tf], nil
}

func (f *fakeFetcher) OrderBook(_ context.Context, _, _ string) (*models.OrderBook, error) {
	return f.book, nil
}

func (f *fakeFetcher) LatestPrices(_ context.Context) (map[string]float64, error) {
	return f.prices, nil
}

type fakeResolver struct {
	fetcher domrepo.ExchangeFetcher
	cfg     exchange.Config
}

func (r *fakeResolver) Get(name string) (domrepo.ExchangeFetcher, error) {
	if name != r.cfg.Name {
		return nil, errors.New("unknown exchange: " + name)
	}
	return r.fetcher, nil
}

func (r *fakeResolver) Config(name string) (exchange.Config, error) {
	if name != r.cfg.Name {
		return exchange.Config{}, errors.New("unknown exchange: " + name)
	}
	return r.cfg, nil
}

func (r *fakeResolver) Names() []string {
	return []string{r.cfg.Name}
}

type capturingStore struct {
	inserted []*models.MarketLog
	err      error
}

func (s *capturingStore) InsertMany(_ context.Context, logs []*models.MarketLog) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, logs...)
	return nil
}

func (s *capturingStore) FindBatchSince(_ context.Context, _ time.Time, _, _ int) ([]*models.MarketLog, error) {
	return nil, nil
}

func (s *capturingStore) FindByAssetInWindow(_ context.Context, _ string, _, _ time.Time) ([]*models.MarketLog, error) {
	return nil, nil
}

func (s *capturingStore) UpdateProfitability(_ context.Context, _ string, _ bool, _ float64, _ time.Time, _ string) error {
	return nil
}

type countingMetrics struct {
	snapshots int
	errors    int
}

func (m *countingMetrics) RecordSnapshot(exchange, asset string)        { m.snapshots++ }
func (m *countingMetrics) RecordLabeled(profitable bool)                {}
func (m *countingMetrics) RecordError(kind string)                      { m.errors++ }
func (m *countingMetrics) RecordLastPrice(symbol string, price float64) {}
func (m *countingMetrics) RecordLatency(op string, seconds float64)     {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func syntheticCandles(n int, start float64) []models.Candle {
	candles := make([]models.Candle, n)
	price := start
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price += 0.5
		candles[i] = models.Candle{
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			CloseTime: base.Add(time.Duration(i+1) * time.Minute),
			High:      price + 0.25,
			Low:       price - 0.25,
			Close:     price,
			Volume:    100,
		}
	}
	return candles
}

// Levels go through the same decimal-string parse as the exchange adapters,
// so the stored precision matches what a real depth payload produces. Raw
// float arithmetic would leave binary artifacts like 100.11000000000001.
func tenLevelBook() *models.OrderBook {
	book := &models.OrderBook{}
	for i := 0; i < 10; i++ {
		bid, _ := strconv.ParseFloat(fmt.Sprintf("%.2f", 100.12-0.01*float64(i)), 64)
		ask, _ := strconv.ParseFloat(fmt.Sprintf("%.2f", 100.13+0.01*float64(i)), 64)
		book.Bids = append(book.Bids, models.PriceLevel{Price: bid, Size: 2.5})
		book.Asks = append(book.Asks, models.PriceLevel{Price: ask, Size: 1.5})
	}
	return book
}

type fakeStream struct {
	exchange  string
	connected bool
	prices    map[string]float64
}

func (s *fakeStream) Exchange() string           { return s.exchange }
func (s *fakeStream) IsConnected() bool          { return s.connected }
func (s *fakeStream) Prices() map[string]float64 { return s.prices }

func newTestCollector(store *capturingStore, metrics *countingMetrics, fetcher *fakeFetcher, t *testing.T) *Collector {
	return newStreamTestCollector("binance", nil, store, metrics, fetcher, t)
}

func newStreamTestCollector(exchangeName string, stream PriceSource, store *capturingStore, metrics *countingMetrics, fetcher *fakeFetcher, t *testing.T) *Collector {
	resolver := &fakeResolver{
		fetcher: fetcher,
		cfg: exchange.Config{
			Name:   exchangeName,
			Assets: []string{"BTC"},
			Quote:  "USDT",
		},
	}
	return NewCollector(testLogger(t), resolver, indicator.NewCalculator(), store, metrics, stream, time.Nanosecond)
}

func TestCollectEndToEnd(t *testing.T) {
	candles := map[domrepo.Timeframe][]models.Candle{
		domrepo.TF5m:  syntheticCandles(50, 100),
		domrepo.TF15m: syntheticCandles(50, 100),
		domrepo.TF1h:  syntheticCandles(50, 100),
		domrepo.TF4h:  syntheticCandles(50, 100),
	}
	fetcher := &fakeFetcher{
		candles: candles,
		book:    tenLevelBook(),
		prices:  map[string]float64{"BTCUSDT": 125.5},
	}
	store := &capturingStore{}
	metrics := &countingMetrics{}
	c := newTestCollector(store, metrics, fetcher, t)

	count, err := c.Collect(context.Background(), "binance")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if count != 1 {
		t.Fatalf("Collect returned %d, want 1", count)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("store received %d logs, want 1", len(store.inserted))
	}

	log := store.inserted[0]
	if log.Asset != "BTC" || log.Market != "binance" || log.CurrentPrice != 125.5 {
		t.Errorf("unexpected log identity: %+v", log)
	}
	for i, tf := range log.Snapshots() {
		if tf == nil {
			t.Fatalf("timeframe snapshot %d is nil", i)
		}
		if tf.RSI <= 0 {
			t.Errorf("timeframe %d RSI = %v, want > 0 with 50 candles", i, tf.RSI)
		}
	}
	if log.OBI < -1 || log.OBI > 1 {
		t.Errorf("OBI = %v, want within [-1, 1]", log.OBI)
	}
	if len(log.Vector) != learning.VectorLen {
		t.Errorf("vector length = %d, want %d", len(log.Vector), learning.VectorLen)
	}

	// 5m changes use completed closes at 124.5, 124, 123.5 vs price 125.5.
	if log.Changes.Change3m <= 0 {
		t.Errorf("change_3min = %v, want > 0", log.Changes.Change3m)
	}
	if log.Changes.Change9m <= log.Changes.Change3m {
		t.Errorf("change_9min (%v) should exceed change_3min (%v) on a rising series",
			log.Changes.Change9m, log.Changes.Change3m)
	}

	if log.PricePrecision != 2 {
		t.Errorf("price precision = %d, want 2", log.PricePrecision)
	}
	if log.AmountPrecision != 1 {
		t.Errorf("amount precision = %d, want 1", log.AmountPrecision)
	}
	if metrics.snapshots != 1 {
		t.Errorf("snapshot metric = %d, want 1", metrics.snapshots)
	}
	if log.ID == "" {
		t.Error("log must carry a generated id")
	}
}

func TestCollectPrefersStreamPriceOnItsExchange(t *testing.T) {
	fetcher := &fakeFetcher{
		candles: map[domrepo.Timeframe][]models.Candle{
			domrepo.TF5m:  syntheticCandles(50, 100),
			domrepo.TF15m: syntheticCandles(50, 100),
			domrepo.TF1h:  syntheticCandles(50, 100),
			domrepo.TF4h:  syntheticCandles(50, 100),
		},
		book:   tenLevelBook(),
		prices: map[string]float64{"BTCUSDT": 125.5},
	}
	stream := &fakeStream{exchange: "binance", connected: true, prices: map[string]float64{"BTCUSDT": 130}}
	store := &capturingStore{}
	c := newStreamTestCollector("binance", stream, store, &countingMetrics{}, fetcher, t)

	if _, err := c.Collect(context.Background(), "binance"); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := store.inserted[0].CurrentPrice; got != 130 {
		t.Errorf("current price = %v, want 130 from the live stream", got)
	}
}

func TestCollectStreamDoesNotPriceOtherExchanges(t *testing.T) {
	fetcher := &fakeFetcher{
		candles: map[domrepo.Timeframe][]models.Candle{
			domrepo.TF5m:  syntheticCandles(50, 100),
			domrepo.TF15m: syntheticCandles(50, 100),
			domrepo.TF1h:  syntheticCandles(50, 100),
			domrepo.TF4h:  syntheticCandles(50, 100),
		},
		book:   tenLevelBook(),
		prices: map[string]float64{"BTCUSDT": 125.5},
	}
	// A connected stream quoting another venue must not leak into this one.
	stream := &fakeStream{exchange: "binance", connected: true, prices: map[string]float64{"BTCUSDT": 999}}
	store := &capturingStore{}
	c := newStreamTestCollector("bybit", stream, store, &countingMetrics{}, fetcher, t)

	if _, err := c.Collect(context.Background(), "bybit"); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := store.inserted[0].CurrentPrice; got != 125.5 {
		t.Errorf("current price = %v, want 125.5 from the venue's own ticker", got)
	}
}

func TestCollectShortHistoryStillProducesSnapshot(t *testing.T) {
	short := map[domrepo.Timeframe][]models.Candle{
		domrepo.TF5m:  syntheticCandles(5, 100),
		domrepo.TF15m: syntheticCandles(5, 100),
		domrepo.TF1h:  syntheticCandles(5, 100),
		domrepo.TF4h:  syntheticCandles(5, 100),
	}
	fetcher := &fakeFetcher{
		candles: short,
		book:    tenLevelBook(),
		prices:  map[string]float64{"BTCUSDT": 102},
	}
	store := &capturingStore{}
	c := newTestCollector(store, &countingMetrics{}, fetcher, t)

	if _, err := c.Collect(context.Background(), "binance"); err != nil {
		t.Fatalf("Collect with short history: %v", err)
	}
	log := store.inserted[0]
	if log.TF5m.RSI != 0 {
		t.Errorf("RSI with 5 candles = %v, want 0 (absent feature)", log.TF5m.RSI)
	}
	if len(log.Vector) != learning.VectorLen {
		t.Errorf("vector length = %d, want %d", len(log.Vector), learning.VectorLen)
	}
}

func TestCollectSkipsAssetWithoutPrice(t *testing.T) {
	fetcher := &fakeFetcher{
		candles: map[domrepo.Timeframe][]models.Candle{},
		book:    tenLevelBook(),
		prices:  map[string]float64{"ETHUSDT": 3000},
	}
	store := &capturingStore{}
	metrics := &countingMetrics{}
	c := newTestCollector(store, metrics, fetcher, t)

	count, err := c.Collect(context.Background(), "binance")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if count != 0 {
		t.Errorf("Collect returned %d, want 0 when price missing", count)
	}
	if metrics.errors != 1 {
		t.Errorf("error metric = %d, want 1", metrics.errors)
	}
}

func TestCollectPropagatesFetchErrors(t *testing.T) {
	fetcher := &fakeFetcher{
		candles:    map[domrepo.Timeframe][]models.Candle{},
		candlesErr: errors.New("upstream 502"),
		book:       tenLevelBook(),
		prices:     map[string]float64{"BTCUSDT": 100},
	}
	c := newTestCollector(&capturingStore{}, &countingMetrics{}, fetcher, t)

	if _, err := c.Collect(context.Background(), "binance"); err == nil {
		t.Fatal("Collect must propagate candle fetch errors for the job retry")
	}
}

func TestCollectUnknownExchange(t *testing.T) {
	c := newTestCollector(&capturingStore{}, &countingMetrics{}, &fakeFetcher{}, t)
	if _, err := c.Collect(context.Background(), "kraken"); err == nil {
		t.Fatal("Collect must fail fast on an unknown exchange")
	}
}

func TestResolve1000PrefixedPrice(t *testing.T) {
	c := newTestCollector(&capturingStore{}, &countingMetrics{}, &fakeFetcher{}, t)

	prices := map[string]float64{"PEPEUSDT": 0.0000125}
	got, ok := c.resolvePrice(prices, "1000PEPE", "USDT")
	if !ok {
		t.Fatal("expected fallback lookup for 1000-prefixed asset")
	}
	if want := 0.0125; got != want {
		t.Errorf("scaled price = %v, want %v", got, want)
	}

	direct := map[string]float64{"1000PEPEUSDT": 0.0118}
	if got, _ := c.resolvePrice(direct, "1000PEPE", "USDT"); got != 0.0118 {
		t.Errorf("direct listing price = %v, want 0.0118", got)
	}
}
