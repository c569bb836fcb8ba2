package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/indicator"
	"MarketPulse/internal/learning"
	"MarketPulse/internal/service/exchange"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

const (
	obiDepth       = 10
	precisionDepth = 5

	rangingAdxProxyMax  = 0.25
	rangingMACDHistMax  = 0.002
	rangingStochFastMax = 20.0
)

// ExchangeResolver resolves exchange adapters and their configuration by
// name. *exchange.Registry satisfies it.
type ExchangeResolver interface {
	Get(name string) (domrepo.ExchangeFetcher, error)
	Config(name string) (exchange.Config, error)
	Names() []string
}

// PriceSource is a live last-price feed tied to one exchange.
// *exchange.PriceStream satisfies it.
type PriceSource interface {
	Exchange() string
	IsConnected() bool
	Prices() map[string]float64
}

// Collector assembles one market snapshot per asset for one exchange:
// four timeframes of indicators, order-book imbalance, short-horizon price
// changes, and the encoded feature vector.
type Collector struct {
	logger   *logger.Logger
	registry ExchangeResolver
	engine   indicator.Engine
	store    domrepo.MarketLogStore
	metrics  domrepo.Metrics
	stream   PriceSource

	// pacer spaces upstream fetches; exchanges throttle aggressively and
	// four timeframe fetches per asset add up fast.
	pacer *rate.Limiter

	now func() time.Time
}

// NewCollector creates the collection usecase. stream may be nil; prices
// then always come from the REST ticker endpoint.
func NewCollector(
	lgr *logger.Logger,
	registry ExchangeResolver,
	engine indicator.Engine,
	store domrepo.MarketLogStore,
	metrics domrepo.Metrics,
	stream PriceSource,
	pause time.Duration,
) *Collector {
	if pause <= 0 {
		pause = 300 * time.Millisecond
	}
	return &Collector{
		logger:   lgr,
		registry: registry,
		engine:   engine,
		store:    store,
		metrics:  metrics,
		stream:   stream,
		pacer:    rate.NewLimiter(rate.Every(pause), 1),
		now:      time.Now,
	}
}

// Collect runs one collection cycle for the exchange and returns the number
// of snapshots persisted. Upstream fetch errors propagate so the job layer
// can retry the whole cycle.
func (c *Collector) Collect(ctx context.Context, exchangeName string) (int, error) {
	start := c.now()

	fetcher, err := c.registry.Get(exchangeName)
	if err != nil {
		return 0, err
	}
	cfg, err := c.registry.Config(exchangeName)
	if err != nil {
		return 0, err
	}

	prices, err := c.latestPrices(ctx, exchangeName, fetcher)
	if err != nil {
		return 0, fmt.Errorf("latest prices %s: %w", exchangeName, err)
	}

	logs := make([]*models.MarketLog, 0, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		price, ok := c.resolvePrice(prices, asset, cfg.Quote)
		if !ok {
			c.logger.Warn("no price for asset, skipping",
				logger.String("exchange", exchangeName),
				logger.String("asset", asset))
			c.metrics.RecordError("missing_price")
			continue
		}

		log, err := c.collectAsset(ctx, fetcher, exchangeName, asset, cfg.Quote, price)
		if err != nil {
			return 0, fmt.Errorf("collect %s %s: %w", exchangeName, asset, err)
		}
		logs = append(logs, log)
		c.metrics.RecordSnapshot(exchangeName, asset)
	}

	if len(logs) > 0 {
		if err := c.store.InsertMany(ctx, logs); err != nil {
			return 0, fmt.Errorf("persist snapshots %s: %w", exchangeName, err)
		}
	}

	c.metrics.RecordLatency("collection", c.now().Sub(start).Seconds())
	c.logger.Info("collection cycle finished",
		logger.String("exchange", exchangeName),
		logger.Int("snapshots", len(logs)),
		logger.Duration("elapsed", c.now().Sub(start)))

	return len(logs), nil
}

// latestPrices prefers the live stream map when it has data and falls back
// to one REST ticker call per cycle. The stream only speaks for its own
// exchange; other venues always go through their REST ticker.
func (c *Collector) latestPrices(ctx context.Context, exchangeName string, fetcher domrepo.ExchangeFetcher) (map[string]float64, error) {
	if c.stream != nil && c.stream.Exchange() == exchangeName && c.stream.IsConnected() {
		if prices := c.stream.Prices(); len(prices) > 0 {
			return prices, nil
		}
	}
	return fetcher.LatestPrices(ctx)
}

// resolvePrice looks up asset+quote. Synthetic 1000-prefixed listings fall
// back to the unprefixed symbol scaled by 1000.
func (c *Collector) resolvePrice(prices map[string]float64, asset, quote string) (float64, bool) {
	if price, ok := prices[asset+quote]; ok && price > 0 {
		return price, true
	}
	if base, found := strings.CutPrefix(asset, "1000"); found {
		if price, ok := prices[base+quote]; ok && price > 0 {
			return price * 1000, true
		}
	}
	return 0, false
}

func (c *Collector) collectAsset(ctx context.Context, fetcher domrepo.ExchangeFetcher, exchangeName, asset, quote string, price float64) (*models.MarketLog, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	book, err := fetcher.OrderBook(ctx, asset, quote)
	if err != nil {
		return nil, err
	}

	pricePrec, amountPrec := bookPrecision(book)

	log := &models.MarketLog{
		ID:              uuid.NewString(),
		Market:          exchangeName,
		Asset:           asset,
		Quote:           quote,
		CurrentPrice:    price,
		PricePrecision:  pricePrec,
		AmountPrecision: amountPrec,
		OBI:             c.engine.OrderBookImbalance(book, obiDepth),
		CreatedAt:       c.now(),
	}

	for _, tf := range domrepo.CollectionTimeframes() {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		candles, err := fetcher.Candles(ctx, asset, quote, tf)
		if err != nil {
			return nil, err
		}

		snapshot := c.buildSnapshot(candles)
		applyChanges(&log.Changes, tf, price, candles)

		switch tf {
		case domrepo.TF5m:
			log.TF5m = snapshot
		case domrepo.TF15m:
			log.TF15m = snapshot
		case domrepo.TF1h:
			log.TF1h = snapshot
		case domrepo.TF4h:
			log.TF4h = snapshot
		}
	}

	log.IsRanging = isRanging(log)
	log.Vector = learning.Encode(log)

	return log, nil
}

// buildSnapshot computes every indicator for one timeframe and sanitizes
// undefined values to their zero encoding.
func (c *Collector) buildSnapshot(candles []models.Candle) *models.TimeframeSnapshot {
	ema9, ema40 := c.engine.EMA(candles)
	bands := c.engine.Bollinger(candles)
	macdValue, macdSignal, macdHist := c.engine.MACD(candles)
	stochFast, stochSlow := c.engine.Stochastic(candles)

	snap := &models.TimeframeSnapshot{
		Trend:     c.engine.Trend(candles),
		Sentiment: bands.Condition(),
		Pressure:  c.engine.VolumePressure(candles),

		RSI:   util.SafeNum(c.engine.RSI(candles)),
		CCI:   util.SafeNum(c.engine.CCI(candles)),
		EMA9:  util.SafeNum(ema9),
		EMA40: util.SafeNum(ema40),
		SMA14: util.SafeNum(c.engine.SMA(candles, 14)),
		SMA30: util.SafeNum(c.engine.SMA(candles, 30)),
		SMA50: util.SafeNum(c.engine.SMA(candles, 50)),

		ATRPercent: util.SafeNum(c.engine.ATRPercent(candles)),

		BollingerAdx:    util.SafeNum(bands.AvgPB),
		BollingerUpper:  util.SafeNum(bands.Upper),
		BollingerMiddle: util.SafeNum(bands.Middle),
		BollingerLower:  util.SafeNum(bands.Lower),

		MACDValue:     util.SafeNum(macdValue),
		MACDSignal:    util.SafeNum(macdSignal),
		MACDHistogram: util.SafeNum(macdHist),

		StochasticFast: util.SafeNum(stochFast),
		StochasticSlow: util.SafeNum(stochSlow),

		VolatilityPercent: util.SafeNum(util.VolatilityPercent(bands.Upper, bands.Lower)),
	}

	// Completed candles only; the final fetched candle is still open.
	if n := len(candles); n >= 2 {
		snap.LastClose = candles[n-2].Close
	}
	if n := len(candles); n >= 3 {
		snap.PrevClose = candles[n-3].Close
	}
	for i := len(candles) - 1; i >= 0 && len(snap.RecentCloses) < 4; i-- {
		snap.RecentCloses = append(snap.RecentCloses, candles[i].Close)
	}

	return snap
}

// applyChanges fills the timeframe's three percent-change fields from the
// three most recent completed candle closes.
func applyChanges(changes *models.PriceChanges, tf domrepo.Timeframe, price float64, candles []models.Candle) {
	var deltas [3]float64
	for i := 0; i < 3; i++ {
		// offset i back from the most recent completed candle
		idx := len(candles) - 2 - i
		if idx < 0 {
			continue
		}
		deltas[i] = util.PercentChange(candles[idx].Close, price)
	}

	switch tf {
	case domrepo.TF5m:
		changes.Change3m, changes.Change6m, changes.Change9m = deltas[0], deltas[1], deltas[2]
	case domrepo.TF15m:
		changes.Change15m, changes.Change30m, changes.Change45m = deltas[0], deltas[1], deltas[2]
	case domrepo.TF1h:
		changes.Change1h, changes.Change2h, changes.Change3h = deltas[0], deltas[1], deltas[2]
	case domrepo.TF4h:
		changes.Change4h, changes.Change8h, changes.Change12h = deltas[0], deltas[1], deltas[2]
	}
}

// isRanging applies the fixed sideways-market rule over the 15m/1h/4h
// snapshots. The 0.25 comparison reads the averaged %B field, kept as-is
// because downstream consumers rely on the historical behavior.
func isRanging(log *models.MarketLog) bool {
	tf15, tf1h, tf4h := log.TF15m, log.TF1h, log.TF4h
	if tf15 == nil || tf1h == nil || tf4h == nil {
		return false
	}
	return tf15.BollingerAdx < rangingAdxProxyMax &&
		tf15.Trend == models.TrendNone &&
		tf1h.Trend == models.TrendNone &&
		tf1h.Sentiment == models.ConditionSideways &&
		tf4h.Sentiment == models.ConditionSideways &&
		math.Abs(tf15.MACDHistogram) < rangingMACDHistMax &&
		math.Abs(tf1h.MACDHistogram) < rangingMACDHistMax &&
		tf15.StochasticFast < rangingStochFastMax &&
		tf1h.StochasticFast < rangingStochFastMax
}

// bookPrecision derives price and amount precision from the decimal places
// of the top bid levels.
func bookPrecision(book *models.OrderBook) (pricePrec, amountPrec int) {
	if book == nil {
		return 0, 0
	}
	for i, lvl := range book.Bids {
		if i >= precisionDepth {
			break
		}
		if p := util.DecimalPlaces(lvl.Price); p > pricePrec {
			pricePrec = p
		}
		if p := util.DecimalPlaces(lvl.Size); p > amountPrec {
			amountPrec = p
		}
	}
	return pricePrec, amountPrec
}
