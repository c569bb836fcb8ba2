package indicator

import (
	"math"
	"testing"

	"MarketPulse/internal/domain/models"
)

func risingCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	price := 100.0
	for i := range candles {
		price += 1.0
		candles[i] = models.Candle{
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price,
			Volume: 10,
		}
	}
	return candles
}

func fallingCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	price := 500.0
	for i := range candles {
		price -= 1.0
		candles[i] = models.Candle{
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price,
			Volume: 10,
		}
	}
	return candles
}

func TestRSI(t *testing.T) {
	calc := NewCalculator()

	if got := calc.RSI(risingCandles(50)); got < 70 {
		t.Errorf("RSI on rising series = %v, want > 70", got)
	}
	if got := calc.RSI(fallingCandles(50)); got > 30 {
		t.Errorf("RSI on falling series = %v, want < 30", got)
	}
	if got := calc.RSI(risingCandles(10)); !math.IsNaN(got) {
		t.Errorf("RSI with short history = %v, want NaN", got)
	}
}

func TestEMA(t *testing.T) {
	calc := NewCalculator()
	candles := risingCandles(50)

	ema9, ema40 := calc.EMA(candles)
	lastClose := candles[len(candles)-1].Close
	if math.IsNaN(ema9) || math.IsNaN(ema40) {
		t.Fatalf("EMA returned NaN with 50 candles: ema9=%v ema40=%v", ema9, ema40)
	}
	if ema9 >= lastClose {
		t.Errorf("ema9 = %v, want below last close %v on rising series", ema9, lastClose)
	}
	if ema40 >= ema9 {
		t.Errorf("ema40 = %v, want below ema9 %v on rising series", ema40, ema9)
	}

	_, ema40 = calc.EMA(risingCandles(20))
	if !math.IsNaN(ema40) {
		t.Errorf("ema40 with 20 candles = %v, want NaN", ema40)
	}
}

func TestTrend(t *testing.T) {
	calc := NewCalculator()

	if got := calc.Trend(risingCandles(60)); got != models.TrendUp {
		t.Errorf("Trend on rising series = %v, want %v", got, models.TrendUp)
	}
	if got := calc.Trend(fallingCandles(60)); got != models.TrendDown {
		t.Errorf("Trend on falling series = %v, want %v", got, models.TrendDown)
	}

	flat := make([]models.Candle, 60)
	for i := range flat {
		flat[i] = models.Candle{High: 100.5, Low: 99.5, Close: 100, Volume: 10}
	}
	if got := calc.Trend(flat); got != models.TrendNone {
		t.Errorf("Trend on flat series = %v, want %v", got, models.TrendNone)
	}
	if got := calc.Trend(risingCandles(10)); got != models.TrendNone {
		t.Errorf("Trend with short history = %v, want %v", got, models.TrendNone)
	}
}

func TestBollinger(t *testing.T) {
	calc := NewCalculator()

	bb := calc.Bollinger(risingCandles(50))
	if math.IsNaN(bb.AvgPB) {
		t.Fatal("Bollinger returned NaN with 50 candles")
	}
	if bb.Upper <= bb.Middle || bb.Middle <= bb.Lower {
		t.Errorf("band ordering violated: upper=%v middle=%v lower=%v", bb.Upper, bb.Middle, bb.Lower)
	}
	if bb.AvgPB < 0.5 {
		t.Errorf("AvgPB on rising series = %v, want >= 0.5", bb.AvgPB)
	}

	bb = calc.Bollinger(risingCandles(5))
	if !math.IsNaN(bb.AvgPB) {
		t.Errorf("AvgPB with short history = %v, want NaN", bb.AvgPB)
	}
}

func TestStochasticBounds(t *testing.T) {
	calc := NewCalculator()

	fast, slow := calc.Stochastic(risingCandles(50))
	if fast < 0 || fast > 100 || slow < 0 || slow > 100 {
		t.Errorf("stochastic out of bounds: fast=%v slow=%v", fast, slow)
	}
	if fast < 50 {
		t.Errorf("fast %%K on rising series = %v, want >= 50", fast)
	}

	fast, _ = calc.Stochastic(risingCandles(5))
	if !math.IsNaN(fast) {
		t.Errorf("stochastic with short history = %v, want NaN", fast)
	}
}

func TestMACD(t *testing.T) {
	calc := NewCalculator()

	value, signal, hist := calc.MACD(risingCandles(60))
	if math.IsNaN(value) || math.IsNaN(signal) || math.IsNaN(hist) {
		t.Fatalf("MACD returned NaN with 60 candles: %v %v %v", value, signal, hist)
	}
	if value <= 0 {
		t.Errorf("MACD value on rising series = %v, want > 0", value)
	}
	if got := value - signal; math.Abs(got-hist) > 1e-9 {
		t.Errorf("histogram = %v, want value-signal = %v", hist, got)
	}

	value, _, _ = calc.MACD(risingCandles(20))
	if !math.IsNaN(value) {
		t.Errorf("MACD with short history = %v, want NaN", value)
	}
}

func TestCCI(t *testing.T) {
	calc := NewCalculator()

	if got := calc.CCI(risingCandles(50)); got <= 0 {
		t.Errorf("CCI on rising series = %v, want > 0", got)
	}
	if got := calc.CCI(risingCandles(10)); !math.IsNaN(got) {
		t.Errorf("CCI with short history = %v, want NaN", got)
	}
}

func TestATRPercent(t *testing.T) {
	calc := NewCalculator()

	got := calc.ATRPercent(risingCandles(50))
	if math.IsNaN(got) || got <= 0 {
		t.Errorf("ATR%% on rising series = %v, want > 0", got)
	}
	if got := calc.ATRPercent(risingCandles(5)); !math.IsNaN(got) {
		t.Errorf("ATR%% with short history = %v, want NaN", got)
	}
}

func TestVolumePressure(t *testing.T) {
	calc := NewCalculator()

	candles := risingCandles(30)
	candles[len(candles)-2].Volume = 100
	if got := calc.VolumePressure(candles); got != models.PressureStrong {
		t.Errorf("pressure with volume spike = %v, want %v", got, models.PressureStrong)
	}

	candles = risingCandles(30)
	candles[len(candles)-2].Volume = 1
	if got := calc.VolumePressure(candles); got != models.PressureLow {
		t.Errorf("pressure with volume drought = %v, want %v", got, models.PressureLow)
	}

	if got := calc.VolumePressure(risingCandles(30)); got != models.PressureRegular {
		t.Errorf("pressure with even volume = %v, want %v", got, models.PressureRegular)
	}
}

func TestOrderBookImbalance(t *testing.T) {
	calc := NewCalculator()

	book := &models.OrderBook{
		Bids: []models.PriceLevel{{Price: 100, Size: 30}},
		Asks: []models.PriceLevel{{Price: 101, Size: 10}},
	}
	if got := calc.OrderBookImbalance(book, 10); got != 0.5 {
		t.Errorf("OBI = %v, want 0.5", got)
	}

	if got := calc.OrderBookImbalance(&models.OrderBook{}, 10); got != 0 {
		t.Errorf("OBI on empty book = %v, want 0", got)
	}
	if got := calc.OrderBookImbalance(nil, 10); got != 0 {
		t.Errorf("OBI on nil book = %v, want 0", got)
	}

	deep := &models.OrderBook{}
	for i := 0; i < 15; i++ {
		deep.Bids = append(deep.Bids, models.PriceLevel{Price: 100, Size: 1})
		deep.Asks = append(deep.Asks, models.PriceLevel{Price: 101, Size: 1})
	}
	deep.Bids[12].Size = 1000
	if got := calc.OrderBookImbalance(deep, 10); got != 0 {
		t.Errorf("OBI must only consider top 10 levels, got %v", got)
	}
}
