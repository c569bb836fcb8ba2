package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/util"
)

const (
	rsiWindow    = 30
	rsiPeriod    = 14
	emaFast      = 9
	emaSlow      = 40
	atrPeriod    = 14
	adxWindow    = 28
	adxPeriod    = 14
	adxThreshold = 25.0
	diSpread     = 5.0
	bbWindow     = 30
	bbPeriod     = 14
	bbStdDev     = 2.0
	stochPeriod  = 14
	stochSignal  = 3
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	cciWindow    = 30
	cciPeriod    = 20
	volumeWindow = 20
)

// Calculator implements Engine on top of go-talib.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

var _ Engine = (*Calculator)(nil)

func closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func tailCandles(candles []models.Candle, n int) []models.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}

func highLowClose(candles []models.Candle) (highs, lows, closes []float64) {
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	return highs, lows, closes
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// RSI is Wilder's RSI(14) over the most recent 30 closes.
func (c *Calculator) RSI(candles []models.Candle) float64 {
	in := tail(closes(candles), rsiWindow)
	if len(in) <= rsiPeriod {
		return math.NaN()
	}
	return last(talib.Rsi(in, rsiPeriod))
}

// EMA returns EMA9 over the last 9 closes and EMA40 over the last 40.
// Each window is exactly the period, so the value degenerates to the
// seed SMA, which is what the snapshot schema expects.
func (c *Calculator) EMA(candles []models.Candle) (ema9, ema40 float64) {
	all := closes(candles)
	ema9, ema40 = math.NaN(), math.NaN()
	if in := tail(all, emaFast); len(in) >= emaFast {
		ema9 = last(talib.Ema(in, emaFast))
	}
	if in := tail(all, emaSlow); len(in) >= emaSlow {
		ema40 = last(talib.Ema(in, emaSlow))
	}
	return ema9, ema40
}

func (c *Calculator) SMA(candles []models.Candle, period int) float64 {
	in := closes(candles)
	if len(in) < period || period <= 0 {
		return math.NaN()
	}
	return last(talib.Sma(in, period))
}

// ATRPercent is ATR(14) over the full series relative to the last close.
func (c *Calculator) ATRPercent(candles []models.Candle) float64 {
	if len(candles) <= atrPeriod {
		return math.NaN()
	}
	highs, lows, cls := highLowClose(candles)
	atr := last(talib.Atr(highs, lows, cls, atrPeriod))
	lastClose := cls[len(cls)-1]
	if lastClose <= 0 {
		return math.NaN()
	}
	return util.Round(atr/lastClose*100, 2)
}

// Trend classifies direction from ADX(14) with +DI/-DI over the last 28
// candles. Weak ADX (<=25) or a DI spread below 5 points is NO_TREND.
func (c *Calculator) Trend(candles []models.Candle) models.TrendDirection {
	window := tailCandles(candles, adxWindow)
	if len(window) < adxWindow {
		return models.TrendNone
	}
	highs, lows, cls := highLowClose(window)
	adx := last(talib.Adx(highs, lows, cls, adxPeriod))
	pdi := last(talib.PlusDI(highs, lows, cls, adxPeriod))
	mdi := last(talib.MinusDI(highs, lows, cls, adxPeriod))
	if adx <= adxThreshold {
		return models.TrendNone
	}
	switch {
	case pdi > mdi && pdi-mdi > diSpread:
		return models.TrendUp
	case mdi > pdi && mdi-pdi > diSpread:
		return models.TrendDown
	default:
		return models.TrendNone
	}
}

// Bollinger computes Bollinger(14, 2) over the last 30 closes and averages
// %B plus all three bands across every produced band, not just the last.
func (c *Calculator) Bollinger(candles []models.Candle) models.BollingerBands {
	nan := models.BollingerBands{AvgPB: math.NaN(), Upper: math.NaN(), Middle: math.NaN(), Lower: math.NaN()}
	in := tail(closes(candles), bbWindow)
	if len(in) < bbPeriod {
		return nan
	}
	upper, middle, lower := talib.BBands(in, bbPeriod, bbStdDev, bbStdDev, talib.SMA)

	var sumPB, sumUpper, sumMiddle, sumLower float64
	var n int
	for i := bbPeriod - 1; i < len(in); i++ {
		width := upper[i] - lower[i]
		if width == 0 {
			continue
		}
		sumPB += (in[i] - lower[i]) / width
		sumUpper += upper[i]
		sumMiddle += middle[i]
		sumLower += lower[i]
		n++
	}
	if n == 0 {
		return nan
	}
	fn := float64(n)
	return models.BollingerBands{
		AvgPB:  sumPB / fn,
		Upper:  sumUpper / fn,
		Middle: sumMiddle / fn,
		Lower:  sumLower / fn,
	}
}

func (c *Calculator) Stochastic(candles []models.Candle) (fast, slow float64) {
	if len(candles) < stochPeriod+stochSignal-1 {
		return math.NaN(), math.NaN()
	}
	highs, lows, cls := highLowClose(candles)
	fastK, fastD := talib.StochF(highs, lows, cls, stochPeriod, stochSignal, talib.SMA)
	return last(fastK), last(fastD)
}

func (c *Calculator) MACD(candles []models.Candle) (value, signal, histogram float64) {
	in := closes(candles)
	if len(in) < macdSlow+macdSignal-1 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	macd, sig, hist := talib.Macd(in, macdFast, macdSlow, macdSignal)
	return last(macd), last(sig), last(hist)
}

func (c *Calculator) CCI(candles []models.Candle) float64 {
	window := tailCandles(candles, cciWindow)
	if len(window) < cciPeriod {
		return math.NaN()
	}
	highs, lows, cls := highLowClose(window)
	return last(talib.Cci(highs, lows, cls, cciPeriod))
}

// VolumePressure compares the second-most-recent candle's volume against
// the mean of the last 20. The most recent candle is still forming, so it
// is never the subject of the comparison.
func (c *Calculator) VolumePressure(candles []models.Candle) models.MarketPressure {
	if len(candles) < 2 {
		return models.PressureRegular
	}
	window := tailCandles(candles, volumeWindow)
	var sum float64
	for _, cd := range window {
		sum += cd.Volume
	}
	avg := sum / float64(len(window))
	if avg <= 0 {
		return models.PressureRegular
	}
	current := candles[len(candles)-2].Volume
	switch {
	case current > avg*1.5:
		return models.PressureStrong
	case current < avg*0.5:
		return models.PressureLow
	default:
		return models.PressureRegular
	}
}

// OrderBookImbalance sums bid and ask sizes over the top depth levels each
// side and returns the signed ratio in [-1, 1]. Empty books yield 0.
func (c *Calculator) OrderBookImbalance(book *models.OrderBook, depth int) float64 {
	if book == nil {
		return 0
	}
	var bidVol, askVol float64
	for i, lvl := range book.Bids {
		if i >= depth {
			break
		}
		bidVol += lvl.Size
	}
	for i, lvl := range book.Asks {
		if i >= depth {
			break
		}
		askVol += lvl.Size
	}
	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	return (bidVol - askVol) / total
}
