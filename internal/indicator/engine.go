// Package indicator computes the technical indicators behind every market
// snapshot. All functions are pure over a candle slice (plus an order book
// for imbalance); not enough history yields NaN, never an error.
package indicator

import "MarketPulse/internal/domain/models"

// Engine is the indicator capability consumed by the timeframe assembler.
// Implementations must be numerically equivalent to the Calculator.
type Engine interface {
	RSI(candles []models.Candle) float64
	EMA(candles []models.Candle) (ema9, ema40 float64)
	SMA(candles []models.Candle, period int) float64
	ATRPercent(candles []models.Candle) float64
	Trend(candles []models.Candle) models.TrendDirection
	Bollinger(candles []models.Candle) models.BollingerBands
	Stochastic(candles []models.Candle) (fast, slow float64)
	MACD(candles []models.Candle) (value, signal, histogram float64)
	CCI(candles []models.Candle) float64
	VolumePressure(candles []models.Candle) models.MarketPressure
	OrderBookImbalance(book *models.OrderBook, depth int) float64
}
