// Package learning turns labeled market snapshots into model-ready feature
// vectors and drives the profitability labeling runs.
package learning

import (
	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/util"
)

// VectorLen is the fixed feature vector length. Stored vectors are only
// interpretable against this exact layout, so any change here is a schema
// version change for every downstream consumer.
const VectorLen = 133

var trendOrder = [3]models.TrendDirection{
	models.TrendDown,
	models.TrendNone,
	models.TrendUp,
}

var sentimentOrder = [5]models.MarketCondition{
	models.ConditionSuperBearish,
	models.ConditionBearish,
	models.ConditionSideways,
	models.ConditionBullish,
	models.ConditionSuperBullish,
}

var pressureOrder = [3]models.MarketPressure{
	models.PressureLow,
	models.PressureRegular,
	models.PressureStrong,
}

// Encode flattens a snapshot into the fixed 133-value layout:
//
//	obi(1) + changes(12) + oscillators(7x4) + trend(3x4) + sentiment(5x4) +
//	pressure(3x4) + price context(5x4) + momentum(5x4) + volatility(2x4)
//
// Timeframe groups always run 5m, 15m, 1h, 4h. Missing values encode as 0,
// so the output length never varies.
func Encode(log *models.MarketLog) []float64 {
	vec := make([]float64, 0, VectorLen)

	vec = append(vec, util.SafeNum(log.OBI))

	changes := log.Changes.Ordered()
	for _, c := range changes {
		vec = append(vec, util.SafeNum(c))
	}

	snapshots := log.Snapshots()

	for _, tf := range snapshots {
		vec = append(vec, oscillators(tf)...)
	}
	for _, tf := range snapshots {
		vec = append(vec, oneHotTrend(tf)...)
	}
	for _, tf := range snapshots {
		vec = append(vec, oneHotSentiment(tf)...)
	}
	for _, tf := range snapshots {
		vec = append(vec, oneHotPressure(tf)...)
	}
	for _, tf := range snapshots {
		vec = append(vec, priceContext(log.CurrentPrice, tf)...)
	}
	for _, tf := range snapshots {
		vec = append(vec, momentumContext(log.CurrentPrice, tf)...)
	}
	for _, tf := range snapshots {
		vec = append(vec, volatilityContext(tf)...)
	}

	return vec
}

func oscillators(tf *models.TimeframeSnapshot) []float64 {
	if tf == nil {
		return make([]float64, 7)
	}
	return []float64{
		util.SafeNum(tf.RSI),
		util.SafeNum(tf.CCI),
		util.SafeNum(tf.MACDHistogram),
		util.SafeNum(tf.MACDValue),
		util.SafeNum(tf.MACDSignal),
		util.SafeNum(tf.StochasticFast),
		util.SafeNum(tf.StochasticSlow),
	}
}

func oneHotTrend(tf *models.TimeframeSnapshot) []float64 {
	out := make([]float64, len(trendOrder))
	if tf == nil {
		return out
	}
	for i, dir := range trendOrder {
		if tf.Trend == dir {
			out[i] = 1
		}
	}
	return out
}

func oneHotSentiment(tf *models.TimeframeSnapshot) []float64 {
	out := make([]float64, len(sentimentOrder))
	if tf == nil {
		return out
	}
	for i, cond := range sentimentOrder {
		if tf.Sentiment == cond {
			out[i] = 1
		}
	}
	return out
}

func oneHotPressure(tf *models.TimeframeSnapshot) []float64 {
	out := make([]float64, len(pressureOrder))
	if tf == nil {
		return out
	}
	for i, p := range pressureOrder {
		if tf.Pressure == p {
			out[i] = 1
		}
	}
	return out
}

// priceContext relates the current price to the averaged Bollinger bands.
// Ratio terms guard against zero or negative band levels.
func priceContext(price float64, tf *models.TimeframeSnapshot) []float64 {
	if tf == nil {
		return make([]float64, 5)
	}
	return []float64{
		safeRatio(price, tf.BollingerLower),
		safeRatio(price, tf.BollingerMiddle),
		safeRatio(price, tf.BollingerUpper),
		util.SafeNum(tf.BollingerUpper - tf.BollingerLower),
		util.SafeNum(tf.BollingerAdx),
	}
}

func momentumContext(price float64, tf *models.TimeframeSnapshot) []float64 {
	if tf == nil {
		return make([]float64, 5)
	}
	return []float64{
		util.SafeNum(price - tf.EMA9),
		util.SafeNum(price - tf.EMA40),
		util.SafeNum(price - tf.SMA14),
		util.SafeNum(price - tf.SMA30),
		util.SafeNum(price - tf.SMA50),
	}
}

func volatilityContext(tf *models.TimeframeSnapshot) []float64 {
	if tf == nil {
		return make([]float64, 2)
	}
	return []float64{
		util.SafeNum(tf.ATRPercent),
		util.SafeNum(tf.VolatilityPercent),
	}
}

func safeRatio(num, denom float64) float64 {
	if denom <= 0 {
		return 0
	}
	return util.SafeNum(num / denom)
}
