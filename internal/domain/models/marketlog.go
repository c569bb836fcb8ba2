package models

import (
	"math"
	"time"
)

// TrendDirection classifies ADX/DI output.
type TrendDirection string

const (
	TrendUp   TrendDirection = "UPTREND"
	TrendDown TrendDirection = "DOWNTREND"
	TrendNone TrendDirection = "NO_TREND"
)

// MarketCondition is the Bollinger %B sentiment bucket.
type MarketCondition string

const (
	ConditionSuperBearish MarketCondition = "SUPER_BEARISH"
	ConditionBearish      MarketCondition = "BEARISH"
	ConditionSideways     MarketCondition = "SIDEWAYS"
	ConditionBullish      MarketCondition = "BULLISH"
	ConditionSuperBullish MarketCondition = "SUPER_BULLISH"
)

// MarketPressure classifies volume relative to its recent average.
type MarketPressure string

const (
	PressureLow     MarketPressure = "LOW"
	PressureRegular MarketPressure = "REGULAR"
	PressureStrong  MarketPressure = "STRONG"
)

// BollingerBands carries the averaged band levels and average %B over the
// computed window. AvgPB doubles as the low-volatility proxy used by the
// ranging rule.
type BollingerBands struct {
	AvgPB  float64 `json:"avgPb"`
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Condition buckets average %B into a sentiment. An undefined %B (not enough
// history) yields an empty condition, which one-hot encodes to all zeros.
func (b BollingerBands) Condition() MarketCondition {
	pb := b.AvgPB
	switch {
	case math.IsNaN(pb):
		return ""
	case pb <= 0.2:
		return ConditionSuperBearish
	case pb <= 0.4:
		return ConditionBearish
	case pb <= 0.6:
		return ConditionSideways
	case pb <= 0.8:
		return ConditionBullish
	default:
		return ConditionSuperBullish
	}
}

// TimeframeSnapshot holds every indicator computed for one timeframe of one
// asset in one sampling cycle. Values are already sanitized: an indicator
// without enough history is stored as 0, enums as "".
type TimeframeSnapshot struct {
	Trend     TrendDirection  `json:"trend"`
	Sentiment MarketCondition `json:"sentiment"`
	Pressure  MarketPressure  `json:"pressure"`

	RSI   float64 `json:"rsi"`
	CCI   float64 `json:"cci"`
	EMA9  float64 `json:"ema9"`
	EMA40 float64 `json:"ema40"`
	SMA14 float64 `json:"sma14"`
	SMA30 float64 `json:"sma30"`
	SMA50 float64 `json:"sma50"`

	ATRPercent float64 `json:"atrPercent"`

	BollingerAdx    float64 `json:"bollingerAdx"`
	BollingerUpper  float64 `json:"bollingerUpper"`
	BollingerMiddle float64 `json:"bollingerMiddle"`
	BollingerLower  float64 `json:"bollingerLower"`

	MACDValue     float64 `json:"macdValue"`
	MACDSignal    float64 `json:"macdSignal"`
	MACDHistogram float64 `json:"macdHistogram"`

	StochasticFast float64 `json:"stochasticFast"`
	StochasticSlow float64 `json:"stochasticSlow"`

	VolatilityPercent float64 `json:"volatilityPercent"`

	LastClose float64 `json:"lastClose"`
	PrevClose float64 `json:"prevClose"`

	// RecentCloses holds up to the last four candle closes, most recent first.
	RecentCloses []float64 `json:"recentCloses"`
}

// PriceChanges are the short-horizon percent moves of the current price
// against recent candle closes, one triple per timeframe.
type PriceChanges struct {
	Change3m  float64 `json:"change_3min"`
	Change6m  float64 `json:"change_6min"`
	Change9m  float64 `json:"change_9min"`
	Change15m float64 `json:"change_15min"`
	Change30m float64 `json:"change_30min"`
	Change45m float64 `json:"change_45min"`
	Change1h  float64 `json:"change_1h"`
	Change2h  float64 `json:"change_2h"`
	Change3h  float64 `json:"change_3h"`
	Change4h  float64 `json:"change_4h"`
	Change8h  float64 `json:"change_8h"`
	Change12h float64 `json:"change_12h"`
}

// Ordered returns the twelve changes in their fixed encoding order.
func (p PriceChanges) Ordered() [12]float64 {
	return [12]float64{
		p.Change3m, p.Change6m, p.Change9m,
		p.Change15m, p.Change30m, p.Change45m,
		p.Change1h, p.Change2h, p.Change3h,
		p.Change4h, p.Change8h, p.Change12h,
	}
}

// MarketLog is one market snapshot for one asset: four timeframe snapshots,
// order book imbalance, short-horizon changes, and, once the labeling engine
// has seen it, the realized profitability outcome.
type MarketLog struct {
	ID     string `json:"id"`
	Market string `json:"market"`
	Asset  string `json:"asset"`
	Quote  string `json:"quote"`

	CurrentPrice    float64 `json:"currentPrice"`
	PricePrecision  int     `json:"pricePrecision"`
	AmountPrecision int     `json:"amountPrecision"`
	OBI             float64 `json:"obi"`

	Changes PriceChanges `json:"changes"`

	TF5m  *TimeframeSnapshot `json:"tf5m"`
	TF15m *TimeframeSnapshot `json:"tf15m"`
	TF1h  *TimeframeSnapshot `json:"tf1h"`
	TF4h  *TimeframeSnapshot `json:"tf4h"`

	IsRanging bool      `json:"isRanging"`
	Vector    []float64 `json:"vector"`
	CreatedAt time.Time `json:"createdAt"`

	// Labeling outcome; nil pointers mean the snapshot is still unlabeled.
	WasProfitable          *bool      `json:"wasProfitable,omitempty"`
	MaxPriceChangePercent  float64    `json:"maxPriceChangePercent"`
	ProfitabilityCheckedAt *time.Time `json:"profitabilityCheckedAt,omitempty"`
	TimeToReach            string     `json:"timeToReach,omitempty"`
}

// Snapshots returns the four timeframe snapshots in the fixed encoding order
// 5m, 15m, 1h, 4h. Entries may be nil when a timeframe failed to assemble.
func (m *MarketLog) Snapshots() [4]*TimeframeSnapshot {
	return [4]*TimeframeSnapshot{m.TF5m, m.TF15m, m.TF1h, m.TF4h}
}

// AnalysisType values accepted on analysis triggers.
const (
	AnalysisDaily    = "daily"
	AnalysisOnDemand = "on-demand"
)

// ProfitableMarketLog is the derived, append-only copy of the single best
// labeled snapshot per asset per analysis run.
type ProfitableMarketLog struct {
	MarketLog

	AnalysisDate  time.Time `json:"analysisDate"`
	AnalysisType  string    `json:"analysisType"`
	OriginalLogID string    `json:"originalLogId"`
}

// ProfitableStats aggregates the derived collection for the status surface.
type ProfitableStats struct {
	TotalCount           int64   `json:"totalCount"`
	AverageProfitability float64 `json:"averageProfitability"`
	TopAsset             string  `json:"topAsset"`
	TopProfitability     float64 `json:"topProfitability"`
}

// TrainingVector is one row of the model-training export archive.
type TrainingVector struct {
	CreatedAt        time.Time
	Asset            string
	AnalysisType     string
	WasProfitable    bool
	MaxChangePercent float64
	Vector           []float64
}
