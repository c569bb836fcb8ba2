package learning

import (
	"math"
	"testing"

	"MarketPulse/internal/domain/models"
)

func sampleSnapshot() *models.TimeframeSnapshot {
	return &models.TimeframeSnapshot{
		Trend:             models.TrendUp,
		Sentiment:         models.ConditionBullish,
		Pressure:          models.PressureStrong,
		RSI:               61.2,
		CCI:               110.5,
		EMA9:              101,
		EMA40:             99,
		SMA14:             100.5,
		SMA30:             99.8,
		SMA50:             98.7,
		ATRPercent:        1.4,
		BollingerAdx:      0.72,
		BollingerUpper:    105,
		BollingerMiddle:   100,
		BollingerLower:    95,
		MACDValue:         0.8,
		MACDSignal:        0.6,
		MACDHistogram:     0.2,
		StochasticFast:    75,
		StochasticSlow:    70,
		VolatilityPercent: 10.5,
	}
}

func sampleLog() *models.MarketLog {
	return &models.MarketLog{
		Asset:        "BTC",
		Quote:        "USDT",
		CurrentPrice: 102,
		OBI:          0.25,
		Changes: models.PriceChanges{
			Change3m: 0.1, Change6m: 0.2, Change9m: 0.3,
			Change15m: 0.4, Change30m: 0.5, Change45m: 0.6,
			Change1h: 0.7, Change2h: 0.8, Change3h: 0.9,
			Change4h: 1.0, Change8h: 1.1, Change12h: 1.2,
		},
		TF5m:  sampleSnapshot(),
		TF15m: sampleSnapshot(),
		TF1h:  sampleSnapshot(),
		TF4h:  sampleSnapshot(),
	}
}

func TestEncodeLength(t *testing.T) {
	vec := Encode(sampleLog())
	if len(vec) != VectorLen {
		t.Fatalf("vector length = %d, want %d", len(vec), VectorLen)
	}
}

func TestEncodeLengthWithMissingTimeframes(t *testing.T) {
	log := sampleLog()
	log.TF15m = nil
	log.TF4h = nil

	vec := Encode(log)
	if len(vec) != VectorLen {
		t.Fatalf("vector length with nil timeframes = %d, want %d", len(vec), VectorLen)
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("vector[%d] = %v, want finite", i, v)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	log := sampleLog()
	vec := Encode(log)

	if vec[0] != 0.25 {
		t.Errorf("vec[0] (obi) = %v, want 0.25", vec[0])
	}
	if vec[1] != 0.1 || vec[12] != 1.2 {
		t.Errorf("changes block = [%v..%v], want [0.1..1.2]", vec[1], vec[12])
	}

	// Oscillator block starts at 13; first entry is 5m RSI.
	if vec[13] != 61.2 {
		t.Errorf("vec[13] (5m rsi) = %v, want 61.2", vec[13])
	}

	// Trend one-hot block starts at 13+28=41: order DOWN, NONE, UP.
	if vec[41] != 0 || vec[42] != 0 || vec[43] != 1 {
		t.Errorf("5m trend one-hot = [%v %v %v], want [0 0 1]", vec[41], vec[42], vec[43])
	}

	// Sentiment block starts at 41+12=53: BULLISH is index 3.
	if vec[53+3] != 1 {
		t.Errorf("5m sentiment one-hot BULLISH slot = %v, want 1", vec[53+3])
	}

	// Pressure block starts at 53+20=73: STRONG is index 2.
	if vec[73+2] != 1 {
		t.Errorf("5m pressure one-hot STRONG slot = %v, want 1", vec[73+2])
	}

	// Price context starts at 73+12=85: first is price/bbLower.
	if got, want := vec[85], 102.0/95.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("vec[85] (price/bbLower) = %v, want %v", got, want)
	}

	// Momentum starts at 85+20=105: first is price-EMA9.
	if vec[105] != 1 {
		t.Errorf("vec[105] (price-ema9) = %v, want 1", vec[105])
	}

	// Volatility starts at 105+20=125: [ATR%, vol%].
	if vec[125] != 1.4 || vec[126] != 10.5 {
		t.Errorf("5m volatility block = [%v %v], want [1.4 10.5]", vec[125], vec[126])
	}
}

func TestEncodeZeroDenominators(t *testing.T) {
	log := sampleLog()
	log.TF5m.BollingerLower = 0
	log.TF5m.BollingerMiddle = -3

	vec := Encode(log)
	if vec[85] != 0 {
		t.Errorf("price/bbLower with zero band = %v, want 0", vec[85])
	}
	if vec[86] != 0 {
		t.Errorf("price/bbMiddle with negative band = %v, want 0", vec[86])
	}
}

func TestEncodeDeterministic(t *testing.T) {
	log := sampleLog()
	a := Encode(log)
	b := Encode(log)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vector not deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}
}
