package models

import (
	"math"
	"testing"
)

func TestBollingerCondition(t *testing.T) {
	cases := []struct {
		pb   float64
		want MarketCondition
	}{
		{math.NaN(), ""},
		{-0.5, ConditionSuperBearish},
		{0, ConditionSuperBearish},
		{0.1, ConditionSuperBearish},
		{0.2, ConditionSuperBearish},
		{0.21, ConditionBearish},
		{0.4, ConditionBearish},
		{0.5, ConditionSideways},
		{0.6, ConditionSideways},
		{0.7, ConditionBullish},
		{0.8, ConditionBullish},
		{0.81, ConditionSuperBullish},
		{1.0, ConditionSuperBullish},
		{1.5, ConditionSuperBullish},
	}
	for _, c := range cases {
		got := BollingerBands{AvgPB: c.pb}.Condition()
		if got != c.want {
			t.Errorf("Condition(%%B=%v) = %q, want %q", c.pb, got, c.want)
		}
	}
}

// Sentiment must never fall as %B rises; a bucket inversion would scramble
// the one-hot encoding.
func TestBollingerConditionMonotonic(t *testing.T) {
	rank := map[MarketCondition]int{
		ConditionSuperBearish: 0,
		ConditionBearish:      1,
		ConditionSideways:     2,
		ConditionBullish:      3,
		ConditionSuperBullish: 4,
	}

	prev := rank[BollingerBands{AvgPB: -0.2}.Condition()]
	for pb := -0.19; pb <= 1.2; pb += 0.01 {
		cur, ok := rank[BollingerBands{AvgPB: pb}.Condition()]
		if !ok {
			t.Fatalf("Condition(%%B=%v) returned an unknown bucket", pb)
		}
		if cur < prev {
			t.Fatalf("Condition rank fell from %d to %d at %%B=%v", prev, cur, pb)
		}
		prev = cur
	}
}
