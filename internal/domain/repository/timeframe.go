package repository

import "time"

// Timeframe is a candle aggregation interval.
type Timeframe string

const (
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// CollectionTimeframes returns the four sampled timeframes in their fixed
// assembly and encoding order.
func CollectionTimeframes() [4]Timeframe {
	return [4]Timeframe{TF5m, TF15m, TF1h, TF4h}
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF5m, TF15m, TF1h, TF4h:
		return true
	default:
		return false
	}
}

// Duration returns the candle interval length.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	default:
		return time.Minute
	}
}

// Minutes returns the interval length in whole minutes.
func (tf Timeframe) Minutes() int {
	return int(tf.Duration() / time.Minute)
}
