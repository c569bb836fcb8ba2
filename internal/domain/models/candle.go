package models

import "time"

// Candle is one OHLCV bucket for a pair at a given interval.
// CloseTime is OpenTime plus the interval; the last candle of a fetch
// is usually the still-open bucket.
type Candle struct {
	OpenTime  time.Time `json:"openTime"`
	CloseTime time.Time `json:"closeTime"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceLevel is a single order book level.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook holds bid and ask levels, best price first. Transient, never persisted.
type OrderBook struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}
