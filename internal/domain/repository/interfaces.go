package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
)

// MarketLogStore persists market snapshots and supports the labeling scans.
type MarketLogStore interface {
	// InsertMany persists a collection cycle's snapshots.
	InsertMany(ctx context.Context, logs []*models.MarketLog) error

	// FindBatchSince pages through snapshots created at or after since,
	// ordered by creation time ascending.
	FindBatchSince(ctx context.Context, since time.Time, limit, offset int) ([]*models.MarketLog, error)

	// FindByAssetInWindow returns all snapshots of one asset created inside
	// [from, to], ordered by creation time ascending.
	FindByAssetInWindow(ctx context.Context, asset string, from, to time.Time) ([]*models.MarketLog, error)

	// UpdateProfitability overwrites the labeling fields of one snapshot.
	// The write is idempotent for unchanged inputs.
	UpdateProfitability(ctx context.Context, id string, wasProfitable bool, maxChangePercent float64, checkedAt time.Time, timeToReach string) error
}

// ProfitableLogStore is the derived best-per-asset collection. Append-only
// except for time-based retention deletes.
type ProfitableLogStore interface {
	InsertMany(ctx context.Context, logs []*models.ProfitableMarketLog) error
	FindTop(ctx context.Context, limit int) ([]*models.ProfitableMarketLog, error)
	FindByAsset(ctx context.Context, asset string) ([]*models.ProfitableMarketLog, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*models.ProfitableMarketLog, error)
	Stats(ctx context.Context) (*models.ProfitableStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// VectorArchive receives labeled feature vectors for model-training export.
type VectorArchive interface {
	Append(ctx context.Context, rows []models.TrainingVector) error
}

// ExchangeFetcher is the market-data capability of one exchange.
type ExchangeFetcher interface {
	// Candles returns OHLCV buckets for pair/quote at the given interval,
	// oldest first; the final candle may be the still-open bucket.
	Candles(ctx context.Context, asset, quote string, tf Timeframe) ([]models.Candle, error)

	// OrderBook returns the current book snapshot, best price first.
	OrderBook(ctx context.Context, asset, quote string) (*models.OrderBook, error)

	// LatestPrices returns last trade prices keyed by concatenated symbol
	// (for example BTCUSDT).
	LatestPrices(ctx context.Context) (map[string]float64, error)
}

// TriggerPublisher dispatches collection and analysis triggers to the bus.
type TriggerPublisher interface {
	PublishCollection(ctx context.Context, trigger *models.CollectionTrigger) error
	PublishAnalysis(ctx context.Context, trigger *models.AnalysisTrigger) error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordSnapshot(exchange, asset string)
	RecordLabeled(profitable bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
