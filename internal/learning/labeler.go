package learning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

// LabelerConfig carries the labeling thresholds and paging bounds.
type LabelerConfig struct {
	WindowDays       int
	MaxHours         int
	ProfitThreshold  float64
	PublishThreshold float64
	BatchSize        int
	RetentionDays    int
}

// Labeler walks recent snapshots, measures the best future price move for
// each one, writes the profitability outcome back, and publishes the single
// best profitable snapshot per asset to the derived store.
type Labeler struct {
	logger     *logger.Logger
	logs       repository.MarketLogStore
	profitable repository.ProfitableLogStore
	archive    repository.VectorArchive
	metrics    repository.Metrics
	cfg        LabelerConfig

	now func() time.Time
}

// NewLabeler creates a labeling engine. archive may be nil when the training
// export is disabled.
func NewLabeler(
	lgr *logger.Logger,
	logs repository.MarketLogStore,
	profitable repository.ProfitableLogStore,
	archive repository.VectorArchive,
	metrics repository.Metrics,
	cfg LabelerConfig,
) *Labeler {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 1
	}
	if cfg.MaxHours <= 0 {
		cfg.MaxHours = 24
	}
	if cfg.ProfitThreshold <= 0 {
		cfg.ProfitThreshold = 2.0
	}
	if cfg.PublishThreshold <= 0 {
		cfg.PublishThreshold = 2.5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 400
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return &Labeler{
		logger:     lgr,
		logs:       logs,
		profitable: profitable,
		archive:    archive,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

type labeled struct {
	log    *models.MarketLog
	change float64
	hours  float64
}

// Run executes one labeling pass over the trigger's window and returns the
// published best-per-asset set, sorted by absolute change descending.
func (l *Labeler) Run(ctx context.Context, trigger *models.AnalysisTrigger) ([]*models.ProfitableMarketLog, error) {
	now := l.now()

	since := now.Add(-time.Duration(l.cfg.WindowDays) * 24 * time.Hour)
	if t, ok := util.ParseTime(trigger.StartDate); ok {
		since = t
	}
	var until *time.Time
	if t, ok := util.ParseTime(trigger.EndDate); ok {
		until = &t
	}

	l.logger.Info("labeling run started",
		logger.String("analysis_type", trigger.AnalysisType),
		logger.String("since", since.Format(time.RFC3339)))

	var profitable []labeled
	var scanned, updated int

	offset := 0
	for {
		// Cancellation is only honored between batches.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		batch, err := l.logs.FindBatchSince(ctx, since, l.cfg.BatchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch snapshot batch at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, log := range batch {
			if until != nil && log.CreatedAt.After(*until) {
				continue
			}
			scanned++

			outcome, ok, err := l.labelOne(ctx, log)
			if err != nil {
				return nil, fmt.Errorf("label snapshot %s: %w", log.ID, err)
			}
			if !ok {
				continue
			}
			updated++
			if math.Abs(outcome.change) >= l.cfg.ProfitThreshold {
				profitable = append(profitable, outcome)
			}
		}

		offset += len(batch)
		if len(batch) < l.cfg.BatchSize {
			break
		}
	}

	published, err := l.publishBest(ctx, trigger.AnalysisType, profitable, now)
	if err != nil {
		return nil, err
	}

	l.logger.Info("labeling run finished",
		logger.String("analysis_type", trigger.AnalysisType),
		logger.Int("scanned", scanned),
		logger.Int("labeled", updated),
		logger.Int("profitable", len(profitable)),
		logger.Int("published", len(published)))

	return published, nil
}

// labelOne measures the best future move for one snapshot and persists the
// outcome. The second return is false when the look-ahead window was empty;
// the snapshot stays unlabeled and a later run will see it again.
func (l *Labeler) labelOne(ctx context.Context, log *models.MarketLog) (labeled, bool, error) {
	windowEnd := log.CreatedAt.Add(time.Duration(l.cfg.MaxHours) * time.Hour)

	future, err := l.logs.FindByAssetInWindow(ctx, log.Asset, log.CreatedAt, windowEnd)
	if err != nil {
		return labeled{}, false, err
	}

	var bestChange float64
	var bestHours float64
	found := false
	for _, f := range future {
		if f.ID == log.ID {
			continue
		}
		change := util.PercentChange(log.CurrentPrice, f.CurrentPrice)
		if !found || math.Abs(change) > math.Abs(bestChange) {
			bestChange = change
			bestHours = f.CreatedAt.Sub(log.CreatedAt).Hours()
			found = true
		}
	}
	if !found {
		return labeled{}, false, nil
	}

	wasProfitable := math.Abs(bestChange) >= l.cfg.ProfitThreshold
	checkedAt := l.now()
	timeToReach := util.FormatTimeToReach(bestHours)

	if err := l.logs.UpdateProfitability(ctx, log.ID, wasProfitable, bestChange, checkedAt, timeToReach); err != nil {
		return labeled{}, false, err
	}

	log.WasProfitable = &wasProfitable
	log.MaxPriceChangePercent = bestChange
	log.ProfitabilityCheckedAt = &checkedAt
	log.TimeToReach = timeToReach
	l.metrics.RecordLabeled(wasProfitable)

	return labeled{log: log, change: bestChange, hours: bestHours}, true, nil
}

// publishBest reduces the profitable set to one entry per asset, filters by
// the stricter publish threshold, and copies survivors into the derived
// store with a freshly encoded vector.
func (l *Labeler) publishBest(ctx context.Context, analysisType string, profitable []labeled, runTime time.Time) ([]*models.ProfitableMarketLog, error) {
	best := make(map[string]labeled)
	for _, entry := range profitable {
		current, exists := best[entry.log.Asset]
		if !exists || math.Abs(entry.change) > math.Abs(current.change) {
			best[entry.log.Asset] = entry
		}
	}

	var published []*models.ProfitableMarketLog
	for _, entry := range best {
		if math.Abs(entry.change) <= l.cfg.PublishThreshold {
			continue
		}

		copied := *entry.log
		copied.ID = uuid.NewString()
		copied.Vector = Encode(&copied)

		published = append(published, &models.ProfitableMarketLog{
			MarketLog:     copied,
			AnalysisDate:  runTime,
			AnalysisType:  analysisType,
			OriginalLogID: entry.log.ID,
		})
	}

	sort.Slice(published, func(i, j int) bool {
		return math.Abs(published[i].MaxPriceChangePercent) > math.Abs(published[j].MaxPriceChangePercent)
	})

	if len(published) == 0 {
		return published, nil
	}

	if err := l.profitable.InsertMany(ctx, published); err != nil {
		return nil, fmt.Errorf("publish profitable logs: %w", err)
	}

	if l.archive != nil {
		rows := make([]models.TrainingVector, 0, len(published))
		for _, p := range published {
			rows = append(rows, models.TrainingVector{
				CreatedAt:        p.AnalysisDate,
				Asset:            p.Asset,
				AnalysisType:     p.AnalysisType,
				WasProfitable:    true,
				MaxChangePercent: p.MaxPriceChangePercent,
				Vector:           p.Vector,
			})
		}
		if err := l.archive.Append(ctx, rows); err != nil {
			// The derived store already has the rows; the archive is an
			// export sink, so losing a batch is not fatal to the run.
			l.logger.Warn("training vector archive append failed", logger.Error(err))
			l.metrics.RecordError("vector_archive")
		}
	}

	return published, nil
}

// Cleanup applies the retention policy to the derived store.
func (l *Labeler) Cleanup(ctx context.Context) (int64, error) {
	cutoff := l.now().Add(-time.Duration(l.cfg.RetentionDays) * 24 * time.Hour)
	deleted, err := l.profitable.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("profitable retention cleanup: %w", err)
	}
	if deleted > 0 {
		l.logger.Info("profitable retention cleanup",
			logger.Int64("deleted", deleted),
			logger.String("cutoff", cutoff.Format(time.RFC3339)))
	}
	return deleted, nil
}
