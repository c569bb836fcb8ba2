package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"MarketPulse/internal/domain/models"
	applogger "MarketPulse/pkg/logger"
	pkgpg "MarketPulse/pkg/postgres"
)

// PGMarketLogStore implements MarketLogStore backed by Postgres.
type PGMarketLogStore struct {
	pool *pgxpool.Pool
	l    *applogger.Logger
}

func NewPGMarketLogStore(pg *pkgpg.Client, l *applogger.Logger) *PGMarketLogStore {
	return &PGMarketLogStore{pool: pg.Pool(), l: l}
}

const marketLogColumns = `id, market, asset, quote, current_price, price_precision, amount_precision,
        obi, changes, tf_5m, tf_15m, tf_1h, tf_4h, is_ranging, vector,
        was_profitable, max_price_change_percent, profitability_checked_at, time_to_reach, created_at`

func (s *PGMarketLogStore) InsertMany(ctx context.Context, logs []*models.MarketLog) error {
	if len(logs) == 0 {
		return nil
	}
	start := time.Now()
	batch := &pgx.Batch{}
	const q = `INSERT INTO market_logs (` + marketLogColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`
	for _, log := range logs {
		args, err := marketLogArgs(log)
		if err != nil {
			return err
		}
		batch.Queue(q, args...)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range logs {
		if _, err := results.Exec(); err != nil {
			s.l.Error("market log insert failed", applogger.Error(err))
			return fmt.Errorf("insert market logs: %w", err)
		}
	}
	s.l.Debug("market logs inserted",
		applogger.Int("count", len(logs)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *PGMarketLogStore) FindBatchSince(ctx context.Context, since time.Time, limit, offset int) ([]*models.MarketLog, error) {
	const q = `SELECT ` + marketLogColumns + ` FROM market_logs
        WHERE created_at >= $1
        ORDER BY created_at ASC
        LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, q, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("find batch: %w", err)
	}
	defer rows.Close()
	return collectMarketLogs(rows)
}

func (s *PGMarketLogStore) FindByAssetInWindow(ctx context.Context, asset string, from, to time.Time) ([]*models.MarketLog, error) {
	const q = `SELECT ` + marketLogColumns + ` FROM market_logs
        WHERE asset = $1 AND created_at >= $2 AND created_at <= $3
        ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, q, asset, from, to)
	if err != nil {
		return nil, fmt.Errorf("find by asset: %w", err)
	}
	defer rows.Close()
	return collectMarketLogs(rows)
}

func (s *PGMarketLogStore) UpdateProfitability(ctx context.Context, id string, wasProfitable bool, maxChangePercent float64, checkedAt time.Time, timeToReach string) error {
	const q = `UPDATE market_logs
        SET was_profitable = $2,
            max_price_change_percent = $3,
            profitability_checked_at = $4,
            time_to_reach = $5
        WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, wasProfitable, maxChangePercent, checkedAt, timeToReach)
	if err != nil {
		return fmt.Errorf("update profitability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.l.Warn("profitability update matched no snapshot", applogger.String("id", id))
	}
	return nil
}

func marketLogArgs(log *models.MarketLog) ([]interface{}, error) {
	changes, err := json.Marshal(log.Changes)
	if err != nil {
		return nil, fmt.Errorf("marshal changes: %w", err)
	}
	tfs := make([][]byte, 4)
	for i, tf := range log.Snapshots() {
		if tf == nil {
			continue
		}
		b, err := json.Marshal(tf)
		if err != nil {
			return nil, fmt.Errorf("marshal timeframe: %w", err)
		}
		tfs[i] = b
	}
	return []interface{}{
		log.ID, log.Market, log.Asset, log.Quote,
		log.CurrentPrice, log.PricePrecision, log.AmountPrecision,
		log.OBI, changes, tfs[0], tfs[1], tfs[2], tfs[3],
		log.IsRanging, log.Vector,
		log.WasProfitable, log.MaxPriceChangePercent, log.ProfitabilityCheckedAt, log.TimeToReach,
		log.CreatedAt,
	}, nil
}

func collectMarketLogs(rows pgx.Rows) ([]*models.MarketLog, error) {
	out := make([]*models.MarketLog, 0, 64)
	for rows.Next() {
		log, err := scanMarketLog(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// scanMarketLog reads one snapshot row. extra receives scan targets for
// columns appended after the shared snapshot columns.
func scanMarketLog(rows pgx.Rows, extra []interface{}) (*models.MarketLog, error) {
	var (
		log     models.MarketLog
		changes []byte
		tfs     [4][]byte
	)
	dest := []interface{}{
		&log.ID, &log.Market, &log.Asset, &log.Quote,
		&log.CurrentPrice, &log.PricePrecision, &log.AmountPrecision,
		&log.OBI, &changes, &tfs[0], &tfs[1], &tfs[2], &tfs[3],
		&log.IsRanging, &log.Vector,
		&log.WasProfitable, &log.MaxPriceChangePercent, &log.ProfitabilityCheckedAt, &log.TimeToReach,
		&log.CreatedAt,
	}
	dest = append(dest, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan market log: %w", err)
	}
	if err := json.Unmarshal(changes, &log.Changes); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}
	targets := []**models.TimeframeSnapshot{&log.TF5m, &log.TF15m, &log.TF1h, &log.TF4h}
	for i, raw := range tfs {
		if len(raw) == 0 {
			continue
		}
		var tf models.TimeframeSnapshot
		if err := json.Unmarshal(raw, &tf); err != nil {
			return nil, fmt.Errorf("decode timeframe: %w", err)
		}
		*targets[i] = &tf
	}
	return &log, nil
}
