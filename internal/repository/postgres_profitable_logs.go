package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"MarketPulse/internal/domain/models"
	applogger "MarketPulse/pkg/logger"
	pkgpg "MarketPulse/pkg/postgres"
)

// PGProfitableLogStore implements ProfitableLogStore backed by Postgres.
type PGProfitableLogStore struct {
	pool *pgxpool.Pool
	l    *applogger.Logger
}

func NewPGProfitableLogStore(pg *pkgpg.Client, l *applogger.Logger) *PGProfitableLogStore {
	return &PGProfitableLogStore{pool: pg.Pool(), l: l}
}

const profitableColumns = marketLogColumns + `, analysis_date, analysis_type, original_log_id`

func (s *PGProfitableLogStore) InsertMany(ctx context.Context, logs []*models.ProfitableMarketLog) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `INSERT INTO profitable_market_logs (` + profitableColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`
	for _, log := range logs {
		args, err := marketLogArgs(&log.MarketLog)
		if err != nil {
			return err
		}
		args = append(args, log.AnalysisDate, log.AnalysisType, log.OriginalLogID)
		batch.Queue(q, args...)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range logs {
		if _, err := results.Exec(); err != nil {
			s.l.Error("profitable log insert failed", applogger.Error(err))
			return fmt.Errorf("insert profitable logs: %w", err)
		}
	}
	s.l.Info("profitable logs inserted", applogger.Int("count", len(logs)))
	return nil
}

func (s *PGProfitableLogStore) FindTop(ctx context.Context, limit int) ([]*models.ProfitableMarketLog, error) {
	const q = `SELECT ` + profitableColumns + ` FROM profitable_market_logs
        ORDER BY abs(max_price_change_percent) DESC
        LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("find top: %w", err)
	}
	defer rows.Close()
	return collectProfitableLogs(rows)
}

func (s *PGProfitableLogStore) FindByAsset(ctx context.Context, asset string) ([]*models.ProfitableMarketLog, error) {
	const q = `SELECT ` + profitableColumns + ` FROM profitable_market_logs
        WHERE asset = $1
        ORDER BY analysis_date DESC`
	rows, err := s.pool.Query(ctx, q, asset)
	if err != nil {
		return nil, fmt.Errorf("find by asset: %w", err)
	}
	defer rows.Close()
	return collectProfitableLogs(rows)
}

func (s *PGProfitableLogStore) FindByDateRange(ctx context.Context, start, end time.Time) ([]*models.ProfitableMarketLog, error) {
	const q = `SELECT ` + profitableColumns + ` FROM profitable_market_logs
        WHERE analysis_date >= $1 AND analysis_date <= $2
        ORDER BY analysis_date ASC`
	rows, err := s.pool.Query(ctx, q, start, end)
	if err != nil {
		return nil, fmt.Errorf("find by date range: %w", err)
	}
	defer rows.Close()
	return collectProfitableLogs(rows)
}

func (s *PGProfitableLogStore) Stats(ctx context.Context) (*models.ProfitableStats, error) {
	const q = `SELECT
            count(*),
            coalesce(avg(abs(max_price_change_percent)), 0),
            coalesce((SELECT asset FROM profitable_market_logs
                ORDER BY abs(max_price_change_percent) DESC LIMIT 1), ''),
            coalesce(max(abs(max_price_change_percent)), 0)
        FROM profitable_market_logs`
	var stats models.ProfitableStats
	err := s.pool.QueryRow(ctx, q).Scan(
		&stats.TotalCount,
		&stats.AverageProfitability,
		&stats.TopAsset,
		&stats.TopProfitability,
	)
	if err != nil {
		return nil, fmt.Errorf("profitable stats: %w", err)
	}
	return &stats, nil
}

func (s *PGProfitableLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profitable_market_logs WHERE analysis_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old profitable logs: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.l.Info("profitable logs pruned",
			applogger.Int64("deleted", n),
			applogger.String("cutoff", cutoff.Format(time.RFC3339)),
		)
		return n, nil
	}
	return 0, nil
}

func collectProfitableLogs(rows pgx.Rows) ([]*models.ProfitableMarketLog, error) {
	out := make([]*models.ProfitableMarketLog, 0, 32)
	for rows.Next() {
		var p models.ProfitableMarketLog
		log, err := scanMarketLog(rows, []interface{}{&p.AnalysisDate, &p.AnalysisType, &p.OriginalLogID})
		if err != nil {
			return nil, err
		}
		p.MarketLog = *log
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
