package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	pkgch "MarketPulse/pkg/clickhouse"
	applogger "MarketPulse/pkg/logger"
)

// CHVectorArchive implements VectorArchive backed by ClickHouse.
type CHVectorArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHVectorArchive(ch *pkgch.Client, l *applogger.Logger) *CHVectorArchive {
	return &CHVectorArchive{db: ch.DB(), table: "training_vectors", l: l}
}

func (a *CHVectorArchive) Append(ctx context.Context, vectors []models.TrainingVector) error {
	if len(vectors) == 0 {
		return nil
	}
	start := time.Now()
	values := make([]string, 0, len(vectors))
	args := make([]interface{}, 0, len(vectors)*6)
	for _, v := range vectors {
		profitable := uint8(0)
		if v.WasProfitable {
			profitable = 1
		}
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args,
			v.CreatedAt,
			v.Asset,
			v.AnalysisType,
			profitable,
			v.MaxChangePercent,
			v.Vector,
		)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (created_at, asset, analysis_type, was_profitable, max_change_percent, vector) VALUES %s",
		a.table, strings.Join(values, ","),
	)
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		a.l.Error("vector archive insert error",
			applogger.Int("rows", len(vectors)),
			applogger.Error(err),
		)
		return fmt.Errorf("append training vectors: %w", err)
	}
	a.l.Info("training vectors archived",
		applogger.Int("rows", len(vectors)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}
