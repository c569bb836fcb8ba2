package jobs

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/queue"
)

// Labeler runs one labeling pass and the derived-store retention cleanup.
type Labeler interface {
	Run(ctx context.Context, trigger *models.AnalysisTrigger) ([]*models.ProfitableMarketLog, error)
	Cleanup(ctx context.Context) (int64, error)
}

// AnalysisJob consumes analysis triggers and runs one labeling pass plus the
// retention cleanup for the derived store.
type AnalysisJob struct {
	logger  *logger.Logger
	labeler Labeler

	now func() time.Time
}

func NewAnalysisJob(lgr *logger.Logger, labeler Labeler) *AnalysisJob {
	return &AnalysisJob{
		logger:  lgr,
		labeler: labeler,
		now:     time.Now,
	}
}

func (j *AnalysisJob) Name() string {
	return "profitable-logs-analysis"
}

func (j *AnalysisJob) Type() string {
	return models.MessageTypeAnalysis
}

func (j *AnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	trigger, err := queue.ParsePayload[models.AnalysisTrigger](payload)
	if err != nil {
		j.logger.Error("analysis trigger malformed", logger.Error(err))
		return nil
	}

	if err := http.Validate(trigger); err != nil {
		j.logger.Error("analysis trigger invalid",
			logger.Any("trigger", trigger),
			logger.Error(err))
		return nil
	}

	if trigger.Expired(j.now()) {
		j.logger.Warn("analysis trigger expired, dropping",
			logger.String("analysis_type", trigger.AnalysisType),
			logger.String("expired_at", trigger.ExpiresAt.Format(time.RFC3339)))
		return nil
	}

	published, err := j.labeler.Run(ctx, trigger)
	if err != nil {
		return err
	}

	if _, err := j.labeler.Cleanup(ctx); err != nil {
		// Cleanup failure must not fail the labeling run; retention catches
		// up on the next trigger.
		j.logger.Warn("retention cleanup failed", logger.Error(err))
	}

	j.logger.Info("analysis job done",
		logger.String("analysis_type", trigger.AnalysisType),
		logger.Int("published", len(published)))
	return nil
}
