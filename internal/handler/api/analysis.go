package api

import (
	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler accepts on-demand labeling requests and dispatches them to
// the trigger bus; the run itself happens on the worker side.
type AnalysisHandler struct {
	logger    *xlogger.Logger
	publisher domrepo.TriggerPublisher
}

func NewAnalysisHandler(logger *xlogger.Logger, publisher domrepo.TriggerPublisher) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, publisher: publisher}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/analysis", h.Trigger)
}

func (h *AnalysisHandler) Trigger(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.StartDate != "" {
		if _, ok := util.ParseTime(req.StartDate); !ok {
			return xhttp.BadRequestResponse(c, map[string]string{"startDate": "invalid timestamp"})
		}
	}
	if req.EndDate != "" {
		if _, ok := util.ParseTime(req.EndDate); !ok {
			return xhttp.BadRequestResponse(c, map[string]string{"endDate": "invalid timestamp"})
		}
	}

	trigger := models.NewAnalysisTrigger(req.AnalysisType, req.StartDate, req.EndDate)
	if err := h.publisher.PublishAnalysis(c.Request().Context(), trigger); err != nil {
		h.logger.Error("analysis trigger publish error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.logger.Info("analysis triggered",
		xlogger.String("type", trigger.AnalysisType),
		xlogger.String("start", trigger.StartDate),
		xlogger.String("end", trigger.EndDate),
	)
	return xhttp.SuccessResponse(c, trigger)
}
