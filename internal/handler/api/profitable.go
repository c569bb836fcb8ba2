package api

import (
	"time"

	domrepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

const defaultTopLimit = 20

// ProfitableHandler serves the derived best-performer collection.
type ProfitableHandler struct {
	logger *xlogger.Logger
	store  domrepo.ProfitableLogStore
}

func NewProfitableHandler(logger *xlogger.Logger, store domrepo.ProfitableLogStore) *ProfitableHandler {
	return &ProfitableHandler{logger: logger, store: store}
}

func (h *ProfitableHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/profitable")
	g.GET("/top", h.Top)
	g.GET("/asset/:asset", h.ByAsset)
	g.GET("/range", h.ByRange)
	g.GET("/stats", h.Stats)
}

func (h *ProfitableHandler) Top(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), defaultTopLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultTopLimit
	}
	logs, err := h.store.FindTop(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("profitable top query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, logs)
}

func (h *ProfitableHandler) ByAsset(c echo.Context) error {
	asset := c.Param("asset")
	logs, err := h.store.FindByAsset(c.Request().Context(), asset)
	if err != nil {
		h.logger.Error("profitable asset query error",
			xlogger.String("asset", asset),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	if len(logs) == 0 {
		return xhttp.NotFoundResponse(c, map[string]string{"asset": asset})
	}
	return xhttp.SuccessResponse(c, logs)
}

func (h *ProfitableHandler) ByRange(c echo.Context) error {
	start, ok := util.ParseTime(c.QueryParam("start"))
	if !ok {
		return xhttp.BadRequestResponse(c, map[string]string{"start": "invalid or missing timestamp"})
	}
	end := util.ParseTimeDefault(c.QueryParam("end"), time.Now().UTC())
	if end.Before(start) {
		return xhttp.BadRequestResponse(c, map[string]string{"end": "must not precede start"})
	}
	logs, err := h.store.FindByDateRange(c.Request().Context(), start, end)
	if err != nil {
		h.logger.Error("profitable range query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, logs)
}

func (h *ProfitableHandler) Stats(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("profitable stats query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, stats)
}
