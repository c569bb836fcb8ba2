package api

import (
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler exposes the collection rate-limiter surface.
type StatusHandler struct {
	logger *xlogger.Logger
	status *usecase.StatusUseCase
}

func NewStatusHandler(logger *xlogger.Logger, status *usecase.StatusUseCase) *StatusHandler {
	return &StatusHandler{logger: logger, status: status}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/collection")
	g.GET("/status", h.Status)
	g.GET("/status/:exchange", h.StatusFor)
	g.DELETE("/limit/:exchange", h.ClearLimit)
}

func (h *StatusHandler) Status(c echo.Context) error {
	stats := h.status.Status(c.Request().Context())
	return xhttp.SuccessResponse(c, stats)
}

func (h *StatusHandler) StatusFor(c echo.Context) error {
	name := c.Param("exchange")
	st, err := h.status.StatusFor(c.Request().Context(), name)
	if err != nil {
		return xhttp.NotFoundResponse(c, map[string]string{"exchange": name})
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *StatusHandler) ClearLimit(c echo.Context) error {
	name := c.Param("exchange")
	if err := h.status.ClearLimit(c.Request().Context(), name); err != nil {
		h.logger.Error("clear limit error", xlogger.String("exchange", name), xlogger.Error(err))
		return xhttp.NotFoundResponse(c, map[string]string{"exchange": name})
	}
	return xhttp.SuccessResponse(c, map[string]string{"exchange": name, "status": "cleared"})
}
