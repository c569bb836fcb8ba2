package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler groups every API surface behind one route registrar.
type Handler struct {
	Status     *StatusHandler
	Analysis   *AnalysisHandler
	Profitable *ProfitableHandler

	// Health reports readiness of the infrastructure clients.
	Health func() error
}

func NewHandler(status *StatusHandler, analysis *AnalysisHandler, profitable *ProfitableHandler) *Handler {
	return &Handler{Status: status, Analysis: analysis, Profitable: profitable}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
	if h.Status != nil {
		h.Status.RegisterRoutes(e)
	}
	if h.Analysis != nil {
		h.Analysis.RegisterRoutes(e)
	}
	if h.Profitable != nil {
		h.Profitable.RegisterRoutes(e)
	}
}

func (h *Handler) health(c echo.Context) error {
	if h.Health != nil {
		if err := h.Health(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
