package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"microloan-service/internal/usecase/stats"
)

type StatsHandler struct {
	agg *stats.Aggregator
	log *zap.Logger
}

func NewStatsHandler(agg *stats.Aggregator, log *zap.Logger) *StatsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatsHandler{agg: agg, log: log}
}

func (h *StatsHandler) GetStats(c echo.Context) error {
	s, err := h.agg.Compute(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}
