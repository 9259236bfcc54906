package http

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"microloan-service/internal/adapter/middleware"
	"microloan-service/internal/usecase/loan"
	"microloan-service/internal/usecase/stats"
)

// RouterDeps collects what the HTTP layer needs. Redis is optional; when
// nil, POST /api/loans is served without idempotency.
type RouterDeps struct {
	Loans     *loan.Usecase
	Stats     *stats.Aggregator
	Pinger    Pinger
	Redis     *redis.Client
	IdempTTL  time.Duration
	BodyLimit string
	Log       *zap.Logger
}

func NewRouter(d RouterDeps) *echo.Echo {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	bodyLimit := d.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	e.Use(
		middleware.RequestLogging(log),
		echomw.Recover(),
		echomw.BodyLimit(bodyLimit),
	)

	h := NewHandler(d.Pinger)
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)

	lh := NewLoanHandler(d.Loans, log)
	sh := NewStatsHandler(d.Stats, log)

	api := e.Group("/api")
	create := []echo.MiddlewareFunc{}
	if d.Redis != nil {
		create = append(create, middleware.IdempotencyMiddleware(d.Redis, d.IdempTTL, log))
	}
	api.POST("/loans", lh.CreateLoan, create...)
	api.GET("/loans", lh.ListLoans)
	api.GET("/loans/:id", lh.GetLoan)
	api.GET("/stats", sh.GetStats)

	return e
}
