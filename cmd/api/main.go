package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpadp "microloan-service/internal/adapter/http"
	"microloan-service/internal/adapter/repository/sqlstore"
	"microloan-service/internal/config"
	"microloan-service/internal/infrastructure/cache"
	"microloan-service/internal/infrastructure/db"
	"microloan-service/internal/infrastructure/logger"
	"microloan-service/internal/usecase/loan"
	"microloan-service/internal/usecase/stats"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	err = run(cfg, lg)
	if err != nil {
		lg.Error("api server failed", zap.Error(err))
	}
	_ = lg.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run returns only after every resource it opened has been closed.
func run(cfg *config.Config, lg *zap.Logger) error {
	gdb, err := db.OpenGorm(cfg, lg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			lg.Warn("closing database", zap.Error(err))
		}
	}()
	if cfg.DBAutoMigrate {
		if err := sqlstore.Migrate(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	repo := sqlstore.NewLoanRepository(gdb, cfg.DBQueryTimeout)

	var (
		rdb         *redis.Client
		statsCache  stats.Cache
		invalidator loan.StatsInvalidator
	)
	if cfg.RedisEnabled() {
		rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		defer func() { _ = rdb.Close() }()

		jc := cache.NewJSONCache(rdb, stats.CacheKey, cfg.StatsCacheTTL)
		statsCache, invalidator = jc, jc
	} else {
		lg.Info("redis not configured; stats cache and idempotency disabled")
	}

	e := httpadp.NewRouter(httpadp.RouterDeps{
		Loans:     loan.NewUsecase(repo, invalidator, lg),
		Stats:     stats.NewAggregator(repo, statsCache, lg),
		Pinger:    repo,
		Redis:     rdb,
		IdempTTL:  cfg.IdempTTL,
		BodyLimit: cfg.BodyLimit,
		Log:       lg,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("api server starting", zap.String("addr", cfg.Addr()), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-sigCtx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	lg.Info("api server stopped")
	return serveErr
}
