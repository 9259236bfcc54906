// Command seed inserts sample loans through the loan service, so rows go
// through the same validation as API writes. When REDIS_ADDR is set the
// API's stats cache is invalidated for every row created.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"microloan-service/internal/adapter/repository/sqlstore"
	"microloan-service/internal/config"
	"microloan-service/internal/infrastructure/cache"
	"microloan-service/internal/infrastructure/db"
	"microloan-service/internal/infrastructure/logger"
	"microloan-service/internal/usecase/loan"
	"microloan-service/internal/usecase/stats"
)

func main() {
	n := flag.Int("n", 10, "number of loans to create")
	prefix := flag.String("borrower-prefix", "seed_borrower_", "borrower id prefix")
	currencies := flag.String("currency", "USD,INR,KES", "comma-separated ISO 4217 codes to rotate through")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	err = seed(cfg, lg, *n, *prefix, splitCodes(*currencies))
	if err != nil {
		lg.Error("seeding failed", zap.Error(err))
	}
	_ = lg.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func seed(cfg *config.Config, lg *zap.Logger, n int, prefix string, codes []string) error {
	gdb, err := db.OpenGorm(cfg, lg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close(gdb) }()
	if err := sqlstore.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var invalidator loan.StatsInvalidator
	if cfg.RedisEnabled() {
		rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		defer func() { _ = rdb.Close() }()
		invalidator = cache.NewJSONCache(rdb, stats.CacheKey, cfg.StatsCacheTTL)
	}

	uc := loan.NewUsecase(sqlstore.NewLoanRepository(gdb, cfg.DBQueryTimeout), invalidator, lg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created := 0
	for i := 0; i < n; i++ {
		if _, err := uc.Create(ctx, sampleInput(i, prefix, codes)); err != nil {
			lg.Warn("seed loan rejected", zap.Int("index", i), zap.Error(err))
			continue
		}
		created++
	}
	lg.Info("seeding done", zap.Int("requested", n), zap.Int("created", created))
	return nil
}

func splitCodes(raw string) []string {
	var out []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = []string{"USD"}
	}
	return out
}

func sampleInput(i int, prefix string, codes []string) loan.CreateLoanInput {
	// 100.00 .. 50000.00 in whole cents
	cents := 10_000 + rand.Int64N(4_990_001)
	return loan.CreateLoanInput{
		BorrowerID:      fmt.Sprintf("%s%03d", prefix, i+1),
		Amount:          decimal.New(cents, -2),
		Currency:        codes[i%len(codes)],
		TermMonths:      []int{3, 6, 12, 24}[i%4],
		InterestRateAPR: decimal.New(500+rand.Int64N(3000), -2),
	}
}
