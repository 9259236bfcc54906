// Package stats computes the /api/stats summary. Amounts are grouped per
// currency; a cross-currency sum is never produced.
package stats

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"microloan-service/internal/domain/loan"
)

// Stats is the /api/stats payload.
type Stats struct {
	TotalLoans      int64                      `json:"total_loans"`
	ByStatus        map[loan.Status]int64      `json:"by_status"`
	LoansByCurrency map[string]int64           `json:"loans_by_currency"`
	TotalAmount     map[string]decimal.Decimal `json:"total_amount"`
	AvgAmount       map[string]decimal.Decimal `json:"avg_amount"`
}

// CacheKey is the Redis key prefix shared by every process that reads or
// invalidates the stats cache.
const CacheKey = "microloans:stats:v2"

// Cache is a generation-scoped read-through store for the computed Stats.
// A document stored under a generation that has since been invalidated is
// never loaded.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Load(ctx context.Context, gen int64, dst any) (bool, error)
	Store(ctx context.Context, gen int64, v any) error
}

type Aggregator struct {
	repo  loan.StatsReader
	cache Cache
	log   *zap.Logger
}

// NewAggregator wires the aggregator; cache may be nil.
func NewAggregator(repo loan.StatsReader, cache Cache, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{repo: repo, cache: cache, log: log}
}

func (a *Aggregator) Compute(ctx context.Context) (*Stats, error) {
	useCache := a.cache != nil
	var gen int64
	if useCache {
		// taken before the query; a create during the query moves it on
		g, err := a.cache.Generation(ctx)
		if err != nil {
			a.log.Warn("stats cache unavailable", zap.Error(err))
			useCache = false
		}
		gen = g
	}

	if useCache {
		var cached Stats
		hit, err := a.cache.Load(ctx, gen, &cached)
		if err != nil {
			a.log.Warn("stats cache read failed", zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	out, err := a.compute(ctx)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := a.cache.Store(ctx, gen, out); err != nil {
			a.log.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// compute derives every figure from one grouped query, so total_loans,
// by_status and loans_by_currency always describe the same snapshot.
func (a *Aggregator) compute(ctx context.Context) (*Stats, error) {
	rows, err := a.repo.GroupTotals(ctx)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		ByStatus:        make(map[loan.Status]int64, len(loan.Statuses)),
		LoansByCurrency: make(map[string]int64),
		TotalAmount:     make(map[string]decimal.Decimal),
		AvgAmount:       make(map[string]decimal.Decimal),
	}
	for _, s := range loan.Statuses {
		out.ByStatus[s] = 0
	}

	sums := make(map[string]decimal.Decimal)
	for _, r := range rows {
		if r.Count == 0 {
			continue
		}
		out.TotalLoans += r.Count
		out.ByStatus[r.Status] += r.Count
		out.LoansByCurrency[r.Currency] += r.Count
		sums[r.Currency] = sums[r.Currency].Add(r.Total)
	}
	for cur, sum := range sums {
		n := decimal.NewFromInt(out.LoansByCurrency[cur])
		out.TotalAmount[cur] = sum.Round(2)
		out.AvgAmount[cur] = sum.Div(n).Round(2)
	}
	return out, nil
}
