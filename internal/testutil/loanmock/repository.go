package loanmock

import (
	"context"

	"microloan-service/internal/apperror"
	domain "microloan-service/internal/domain/loan"
)

// Repo is a function-backed mock of domain.Repository and
// domain.StatsReader. Unset funcs fall back to an empty store.
type Repo struct {
	InsertFn      func(ctx context.Context, l *domain.Loan) error
	FindByIDFn    func(ctx context.Context, id string) (*domain.Loan, error)
	FindAllFn     func(ctx context.Context, f domain.ListFilter) ([]domain.Loan, error)
	GroupTotalsFn func(ctx context.Context) ([]domain.GroupTotal, error)

	InsertCalls int
}

func (m *Repo) Insert(ctx context.Context, l *domain.Loan) error {
	m.InsertCalls++
	if m.InsertFn != nil {
		return m.InsertFn(ctx, l)
	}
	return nil
}

func (m *Repo) FindByID(ctx context.Context, id string) (*domain.Loan, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return nil, apperror.NotFound("loan not found")
}

func (m *Repo) FindAll(ctx context.Context, f domain.ListFilter) ([]domain.Loan, error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx, f)
	}
	return []domain.Loan{}, nil
}

func (m *Repo) GroupTotals(ctx context.Context) ([]domain.GroupTotal, error) {
	if m.GroupTotalsFn != nil {
		return m.GroupTotalsFn(ctx)
	}
	return nil, nil
}

// Invalidator records stats cache invalidations.
type Invalidator struct {
	Err   error
	Calls int
}

func (i *Invalidator) Invalidate(ctx context.Context) error {
	i.Calls++
	return i.Err
}
