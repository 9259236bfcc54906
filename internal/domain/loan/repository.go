package loan

import "context"

// Repository is the data-access contract for loans. Loans are never
// updated or deleted through it.
type Repository interface {
	Insert(ctx context.Context, l *Loan) error
	FindByID(ctx context.Context, id string) (*Loan, error)
	FindAll(ctx context.Context, f ListFilter) ([]Loan, error)
}

// StatsReader serves the aggregate query behind /api/stats.
type StatsReader interface {
	GroupTotals(ctx context.Context) ([]GroupTotal, error)
}
