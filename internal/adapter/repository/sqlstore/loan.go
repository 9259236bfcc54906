// Package sqlstore is the gorm-backed loan repository. It works against
// any dialect opened by infrastructure/db.
package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"microloan-service/internal/apperror"
	loanDomain "microloan-service/internal/domain/loan"
	"microloan-service/internal/infrastructure/db"
)

type LoanRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewLoanRepository bounds every query by timeout; zero means the
// caller's context alone decides.
func NewLoanRepository(gdb *gorm.DB, timeout time.Duration) *LoanRepository {
	return &LoanRepository{db: gdb, timeout: timeout}
}

// Migrate creates or updates the loans table.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&loanDomain.Loan{})
}

func (r *LoanRepository) Insert(ctx context.Context, l *loanDomain.Loan) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Create(l).Error
	switch {
	case err == nil:
		return nil
	case isDuplicate(err):
		return apperror.Conflict("loan id already exists", err)
	default:
		return apperror.Storage(err)
	}
}

func (r *LoanRepository) FindByID(ctx context.Context, id string) (*loanDomain.Loan, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out loanDomain.Loan
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("loan not found")
	}
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return &out, nil
}

// FindAll returns loans in insertion order.
func (r *LoanRepository) FindAll(ctx context.Context, f loanDomain.ListFilter) ([]loanDomain.Loan, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&loanDomain.Loan{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BorrowerID != "" {
		q = q.Where("borrower_id = ?", f.BorrowerID)
	}

	out := make([]loanDomain.Loan, 0)
	if err := q.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, apperror.Storage(err)
	}
	return out, nil
}

// GroupTotals counts and sums loans per (status, currency) in one
// statement, so the figures derived from it agree with each other. Sums
// are never taken across currencies.
func (r *LoanRepository) GroupTotals(ctx context.Context) ([]loanDomain.GroupTotal, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rows []loanDomain.GroupTotal
	err := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Select("status, currency, COUNT(*) AS count, SUM(amount) AS total").
		Group("status, currency").
		Order("currency ASC, status ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return rows, nil
}

func (r *LoanRepository) Ping(ctx context.Context) error {
	return db.Ping(ctx, r.db)
}

func (r *LoanRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// isDuplicate covers drivers whose errors gorm cannot translate.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry")
}
