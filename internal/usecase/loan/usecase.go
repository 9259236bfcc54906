package loan

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"microloan-service/internal/apperror"
	"microloan-service/internal/domain/loan"
	"microloan-service/pkg/id"
)

// StatsInvalidator drops cached aggregates after a write.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Usecase struct {
	repo  loan.Repository
	stats StatsInvalidator
	log   *zap.Logger
	v     *inputValidator

	now   func() time.Time
	newID func() string
}

// NewUsecase wires the loan service. stats may be nil when no cache is
// configured.
func NewUsecase(r loan.Repository, stats StatsInvalidator, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		repo:  r,
		stats: stats,
		log:   log,
		v:     newInputValidator(),
		now:   time.Now,
		newID: id.NewLoanID,
	}
}

func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*loan.Loan, error) {
	in.BorrowerID = strings.TrimSpace(in.BorrowerID)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))

	if err := u.v.validateCreate(in); err != nil {
		return nil, err
	}

	// millisecond precision survives every supported dialect unchanged
	now := u.now().UTC().Truncate(time.Millisecond)
	l := &loan.Loan{
		ID:              u.newID(),
		BorrowerID:      in.BorrowerID,
		Amount:          in.Amount,
		Currency:        in.Currency,
		TermMonths:      in.TermMonths,
		InterestRateAPR: in.InterestRateAPR,
		Status:          loan.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := u.repo.Insert(ctx, l); err != nil {
		return nil, err
	}

	if u.stats != nil {
		if err := u.stats.Invalidate(ctx); err != nil {
			u.log.Warn("stats cache invalidation failed", zap.String("loan_id", l.ID), zap.Error(err))
		}
	}

	u.log.Info("loan created",
		zap.String("loan_id", l.ID),
		zap.String("borrower_id", l.BorrowerID),
		zap.String("currency", l.Currency),
	)
	return l, nil
}

// Get treats a malformed id exactly like an unknown one.
func (u *Usecase) Get(ctx context.Context, loanID string) (*loan.Loan, error) {
	canonical, ok := id.Canonical(strings.TrimSpace(loanID))
	if !ok {
		return nil, apperror.NotFound("loan not found")
	}
	return u.repo.FindByID(ctx, canonical)
}

func (u *Usecase) List(ctx context.Context, in ListInput) ([]loan.Loan, error) {
	f := loan.ListFilter{BorrowerID: strings.TrimSpace(in.BorrowerID)}
	if s := strings.ToLower(strings.TrimSpace(in.Status)); s != "" {
		f.Status = loan.Status(s)
		if !f.Status.Valid() {
			return nil, apperror.Validation(apperror.FieldError{
				Field:   "status",
				Message: "must be one of pending, active, closed, defaulted",
			})
		}
	}

	out, err := u.repo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []loan.Loan{}
	}
	return out, nil
}
