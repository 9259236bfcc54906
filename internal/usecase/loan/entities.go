package loan

import (
	"github.com/shopspring/decimal"
)

// CreateLoanInput is what a client may supply. id, status and timestamps
// are always derived server-side.
//
// amount stays below 1e13 so that, with two decimal places, it has at most
// 15 significant digits and survives SQLite's REAL storage unchanged.
type CreateLoanInput struct {
	BorrowerID      string          `json:"borrower_id" validate:"required,max=64"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0,lt=10000000000000"`
	Currency        string          `json:"currency" validate:"required,len=3,iso4217"`
	TermMonths      int             `json:"term_months" validate:"gt=0"`
	InterestRateAPR decimal.Decimal `json:"interest_rate_apr" validate:"gte=0,lt=100000"`
}

type ListInput struct {
	Status     string
	BorrowerID string
}
