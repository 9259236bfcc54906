package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts go over the wire as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusClosed    Status = "closed"
	StatusDefaulted Status = "defaulted"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusPending, StatusActive, StatusClosed, StatusDefaulted}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Loan struct {
	ID              string          `gorm:"primaryKey;type:varchar(36);column:id" json:"id"`
	BorrowerID      string          `gorm:"size:64;not null;index:idx_loans_borrower_id" json:"borrower_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency        string          `gorm:"type:char(3);not null;index:idx_loans_currency" json:"currency"`
	TermMonths      int             `gorm:"not null" json:"term_months"`
	InterestRateAPR decimal.Decimal `gorm:"type:decimal(9,4);not null;column:interest_rate_apr" json:"interest_rate_apr"`
	Status          Status          `gorm:"size:16;not null;default:'pending';index:idx_loans_status" json:"status"`
	CreatedAt       time.Time       `gorm:"not null;index:idx_loans_created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// ListFilter narrows FindAll. Zero values mean "no filter".
type ListFilter struct {
	Status     Status
	BorrowerID string
}

// GroupTotal is one (status, currency) bucket. Every stats figure is
// derived from a single set of these rows.
type GroupTotal struct {
	Status   Status
	Currency string
	Count    int64
	Total    decimal.Decimal
}
