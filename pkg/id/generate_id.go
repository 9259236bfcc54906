package id

import (
	"github.com/google/uuid"
)

// NewLoanID returns a canonical UUIDv7 string. v7 ids are time-ordered,
// so primary-key order follows insertion order. Falls back to v4 if the
// v7 generator cannot read randomness.
func NewLoanID() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// Canonical parses s as a UUID and returns its lowercase hyphenated form.
func Canonical(s string) (string, bool) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
