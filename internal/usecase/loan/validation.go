package loan

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"microloan-service/internal/apperror"
)

type inputValidator struct{ v *validator.Validate }

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so details match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// numeric tags (gt, gte, lt) see decimals as float64
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &inputValidator{v: v}
}

// validateCreate runs the tag rules and then the scale rules, which need
// the exact decimal rather than its float64 view. A field reports at most
// one problem.
func (iv *inputValidator) validateCreate(in CreateLoanInput) error {
	var details []apperror.FieldError
	if err := iv.v.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return apperror.Validation(apperror.FieldError{Field: "_", Message: err.Error()})
		}
		details = toFieldErrors(ve)
	}

	failed := make(map[string]bool, len(details))
	for _, d := range details {
		failed[d.Field] = true
	}
	if !failed["amount"] && !hasMaxPlaces(in.Amount, 2) {
		details = append(details, apperror.FieldError{Field: "amount", Message: "must have at most 2 decimal places"})
	}
	if !failed["interest_rate_apr"] && !hasMaxPlaces(in.InterestRateAPR, 4) {
		details = append(details, apperror.FieldError{Field: "interest_rate_apr", Message: "must have at most 4 decimal places"})
	}

	if len(details) == 0 {
		return nil
	}
	return apperror.Validation(details...)
}

func hasMaxPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

// toFieldErrors maps validator errors onto readable, one-per-field
// messages.
func toFieldErrors(ve validator.ValidationErrors) []apperror.FieldError {
	out := make([]apperror.FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, apperror.FieldError{Field: field, Message: "is required"})
		case "gt":
			out = append(out, apperror.FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "gte":
			out = append(out, apperror.FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lt":
			out = append(out, apperror.FieldError{Field: field, Message: "must be less than " + e.Param()})
		case "max":
			out = append(out, apperror.FieldError{Field: field, Message: "must be at most " + e.Param() + " characters"})
		case "len":
			out = append(out, apperror.FieldError{Field: field, Message: "must be exactly " + e.Param() + " characters"})
		case "iso4217":
			out = append(out, apperror.FieldError{Field: field, Message: "must be an ISO 4217 currency code"})
		default:
			out = append(out, apperror.FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
