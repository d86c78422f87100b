package rate

import "errors"

var (
	ErrNoTiers      = errors.New("rate has no base guest amounts")
	ErrInvalidRange = errors.New("end date is before start date")
	ErrInvalidTier  = errors.New("numberOfGuests must be at least 1")
	ErrNegative     = errors.New("amount must not be negative")
	ErrAgeCode      = errors.New("ageQualifyingCode must be one of 10, 8, 7")
)
