package domain

import "github.com/shopspring/decimal"

// ValidateValue accepts or rejects a submitted cumulative value against the
// meter's latest persisted value. Pure; runs before anything is written.
func ValidateValue(value decimal.Decimal, previous *decimal.Decimal) error {
	if !value.IsPositive() {
		return ErrInvalidValue
	}
	if previous != nil && value.LessThan(*previous) {
		return &RegressionError{Previous: *previous, Submitted: value}
	}
	return nil
}

// ConsumptionOf derives the usage delta attributable to a new reading. A
// first-ever reading has no delta and returns nil; an unchanged register
// returns zero.
func ConsumptionOf(value decimal.Decimal, previous *decimal.Decimal) *decimal.Decimal {
	if previous == nil {
		return nil
	}
	delta := value.Sub(*previous)
	return &delta
}
