// Package pricing converts consumption deltas into monetary amounts.
package pricing

import (
	"errors"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the rounding precision for amounts. All supported
// currencies use two minor-unit decimal places.
const MinorUnitPlaces = 2

var (
	ErrNegativeConsumption = errors.New("negative_consumption")
	ErrInvalidPrice        = errors.New("invalid_price_per_unit")
)

// Formula prices a consumption figure for one utility type.
type Formula func(consumption, pricePerUnit decimal.Decimal) decimal.Decimal

// linear is the current formula for every utility type. The per-type
// dispatch stays so tiered electricity pricing can slot in without touching
// callers.
func linear(consumption, pricePerUnit decimal.Decimal) decimal.Decimal {
	return consumption.Mul(pricePerUnit)
}

var formulas = map[meterdomain.UtilityType]Formula{
	meterdomain.UtilityElectricity: linear,
	meterdomain.UtilityWater:       linear,
	meterdomain.UtilityGas:         linear,
}

// Cost prices a non-negative consumption at the meter's per-unit price,
// rounded to the currency's minor-unit precision.
func Cost(utilityType meterdomain.UtilityType, consumption, pricePerUnit decimal.Decimal) (decimal.Decimal, error) {
	if consumption.IsNegative() {
		return decimal.Zero, ErrNegativeConsumption
	}
	if !pricePerUnit.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}

	formula, ok := formulas[utilityType]
	if !ok {
		formula = linear
	}

	return formula(consumption, pricePerUnit).Round(MinorUnitPlaces), nil
}
