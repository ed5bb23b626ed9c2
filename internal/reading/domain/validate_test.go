package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateValue(t *testing.T) {
	prev := dec("1000")

	tests := []struct {
		name     string
		value    decimal.Decimal
		previous *decimal.Decimal
		wantErr  error
	}{
		{"first reading accepted", dec("1000"), nil, nil},
		{"increase accepted", dec("1100"), &prev, nil},
		{"equal value accepted", dec("1000"), &prev, nil},
		{"regression rejected", dec("999"), &prev, ErrValueRegression},
		{"zero rejected", dec("0"), nil, ErrInvalidValue},
		{"negative rejected", dec("-5"), nil, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateValue(tt.value, tt.previous)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateValue_RegressionCarriesBothValues(t *testing.T) {
	prev := dec("1000")
	err := ValidateValue(dec("900"), &prev)

	var regression *RegressionError
	if assert.True(t, errors.As(err, &regression)) {
		assert.True(t, regression.Previous.Equal(dec("1000")))
		assert.True(t, regression.Submitted.Equal(dec("900")))
		assert.Equal(t, "reading cannot be lower than previous reading of 1000", regression.Error())
	}
}

func TestConsumptionOf(t *testing.T) {
	prev := dec("1000")

	assert.Nil(t, ConsumptionOf(dec("1000"), nil))

	delta := ConsumptionOf(dec("1100"), &prev)
	if assert.NotNil(t, delta) {
		assert.True(t, delta.Equal(dec("100")))
	}

	zero := ConsumptionOf(dec("1000"), &prev)
	if assert.NotNil(t, zero) {
		assert.True(t, zero.IsZero())
	}
}
