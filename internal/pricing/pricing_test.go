package pricing

import (
	"testing"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name        string
		utilityType meterdomain.UtilityType
		consumption string
		price       string
		want        string
		wantErr     error
	}{
		{
			name:        "electricity linear",
			utilityType: meterdomain.UtilityElectricity,
			consumption: "100",
			price:       "0.65",
			want:        "65",
		},
		{
			name:        "water linear",
			utilityType: meterdomain.UtilityWater,
			consumption: "12",
			price:       "4.5",
			want:        "54",
		},
		{
			name:        "gas fractional consumption rounds to minor units",
			utilityType: meterdomain.UtilityGas,
			consumption: "7.333",
			price:       "1.731",
			want:        "12.69",
		},
		{
			name:        "zero consumption is zero cost",
			utilityType: meterdomain.UtilityElectricity,
			consumption: "0",
			price:       "0.65",
			want:        "0",
		},
		{
			name:        "negative consumption rejected",
			utilityType: meterdomain.UtilityElectricity,
			consumption: "-1",
			price:       "0.65",
			wantErr:     ErrNegativeConsumption,
		},
		{
			name:        "zero price rejected",
			utilityType: meterdomain.UtilityWater,
			consumption: "10",
			price:       "0",
			wantErr:     ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumption := decimal.RequireFromString(tt.consumption)
			price := decimal.RequireFromString(tt.price)

			got, err := Cost(tt.utilityType, consumption, price)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"want %s, got %s", tt.want, got)
		})
	}
}

func TestCostRoundingHalfUp(t *testing.T) {
	// 3 * 0.335 = 1.005 rounds to 1.01 at two minor-unit places.
	got, err := Cost(meterdomain.UtilityElectricity,
		decimal.NewFromInt(3), decimal.RequireFromString("0.335"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1.01")), "got %s", got)
}
