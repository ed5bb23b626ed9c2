package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBreakdownMerge_FirstEntry(t *testing.T) {
	b := Breakdown{}
	prev := dec("1000")

	delta := b.Merge(meterdomain.UtilityElectricity, Contribution{
		Consumption:     dec("100"),
		Cost:            dec("65.00"),
		PreviousReading: &prev,
		CurrentReading:  dec("1100"),
	})

	assert.True(t, delta.Equal(dec("65.00")))
	assert.Len(t, b, 1)
	assert.True(t, b.Total().Equal(dec("65.00")))
}

func TestBreakdownMerge_ReplacesSameUtilityType(t *testing.T) {
	b := Breakdown{}
	b.Merge(meterdomain.UtilityElectricity, Contribution{Consumption: dec("100"), Cost: dec("65.00"), CurrentReading: dec("1100")})

	delta := b.Merge(meterdomain.UtilityElectricity, Contribution{Consumption: dec("20"), Cost: dec("13.00"), CurrentReading: dec("1120")})

	// The correction supersedes the earlier contribution, so the delta backs
	// out the old cost.
	assert.True(t, delta.Equal(dec("-52.00")))
	assert.Len(t, b, 1)
	assert.True(t, b[meterdomain.UtilityElectricity].Cost.Equal(dec("13.00")))
	assert.True(t, b.Total().Equal(dec("13.00")))
}

func TestBreakdownMerge_CrossUtilityAccumulates(t *testing.T) {
	b := Breakdown{}
	d1 := b.Merge(meterdomain.UtilityElectricity, Contribution{Consumption: dec("100"), Cost: dec("65.00"), CurrentReading: dec("1100")})
	d2 := b.Merge(meterdomain.UtilityWater, Contribution{Consumption: dec("10"), Cost: dec("25.00"), CurrentReading: dec("510")})

	assert.True(t, d1.Add(d2).Equal(dec("90.00")))
	assert.Len(t, b, 2)
	assert.True(t, b.Total().Equal(dec("90.00")))
}

func TestBreakdownMerge_AmountMatchesTotalUnderAnySequence(t *testing.T) {
	b := Breakdown{}
	amount := decimal.Zero

	steps := []struct {
		utility meterdomain.UtilityType
		cost    string
	}{
		{meterdomain.UtilityElectricity, "65.00"},
		{meterdomain.UtilityWater, "25.00"},
		{meterdomain.UtilityElectricity, "13.00"},
		{meterdomain.UtilityGas, "0"},
		{meterdomain.UtilityWater, "30.50"},
		{meterdomain.UtilityElectricity, "65.00"},
	}
	for _, step := range steps {
		amount = amount.Add(b.Merge(step.utility, Contribution{Cost: dec(step.cost)}))
		assert.True(t, amount.Equal(b.Total()), "amount %s diverged from breakdown total %s", amount, b.Total())
	}
}
