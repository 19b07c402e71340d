package pricing

import (
	"testing"
	"time"

	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func centsPtr(c model.Cents) *model.Cents { return &c }

func intPtr(i int) *int { return &i }

// residentialElectricity is the published two-band residential structure
// used in the official worked example: 374 kWh falls entirely in band one.
func residentialElectricity() *model.ElectricityPricing {
	return &model.ElectricityPricing{
		Bands: []model.RateBand{
			{Lower: 0, Upper: floatPtr(509.24), Rate: 2.3649, Description: "Block 1 (0-509.24 kWh)", ReferenceDays: 30},
			{Lower: 509.24, Upper: nil, Rate: 2.7070, Description: "Block 2 (>509.24 kWh)"},
		},
		FixedCharges: []model.FixedCharge{
			{Description: "Service charge", Amount: 23011, Frequency: model.FrequencyMonthly},
			{Description: "Network charge", Amount: 39719, Frequency: model.FrequencyMonthly},
		},
	}
}

func TestCalculateElectricityWorkedExample(t *testing.T) {
	result, err := Calculate(residentialElectricity(), Input{
		Consumption: floatPtr(374),
		BillingDays: 30,
		VATRate:     0.15,
	})
	require.NoError(t, err)

	// 374 kWh all in block 1: 374 * R2.3649 = R884.47.
	require.Len(t, result.Lines, 3)
	assert.Equal(t, model.Cents(88447), result.Lines[0].Amount)
	assert.InDelta(t, 374.0, result.Lines[0].Quantity, 1e-9)

	// Subtotal R1,511.77; VAT at 15% R226.77; total R1,738.54.
	assert.Equal(t, model.Cents(151177), result.Subtotal)
	assert.Equal(t, model.Cents(22677), result.VAT)
	assert.Equal(t, model.Cents(173854), result.Total)
}

func TestCalculateSpansBands(t *testing.T) {
	result, err := Calculate(residentialElectricity(), Input{
		Consumption: floatPtr(600),
		BillingDays: 30,
		VATRate:     0.15,
	})
	require.NoError(t, err)

	// Allocations must sum to the input consumption exactly.
	total := 0.0
	for _, line := range result.Lines[:2] {
		total += line.Quantity
	}
	assert.InDelta(t, 600.0, total, 1e-9)
	assert.InDelta(t, 509.24, result.Lines[0].Quantity, 1e-9)
	assert.InDelta(t, 90.76, result.Lines[1].Quantity, 1e-9)
}

func TestCalculateScalesBandWidthByBillingDays(t *testing.T) {
	// A 60-day period doubles the width of a 30-day reference band.
	structure := &model.ElectricityPricing{
		Bands: []model.RateBand{
			{Lower: 0, Upper: floatPtr(100), Rate: 1.0, ReferenceDays: 30},
			{Lower: 100, Upper: nil, Rate: 2.0},
		},
	}
	result, err := Calculate(structure, Input{Consumption: floatPtr(250), BillingDays: 60})
	require.NoError(t, err)

	assert.InDelta(t, 200.0, result.Lines[0].Quantity, 1e-9)
	assert.InDelta(t, 50.0, result.Lines[1].Quantity, 1e-9)
}

func TestCalculateIsDeterministic(t *testing.T) {
	in := Input{Consumption: floatPtr(487.5), BillingDays: 31, VATRate: 0.15}
	first, err := Calculate(residentialElectricity(), in)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Calculate(residentialElectricity(), in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculateElectricityErrors(t *testing.T) {
	_, err := Calculate(residentialElectricity(), Input{BillingDays: 30})
	assert.ErrorIs(t, err, common.ErrNoConsumption)

	_, err = Calculate(&model.ElectricityPricing{}, Input{Consumption: floatPtr(100)})
	assert.ErrorIs(t, err, common.ErrNoRateBands)
}

func TestCalculateTimeOfUse(t *testing.T) {
	structure := &model.ElectricityPricing{
		TimeOfUse: &model.TimeOfUseRates{
			HighSeasonMonths: []time.Month{time.June, time.July, time.August},
			HighSeasonRate:   3.10,
			LowSeasonRate:    1.95,
		},
	}

	winter := time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)
	result, err := Calculate(structure, Input{Consumption: floatPtr(100), PeriodEnd: &winter})
	require.NoError(t, err)
	assert.Equal(t, model.Cents(31000), result.Subtotal)

	summer := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	result, err = Calculate(structure, Input{Consumption: floatPtr(100), PeriodEnd: &summer})
	require.NoError(t, err)
	assert.Equal(t, model.Cents(19500), result.Subtotal)
}

func TestCalculateWaterWithDemandLevy(t *testing.T) {
	structure := &model.WaterPricing{
		Bands: []model.RateBand{
			{Lower: 0, Upper: floatPtr(6), Rate: 0, Description: "Free basic water"},
			{Lower: 6, Upper: floatPtr(10), Rate: 20.94},
			{Lower: 10, Upper: nil, Rate: 28.90},
		},
		DemandLevy:        centsPtr(4500),
		DemandLevyPerUnit: true,
	}

	result, err := Calculate(structure, Input{
		Consumption: floatPtr(18),
		Units:       intPtr(2),
		VATRate:     0.15,
	})
	require.NoError(t, err)

	// 6 kL free, 4 kL at R20.94, 8 kL at R28.90, levy 2 x R45.
	require.Len(t, result.Lines, 4)
	assert.Equal(t, model.Cents(0), result.Lines[0].Amount)
	assert.Equal(t, model.Cents(8376), result.Lines[1].Amount)
	assert.Equal(t, model.Cents(23120), result.Lines[2].Amount)
	assert.Equal(t, model.Cents(9000), result.Lines[3].Amount)
	assert.Equal(t, model.Cents(40496), result.Subtotal)
}

func TestCalculateSeweragePerUnit(t *testing.T) {
	structure := &model.SeweragePricing{PerUnitLevy: centsPtr(25000)}

	result, err := Calculate(structure, Input{Units: intPtr(4), VATRate: 0.15})
	require.NoError(t, err)
	assert.Equal(t, model.Cents(100000), result.Subtotal)
	assert.Equal(t, model.Cents(15000), result.VAT)
}

func TestCalculateSewerageBandedByStandSize(t *testing.T) {
	structure := &model.SeweragePricing{
		Bands: []model.RateBand{
			{Lower: 0, Upper: floatPtr(500), Rate: 220.50},
			{Lower: 500, Upper: floatPtr(1000), Rate: 378.28},
			{Lower: 1000, Upper: nil, Rate: 502.11},
		},
	}

	result, err := Calculate(structure, Input{StandSizeSqm: floatPtr(650)})
	require.NoError(t, err)
	assert.Equal(t, model.Cents(37828), result.Subtotal)

	_, err = Calculate(structure, Input{})
	assert.Error(t, err)
}

func TestCalculateRates(t *testing.T) {
	structure := &model.RatesPricing{
		RateInRand:      0.006340,
		RebateThreshold: centsPtr(30000000), // R300,000 primary residence exemption
	}

	valuation := model.Cents(125000000) // R1,250,000
	result, err := Calculate(structure, Input{
		Value:            &valuation,
		PrimaryResidence: true,
		VATRate:          0.15,
	})
	require.NoError(t, err)

	// Gross: 1,250,000 * 0.006340 / 12 = R660.42 per month.
	// Rebate: 300,000 * 0.006340 / 12 = R158.50.
	require.Len(t, result.Lines, 2)
	assert.Equal(t, model.Cents(66042), result.Lines[0].Amount)
	assert.Equal(t, model.Cents(-15850), result.Lines[1].Amount)
	assert.Equal(t, model.Cents(50192), result.Total)

	// Property rates are VAT-exempt by statute: never any VAT.
	assert.Equal(t, model.Cents(0), result.VAT)
}

func TestCalculateRatesRequiresValuation(t *testing.T) {
	_, err := Calculate(&model.RatesPricing{RateInRand: 0.006340}, Input{})
	assert.ErrorIs(t, err, common.ErrNoConsumption)
}

func TestCalculateRatesRebateCannotGoNegative(t *testing.T) {
	structure := &model.RatesPricing{
		RateInRand:      0.006340,
		RebateThreshold: centsPtr(30000000),
	}
	valuation := model.Cents(20000000) // below the threshold
	result, err := Calculate(structure, Input{Value: &valuation, PrimaryResidence: true})
	require.NoError(t, err)
	assert.Equal(t, model.Cents(0), result.Total)
}

func TestCalculateFixedChargeProration(t *testing.T) {
	structure := &model.SundryPricing{
		FixedCharges: []model.FixedCharge{
			{Description: "Availability charge", Amount: 1200, Frequency: model.FrequencyAnnual},
			{Description: "Connection surcharge", Amount: 50, Frequency: model.FrequencyDaily},
			{Description: "Admin fee", Amount: 1000, Frequency: model.FrequencyMonthly},
		},
	}

	result, err := Calculate(structure, Input{BillingDays: 31})
	require.NoError(t, err)

	require.Len(t, result.Lines, 3)
	assert.Equal(t, model.Cents(100), result.Lines[0].Amount)  // 1200 / 12
	assert.Equal(t, model.Cents(1550), result.Lines[1].Amount) // 50 * 31
	assert.Equal(t, model.Cents(1000), result.Lines[2].Amount)
}

func TestCalculateVATInclusiveRates(t *testing.T) {
	structure := &model.RefusePricing{PerUnitCharge: centsPtr(11500)}

	result, err := Calculate(structure, Input{VATRate: 0.15, VATInclusive: true})
	require.NoError(t, err)
	assert.Equal(t, model.Cents(0), result.VAT)
	assert.Equal(t, model.Cents(11500), result.Total)
}
