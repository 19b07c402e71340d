package verify

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/fairbill/fairbill/internal/model"
)

func TestTolerancesFromConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	assert.Equal(t, DefaultTolerances(), TolerancesFromConfig())
}

func TestTolerancesFromConfigOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("verification.tolerances.tariff_residential_cents", 2500)
	viper.Set("verification.tolerances.tariff_commercial_pct", 0.05)
	viper.Set("verification.tolerances.reconciliation_cents", 50)
	viper.Set("verification.tolerances.high_consumption_kwh", 3000)

	tol := TolerancesFromConfig()

	assert.Equal(t, model.Cents(2500), tol.TariffResidential)
	assert.InDelta(t, 0.05, tol.TariffCommercialPct, 1e-9)
	assert.Equal(t, model.Cents(50), tol.Reconciliation)
	assert.InDelta(t, 3000, tol.HighConsumptionKWh, 1e-9)

	// Keys left unset keep their defaults.
	assert.Equal(t, DefaultTolerances().VAT, tol.VAT)
	assert.Equal(t, DefaultTolerances().InternalArithmetic, tol.InternalArithmetic)
	assert.InDelta(t, DefaultTolerances().HighConsumptionKL, tol.HighConsumptionKL, 1e-9)
}

func TestTolerancesFromConfigIgnoresNonPositive(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("verification.tolerances.reconciliation_cents", 0)
	viper.Set("verification.tolerances.vat_cents", -500)

	tol := TolerancesFromConfig()

	assert.Equal(t, DefaultTolerances().Reconciliation, tol.Reconciliation)
	assert.Equal(t, DefaultTolerances().VAT, tol.VAT)
}

func TestTariffTolerance(t *testing.T) {
	tol := DefaultTolerances()

	tests := []struct {
		name     string
		category model.CustomerCategory
		expected model.Cents
		want     model.Cents
	}{
		{"residential is flat", model.CategoryResidential, 1_000_000, 5000},
		{"commercial below floor", model.CategoryCommercial, 100_000, 5000},
		{"commercial scales", model.CategoryCommercial, 1_000_000, 25_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tol.tariffTolerance(tt.category, tt.expected))
		})
	}
}
