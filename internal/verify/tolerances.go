package verify

import (
	"github.com/spf13/viper"

	"github.com/fairbill/fairbill/internal/model"
)

// Tolerances are the comparison thresholds used by the check families.
// They are empirically tuned rather than policy-derived, so they load
// from configuration and the values here are only defaults.
type Tolerances struct {
	// TariffResidential is the absolute allowance for a residential
	// tariff comparison.
	TariffResidential model.Cents
	// TariffCommercialPct is the relative allowance for commercial and
	// industrial accounts, as a fraction of the expected amount. Bulk
	// accounts carry more compounding uncertainty than residential ones.
	TariffCommercialPct float64
	// Reconciliation is the rounding allowance when summing line items
	// against the stated bill total.
	Reconciliation model.Cents
	// VAT is the allowance for the VAT recomputation, wider than
	// reconciliation because rounding compounds across many line items.
	VAT model.Cents
	// InternalArithmetic is the allowance when re-multiplying the bill's
	// own printed rates.
	InternalArithmetic model.Cents
	// HighConsumptionKWh and HighConsumptionKL are the monthly usage
	// levels above which a residential account is flagged as anomalous.
	HighConsumptionKWh float64
	HighConsumptionKL  float64
}

// DefaultTolerances returns the built-in thresholds.
func DefaultTolerances() Tolerances {
	return Tolerances{
		TariffResidential:   5000, // R50
		TariffCommercialPct: 0.025,
		Reconciliation:      100, // R1
		VAT:                 500, // R5
		InternalArithmetic:  200, // R2
		HighConsumptionKWh:  2500,
		HighConsumptionKL:   85,
	}
}

// TolerancesFromConfig reads the verification.tolerances.* configuration
// keys, falling back to the defaults for any key not set.
func TolerancesFromConfig() Tolerances {
	tol := DefaultTolerances()
	if v := viper.GetInt64("verification.tolerances.tariff_residential_cents"); v > 0 {
		tol.TariffResidential = model.Cents(v)
	}
	if v := viper.GetFloat64("verification.tolerances.tariff_commercial_pct"); v > 0 {
		tol.TariffCommercialPct = v
	}
	if v := viper.GetInt64("verification.tolerances.reconciliation_cents"); v > 0 {
		tol.Reconciliation = model.Cents(v)
	}
	if v := viper.GetInt64("verification.tolerances.vat_cents"); v > 0 {
		tol.VAT = model.Cents(v)
	}
	if v := viper.GetInt64("verification.tolerances.internal_arithmetic_cents"); v > 0 {
		tol.InternalArithmetic = model.Cents(v)
	}
	if v := viper.GetFloat64("verification.tolerances.high_consumption_kwh"); v > 0 {
		tol.HighConsumptionKWh = v
	}
	if v := viper.GetFloat64("verification.tolerances.high_consumption_kl"); v > 0 {
		tol.HighConsumptionKL = v
	}
	return tol
}

// tariffTolerance returns the allowance for one tariff comparison.
func (t Tolerances) tariffTolerance(category model.CustomerCategory, expected model.Cents) model.Cents {
	if category == model.CategoryResidential {
		return t.TariffResidential
	}
	rel := model.RoundCents(expected.Rand() * t.TariffCommercialPct)
	if rel < t.TariffResidential {
		rel = t.TariffResidential
	}
	return rel
}
