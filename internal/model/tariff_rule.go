package model

import (
	"fmt"
	"time"
)

// TariffRule is one versioned pricing rule from an official tariff
// schedule. Rules are created by an external ingestion process and consumed
// read-only by the matcher; multiple rules may exist for the same
// (provider, service, category) across financial years.
type TariffRule struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	EffectiveFrom time.Time
	ExpiresAt     *time.Time
	Pricing       PricingStructure
	Provider      string
	FinancialYear string
	SourceExcerpt string
	Category      CustomerCategory
	Service       ServiceType
	ID            int64
	SourcePage    int
	Confidence    int // extraction confidence, 0-100
	VATRate       float64
	VATInclusive  bool
	Verified      bool
}

// Validate checks the rule is well formed enough to price against.
func (r *TariffRule) Validate() error {
	if r.Provider == "" {
		return fmt.Errorf("tariff rule requires a provider")
	}
	if !r.Service.IsValid() {
		return fmt.Errorf("tariff rule has invalid service type %q", r.Service)
	}
	if _, err := ParseFinancialYear(r.FinancialYear); err != nil {
		return err
	}
	if r.EffectiveFrom.IsZero() {
		return fmt.Errorf("tariff rule requires an effective date")
	}
	if r.ExpiresAt != nil && r.ExpiresAt.Before(r.EffectiveFrom) {
		return fmt.Errorf("tariff rule expires before it takes effect")
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("tariff rule confidence must be 0-100, got %d", r.Confidence)
	}
	if r.VATRate < 0 || r.VATRate >= 1 {
		return fmt.Errorf("tariff rule VAT rate must be a fraction below 1, got %f", r.VATRate)
	}
	if r.Pricing == nil {
		return fmt.Errorf("tariff rule requires a pricing structure")
	}
	if r.Pricing.ServiceType() != r.Service {
		return fmt.Errorf("pricing structure is for %s but rule is for %s", r.Pricing.ServiceType(), r.Service)
	}
	return r.Pricing.Validate()
}

// ActiveAt reports whether the rule is in force on the given date.
func (r *TariffRule) ActiveAt(t time.Time) bool {
	if r.EffectiveFrom.After(t) {
		return false
	}
	return r.ExpiresAt == nil || !r.ExpiresAt.Before(t)
}
