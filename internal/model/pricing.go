package model

import (
	"fmt"
	"sort"
	"time"
)

// ChargeFrequency says how often a fixed charge recurs, which controls how
// the calculator prorates it over a billing period.
type ChargeFrequency string

// Fixed charge frequencies.
const (
	FrequencyMonthly ChargeFrequency = "monthly"
	FrequencyDaily   ChargeFrequency = "daily"
	FrequencyAnnual  ChargeFrequency = "annual"
)

// RateBand is one slice of a stepped tariff: consumption between Lower and
// Upper is charged at Rate. Upper is nil for the final, unbounded band.
// ReferenceDays, when set, is the period the band widths were defined for;
// the calculator scales widths by actual billing days over ReferenceDays.
type RateBand struct {
	Upper         *float64
	Description   string
	Lower         float64
	Rate          float64 // Rand per unit
	ReferenceDays int
}

// FixedCharge is a consumption-independent charge attached to a tariff.
type FixedCharge struct {
	Description string
	Frequency   ChargeFrequency
	Amount      Cents
}

// TimeOfUseRates carries seasonal time-of-use rates for electricity
// tariffs that price high-demand season differently.
type TimeOfUseRates struct {
	HighSeasonMonths []time.Month
	HighSeasonRate   float64
	LowSeasonRate    float64
}

// PricingStructure is a closed union over the per-service tariff shapes.
// Exactly one concrete type exists per service; the discriminator is the
// ServiceType method. Implementations are validated at the rule-repository
// boundary so a malformed stored rule cannot silently produce a wrong
// calculation.
type PricingStructure interface {
	// ServiceType returns the service this structure prices.
	ServiceType() ServiceType
	// Validate checks the structural invariants (band ordering etc).
	Validate() error
}

// ElectricityPricing prices electricity consumption: stepped kWh bands,
// fixed service/network charges, and optional extras for larger supplies.
type ElectricityPricing struct {
	TimeOfUse    *TimeOfUseRates
	DemandRate   *float64 // Rand per kVA, bulk supplies only
	Bands        []RateBand
	FixedCharges []FixedCharge
}

// ServiceType implements PricingStructure.
func (p *ElectricityPricing) ServiceType() ServiceType { return ServiceElectricity }

// Validate implements PricingStructure.
func (p *ElectricityPricing) Validate() error {
	return validateBands(p.Bands)
}

// WaterPricing prices water consumption: stepped kL bands plus an optional
// fixed demand levy, optionally scaled per living unit.
type WaterPricing struct {
	DemandLevy        *Cents
	Bands             []RateBand
	FixedCharges      []FixedCharge
	DemandLevyPerUnit bool
}

// ServiceType implements PricingStructure.
func (p *WaterPricing) ServiceType() ServiceType { return ServiceWater }

// Validate implements PricingStructure.
func (p *WaterPricing) Validate() error {
	return validateBands(p.Bands)
}

// SeweragePricing prices sewerage. Multi-unit properties pay a fixed
// per-unit levy; single stands may instead be banded by stand size.
type SeweragePricing struct {
	PerUnitLevy  *Cents
	Bands        []RateBand // keyed by stand size in square metres
	FixedCharges []FixedCharge
}

// ServiceType implements PricingStructure.
func (p *SeweragePricing) ServiceType() ServiceType { return ServiceSewerage }

// Validate implements PricingStructure.
func (p *SeweragePricing) Validate() error {
	if p.PerUnitLevy == nil && len(p.Bands) == 0 && len(p.FixedCharges) == 0 {
		return fmt.Errorf("sewerage pricing has no levy, bands or fixed charges")
	}
	return validateBands(p.Bands)
}

// RefusePricing prices refuse removal: a per-bin or per-unit charge plus
// any fixed charges (e.g. city cleaning levy).
type RefusePricing struct {
	PerUnitCharge *Cents
	FixedCharges  []FixedCharge
}

// ServiceType implements PricingStructure.
func (p *RefusePricing) ServiceType() ServiceType { return ServiceRefuse }

// Validate implements PricingStructure.
func (p *RefusePricing) Validate() error {
	if p.PerUnitCharge == nil && len(p.FixedCharges) == 0 {
		return fmt.Errorf("refuse pricing has no per-unit charge or fixed charges")
	}
	return nil
}

// RatesPricing prices property rates: an annual Rand-per-Rand rate applied
// to the municipal valuation, less a rebate, divided by twelve. Property
// rates are VAT-exempt by statute.
type RatesPricing struct {
	RebateThreshold   *Cents   // value exempted for primary residences
	RebatePercent     *float64 // percentage rebate on the assessed value
	FixedRebate       *Cents   // flat monthly rebate
	MonthlyAdjustment *Cents   // statutory adjustment line, when applicable
	RateInRand        float64  // annual Rand charged per Rand of value
}

// ServiceType implements PricingStructure.
func (p *RatesPricing) ServiceType() ServiceType { return ServiceRates }

// Validate implements PricingStructure.
func (p *RatesPricing) Validate() error {
	if p.RateInRand <= 0 {
		return fmt.Errorf("rates pricing requires a positive rate in the rand, got %f", p.RateInRand)
	}
	if p.RebatePercent != nil && (*p.RebatePercent < 0 || *p.RebatePercent > 100) {
		return fmt.Errorf("rebate percent must be between 0 and 100, got %f", *p.RebatePercent)
	}
	return nil
}

// SundryPricing prices miscellaneous fixed charges (e.g. availability
// charges) that have no consumption component.
type SundryPricing struct {
	FixedCharges []FixedCharge
}

// ServiceType implements PricingStructure.
func (p *SundryPricing) ServiceType() ServiceType { return ServiceSundry }

// Validate implements PricingStructure.
func (p *SundryPricing) Validate() error {
	if len(p.FixedCharges) == 0 {
		return fmt.Errorf("sundry pricing has no fixed charges")
	}
	return nil
}

// validateBands checks that bands, sorted by lower bound, are contiguous
// and non-overlapping, and that only the final band may be unbounded.
func validateBands(bands []RateBand) error {
	if len(bands) == 0 {
		return nil
	}
	sorted := make([]RateBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lower < sorted[j].Lower })

	for i, band := range sorted {
		if band.Rate < 0 {
			return fmt.Errorf("band %d has negative rate %f", i, band.Rate)
		}
		if band.Upper != nil && *band.Upper <= band.Lower {
			return fmt.Errorf("band %d upper bound %f not above lower bound %f", i, *band.Upper, band.Lower)
		}
		if i < len(sorted)-1 {
			if band.Upper == nil {
				return fmt.Errorf("band %d is unbounded but not the final band", i)
			}
			next := sorted[i+1]
			if *band.Upper != next.Lower {
				return fmt.Errorf("band %d ends at %f but band %d starts at %f", i, *band.Upper, i+1, next.Lower)
			}
		}
	}
	return nil
}

// SortedBands returns the bands ordered by lower bound without mutating
// the input.
func SortedBands(bands []RateBand) []RateBand {
	sorted := make([]RateBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lower < sorted[j].Lower })
	return sorted
}
