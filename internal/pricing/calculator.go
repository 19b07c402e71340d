// Package pricing computes expected charges from tariff pricing structures.
// All functions are pure: no I/O, deterministic output, and an explicit
// error (never a guessed number) when required inputs are missing.
package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/model"
)

// Input carries the consumption or value being priced, plus billing-period
// context. Pointer fields are nil when the bill did not state them.
type Input struct {
	Consumption      *float64     // kWh or kL
	DemandKVA        *float64     // notified maximum demand, bulk electricity
	Units            *int         // living units (sewerage, refuse, demand levy)
	StandSizeSqm     *float64     // stand size, banded sewerage
	Value            *model.Cents // municipal valuation, property rates
	PeriodEnd        *time.Time   // used for seasonal time-of-use rate selection
	BillingDays      int
	VATRate          float64
	VATInclusive     bool
	PrimaryResidence bool
}

// Line is one row of the calculation breakdown. Quantity and Rate are zero
// for fixed charges.
type Line struct {
	Description string
	Quantity    float64
	Rate        float64
	Amount      model.Cents
}

// Result is the expected charge with its line-by-line breakdown. The
// breakdown is what makes a finding's explanation auditable.
type Result struct {
	Lines    []Line
	Subtotal model.Cents // before VAT
	VAT      model.Cents
	Total    model.Cents
}

// Calculate computes the expected amount for a pricing structure. Rounding
// is applied exactly once per line (band, fixed charge, VAT) so rounding
// error never compounds.
func Calculate(structure model.PricingStructure, in Input) (*Result, error) {
	if structure == nil {
		return nil, fmt.Errorf("nil pricing structure")
	}
	if err := structure.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing structure: %w", err)
	}

	var (
		lines []Line
		err   error
	)

	switch p := structure.(type) {
	case *model.ElectricityPricing:
		lines, err = electricityLines(p, in)
	case *model.WaterPricing:
		lines, err = waterLines(p, in)
	case *model.SeweragePricing:
		lines, err = sewerageLines(p, in)
	case *model.RefusePricing:
		lines = refuseLines(p, in)
	case *model.RatesPricing:
		return ratesResult(p, in)
	case *model.SundryPricing:
		lines = fixedChargeLines(p.FixedCharges, in.BillingDays)
	default:
		return nil, fmt.Errorf("unsupported pricing structure %T", structure)
	}
	if err != nil {
		return nil, err
	}

	return totalWithVAT(lines, in), nil
}

func electricityLines(p *model.ElectricityPricing, in Input) ([]Line, error) {
	if in.Consumption == nil {
		return nil, fmt.Errorf("electricity: %w", common.ErrNoConsumption)
	}

	var lines []Line
	switch {
	case len(p.Bands) > 0:
		banded, err := steppedLines(p.Bands, *in.Consumption, in.BillingDays)
		if err != nil {
			return nil, err
		}
		lines = append(lines, banded...)
	case p.TimeOfUse != nil:
		rate := seasonalRate(p.TimeOfUse, in.PeriodEnd)
		lines = append(lines, Line{
			Description: "Energy charge (seasonal)",
			Quantity:    *in.Consumption,
			Rate:        rate,
			Amount:      model.RoundCents(*in.Consumption * rate),
		})
	default:
		return nil, fmt.Errorf("electricity: %w", common.ErrNoRateBands)
	}

	if p.DemandRate != nil && in.DemandKVA != nil {
		lines = append(lines, Line{
			Description: "Demand charge",
			Quantity:    *in.DemandKVA,
			Rate:        *p.DemandRate,
			Amount:      model.RoundCents(*in.DemandKVA * *p.DemandRate),
		})
	}

	return append(lines, fixedChargeLines(p.FixedCharges, in.BillingDays)...), nil
}

func waterLines(p *model.WaterPricing, in Input) ([]Line, error) {
	if in.Consumption == nil {
		return nil, fmt.Errorf("water: %w", common.ErrNoConsumption)
	}
	if len(p.Bands) == 0 {
		return nil, fmt.Errorf("water: %w", common.ErrNoRateBands)
	}

	lines, err := steppedLines(p.Bands, *in.Consumption, in.BillingDays)
	if err != nil {
		return nil, err
	}

	if p.DemandLevy != nil {
		levy := *p.DemandLevy
		units := 1
		if p.DemandLevyPerUnit && in.Units != nil {
			units = *in.Units
			levy = model.Cents(int64(levy) * int64(units))
		}
		lines = append(lines, Line{
			Description: "Demand levy",
			Quantity:    float64(units),
			Amount:      levy,
		})
	}

	return append(lines, fixedChargeLines(p.FixedCharges, in.BillingDays)...), nil
}

func sewerageLines(p *model.SeweragePricing, in Input) ([]Line, error) {
	var lines []Line

	switch {
	case p.PerUnitLevy != nil:
		units := 1
		if in.Units != nil {
			units = *in.Units
		}
		lines = append(lines, Line{
			Description: "Sewerage levy",
			Quantity:    float64(units),
			Rate:        (*p.PerUnitLevy).Rand(),
			Amount:      model.Cents(int64(*p.PerUnitLevy) * int64(units)),
		})
	case len(p.Bands) > 0:
		if in.StandSizeSqm == nil {
			return nil, fmt.Errorf("sewerage: stand size required for banded charge: %w", common.ErrNoConsumption)
		}
		band, ok := bandContaining(p.Bands, *in.StandSizeSqm)
		if !ok {
			return nil, fmt.Errorf("sewerage: no band covers stand size %.0f", *in.StandSizeSqm)
		}
		lines = append(lines, Line{
			Description: bandDescription(band, "Sewerage charge"),
			Quantity:    1,
			Rate:        band.Rate,
			Amount:      model.RoundCents(band.Rate),
		})
	}

	return append(lines, fixedChargeLines(p.FixedCharges, in.BillingDays)...), nil
}

func refuseLines(p *model.RefusePricing, in Input) []Line {
	var lines []Line
	if p.PerUnitCharge != nil {
		units := 1
		if in.Units != nil {
			units = *in.Units
		}
		lines = append(lines, Line{
			Description: "Refuse removal",
			Quantity:    float64(units),
			Rate:        (*p.PerUnitCharge).Rand(),
			Amount:      model.Cents(int64(*p.PerUnitCharge) * int64(units)),
		})
	}
	return append(lines, fixedChargeLines(p.FixedCharges, in.BillingDays)...)
}

// ratesResult prices property rates. The rebate threshold is subtracted
// from the assessed value before applying the rate in the Rand; the annual
// figure is divided by twelve. Property rates are VAT-exempt by statute,
// so VAT is never applied regardless of the input VAT rate.
func ratesResult(p *model.RatesPricing, in Input) (*Result, error) {
	if in.Value == nil {
		return nil, fmt.Errorf("rates: municipal valuation required: %w", common.ErrNoConsumption)
	}

	value := *in.Value
	gross := monthlyRates(value, p.RateInRand)
	lines := []Line{{
		Description: "Property rates",
		Quantity:    value.Rand(),
		Rate:        p.RateInRand,
		Amount:      gross,
	}}

	// Bills print the gross charge and the rebates as separate negative
	// rows, so the breakdown mirrors that shape.
	net := gross
	if p.RebateThreshold != nil && in.PrimaryResidence {
		exempt := *p.RebateThreshold
		if exempt > value {
			exempt = value
		}
		rebate := monthlyRates(exempt, p.RateInRand)
		lines = append(lines, Line{Description: "Residential rebate (value exemption)", Amount: -rebate})
		net -= rebate
	}
	if p.RebatePercent != nil && *p.RebatePercent > 0 {
		rebate := model.RoundCents(net.Rand() * *p.RebatePercent / 100)
		lines = append(lines, Line{Description: "Rates rebate", Amount: -rebate})
		net -= rebate
	}
	if p.FixedRebate != nil {
		lines = append(lines, Line{Description: "Rates rebate", Amount: -*p.FixedRebate})
		net -= *p.FixedRebate
	}
	if p.MonthlyAdjustment != nil {
		lines = append(lines, Line{Description: "Rates adjustment", Amount: *p.MonthlyAdjustment})
		net += *p.MonthlyAdjustment
	}
	if net < 0 {
		net = 0
	}

	return &Result{Lines: lines, Subtotal: net, VAT: 0, Total: net}, nil
}

// monthlyRates converts an assessed value and an annual rate in the Rand
// to a monthly charge, rounded once.
func monthlyRates(value model.Cents, rateInRand float64) model.Cents {
	return model.RoundCents(value.Rand() * rateInRand / 12)
}

// steppedLines runs the shared stepped-band algorithm: allocate the
// consumption across bands in order, optionally scaling band widths by the
// billing-period length, charging each allocation at the band's rate.
func steppedLines(bands []model.RateBand, consumption float64, billingDays int) ([]Line, error) {
	if len(bands) == 0 {
		return nil, common.ErrNoRateBands
	}

	remaining := consumption
	var lines []Line
	for i, band := range model.SortedBands(bands) {
		if remaining <= 0 {
			break
		}

		width := math.Inf(1)
		if band.Upper != nil {
			width = *band.Upper - band.Lower
			if band.ReferenceDays > 0 && billingDays > 0 {
				width = width * float64(billingDays) / float64(band.ReferenceDays)
			}
		}

		usage := math.Min(remaining, width)
		lines = append(lines, Line{
			Description: bandDescription(band, fmt.Sprintf("Step %d", i+1)),
			Quantity:    usage,
			Rate:        band.Rate,
			Amount:      model.RoundCents(usage * band.Rate),
		})
		remaining -= usage
	}

	return lines, nil
}

// fixedChargeLines expands fixed charges, prorating daily charges by the
// billing days and annual charges by dividing by twelve.
func fixedChargeLines(charges []model.FixedCharge, billingDays int) []Line {
	var lines []Line
	for _, charge := range charges {
		amount := charge.Amount
		switch charge.Frequency {
		case model.FrequencyDaily:
			days := billingDays
			if days <= 0 {
				days = 30
			}
			amount = model.Cents(int64(charge.Amount) * int64(days))
		case model.FrequencyAnnual:
			amount = model.RoundCents(charge.Amount.Rand() / 12)
		case model.FrequencyMonthly:
			// Charged as stated.
		}
		lines = append(lines, Line{Description: charge.Description, Amount: amount})
	}
	return lines
}

// seasonalRate picks the time-of-use rate for the billing period's month.
func seasonalRate(tou *model.TimeOfUseRates, periodEnd *time.Time) float64 {
	if periodEnd == nil {
		return tou.LowSeasonRate
	}
	for _, m := range tou.HighSeasonMonths {
		if periodEnd.Month() == m {
			return tou.HighSeasonRate
		}
	}
	return tou.LowSeasonRate
}

// bandContaining finds the band covering a point value.
func bandContaining(bands []model.RateBand, v float64) (model.RateBand, bool) {
	for _, band := range model.SortedBands(bands) {
		if v >= band.Lower && (band.Upper == nil || v < *band.Upper) {
			return band, true
		}
	}
	return model.RateBand{}, false
}

func bandDescription(band model.RateBand, fallback string) string {
	if band.Description != "" {
		return band.Description
	}
	return fallback
}

// totalWithVAT sums the lines and applies VAT as a single rounded line.
// When the tariff's rates are VAT-inclusive no VAT line is added.
func totalWithVAT(lines []Line, in Input) *Result {
	subtotal := model.Cents(0)
	for _, l := range lines {
		subtotal += l.Amount
	}

	vat := model.Cents(0)
	if !in.VATInclusive && in.VATRate > 0 {
		vat = model.RoundCents(subtotal.Rand() * in.VATRate)
	}

	return &Result{
		Lines:    lines,
		Subtotal: subtotal,
		VAT:      vat,
		Total:    subtotal + vat,
	}
}
