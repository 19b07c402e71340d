package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Bill is the root aggregate produced by the text extractor. It is created
// once per parse and treated as immutable afterwards. Optional fields are nil
// when the extractor could not locate them; they are never guessed.
type Bill struct {
	BillDate        *time.Time
	DueDate         *time.Time
	PeriodStart     *time.Time
	PeriodEnd       *time.Time
	TotalDue        *Cents
	PreviousBalance *Cents
	CurrentCharges  *Cents
	VATAmount       *Cents
	AccountNumber   string
	RawText         string
	LineItems       []LineItem
	Property        PropertyInfo
}

// BillingDays returns the length of the billing period in days, or the
// standard 30-day month when the period bounds are absent.
func (b *Bill) BillingDays() int {
	if b.PeriodStart == nil || b.PeriodEnd == nil {
		return 30
	}
	days := int(b.PeriodEnd.Sub(*b.PeriodStart).Hours()/24) + 1
	if days <= 0 {
		return 30
	}
	return days
}

// AsOfDate returns the date tariff rules should be selected against:
// the bill date when present, otherwise the period end, otherwise now.
func (b *Bill) AsOfDate() time.Time {
	if b.BillDate != nil {
		return *b.BillDate
	}
	if b.PeriodEnd != nil {
		return *b.PeriodEnd
	}
	return time.Now()
}

// LineItemsFor returns the line items for a given service type.
func (b *Bill) LineItemsFor(service ServiceType) []LineItem {
	var items []LineItem
	for _, item := range b.LineItems {
		if item.Service == service {
			items = append(items, item)
		}
	}
	return items
}

// GenerateHash creates a stable hash of the bill for duplicate detection
// in the verification history.
func (b *Bill) GenerateHash() string {
	date := ""
	if b.BillDate != nil {
		date = b.BillDate.Format("2006-01-02")
	}
	total := int64(-1)
	if b.TotalDue != nil {
		total = int64(*b.TotalDue)
	}
	data := fmt.Sprintf("%s:%s:%d:%d", b.AccountNumber, date, total, len(b.LineItems))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// LineItem is a single charge on a bill. Amount is always integer cents.
// Quantity semantics depend on the service: kWh for electricity, kilolitres
// for water, living units for sewerage and refuse.
type LineItem struct {
	Quantity    *float64
	UnitRate    *float64
	Electricity *ElectricityDetail
	Water       *WaterDetail
	Rates       *RatesDetail
	Description string
	TariffCode  string
	Provider    string
	Service     ServiceType
	Amount      Cents
	IsEstimated bool
}

// Validate checks the line-item invariants: non-negative amount and,
// when present, non-negative quantity.
func (li *LineItem) Validate() error {
	if !li.Service.IsValid() {
		return fmt.Errorf("invalid service type %q", li.Service)
	}
	if li.Amount < 0 {
		return fmt.Errorf("line item amount must be non-negative, got %d", li.Amount)
	}
	if li.Quantity != nil && *li.Quantity < 0 {
		return fmt.Errorf("line item quantity must be non-negative, got %f", *li.Quantity)
	}
	return nil
}

// MeterReading is one physical meter's contribution to a consumption total.
type MeterReading struct {
	MeterNumber string
	Consumption float64
	Estimated   bool
}

// StepCharge is one reconstructed row of a stepped charge as printed on the
// bill: quantity billed in that step at the printed rate.
type StepCharge struct {
	Step     int
	Quantity float64
	Rate     float64 // Rand per unit as printed
	Amount   Cents
}

// BillRow is one consumption-independent charge row printed in a service
// section, e.g. a service charge or network surcharge.
type BillRow struct {
	Description string
	Amount      Cents
}

// ElectricityDetail carries electricity-specific metadata: the per-meter
// consumption breakdown and any per-step or fixed charge rows printed on
// the bill.
type ElectricityDetail struct {
	Meters []MeterReading
	Steps  []StepCharge
	Fixed  []BillRow
}

// WaterDetail carries water-specific metadata. DemandLevy is the fixed
// demand charge when printed, optionally scaled by living units.
type WaterDetail struct {
	DemandLevy  *Cents
	DemandUnits *int
	Meters      []MeterReading
	Steps       []StepCharge
	Fixed       []BillRow
}

// RatesRow is one assessed-value row of a property-rates charge.
type RatesRow struct {
	Value  Cents   // assessed value
	Rate   float64 // Rand per Rand of value, annual
	Amount Cents
}

// RatesDetail carries property-rates metadata: the valuation rows and an
// optional rebate row (stored as a positive amount, subtracted in totals).
type RatesDetail struct {
	Rebate *Cents
	Rows   []RatesRow
}

// PropertyInfo is metadata extracted from the bill header area,
// independent of the service sections.
type PropertyInfo struct {
	StandSizeSqm   *float64
	LivingUnits    *int
	Valuation      *Cents
	Address        string
	Classification PropertyClass
}

// PropertyHints are caller-supplied values used when the bill itself does
// not state them, e.g. a known municipal valuation.
type PropertyHints struct {
	Valuation   *Cents
	LivingUnits *int
}
