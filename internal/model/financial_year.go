package model

import (
	"fmt"
	"time"
)

// fiscalStartMonth is the month the municipal financial year begins.
// South African municipal financial years run 1 July to 30 June.
const fiscalStartMonth = time.July

// FinancialYear identifies a municipal fiscal year by its starting
// calendar year: FinancialYear{2024} covers 2024-07-01 to 2025-06-30
// and is labelled "2024/2025".
type FinancialYear struct {
	StartYear int
}

// FinancialYearOf derives the financial year a date falls in. Both the
// rule matcher and the verification engine use this, so the fiscal
// boundary lives in exactly one place.
func FinancialYearOf(t time.Time) FinancialYear {
	if t.Month() >= fiscalStartMonth {
		return FinancialYear{StartYear: t.Year()}
	}
	return FinancialYear{StartYear: t.Year() - 1}
}

// ParseFinancialYear parses a "2024/2025" label.
func ParseFinancialYear(label string) (FinancialYear, error) {
	var start, end int
	if _, err := fmt.Sscanf(label, "%d/%d", &start, &end); err != nil {
		return FinancialYear{}, fmt.Errorf("invalid financial year %q: %w", label, err)
	}
	if end != start+1 {
		return FinancialYear{}, fmt.Errorf("invalid financial year %q: years must be consecutive", label)
	}
	return FinancialYear{StartYear: start}, nil
}

// String returns the conventional label, e.g. "2024/2025".
func (fy FinancialYear) String() string {
	return fmt.Sprintf("%d/%d", fy.StartYear, fy.StartYear+1)
}

// Prev returns the preceding financial year.
func (fy FinancialYear) Prev() FinancialYear {
	return FinancialYear{StartYear: fy.StartYear - 1}
}

// Start returns the first day of the financial year.
func (fy FinancialYear) Start() time.Time {
	return time.Date(fy.StartYear, fiscalStartMonth, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the financial year.
func (fy FinancialYear) End() time.Time {
	return fy.Start().AddDate(1, 0, -1)
}
