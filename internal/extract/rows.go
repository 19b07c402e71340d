package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairbill/fairbill/internal/model"
)

// Meter and step rows vary too much between bill revisions to share one
// capture-group layout, so each alternative carries its own parse
// function. As with cascades, alternatives are named and tried in
// priority order; the first rule producing any rows wins.

type meterRule struct {
	re    *regexp.Regexp
	parse func(m []string) (model.MeterReading, bool)
	name  string
}

type stepRule struct {
	re    *regexp.Regexp
	parse func(ordinal int, m []string) (model.StepCharge, bool)
	name  string
}

const (
	consumptionToken = `(\d[\d ,]*(?:\.\d+)?)`
	readingToken     = `(actual|estimated|estimate)`
	rateToken        = `(R?\s*\d+(?:\.\d+)?\s*c?)`
	rowAmountToken   = `(-?\d[\d ,]*\.\d{2})`
)

func isEstimated(flag string) bool {
	return strings.HasPrefix(strings.ToLower(flag), "estimat")
}

// parseRate reads a printed unit rate, converting cent-denominated rates
// ("236.49c") to Rand.
func parseRate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	cents := false
	if strings.HasSuffix(s, "c") || strings.HasSuffix(s, "C") {
		cents = true
		s = s[:len(s)-1]
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if cents {
		v /= 100
	}
	return v, true
}

// meterRules builds the meter-reading alternatives for a consumption unit
// (kWh for electricity, kL for water).
func meterRules(unit string) []meterRule {
	return []meterRule{
		{
			name: "meter-consumption-type",
			re: regexp.MustCompile(`(?i)meter[^\n]*?\b([0-9][0-9A-Z]{4,})\b[^\n]*?` +
				consumptionToken + `\s*` + unit + `\b[^\n]*?\b` + readingToken + `\b`),
			parse: func(m []string) (model.MeterReading, bool) {
				qty, ok := parseQuantity(m[2])
				if !ok {
					return model.MeterReading{}, false
				}
				return model.MeterReading{MeterNumber: m[1], Consumption: qty, Estimated: isEstimated(m[3])}, true
			},
		},
		{
			name: "meter-type-consumption",
			re: regexp.MustCompile(`(?i)meter[^\n]*?\b([0-9][0-9A-Z]{4,})\b[^\n]*?\b` +
				readingToken + `\b[^\n]*?` + consumptionToken + `\s*` + unit + `\b`),
			parse: func(m []string) (model.MeterReading, bool) {
				qty, ok := parseQuantity(m[3])
				if !ok {
					return model.MeterReading{}, false
				}
				return model.MeterReading{MeterNumber: m[1], Consumption: qty, Estimated: isEstimated(m[2])}, true
			},
		},
		{
			name: "unnumbered-consumption",
			re: regexp.MustCompile(`(?i)consumption\s*[:\s]\s*` + consumptionToken +
				`\s*` + unit + `\b(?:[^\n]*?\b` + readingToken + `\b)?`),
			parse: func(m []string) (model.MeterReading, bool) {
				qty, ok := parseQuantity(m[1])
				if !ok {
					return model.MeterReading{}, false
				}
				return model.MeterReading{Consumption: qty, Estimated: isEstimated(m[2])}, true
			},
		},
	}
}

// stepRules builds the stepped-charge row alternatives for a unit. The
// final alternative handles the revision where the band's upper bound and
// the quantity run together without whitespace; the fixed two-decimal
// shape of the bound is what splits them.
func stepRules(unit string) []stepRule {
	return []stepRule{
		{
			name: "step-labelled",
			re: regexp.MustCompile(`(?im)^[^\n]*?(?:step|block)\s*(\d+)[^\n]*?` + consumptionToken +
				`\s*` + unit + `\s*@\s*` + rateToken + `(?:[^\n]*?=?\s*R\s*` + rowAmountToken + `)?[^\n]*$`),
			parse: func(_ int, m []string) (model.StepCharge, bool) {
				step, err := strconv.Atoi(m[1])
				if err != nil {
					return model.StepCharge{}, false
				}
				return buildStep(step, m[2], m[3], m[4])
			},
		},
		{
			name: "range-labelled",
			re: regexp.MustCompile(`(?im)^[^\n]*?\d+(?:\.\d+)?\s*(?:-|to)\s*(?:\d+(?:\.\d+)?|\+|above)\s*` +
				unit + `[^\n]*?` + consumptionToken + `\s*(?:` + unit + `\s*)?@\s*` + rateToken +
				`(?:[^\n]*?=?\s*R\s*` + rowAmountToken + `)?[^\n]*$`),
			parse: func(ordinal int, m []string) (model.StepCharge, bool) {
				return buildStep(ordinal, m[1], m[2], m[3])
			},
		},
		{
			name: "range-joined",
			re: regexp.MustCompile(`(?im)^[^\n]*?\d+(?:\.\d+)?\s*(?:-|to)\s*\d+\.\d{2}` +
				consumptionToken + `\s*` + unit + `[^\n]*?@\s*` + rateToken +
				`(?:[^\n]*?=?\s*R\s*` + rowAmountToken + `)?[^\n]*$`),
			parse: func(ordinal int, m []string) (model.StepCharge, bool) {
				return buildStep(ordinal, m[1], m[2], m[3])
			},
		},
	}
}

// buildStep assembles a step row, computing the amount from the printed
// quantity and rate when the row does not state one.
func buildStep(step int, qtyText, rateText, amountText string) (model.StepCharge, bool) {
	qty, ok := parseQuantity(qtyText)
	if !ok {
		return model.StepCharge{}, false
	}
	rate, ok := parseRate(rateText)
	if !ok {
		return model.StepCharge{}, false
	}
	charge := model.StepCharge{Step: step, Quantity: qty, Rate: rate}
	if amount, ok := parseCents(amountText); ok && amountText != "" {
		charge.Amount = amount
	} else {
		charge.Amount = model.RoundCents(qty * rate)
	}
	return charge, true
}

func parseMeterRows(rules []meterRule, body string) []model.MeterReading {
	for _, r := range rules {
		matches := r.re.FindAllStringSubmatch(body, -1)
		if len(matches) == 0 {
			continue
		}
		var meters []model.MeterReading
		for _, m := range matches {
			if reading, ok := r.parse(m); ok {
				meters = append(meters, reading)
			}
		}
		if len(meters) > 0 {
			return meters
		}
	}
	return nil
}

func parseStepRows(rules []stepRule, body string) []model.StepCharge {
	for _, r := range rules {
		matches := r.re.FindAllStringSubmatch(body, -1)
		if len(matches) == 0 {
			continue
		}
		var steps []model.StepCharge
		for i, m := range matches {
			if step, ok := r.parse(i+1, m); ok {
				steps = append(steps, step)
			}
		}
		if len(steps) > 0 {
			return steps
		}
	}
	return nil
}

// fixedChargeRowRe matches consumption-independent charge lines such as
// "Service charge R 230.11" or "Network surcharge R 397.19".
var fixedChargeRowRe = regexp.MustCompile(`(?im)^[ \t]*((?:service|network|capacity|availability|basic|fixed)\s+(?:charge|surcharge|levy|fee)[^\n]*?)\s+R\s*(-?\d[\d ,]*\.\d{2})[^\n]*$`)

type fixedRow struct {
	description string
	amount      model.Cents
}

func parseFixedRows(body string) []fixedRow {
	var rows []fixedRow
	for _, m := range fixedChargeRowRe.FindAllStringSubmatch(body, -1) {
		if amount, ok := parseCents(m[2]); ok {
			rows = append(rows, fixedRow{description: strings.TrimSpace(m[1]), amount: amount})
		}
	}
	return rows
}

func billRows(rows []fixedRow) []model.BillRow {
	if len(rows) == 0 {
		return nil
	}
	out := make([]model.BillRow, len(rows))
	for i, r := range rows {
		out[i] = model.BillRow{Description: r.description, Amount: r.amount}
	}
	return out
}
