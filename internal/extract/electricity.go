package extract

import (
	"strings"

	"github.com/fairbill/fairbill/internal/model"
)

const (
	kwhUnit = `k\s?[Ww]h`
	klUnit  = `k[Ll]`
)

var (
	electricityMeterRules = meterRules(kwhUnit)
	electricityStepRules  = stepRules(kwhUnit)

	electricityTotalCascade = newCascade("electricity total",
		newRule("charges-total", `(?i)electricity\s+charges?(?:\s+total)?\s*[:\s]?([^\n]*)`),
		newRule("total-electricity", `(?i)total\s+(?:for\s+)?electricity\s*[:\s]?([^\n]*)`),
	)

	tariffCodeCascade = newCascade("tariff code",
		newRule("labelled", `(?i)tariff(?:\s+code)?\s*[:\s]\s*([A-Z0-9][A-Z0-9 /-]{1,20})`),
	)
)

// extractElectricity reconstructs the electricity line item: consumption
// summed across physical meters, step charge rows as printed, and the
// stated section total when one exists. The item is marked estimated if
// any contributing meter reading was estimated.
func extractElectricity(sec section) (model.LineItem, bool) {
	fixed := parseFixedRows(sec.body)
	detail := &model.ElectricityDetail{
		Meters: parseMeterRows(electricityMeterRules, sec.body),
		Steps:  parseStepRows(electricityStepRules, sec.body),
		Fixed:  billRows(fixed),
	}
	stated := electricityTotalCascade.cents(sec.body)

	if len(detail.Meters) == 0 && len(detail.Steps) == 0 && stated == nil && len(fixed) == 0 {
		return model.LineItem{}, false
	}

	item := model.LineItem{
		Service:     model.ServiceElectricity,
		Provider:    sec.provider,
		Description: sectionDescription(sec, "Electricity"),
		Electricity: detail,
	}

	if len(detail.Meters) > 0 {
		total := 0.0
		for _, m := range detail.Meters {
			total += m.Consumption
			if m.Estimated {
				item.IsEstimated = true
			}
		}
		item.Quantity = &total
	}

	if len(detail.Steps) == 1 {
		rate := detail.Steps[0].Rate
		item.UnitRate = &rate
	}

	item.Amount = chargeAmount(stated, detail.Steps, fixed)

	if m, _, ok := tariffCodeCascade.first(sec.header + sec.body); ok {
		item.TariffCode = strings.TrimSpace(m[1])
	}

	return item, true
}

// chargeAmount picks the stated section total when present, otherwise
// reconstructs it from the step rows and fixed charge rows.
func chargeAmount(stated *model.Cents, steps []model.StepCharge, fixed []fixedRow) model.Cents {
	if stated != nil && *stated >= 0 {
		return *stated
	}
	var sum model.Cents
	for _, s := range steps {
		sum += s.Amount
	}
	for _, f := range fixed {
		sum += f.amount
	}
	if sum < 0 {
		return 0
	}
	return sum
}

// sectionDescription uses the service-category header line as the item
// description when the header carries one.
func sectionDescription(sec section, fallback string) string {
	lines := strings.Split(strings.TrimSpace(sec.header), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last != "" {
		return last
	}
	return fallback
}
