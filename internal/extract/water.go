package extract

import (
	"strconv"
	"strings"

	"github.com/fairbill/fairbill/internal/model"
)

var (
	waterMeterRules = meterRules(klUnit)
	waterStepRules  = stepRules(klUnit)

	waterTotalCascade = newCascade("water total",
		newRule("charges-total", `(?i)water\s+charges?(?:\s+total)?\s*[:\s]?([^\n]*)`),
		newRule("total-water", `(?i)total\s+(?:for\s+)?water\s*[:\s]?([^\n]*)`),
	)

	demandLevyCascade = newCascade("demand levy",
		newRule("with-units", `(?i)demand\s+levy[^\n]*?\(?(\d+)\s*units?\s*(?:@|x)\s*R\s*[\d ,.]+\)?([^\n]*)`),
		newRule("flat", `(?i)demand\s+levy\s*[:\s]?()([^\n]*)`),
	)
)

// extractWater follows the electricity shape: meters, step rows and a
// stated total, plus the fixed demand levy that water tariffs add,
// optionally scaled per living unit.
func extractWater(sec section) (model.LineItem, bool) {
	fixed := parseFixedRows(sec.body)
	detail := &model.WaterDetail{
		Meters: parseMeterRows(waterMeterRules, sec.body),
		Steps:  parseStepRows(waterStepRules, sec.body),
		Fixed:  billRows(fixed),
	}
	stated := waterTotalCascade.cents(sec.body)

	if m, _, ok := demandLevyCascade.first(sec.body); ok {
		if amounts := findAmounts(m[2]); len(amounts) > 0 {
			levy := amounts[len(amounts)-1]
			detail.DemandLevy = &levy
		}
		if m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil {
				detail.DemandUnits = &n
			}
		}
	}

	if len(detail.Meters) == 0 && len(detail.Steps) == 0 && stated == nil &&
		detail.DemandLevy == nil && len(fixed) == 0 {
		return model.LineItem{}, false
	}

	item := model.LineItem{
		Service:     model.ServiceWater,
		Provider:    sec.provider,
		Description: sectionDescription(sec, "Water"),
		Water:       detail,
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

	amount := chargeAmount(stated, detail.Steps, fixed)
	if stated == nil && detail.DemandLevy != nil {
		amount += *detail.DemandLevy
	}
	item.Amount = amount

	if m, _, ok := tariffCodeCascade.first(sec.header + sec.body); ok {
		item.TariffCode = strings.TrimSpace(m[1])
	}

	return item, true
}
