package extract

import (
	"regexp"
	"strings"

	"github.com/fairbill/fairbill/internal/model"
)

// ratesRowRe matches one valuation row: assessed value, annual rate in the
// Rand, resulting amount. The rate is printed either as a decimal fraction
// (0.006340) or with an explicit "c/R" suffix.
var ratesRowRe = regexp.MustCompile(
	`(?im)^[^\n]*?R?\s*(\d{1,3}(?:[ ,]\d{3})+|\d{4,})(?:\.\d{2})?\s*(?:@|x)\s*(0?\.\d+|\d+\.\d+\s*c)\s*(?:/R|per\s+rand)?[^\n]*?(-?\d[\d ,]*\.\d{2})`)

var (
	ratesTotalCascade = newCascade("rates total",
		newRule("charges-total", `(?i)(?:property\s+|assessment\s+)?rates\s+charges?(?:\s+total)?\s*[:\s]?([^\n]*)`),
		newRule("total-rates", `(?i)total\s+(?:for\s+)?(?:property\s+)?rates\s*[:\s]?([^\n]*)`),
	)

	rebateCascade = newCascade("rates rebate",
		newRule("rebate-line", `(?i)(?:rebate|remission|reduction)[^\n]*?(-?\d[\d ,]*\.\d{2})`),
	)
)

// extractRates reconstructs the property-rates charge: valuation rows,
// an optional rebate, and the stated section total when printed, else the
// sum of rows less the rebate.
func extractRates(sec section) (model.LineItem, bool) {
	detail := &model.RatesDetail{}

	for _, m := range ratesRowRe.FindAllStringSubmatch(sec.body, -1) {
		value, ok := parseCents(strings.ReplaceAll(m[1], " ", "") + ".00")
		if !ok {
			continue
		}
		rate, ok := parseRatesRate(m[2])
		if !ok {
			continue
		}
		amount, ok := parseCents(m[3])
		if !ok || amount < 0 {
			continue
		}
		detail.Rows = append(detail.Rows, model.RatesRow{
			Value:  value,
			Rate:   rate,
			Amount: amount,
		})
	}

	if m, _, ok := rebateCascade.first(sec.body); ok {
		if c, ok := parseCents(m[1]); ok {
			if c < 0 {
				c = -c
			}
			detail.Rebate = &c
		}
	}

	stated := ratesTotalCascade.cents(sec.body)
	if stated == nil && len(detail.Rows) == 0 {
		return model.LineItem{}, false
	}

	item := model.LineItem{
		Service:     model.ServiceRates,
		Provider:    sec.provider,
		Description: sectionDescription(sec, "Property rates"),
		Rates:       detail,
	}

	switch {
	case stated != nil:
		item.Amount = *stated
	default:
		var sum model.Cents
		for _, r := range detail.Rows {
			sum += r.Amount
		}
		if detail.Rebate != nil {
			sum -= *detail.Rebate
		}
		if sum < 0 {
			sum = 0
		}
		item.Amount = sum
	}

	if len(detail.Rows) == 1 {
		rate := detail.Rows[0].Rate
		item.UnitRate = &rate
	}

	return item, true
}

// parseRatesRate accepts a decimal fraction ("0.006340") or a cents-per-Rand
// figure ("0.634 c") and normalises to Rand per Rand of value.
func parseRatesRate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(strings.ToLower(s), "c") {
		r, ok := parseQuantity(strings.TrimSpace(s[:len(s)-1]))
		if !ok {
			return 0, false
		}
		return r / 100, true
	}
	return parseQuantity(s)
}
