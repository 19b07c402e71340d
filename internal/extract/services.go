package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairbill/fairbill/internal/model"
)

var (
	sewerageTotalCascade = newCascade("sewerage total",
		newRule("charges-total", `(?i)(?:sewerage|sanitation|sewer)\s+charges?(?:\s+total)?\s*[:\s]?([^\n]*)`),
		newRule("total-sewerage", `(?i)total\s+(?:for\s+)?(?:sewerage|sanitation)\s*[:\s]?([^\n]*)`),
	)

	perUnitRowCascade = newCascade("per-unit levy row",
		newRule("units-at-rate", `(?i)(\d+)\s*(?:living\s+|dwelling\s+)?units?\s*(?:@|x)\s*R\s*([\d ,.]+?)(?:\s*[=\s])([^\n]*)`),
	)

	refuseTotalCascade = newCascade("refuse total",
		newRule("charges-total", `(?i)(?:refuse|waste)(?:\s+removal)?\s+charges?(?:\s+total)?\s*[:\s]?([^\n]*)`),
		newRule("total-refuse", `(?i)total\s+(?:for\s+)?refuse\s*[:\s]?([^\n]*)`),
		newRule("bin-row", `(?i)(?:refuse|bin|240l)[^\n]*?(R\s*-?\d[\d ,]*\.\d{2}[^\n]*)`),
	)

	binCountRe = regexp.MustCompile(`(?i)(\d+)\s*(?:x\s*)?(?:\d{2,4}\s?l(?:itre)?\s*)?(?:bins?|containers?)`)
)

// extractSewerage handles the sewerage section. Multi-unit properties pay
// a fixed per-unit levy rather than a consumption charge, so the quantity
// on the item is the unit count.
func extractSewerage(sec section) (model.LineItem, bool) {
	stated := sewerageTotalCascade.cents(sec.body)
	fixed := parseFixedRows(sec.body)

	item := model.LineItem{
		Service:     model.ServiceSewerage,
		Provider:    sec.provider,
		Description: sectionDescription(sec, "Sewerage"),
	}

	if m, _, ok := perUnitRowCascade.first(sec.body); ok {
		if n, err := strconv.Atoi(m[1]); err == nil {
			q := float64(n)
			item.Quantity = &q
		}
		if rate, ok := parseQuantity(m[2]); ok {
			item.UnitRate = &rate
		}
		if stated == nil {
			if amounts := findAmounts(m[3]); len(amounts) > 0 {
				stated = &amounts[len(amounts)-1]
			}
		}
	}

	if stated == nil && len(fixed) == 0 && item.Quantity == nil {
		return model.LineItem{}, false
	}

	amount := chargeAmount(stated, nil, fixed)
	if stated == nil && item.Quantity != nil && item.UnitRate != nil {
		amount += model.RoundCents(*item.Quantity * *item.UnitRate)
	}
	item.Amount = amount

	return item, true
}

// extractRefuse handles the refuse-removal section: a per-bin or per-unit
// charge plus any fixed levies.
func extractRefuse(sec section) (model.LineItem, bool) {
	stated := refuseTotalCascade.cents(sec.body)
	fixed := parseFixedRows(sec.body)

	if stated == nil && len(fixed) == 0 {
		return model.LineItem{}, false
	}

	item := model.LineItem{
		Service:     model.ServiceRefuse,
		Provider:    sec.provider,
		Description: sectionDescription(sec, "Refuse removal"),
		Amount:      chargeAmount(stated, nil, fixed),
	}

	if m := binCountRe.FindStringSubmatch(sec.body); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			q := float64(n)
			item.Quantity = &q
		}
	}

	return item, true
}

// sundryRowRe matches one description-plus-amount sundry line.
var sundryRowRe = regexp.MustCompile(`(?im)^[ \t]*([A-Za-z][A-Za-z0-9 /&()-]*?)\s+R\s*(-?\d[\d ,]*\.\d{2})[ \t]*\r?$`)

// extractSundry emits one line item per sundry charge row. Negative rows
// (credits) are skipped rather than violating the non-negative amount
// invariant.
func extractSundry(sec section) []model.LineItem {
	var items []model.LineItem
	for _, m := range sundryRowRe.FindAllStringSubmatch(sec.body, -1) {
		amount, ok := parseCents(m[2])
		if !ok || amount < 0 {
			continue
		}
		items = append(items, model.LineItem{
			Service:     model.ServiceSundry,
			Provider:    sec.provider,
			Description: strings.TrimSpace(m[1]),
			Amount:      amount,
		})
	}
	return items
}
