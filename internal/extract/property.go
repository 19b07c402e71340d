package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairbill/fairbill/internal/model"
)

// Property metadata lives in the header area of the document, independent
// of the service sections, so these cascades scan the whole text.
var (
	addressCascade = newCascade("property address",
		newRule("labelled", `(?i)(?:property|premises|service|supply)\s+address\s*[:\s]\s*([^\n]+)`),
		newRule("stand-address", `(?i)(?:stand|erf)\s+\d+[, ]+([^\n]+)`),
	)

	standSizeCascade = newCascade("stand size",
		newRule("labelled", `(?i)(?:stand|erf|property)\s+size\s*[:\s]\s*([\d ,.]+)\s*(?:m.?2|sqm|square\s+met)`),
	)

	unitsCascade = newCascade("living units",
		newRule("living-units", `(?i)(?:number\s+of\s+)?(?:living|dwelling|residential)\s+units\s*[:\s]\s*(\d+)`),
		newRule("units-short", `(?i)\bunits\s+on\s+property\s*[:\s]\s*(\d+)`),
	)

	classificationCascade = newCascade("property classification",
		newRule("category", `(?i)(?:property\s+)?(?:category|classification|usage|rating\s+category)\s*[:\s]\s*(residential|business|commercial|industrial|mixed)`),
	)

	valuationCascade = newCascade("municipal valuation",
		newRule("market-value", `(?i)(?:market|municipal|property)\s+valu(?:e|ation)\s*[:\s]?([^\n]*)`),
		newRule("rateable-value", `(?i)rateable\s+value\s*[:\s]?([^\n]*)`),
	)
)

// extractProperty pulls address, stand size, living units, classification
// and valuation out of the bill header. Caller hints fill in anything the
// bill does not state.
func extractProperty(text string, hints model.PropertyHints) model.PropertyInfo {
	info := model.PropertyInfo{}

	if m, _, ok := addressCascade.first(text); ok {
		info.Address = strings.TrimSpace(m[1])
	}

	if m, _, ok := standSizeCascade.first(text); ok {
		if size, ok := parseQuantity(m[1]); ok {
			info.StandSizeSqm = &size
		}
	}

	if m, _, ok := unitsCascade.first(text); ok {
		if n, err := strconv.Atoi(m[1]); err == nil {
			info.LivingUnits = &n
		}
	}

	if m, _, ok := classificationCascade.first(text); ok {
		switch strings.ToLower(m[1]) {
		case "residential":
			info.Classification = model.PropertyResidential
		case "business", "commercial":
			info.Classification = model.PropertyBusiness
		case "industrial":
			info.Classification = model.PropertyIndustrial
		case "mixed":
			info.Classification = model.PropertyMixed
		}
	}

	// Valuations are commonly printed without cents; accept whole Rand.
	if m, _, ok := valuationCascade.first(text); ok {
		if v := lastWholeAmount(m[1]); v != nil {
			info.Valuation = v
		}
	}

	if info.Valuation == nil {
		info.Valuation = hints.Valuation
	}
	if info.LivingUnits == nil {
		info.LivingUnits = hints.LivingUnits
	}

	return info
}

// lastWholeAmount parses the last currency figure in a run, accepting
// both two-decimal and whole-Rand shapes ("R1,250,000").
func lastWholeAmount(run string) *model.Cents {
	if amounts := findAmounts(run); len(amounts) > 0 {
		last := amounts[len(amounts)-1]
		return &last
	}
	matches := wholeAmountRe.FindAllString(run, -1)
	if len(matches) == 0 {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == ',' {
			return -1
		}
		return r
	}, matches[len(matches)-1])
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return nil
	}
	c := model.Cents(n * 100)
	return &c
}

// wholeAmountRe matches a whole-Rand figure with optional thousands
// separators.
var wholeAmountRe = regexp.MustCompile(`\d{1,3}(?:[ ,]\d{3})+|\d+`)
