package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fairbill/fairbill/internal/model"
)

// amountRe matches one currency figure. The mandatory two-decimal tail is
// what lets us split figures that run together without separators: in
// "509.24374.00" the first match ends at ".24" and the next begins at
// "374".
var amountRe = regexp.MustCompile(`-?\d[\d ,]*\.\d{2}`)

// findAmounts returns every currency figure in a run of text, in order.
// Used where bill revisions print several amounts on one line with the
// whitespace between them collapsed.
func findAmounts(s string) []model.Cents {
	var amounts []model.Cents
	for _, m := range amountRe.FindAllString(s, -1) {
		if c, ok := parseCents(m); ok {
			amounts = append(amounts, c)
		}
	}
	return amounts
}

// parseCents normalises a currency string (thousands separators, spaces,
// a leading R, a trailing CR for credits) and converts it to integer
// cents. The value is never carried as floating-point Rand.
func parseCents(s string) (model.Cents, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasSuffix(strings.ToUpper(s), "CR") {
		negative = true
		s = strings.TrimSpace(s[:len(s)-2])
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', 'R', 'r', ' ':
			return -1
		}
		return r
	}, s)

	if strings.HasPrefix(cleaned, "-") {
		negative = !negative
		cleaned = cleaned[1:]
	}
	if cleaned == "" {
		return 0, false
	}

	whole, frac := cleaned, "0"
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		whole, frac = cleaned[:i], cleaned[i+1:]
		switch len(frac) {
		case 0:
			frac = "0"
		case 1:
			frac += "0"
		case 2:
			// Standard two-decimal currency shape.
		default:
			// Sub-cent precision: round to the nearest cent.
			f, err := strconv.ParseFloat("0."+frac, 64)
			if err != nil {
				return 0, false
			}
			frac = strconv.Itoa(int(f*100 + 0.5))
		}
		if whole == "" {
			whole = "0"
		}
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, false
	}

	cents := model.Cents(w*100 + f)
	if negative {
		cents = -cents
	}
	return cents, true
}

// parseQuantity parses a consumption figure (kWh, kL, units), tolerating
// space and comma thousands separators.
func parseQuantity(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dateLayouts are the date shapes seen across bill revisions, tried in order.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
}

// parseDate parses a bill date in any recognised layout.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
