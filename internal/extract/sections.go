package extract

import (
	"regexp"
	"sort"

	"github.com/fairbill/fairbill/internal/model"
)

// Default providers per service for City of Johannesburg accounts. Used
// when the section header does not name the provider explicitly.
const (
	providerCityPower   = "City Power"
	providerJoburgWater = "Johannesburg Water"
	providerPikitup     = "Pikitup"
	providerCoJ         = "City of Johannesburg"
)

// section is one provider/service slice of the bill text: everything from
// a recognised header up to the next recognised header or end of text.
// Sections are processed independently so a failure in one cannot affect
// the others.
type section struct {
	provider string
	header   string
	body     string
	service  model.ServiceType
}

// sectionMarker recognises a service-section header line. Headers are
// full lines without digits, which keeps charge lines ("Electricity
// Charges Total R1,511.77") from opening a spurious section.
type sectionMarker struct {
	re       *regexp.Regexp
	provider string
	service  model.ServiceType
}

var sectionMarkers = []sectionMarker{
	{
		service:  model.ServiceElectricity,
		provider: providerCityPower,
		re:       regexp.MustCompile(`(?im)^[ \t]*(?:CITY POWER(?: JOHANNESBURG)?|ELECTRICITY(?:[ \t]*[:/-][^\n\d]*)?)[ \t]*\r?$`),
	},
	{
		service:  model.ServiceWater,
		provider: providerJoburgWater,
		re:       regexp.MustCompile(`(?im)^[ \t]*(?:JOHANNESBURG WATER|JOBURG WATER|WATER(?:[ \t]+(?:SERVICES|AND SANITATION))?(?:[ \t]*[:/-][^\n\d]*)?)[ \t]*\r?$`),
	},
	{
		service:  model.ServiceSewerage,
		provider: providerJoburgWater,
		re:       regexp.MustCompile(`(?im)^[ \t]*(?:SEWERAGE|SANITATION|SEWER)(?:[ \t]*[:/-][^\n\d]*|[ \t]+(?:CHARGES|SERVICES))?[ \t]*\r?$`),
	},
	{
		service:  model.ServiceRefuse,
		provider: providerPikitup,
		re:       regexp.MustCompile(`(?im)^[ \t]*(?:PIKITUP|REFUSE(?:[ \t]+REMOVAL)?|SOLID WASTE)(?:[ \t]*[:/-][^\n\d]*)?[ \t]*\r?$`),
	},
	{
		service:  model.ServiceRates,
		provider: providerCoJ,
		re:       regexp.MustCompile(`(?im)^[ \t]*(?:PROPERTY RATES|ASSESSMENT RATES|RATES(?:[ \t]+AND[ \t]+TAXES)?)(?:[ \t]*[:/-][^\n\d]*)?[ \t]*\r?$`),
	},
	{
		service:  model.ServiceSundry,
		provider: providerCoJ,
		re:       regexp.MustCompile(`(?im)^[ \t]*(?:SUNDRY|MISCELLANEOUS)(?:[ \t]+CHARGES)?(?:[ \t]*[:/-][^\n\d]*)?[ \t]*\r?$`),
	},
}

type headerHit struct {
	marker sectionMarker
	start  int
	end    int
}

// segment splits bill text into service sections. A provider header
// immediately followed by a service-category header for the same service
// (the common "CITY POWER" then "ELECTRICITY : ..." shape) is folded into
// a single section.
func segment(text string) []section {
	var hits []headerHit
	for _, marker := range sectionMarkers {
		for _, loc := range marker.re.FindAllStringIndex(text, -1) {
			hits = append(hits, headerHit{marker: marker, start: loc[0], end: loc[1]})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	// Fold consecutive headers for the same service.
	var folded []headerHit
	for _, hit := range hits {
		if n := len(folded); n > 0 && folded[n-1].marker.service == hit.marker.service {
			folded[n-1].end = hit.end
			continue
		}
		folded = append(folded, hit)
	}

	sections := make([]section, 0, len(folded))
	for i, hit := range folded {
		bodyEnd := len(text)
		if i+1 < len(folded) {
			bodyEnd = folded[i+1].start
		}
		sections = append(sections, section{
			service:  hit.marker.service,
			provider: hit.marker.provider,
			header:   text[hit.start:hit.end],
			body:     text[hit.end:bodyEnd],
		})
	}
	return sections
}
