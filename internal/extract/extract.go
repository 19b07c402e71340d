package extract

import (
	"log/slog"

	"github.com/fairbill/fairbill/internal/model"
)

// Extract parses bill text into a typed record. It never fails: every
// field it cannot locate is left absent, and malformed sections simply
// contribute no line items. The caller decides what absence means.
func Extract(text string, hints model.PropertyHints) *model.Bill {
	bill := &model.Bill{RawText: text}

	extractHeader(bill, text)
	bill.Property = extractProperty(text, hints)

	for _, sec := range segment(text) {
		switch sec.service {
		case model.ServiceElectricity:
			if item, ok := extractElectricity(sec); ok {
				bill.LineItems = append(bill.LineItems, item)
			}
		case model.ServiceWater:
			if item, ok := extractWater(sec); ok {
				bill.LineItems = append(bill.LineItems, item)
			}
		case model.ServiceSewerage:
			if item, ok := extractSewerage(sec); ok {
				bill.LineItems = append(bill.LineItems, item)
			}
		case model.ServiceRefuse:
			if item, ok := extractRefuse(sec); ok {
				bill.LineItems = append(bill.LineItems, item)
			}
		case model.ServiceRates:
			if item, ok := extractRates(sec); ok {
				bill.LineItems = append(bill.LineItems, item)
			}
		case model.ServiceSundry:
			bill.LineItems = append(bill.LineItems, extractSundry(sec)...)
		}
	}

	slog.Debug("bill extracted",
		"account", bill.AccountNumber,
		"line_items", len(bill.LineItems))

	return bill
}
