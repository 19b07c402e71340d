package extract

import (
	"time"

	"github.com/fairbill/fairbill/internal/model"
)

// dateToken matches any date shape parseDate understands.
const dateToken = `(\d{1,2}[/-]\d{1,2}[/-]\d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}\s+[A-Za-z]+\s+\d{4})`

// Header-area field cascades. Each alternative exists for a bill revision
// observed in the wild; order is priority order.
var (
	accountCascade = newCascade("account number",
		newRule("labelled", `(?i)account\s*(?:no|number)\.?\s*[:#]?\s*(\d{6,})`),
		newRule("abbreviated", `(?i)\bacc(?:t)?\.?\s*(?:no\.?)?\s*[:#]\s*(\d{6,})`),
	)

	billDateCascade = newCascade("bill date",
		newRule("date-of-account", `(?i)date\s+of\s+account\s*[:\s]\s*`+dateToken),
		newRule("account-date", `(?i)(?:account|statement|bill|invoice)\s+date\s*[:\s]\s*`+dateToken),
	)

	dueDateCascade = newCascade("due date",
		newRule("due-date", `(?i)due\s+date\s*[:\s]\s*`+dateToken),
		newRule("payable-by", `(?i)payable\s+(?:by|before|on)\s*[:\s]?\s*`+dateToken),
		newRule("pay-by", `(?i)\bpay\s+by\s*[:\s]?\s*`+dateToken),
	)

	periodCascade = newCascade("billing period",
		newRule("labelled-range", `(?i)(?:billing|consumption|metering)\s+period\s*[:\s]\s*`+dateToken+`\s*(?:to|-|\x{2013})\s*`+dateToken),
		newRule("period-of-supply", `(?i)period\s+of\s+supply\s*[:\s]\s*`+dateToken+`\s*(?:to|-|\x{2013})\s*`+dateToken),
	)

	totalDueCascade = newCascade("total due",
		newRule("total-due", `(?i)total\s+(?:amount\s+)?due(?:\s+for\s+this\s+account)?\s*[:\s]?([^\n]*)`),
		newRule("amount-payable", `(?i)(?:total\s+)?amount\s+payable\s*[:\s]?([^\n]*)`),
		newRule("please-pay", `(?i)please\s+pay\s*[:\s]?([^\n]*)`),
	)

	previousBalanceCascade = newCascade("previous balance",
		newRule("previous-balance", `(?i)previous\s+(?:account\s+)?balance\s*[:\s]?([^\n]*)`),
		newRule("brought-forward", `(?i)balance\s+brought\s+forward\s*[:\s]?([^\n]*)`),
		newRule("opening-balance", `(?i)opening\s+balance\s*[:\s]?([^\n]*)`),
	)

	currentChargesCascade = newCascade("current charges",
		newRule("current-charges", `(?i)(?:total\s+)?current\s+charges(?:\s+due)?\s*[:\s]?([^\n]*)`),
		newRule("charges-this-period", `(?i)charges\s+(?:for\s+)?this\s+period\s*[:\s]?([^\n]*)`),
	)

	vatCascade = newCascade("VAT amount",
		newRule("vat-labelled", `(?im)^[^\n]*\bVAT(?:\s*@?\s*\d{1,2}(?:\.\d{1,2})?\s*%)?\s*[:\s]?([^\n]*)$`),
		newRule("value-added-tax", `(?i)value[- ]added\s+tax[^\n]*?([^\n]*)`),
	)
)

// cents resolves a cascade whose first capture group is the run of text
// holding the amount. The last currency figure in the run wins: amounts
// sit in the final column of the line, after any percentage or date the
// label drags along.
func (c cascade) cents(text string) *model.Cents {
	m, _, ok := c.first(text)
	if !ok {
		return nil
	}
	amounts := findAmounts(m[1])
	if len(amounts) == 0 {
		return nil
	}
	last := amounts[len(amounts)-1]
	return &last
}

// date resolves a cascade whose first capture group is a date token.
func (c cascade) date(text string) *time.Time {
	m, _, ok := c.first(text)
	if !ok {
		return nil
	}
	t, ok := parseDate(m[1])
	if !ok {
		return nil
	}
	return &t
}

// extractHeader fills the bill-level fields: account, dates, period
// bounds and the stated totals. Absent fields stay nil.
func extractHeader(bill *model.Bill, text string) {
	if m, _, ok := accountCascade.first(text); ok {
		bill.AccountNumber = m[1]
	}

	bill.BillDate = billDateCascade.date(text)
	bill.DueDate = dueDateCascade.date(text)

	if m, _, ok := periodCascade.first(text); ok {
		if start, ok := parseDate(m[1]); ok {
			bill.PeriodStart = &start
		}
		if end, ok := parseDate(m[2]); ok {
			bill.PeriodEnd = &end
		}
	}

	bill.TotalDue = totalDueCascade.cents(text)
	bill.PreviousBalance = previousBalanceCascade.cents(text)
	bill.CurrentCharges = currentChargesCascade.cents(text)
	bill.VATAmount = vatCascade.cents(text)
}
