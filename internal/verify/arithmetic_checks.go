package verify

import (
	"github.com/fairbill/fairbill/internal/model"
)

// vatRate is the statutory VAT rate recomputed by the arithmetic family.
const vatRate = 0.15

// arithmeticChecks runs the bill-level consistency family: reconciliation
// of line items against the stated total, and VAT recomputation over the
// VAT-able base. Both are self-citing by nature.
func (e *Engine) arithmeticChecks(bill *model.Bill) ([]model.Finding, error) {
	recon, err := e.reconciliationCheck(bill)
	if err != nil {
		return nil, err
	}
	vat, err := e.vatCheck(bill)
	if err != nil {
		return nil, err
	}
	return []model.Finding{recon, vat}, nil
}

// statedCharges returns the bill's stated current-period total, preferring
// the explicit current-charges figure and falling back to total due less
// the previous balance.
func statedCharges(bill *model.Bill) *model.Cents {
	if bill.CurrentCharges != nil {
		return bill.CurrentCharges
	}
	if bill.TotalDue == nil {
		return nil
	}
	total := *bill.TotalDue
	if bill.PreviousBalance != nil {
		total -= *bill.PreviousBalance
	}
	return &total
}

func (e *Engine) reconciliationCheck(bill *model.Bill) (model.Finding, error) {
	const name = "reconciliation"

	stated := statedCharges(bill)
	if stated == nil {
		return newFinding(model.CheckArithmetic, name).
			status(model.StatusCannotVerify).
			title("Bill total could not be located").
			explainf("Neither a current-charges figure nor a total-due figure could be read from the bill, so the line items cannot be reconciled against a stated total. The bill's summary block is needed.").
			confidence(0).
			build()
	}

	var sum model.Cents
	for _, item := range bill.LineItems {
		sum += item.Amount
	}
	if bill.VATAmount != nil {
		sum += *bill.VATAmount
	}

	diff := *stated - sum
	if diff.Abs() <= e.tolerances.Reconciliation {
		return newFinding(model.CheckArithmetic, name).
			status(model.StatusVerified).
			title("Line items reconcile with the bill total").
			explainf("The line items and VAT sum to %s against a stated total of %s (difference %s, within the %s rounding allowance).",
				sum, *stated, diff.Abs(), e.tolerances.Reconciliation).
			confidence(95).
			selfEvident().
			build()
	}

	return newFinding(model.CheckArithmetic, name).
		status(model.StatusLikelyWrong).
		title("Bill total does not match its own line items").
		explainf("Derived from the bill's own figures, no external source required: the line items and VAT sum to %s but the bill states %s, a discrepancy of %s.",
			sum, *stated, diff.Abs()).
		confidence(95).
		selfEvident().
		impact(diff.Abs(), diff.Abs()).
		build()
}

// vatCheck recomputes VAT over the VAT-able base. Property rates are
// VAT-exempt by statute and are never part of the base.
func (e *Engine) vatCheck(bill *model.Bill) (model.Finding, error) {
	const name = "vat"

	if bill.VATAmount == nil {
		return newFinding(model.CheckArithmetic, name).
			status(model.StatusCannotVerify).
			title("VAT amount could not be located").
			explainf("No VAT figure could be read from the bill, so the VAT calculation cannot be checked. The bill's VAT line is needed.").
			confidence(0).
			build()
	}

	var base model.Cents
	for _, item := range bill.LineItems {
		if item.Service == model.ServiceRates {
			continue
		}
		base += item.Amount
	}

	expected := model.RoundCents(base.Rand() * vatRate)
	diff := *bill.VATAmount - expected
	if diff.Abs() <= e.tolerances.VAT {
		return newFinding(model.CheckArithmetic, name).
			status(model.StatusVerified).
			title("VAT is correctly calculated").
			explainf("VAT of %s was charged against an expected %s (15%% of the %s VAT-able base, property rates excluded; difference %s within the %s allowance).",
				*bill.VATAmount, expected, base, diff.Abs(), e.tolerances.VAT).
			confidence(95).
			selfEvident().
			build()
	}

	return newFinding(model.CheckArithmetic, name).
		status(model.StatusLikelyWrong).
		title("VAT does not match 15% of the VAT-able charges").
		explainf("Derived from the bill's own figures, no external source required: 15%% of the %s VAT-able base (property rates excluded) is %s, but the bill charges VAT of %s, a difference of %s.",
			base, expected, *bill.VATAmount, diff.Abs()).
		confidence(95).
		selfEvident().
		impact(diff.Abs(), diff.Abs()).
		build()
}
