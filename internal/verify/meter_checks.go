package verify

import (
	"fmt"

	"github.com/fairbill/fairbill/internal/model"
)

// estimatedImpactPct bounds the plausible error of an estimated reading
// as a share of the billed amount.
const estimatedImpactPct = 0.25

// meterChecks runs the reading-sanity family: estimated readings are
// flagged for every customer category; anomalously high consumption is
// flagged for residential accounts only, since commercial and industrial
// usage at that scale is expected.
func (e *Engine) meterChecks(bill *model.Bill) ([]model.Finding, error) {
	category := bill.Property.Classification.CustomerCategory()

	var findings []model.Finding
	for _, item := range bill.LineItems {
		if item.IsEstimated {
			f, err := estimatedReadingFinding(item)
			if err != nil {
				return nil, err
			}
			findings = append(findings, f)
		}

		if category != model.CategoryResidential || item.Quantity == nil {
			continue
		}
		var threshold float64
		var unit string
		switch item.Service {
		case model.ServiceElectricity:
			threshold, unit = e.tolerances.HighConsumptionKWh, "kWh"
		case model.ServiceWater:
			threshold, unit = e.tolerances.HighConsumptionKL, "kL"
		default:
			continue
		}
		if *item.Quantity <= threshold {
			continue
		}
		f, err := highConsumptionFinding(item, threshold, unit)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func estimatedReadingFinding(item model.LineItem) (model.Finding, error) {
	maxImpact := model.RoundCents(item.Amount.Rand() * estimatedImpactPct)
	return newFinding(model.CheckMeter, fmt.Sprintf("estimated-reading-%s", item.Service)).
		status(model.StatusCannotVerify).
		title(fmt.Sprintf("%s charge is based on an estimated reading", titleCase(item.Service))).
		explainf("The %s meter was not actually read this period, so the charge of %s rests on an estimate that could be off by as much as %s either way. An actual meter reading is needed before this charge can be confirmed.",
			item.Service, item.Amount, maxImpact).
		confidence(60).
		impact(0, maxImpact).
		build()
}

func highConsumptionFinding(item model.LineItem, threshold float64, unit string) (model.Finding, error) {
	return newFinding(model.CheckMeter, fmt.Sprintf("high-consumption-%s", item.Service)).
		status(model.StatusCannotVerify).
		title(fmt.Sprintf("Unusually high %s consumption", item.Service)).
		explainf("Consumption of %.0f %s is far above typical residential usage (flagged above %.0f %s). This can indicate a faulty meter, a leak, or a misread; the meter should be inspected before the charge of %s is accepted.",
			*item.Quantity, unit, threshold, unit, item.Amount).
		confidence(50).
		build()
}
