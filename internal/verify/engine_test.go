package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/rules"
)

type stubMatcher struct {
	match *rules.Match
}

func (s *stubMatcher) Match(_ context.Context, _ string, _ model.ServiceType, _ model.CustomerCategory, _ time.Time) (*rules.Match, error) {
	return s.match, nil
}

func electricityRule(sourceExcerpt string) model.TariffRule {
	upper := 509.24
	return model.TariffRule{
		Provider:      "City Power",
		Service:       model.ServiceElectricity,
		Category:      model.CategoryResidential,
		FinancialYear: "2024/2025",
		EffectiveFrom: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Pricing: &model.ElectricityPricing{
			Bands: []model.RateBand{
				{Lower: 0, Upper: &upper, Rate: 2.3649},
				{Lower: 509.24, Rate: 2.7510},
			},
		},
		VATRate:       0.15,
		SourceExcerpt: sourceExcerpt,
		SourcePage:    12,
		Verified:      true,
		Confidence:    95,
	}
}

func residentialBill(electricityAmount model.Cents) *model.Bill {
	billDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	consumption := 374.0
	vat := model.RoundCents(electricityAmount.Rand() * 0.15)
	current := electricityAmount + vat

	return &model.Bill{
		AccountNumber:  "550012345678",
		BillDate:       &billDate,
		CurrentCharges: &current,
		VATAmount:      &vat,
		Property:       model.PropertyInfo{Classification: model.PropertyResidential},
		LineItems: []model.LineItem{{
			Service:     model.ServiceElectricity,
			Provider:    "City Power",
			Description: "Electricity",
			Quantity:    &consumption,
			Amount:      electricityAmount,
		}},
	}
}

func findByName(t *testing.T, findings []model.Finding, name string) model.Finding {
	t.Helper()
	for _, f := range findings {
		if f.CheckName == name {
			return f
		}
	}
	t.Fatalf("no finding named %q", name)
	return model.Finding{}
}

func TestVerifyTariffMatch(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1: 236.49c/kWh"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	// 374 kWh at 236.49c lands entirely in band one: R884.47 expected.
	result, err := engine.Verify(context.Background(), residentialBill(88447))
	require.NoError(t, err)

	f := findByName(t, result.Findings, "tariff-electricity")
	assert.Equal(t, model.StatusVerified, f.Status)
	assert.Equal(t, 95, f.Confidence)
	assert.True(t, f.Citation.HasSource)
	assert.Contains(t, f.Citation.Source, "City Power")
	assert.Equal(t, model.RecommendNoAction, result.Recommendation)
}

func TestVerifyTariffWithinToleranceStillVerified(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	// R30 over the expected amount, within the R50 residential allowance.
	result, err := engine.Verify(context.Background(), residentialBill(91447))
	require.NoError(t, err)

	f := findByName(t, result.Findings, "tariff-electricity")
	assert.Equal(t, model.StatusVerified, f.Status)
}

func TestVerifyTariffOverchargeWithSource(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1: 236.49c/kWh"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	// R110 over the expected amount, well outside the R50 allowance.
	result, err := engine.Verify(context.Background(), residentialBill(99447))
	require.NoError(t, err)

	f := findByName(t, result.Findings, "tariff-electricity")
	assert.Equal(t, model.StatusLikelyWrong, f.Status)
	assert.True(t, f.Citation.HasSource)
	assert.Contains(t, f.Explanation, "overcharged")

	require.NotNil(t, f.Impact)
	assert.Equal(t, model.Cents(6000), f.Impact.Min)
	assert.Equal(t, model.Cents(11000), f.Impact.Max)
}

func TestVerifyTariffDiscrepancyWithoutSourceDowngraded(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule(""), Confidence: 70}}
	engine := NewEngine(matcher, DefaultTolerances())

	result, err := engine.Verify(context.Background(), residentialBill(99447))
	require.NoError(t, err)

	f := findByName(t, result.Findings, "tariff-electricity")
	assert.Equal(t, model.StatusCannotVerify, f.Status)
	assert.Contains(t, f.Explanation, "tariff schedule")
}

func TestVerifyNoRuleCannotVerify(t *testing.T) {
	engine := NewEngine(&stubMatcher{}, DefaultTolerances())

	result, err := engine.Verify(context.Background(), residentialBill(88447))
	require.NoError(t, err)

	f := findByName(t, result.Findings, "tariff-electricity")
	assert.Equal(t, model.StatusCannotVerify, f.Status)
	assert.Contains(t, f.Explanation, "No City Power electricity tariff")
	assert.Contains(t, f.Explanation, "2024/2025")
}

func TestVerifyMultiMeterUsesBillOwnRates(t *testing.T) {
	engine := NewEngine(&stubMatcher{}, DefaultTolerances())

	bill := residentialBill(173011)
	bill.LineItems[0].Electricity = &model.ElectricityDetail{
		Meters: []model.MeterReading{
			{MeterNumber: "93000123", Consumption: 600},
			{MeterNumber: "93000124", Consumption: 400},
		},
		Steps: []model.StepCharge{{Step: 1, Quantity: 1000, Rate: 1.5, Amount: 150000}},
		Fixed: []model.BillRow{{Description: "Service charge", Amount: 23011}},
	}

	result, err := engine.Verify(context.Background(), bill)
	require.NoError(t, err)

	f := findByName(t, result.Findings, "internal-arithmetic-electricity")
	assert.Equal(t, model.StatusVerified, f.Status)
	assert.True(t, f.Citation.SelfEvident)
	assert.False(t, f.Citation.HasSource)
}

func TestVerifyInternalArithmeticMismatch(t *testing.T) {
	engine := NewEngine(&stubMatcher{}, DefaultTolerances())

	bill := residentialBill(180000)
	bill.LineItems[0].Electricity = &model.ElectricityDetail{
		Meters: []model.MeterReading{
			{MeterNumber: "93000123", Consumption: 600},
			{MeterNumber: "93000124", Consumption: 400},
		},
		Steps: []model.StepCharge{{Step: 1, Quantity: 1000, Rate: 1.5, Amount: 150000}},
		Fixed: []model.BillRow{{Description: "Service charge", Amount: 23011}},
	}

	result, err := engine.Verify(context.Background(), bill)
	require.NoError(t, err)

	f := findByName(t, result.Findings, "internal-arithmetic-electricity")
	assert.Equal(t, model.StatusLikelyWrong, f.Status)
	assert.True(t, f.Citation.SelfEvident)
	assert.Contains(t, f.Explanation, "bill's own printed rates")

	require.NotNil(t, f.Impact)
	assert.Equal(t, model.Cents(6989), f.Impact.Max)
}

func TestVerifyEstimatedReadingFlagged(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	bill := residentialBill(88447)
	bill.LineItems[0].IsEstimated = true

	result, err := engine.Verify(context.Background(), bill)
	require.NoError(t, err)

	f := findByName(t, result.Findings, "estimated-reading-electricity")
	assert.Equal(t, model.StatusCannotVerify, f.Status)
	require.NotNil(t, f.Impact)
	assert.Equal(t, model.Cents(0), f.Impact.Min)
	assert.Equal(t, model.RoundCents(884.47*0.25), f.Impact.Max)
}

func TestVerifyHighConsumptionResidentialOnly(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1"), Confidence: 95}}

	high := 4000.0
	bill := residentialBill(88447)
	bill.LineItems[0].Quantity = &high

	engine := NewEngine(matcher, DefaultTolerances())
	result, err := engine.Verify(context.Background(), bill)
	require.NoError(t, err)
	f := findByName(t, result.Findings, "high-consumption-electricity")
	assert.Equal(t, model.StatusCannotVerify, f.Status)

	// The same consumption on a commercial account is not anomalous.
	bill = residentialBill(88447)
	bill.LineItems[0].Quantity = &high
	bill.Property.Classification = model.PropertyBusiness
	result, err = engine.Verify(context.Background(), bill)
	require.NoError(t, err)
	for _, f := range result.Findings {
		assert.NotEqual(t, "high-consumption-electricity", f.CheckName)
	}
}

func TestVerifyReconciliation(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	// Exact sum reconciles.
	result, err := engine.Verify(context.Background(), residentialBill(88447))
	require.NoError(t, err)
	f := findByName(t, result.Findings, "reconciliation")
	assert.Equal(t, model.StatusVerified, f.Status)

	// A one-cent discrepancy stays within the R1 rounding allowance.
	bill := residentialBill(88447)
	offByOne := *bill.CurrentCharges + 1
	bill.CurrentCharges = &offByOne
	result, err = engine.Verify(context.Background(), bill)
	require.NoError(t, err)
	f = findByName(t, result.Findings, "reconciliation")
	assert.Equal(t, model.StatusVerified, f.Status)

	// Widened to R5 it flips to LIKELY_WRONG with impact equal to the
	// discrepancy.
	bill = residentialBill(88447)
	offByFive := *bill.CurrentCharges + 500
	bill.CurrentCharges = &offByFive
	result, err = engine.Verify(context.Background(), bill)
	require.NoError(t, err)
	f = findByName(t, result.Findings, "reconciliation")
	assert.Equal(t, model.StatusLikelyWrong, f.Status)
	require.NotNil(t, f.Impact)
	assert.Equal(t, model.Cents(500), f.Impact.Min)
	assert.Equal(t, model.Cents(500), f.Impact.Max)
}

func TestVerifyVATExcludesRates(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	bill := residentialBill(88447)
	bill.LineItems = append(bill.LineItems, model.LineItem{
		Service:     model.ServiceRates,
		Provider:    "City of Johannesburg",
		Description: "Property rates",
		Amount:      50192,
	})
	// VAT stays 15% of the electricity charge alone; the rates amount is
	// exempt and must not enter the base.
	current := model.Cents(88447) + 50192 + *bill.VATAmount
	bill.CurrentCharges = &current

	result, err := engine.Verify(context.Background(), bill)
	require.NoError(t, err)

	f := findByName(t, result.Findings, "vat")
	assert.Equal(t, model.StatusVerified, f.Status)
	assert.Contains(t, f.Explanation, "property rates excluded")

	f = findByName(t, result.Findings, "reconciliation")
	assert.Equal(t, model.StatusVerified, f.Status)
}

func TestVerifyMissingTotalsCannotVerify(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	bill := residentialBill(88447)
	bill.CurrentCharges = nil
	bill.TotalDue = nil
	bill.VATAmount = nil

	result, err := engine.Verify(context.Background(), bill)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCannotVerify, findByName(t, result.Findings, "reconciliation").Status)
	assert.Equal(t, model.StatusCannotVerify, findByName(t, result.Findings, "vat").Status)
}

func TestRecommendation(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		impact  model.ImpactRange
		want    model.Recommendation
	}{
		{name: "nothing wrong", summary: Summary{Verified: 3}, want: model.RecommendNoAction},
		{name: "small impact", summary: Summary{LikelyWrong: 1}, impact: model.ImpactRange{Min: 100, Max: 30000}, want: model.RecommendHandleYourself},
		{name: "large impact", summary: Summary{LikelyWrong: 2}, impact: model.ImpactRange{Min: 40000, Max: 90000}, want: model.RecommendEscalate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recommend(tt.summary, tt.impact))
		})
	}
}

func TestFindingBuilderRejectsAccusationWithoutCitation(t *testing.T) {
	_, err := newFinding(model.CheckTariff, "tariff-electricity").
		status(model.StatusLikelyWrong).
		title("Electricity charge appears overcharged").
		explainf("billed more than expected").
		confidence(90).
		build()

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingCitation)
}

func TestFindingBuilderRequiresExplanation(t *testing.T) {
	_, err := newFinding(model.CheckMeter, "estimated-reading-water").
		status(model.StatusCannotVerify).
		title("Estimated reading").
		confidence(60).
		build()

	require.Error(t, err)
}

func TestVerifyImpactAggregation(t *testing.T) {
	matcher := &stubMatcher{match: &rules.Match{Rule: electricityRule("Block 1: 236.49c/kWh"), Confidence: 95}}
	engine := NewEngine(matcher, DefaultTolerances())

	// Overcharged electricity plus a reconciliation discrepancy: both
	// impacts accumulate and the total pushes past the escalation line.
	bill := residentialBill(149447)
	result, err := engine.Verify(context.Background(), bill)
	require.NoError(t, err)

	tariff := findByName(t, result.Findings, "tariff-electricity")
	assert.Equal(t, model.StatusLikelyWrong, tariff.Status)

	assert.Equal(t, 1, result.Summary.LikelyWrong)
	assert.Equal(t, model.Cents(61000), result.Impact.Max)
	assert.Equal(t, model.RecommendEscalate, result.Recommendation)
}
