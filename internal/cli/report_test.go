package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/verify"
)

func TestRenderResult(t *testing.T) {
	impact := model.ImpactRange{Min: 6000, Max: 11000}
	result := &verify.Result{
		VerifiedAt: time.Date(2025, 3, 16, 10, 30, 0, 0, time.UTC),
		Findings: []model.Finding{
			{
				Check:       model.CheckTariff,
				CheckName:   "tariff-electricity",
				Status:      model.StatusLikelyWrong,
				Title:       "Electricity charge appears too high",
				Explanation: "You were likely overcharged by R110.00.",
				Confidence:  95,
				Impact:      &impact,
				Citation: model.Citation{
					Source:    "City Power electricity tariff schedule, 2024/2025",
					Excerpt:   "Block 1: 236.49c/kWh",
					Page:      12,
					HasSource: true,
				},
			},
			{
				Check:       model.CheckArithmetic,
				CheckName:   "reconciliation",
				Status:      model.StatusVerified,
				Title:       "Charges add up",
				Explanation: "Line items plus VAT match the stated total.",
				Confidence:  95,
				Citation:    model.Citation{Source: "the bill's own printed rates", SelfEvident: true},
			},
		},
		Summary:        verify.Summary{Verified: 1, LikelyWrong: 1},
		Impact:         impact,
		Recommendation: model.RecommendHandleYourself,
	}

	var buf bytes.Buffer
	require.NoError(t, NewReportRenderer(&buf).RenderResult(result))
	out := buf.String()

	assert.Contains(t, out, "Verification Report")
	assert.Contains(t, out, "Tariff checks")
	assert.Contains(t, out, "Arithmetic checks")
	assert.Contains(t, out, "Electricity charge appears too high")
	assert.Contains(t, out, "City Power electricity tariff schedule")
	assert.Contains(t, out, "page 12")
	assert.Contains(t, out, "R60.00 to R110.00")
	assert.Contains(t, out, "1 verified")
	assert.Contains(t, out, "1 likely wrong")
	assert.Contains(t, out, "call centre")

	// Tariff findings render before arithmetic findings regardless of
	// slice order.
	tariffIdx := indexOf(out, "Tariff checks")
	arithIdx := indexOf(out, "Arithmetic checks")
	assert.Less(t, tariffIdx, arithIdx)
}

func TestRenderResultNoAction(t *testing.T) {
	result := &verify.Result{
		VerifiedAt: time.Now(),
		Findings: []model.Finding{
			{
				Check:       model.CheckArithmetic,
				CheckName:   "vat",
				Status:      model.StatusVerified,
				Title:       "VAT is correct",
				Explanation: "VAT matches 15% of the vatable charges.",
				Confidence:  95,
				Citation:    model.Citation{Source: "the bill's own printed rates", SelfEvident: true},
			},
		},
		Summary:        verify.Summary{Verified: 1},
		Recommendation: model.RecommendNoAction,
	}

	var buf bytes.Buffer
	require.NoError(t, NewReportRenderer(&buf).RenderResult(result))
	assert.Contains(t, buf.String(), "No action needed")
	assert.NotContains(t, buf.String(), "Estimated impact")
}

func TestRenderBill(t *testing.T) {
	billDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	qty := 374.0
	total := model.Cents(400000)
	vat := model.Cents(22677)

	bill := &model.Bill{
		AccountNumber: "550012345678",
		BillDate:      &billDate,
		PeriodStart:   &start,
		PeriodEnd:     &end,
		TotalDue:      &total,
		VATAmount:     &vat,
		Property:      model.PropertyInfo{Address: "12 Main Rd, Kensington"},
		LineItems: []model.LineItem{
			{
				Service:     model.ServiceElectricity,
				Provider:    "City Power",
				Quantity:    &qty,
				Amount:      151177,
				IsEstimated: true,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReportRenderer(&buf).RenderBill(bill))
	out := buf.String()

	assert.Contains(t, out, "550012345678")
	assert.Contains(t, out, "2025-02-14 to 2025-03-15 (30 days)")
	assert.Contains(t, out, "12 Main Rd, Kensington")
	assert.Contains(t, out, "City Power")
	assert.Contains(t, out, "374 (est)")
	assert.Contains(t, out, "R1 511.77")
	assert.Contains(t, out, "Total due: R4 000.00")
}

func indexOf(haystack, needle string) int {
	return bytes.Index([]byte(haystack), []byte(needle))
}
