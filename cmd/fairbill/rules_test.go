package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbill/fairbill/internal/model"
)

const electricityPricingJSON = `{
	"service": "electricity",
	"structure": {
		"Bands": [
			{"Lower": 0, "Upper": 509.24, "Rate": 2.3649},
			{"Lower": 509.24, "Rate": 2.7510}
		]
	}
}`

func TestRuleImportToRule(t *testing.T) {
	ri := ruleImport{
		Provider:      "City Power",
		Service:       "electricity",
		Category:      "residential",
		FinancialYear: "2024/2025",
		VATRate:       0.15,
		Confidence:    90,
		SourceExcerpt: "Block 1: 236.49c/kWh",
		SourcePage:    12,
		Pricing:       json.RawMessage(electricityPricingJSON),
	}

	rule, err := ri.toRule()
	require.NoError(t, err)
	assert.Equal(t, "City Power", rule.Provider)
	assert.Equal(t, model.ServiceElectricity, rule.Service)
	// Effective date defaults to the start of the financial year.
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), rule.EffectiveFrom)

	pricing, ok := rule.Pricing.(*model.ElectricityPricing)
	require.True(t, ok)
	require.Len(t, pricing.Bands, 2)
	assert.InDelta(t, 2.3649, pricing.Bands[0].Rate, 1e-9)
}

func TestRuleImportExplicitDates(t *testing.T) {
	ri := ruleImport{
		Provider:      "City Power",
		Service:       "electricity",
		Category:      "residential",
		FinancialYear: "2024/2025",
		EffectiveFrom: "2024-10-01",
		ExpiresAt:     "2025-01-31",
		VATRate:       0.15,
		Confidence:    90,
		Pricing:       json.RawMessage(electricityPricingJSON),
	}

	rule, err := ri.toRule()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), rule.EffectiveFrom)
	require.NotNil(t, rule.ExpiresAt)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), *rule.ExpiresAt)
}

func TestRuleImportRejectsBadInput(t *testing.T) {
	valid := func() ruleImport {
		return ruleImport{
			Provider:      "City Power",
			Service:       "electricity",
			Category:      "residential",
			FinancialYear: "2024/2025",
			VATRate:       0.15,
			Confidence:    90,
			Pricing:       json.RawMessage(electricityPricingJSON),
		}
	}

	tests := []struct {
		mutate func(*ruleImport)
		name   string
	}{
		{name: "bad financial year", mutate: func(ri *ruleImport) { ri.FinancialYear = "2024/2026" }},
		{name: "bad effective date", mutate: func(ri *ruleImport) { ri.EffectiveFrom = "October 2024" }},
		{name: "unknown service", mutate: func(ri *ruleImport) { ri.Service = "parking" }},
		{name: "empty provider", mutate: func(ri *ruleImport) { ri.Provider = "" }},
		{name: "missing pricing", mutate: func(ri *ruleImport) { ri.Pricing = nil }},
		{name: "pricing service mismatch", mutate: func(ri *ruleImport) { ri.Service = "water" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ri := valid()
			tt.mutate(&ri)
			_, err := ri.toRule()
			assert.Error(t, err)
		})
	}
}
