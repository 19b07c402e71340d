package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func centsPtr(c Cents) *Cents { return &c }

func TestValidateBands(t *testing.T) {
	tests := []struct {
		name    string
		bands   []RateBand
		wantErr bool
	}{
		{
			name: "contiguous bands with unbounded final band",
			bands: []RateBand{
				{Lower: 0, Upper: floatPtr(509.24), Rate: 2.3649},
				{Lower: 509.24, Upper: nil, Rate: 2.7070},
			},
		},
		{
			name:  "empty band list is structurally fine",
			bands: nil,
		},
		{
			name: "gap between bands",
			bands: []RateBand{
				{Lower: 0, Upper: floatPtr(6), Rate: 0},
				{Lower: 10, Upper: nil, Rate: 20.5},
			},
			wantErr: true,
		},
		{
			name: "unbounded band in the middle",
			bands: []RateBand{
				{Lower: 0, Upper: nil, Rate: 2.0},
				{Lower: 500, Upper: nil, Rate: 3.0},
			},
			wantErr: true,
		},
		{
			name: "upper below lower",
			bands: []RateBand{
				{Lower: 10, Upper: floatPtr(5), Rate: 2.0},
			},
			wantErr: true,
		},
		{
			name: "unsorted input is sorted before checking",
			bands: []RateBand{
				{Lower: 509.24, Upper: nil, Rate: 2.7070},
				{Lower: 0, Upper: floatPtr(509.24), Rate: 2.3649},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBands(tt.bands)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodePricing(t *testing.T) {
	original := &WaterPricing{
		Bands: []RateBand{
			{Lower: 0, Upper: floatPtr(6), Rate: 0, Description: "Free basic water"},
			{Lower: 6, Upper: floatPtr(10), Rate: 20.94},
			{Lower: 10, Upper: nil, Rate: 28.90},
		},
		DemandLevy:        centsPtr(4500),
		DemandLevyPerUnit: true,
	}

	data, err := EncodePricing(original)
	require.NoError(t, err)

	decoded, err := DecodePricing(data)
	require.NoError(t, err)
	assert.Equal(t, ServiceWater, decoded.ServiceType())

	water, ok := decoded.(*WaterPricing)
	require.True(t, ok)
	assert.Len(t, water.Bands, 3)
	assert.True(t, water.DemandLevyPerUnit)
}

func TestDecodePricingRejectsMalformedStructure(t *testing.T) {
	// A stored rule with overlapping bands must be rejected at the
	// repository boundary, not priced.
	bad := &ElectricityPricing{
		Bands: []RateBand{
			{Lower: 0, Upper: floatPtr(600), Rate: 2.3649},
			{Lower: 500, Upper: nil, Rate: 2.7070},
		},
	}
	data, err := EncodePricing(bad)
	require.NoError(t, err)

	_, err = DecodePricing(data)
	assert.Error(t, err)
}

func TestDecodePricingUnknownService(t *testing.T) {
	_, err := DecodePricing([]byte(`{"service":"parking","structure":{}}`))
	assert.Error(t, err)
}

func TestCentsFormatting(t *testing.T) {
	tests := []struct {
		want  string
		cents Cents
	}{
		{cents: 0, want: "R0.00"},
		{cents: 123456, want: "R1 234.56"},
		{cents: -5, want: "-R0.05"},
		{cents: 123456789, want: "R1 234 567.89"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cents.String())
	}
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, Cents(88447), RoundCents(884.47))
	assert.Equal(t, Cents(100), RoundCents(0.999))
	assert.Equal(t, Cents(-250), RoundCents(-2.5))
}

func TestLineItemValidate(t *testing.T) {
	item := LineItem{Service: ServiceElectricity, Amount: 151177}
	require.NoError(t, item.Validate())

	item.Amount = -1
	assert.Error(t, item.Validate())

	item.Amount = 100
	item.Quantity = floatPtr(-3)
	assert.Error(t, item.Validate())

	item.Quantity = nil
	item.Service = "parking"
	assert.Error(t, item.Validate())
}
