package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/service"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRule(provider string, financialYear string, verified bool) *model.TariffRule {
	upper := 509.24
	start, _ := model.ParseFinancialYear(financialYear)
	return &model.TariffRule{
		Provider:      provider,
		Service:       model.ServiceElectricity,
		Category:      model.CategoryResidential,
		FinancialYear: financialYear,
		EffectiveFrom: start.Start(),
		Pricing: &model.ElectricityPricing{
			Bands: []model.RateBand{
				{Lower: 0, Upper: &upper, Rate: 2.3649},
				{Lower: 509.24, Rate: 2.7510},
			},
		},
		VATRate:       0.15,
		SourceExcerpt: "Block 1: 236.49c/kWh",
		SourcePage:    12,
		Verified:      verified,
		Confidence:    90,
	}
}

func TestSaveAndLookupRule(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	rule := testRule("City Power", "2024/2025", true)
	require.NoError(t, store.SaveRule(ctx, rule))
	assert.Greater(t, rule.ID, int64(0))

	rules, err := store.LookupRules(ctx, "City Power", model.ServiceElectricity,
		model.CategoryResidential, "2024/2025")
	require.NoError(t, err)
	require.Len(t, rules, 1)

	got := rules[0]
	assert.Equal(t, "City Power", got.Provider)
	assert.True(t, got.Verified)
	assert.Equal(t, "Block 1: 236.49c/kWh", got.SourceExcerpt)

	// The pricing structure round-trips through its JSON envelope.
	pricing, ok := got.Pricing.(*model.ElectricityPricing)
	require.True(t, ok)
	require.Len(t, pricing.Bands, 2)
	assert.InDelta(t, 2.3649, pricing.Bands[0].Rate, 1e-9)
	require.NotNil(t, pricing.Bands[0].Upper)
	assert.Nil(t, pricing.Bands[1].Upper)
}

func TestLookupRulesKeyedExactly(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, testRule("City Power", "2024/2025", true)))
	require.NoError(t, store.SaveRule(ctx, testRule("City Power", "2023/2024", true)))

	rules, err := store.LookupRules(ctx, "City Power", model.ServiceElectricity,
		model.CategoryResidential, "2023/2024")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "2023/2024", rules[0].FinancialYear)

	rules, err = store.LookupRules(ctx, "Eskom", model.ServiceElectricity,
		model.CategoryResidential, "2024/2025")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestGetRulesFilter(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, testRule("City Power", "2024/2025", true)))
	require.NoError(t, store.SaveRule(ctx, testRule("City Power", "2024/2025", false)))
	require.NoError(t, store.SaveRule(ctx, testRule("Eskom", "2024/2025", false)))

	rules, err := store.GetRules(ctx, service.RuleFilter{Provider: "City Power"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	rules, err = store.GetRules(ctx, service.RuleFilter{VerifiedOnly: true})
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Verified)

	rules, err = store.GetRules(ctx, service.RuleFilter{})
	require.NoError(t, err)
	assert.Len(t, rules, 3)
}

func TestGetRuleByID(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	rule := testRule("City Power", "2024/2025", false)
	require.NoError(t, store.SaveRule(ctx, rule))

	got, err := store.GetRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Provider, got.Provider)

	_, err = store.GetRuleByID(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMarkRuleVerified(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	rule := testRule("City Power", "2024/2025", false)
	require.NoError(t, store.SaveRule(ctx, rule))

	require.NoError(t, store.MarkRuleVerified(ctx, rule.ID, true))
	got, err := store.GetRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	assert.ErrorIs(t, store.MarkRuleVerified(ctx, 9999, true), common.ErrNotFound)
}

func TestExpireRule(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	rule := testRule("City Power", "2024/2025", true)
	require.NoError(t, store.SaveRule(ctx, rule))

	expiry := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.ExpireRule(ctx, rule.ID, expiry))

	got, err := store.GetRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.False(t, got.ActiveAt(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got.ActiveAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSaveRuleRejectsInvalid(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	rule := testRule("City Power", "2024/2025", true)
	rule.Pricing = nil
	assert.Error(t, store.SaveRule(ctx, rule))

	rule = testRule("", "2024/2025", true)
	assert.Error(t, store.SaveRule(ctx, rule))
}

func TestMissingTariffAlertUpsert(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.RecordMissingTariff(ctx, "Joburg Water", model.ServiceWater, "2024/2025"))
	require.NoError(t, store.RecordMissingTariff(ctx, "Joburg Water", model.ServiceWater, "2024/2025"))
	require.NoError(t, store.RecordMissingTariff(ctx, "Pikitup", model.ServiceRefuse, "2024/2025"))

	alerts, err := store.GetMissingTariffAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	byProvider := make(map[string]model.MissingTariffAlert)
	for _, a := range alerts {
		byProvider[a.Provider] = a
	}
	assert.Equal(t, 2, byProvider["Joburg Water"].HitCount)
	assert.Equal(t, 1, byProvider["Pikitup"].HitCount)
}

func TestVerificationHistory(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	billDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		record := &model.VerificationRecord{
			BillHash:       "abc123",
			AccountNumber:  "550012345678",
			BillDate:       &billDate,
			VerifiedAt:     time.Date(2025, 3, 16+i, 0, 0, 0, 0, time.UTC),
			Verified:       4,
			LikelyWrong:    1,
			CannotVerify:   2,
			Impact:         model.ImpactRange{Min: 6000, Max: 11000},
			Recommendation: model.RecommendHandleYourself,
		}
		require.NoError(t, store.SaveVerification(ctx, record))
		assert.Greater(t, record.ID, int64(0))
	}

	records, err := store.GetVerifications(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.True(t, records[0].VerifiedAt.After(records[1].VerifiedAt))
	assert.Equal(t, model.Cents(11000), records[0].Impact.Max)
	assert.Equal(t, model.RecommendHandleYourself, records[0].Recommendation)

	records, err = store.GetVerifications(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSaveVerificationRejectsInvalid(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	assert.Error(t, store.SaveVerification(ctx, &model.VerificationRecord{}))
	assert.Error(t, store.SaveVerification(ctx, &model.VerificationRecord{BillHash: "abc"}))
}

func TestMigrateIdempotent(t *testing.T) {
	store := setupTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}
