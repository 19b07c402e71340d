package storage

import (
	"context"
	"fmt"

	"github.com/fairbill/fairbill/internal/model"
)

// RecordMissingTariff upserts a missing-tariff alert for the key,
// bumping the hit count and last-seen time when the gap is hit again.
func (s *SQLiteStorage) RecordMissingTariff(ctx context.Context, provider string, svc model.ServiceType, financialYear string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(provider, "provider"); err != nil {
		return err
	}
	if err := validateString(financialYear, "financialYear"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO missing_tariff_alerts
		(provider, service, financial_year) VALUES (?, ?, ?)
		ON CONFLICT(provider, service, financial_year) DO UPDATE SET
			hit_count = hit_count + 1,
			last_seen = CURRENT_TIMESTAMP`,
		provider, string(svc), financialYear)
	if err != nil {
		return fmt.Errorf("failed to record missing tariff alert: %w", err)
	}
	return nil
}

// GetMissingTariffAlerts returns all alerts, most recently hit first.
func (s *SQLiteStorage) GetMissingTariffAlerts(ctx context.Context) ([]model.MissingTariffAlert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, provider, service, financial_year, first_seen, last_seen, hit_count
		FROM missing_tariff_alerts ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing tariff alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.MissingTariffAlert
	for rows.Next() {
		var alert model.MissingTariffAlert
		if err := rows.Scan(&alert.ID, &alert.Provider, &alert.Service,
			&alert.FinancialYear, &alert.FirstSeen, &alert.LastSeen, &alert.HitCount); err != nil {
			return nil, fmt.Errorf("failed to scan missing tariff alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate missing tariff alerts: %w", err)
	}
	return alerts, nil
}
