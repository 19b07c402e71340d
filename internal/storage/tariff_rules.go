package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/service"
)

const tariffRuleColumns = `id, provider, service, category, financial_year,
	effective_from, expires_at, pricing, vat_rate, vat_inclusive,
	source_excerpt, source_page, verified, confidence, created_at, updated_at`

// LookupRules returns all rules for a (provider, service, category,
// financial year) key, most recently effective first. This is the
// read-only interface the rule matcher consumes.
func (s *SQLiteStorage) LookupRules(ctx context.Context, provider string, svc model.ServiceType, category model.CustomerCategory, financialYear string) ([]model.TariffRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(provider, "provider"); err != nil {
		return nil, err
	}
	if err := validateString(financialYear, "financialYear"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM tariff_rules
		WHERE provider = ? AND service = ? AND category = ? AND financial_year = ?
		ORDER BY effective_from DESC`, tariffRuleColumns)

	rows, err := s.db.QueryContext(ctx, query, provider, string(svc), string(category), financialYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariff rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRules(rows)
}

// GetRules returns rules matching the filter, most recently effective first.
func (s *SQLiteStorage) GetRules(ctx context.Context, filter service.RuleFilter) ([]model.TariffRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Service != "" {
		conditions = append(conditions, "service = ?")
		args = append(args, string(filter.Service))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.FinancialYear != "" {
		conditions = append(conditions, "financial_year = ?")
		args = append(args, filter.FinancialYear)
	}
	if filter.VerifiedOnly {
		conditions = append(conditions, "verified = 1")
	}

	query := fmt.Sprintf("SELECT %s FROM tariff_rules", tariffRuleColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY financial_year DESC, effective_from DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariff rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRules(rows)
}

// GetRuleByID returns a single rule.
func (s *SQLiteStorage) GetRuleByID(ctx context.Context, id int64) (*model.TariffRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM tariff_rules WHERE id = ?", tariffRuleColumns)
	row := s.db.QueryRowContext(ctx, query, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tariff rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// SaveRule inserts a rule, or updates it when it already has an ID. The
// pricing structure is stored as a JSON envelope and validated on both
// write and read so a malformed rule can never reach the calculator.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.TariffRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	pricing, err := model.EncodePricing(rule.Pricing)
	if err != nil {
		return fmt.Errorf("failed to encode pricing structure: %w", err)
	}

	if rule.ID > 0 {
		_, err = s.db.ExecContext(ctx, `UPDATE tariff_rules SET
			provider = ?, service = ?, category = ?, financial_year = ?,
			effective_from = ?, expires_at = ?, pricing = ?, vat_rate = ?,
			vat_inclusive = ?, source_excerpt = ?, source_page = ?,
			verified = ?, confidence = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			rule.Provider, string(rule.Service), string(rule.Category), rule.FinancialYear,
			rule.EffectiveFrom, rule.ExpiresAt, string(pricing), rule.VATRate,
			rule.VATInclusive, rule.SourceExcerpt, rule.SourcePage,
			rule.Verified, rule.Confidence, rule.ID)
		if err != nil {
			return fmt.Errorf("failed to update tariff rule %d: %w", rule.ID, err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO tariff_rules
		(provider, service, category, financial_year, effective_from, expires_at,
		pricing, vat_rate, vat_inclusive, source_excerpt, source_page, verified, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Provider, string(rule.Service), string(rule.Category), rule.FinancialYear,
		rule.EffectiveFrom, rule.ExpiresAt, string(pricing), rule.VATRate,
		rule.VATInclusive, rule.SourceExcerpt, rule.SourcePage,
		rule.Verified, rule.Confidence)
	if err != nil {
		return fmt.Errorf("failed to insert tariff rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted rule ID: %w", err)
	}
	rule.ID = id
	return nil
}

// MarkRuleVerified flips a rule's verified flag.
func (s *SQLiteStorage) MarkRuleVerified(ctx context.Context, id int64, verified bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tariff_rules SET verified = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		verified, id)
	if err != nil {
		return fmt.Errorf("failed to mark rule %d verified: %w", id, err)
	}
	return requireRowAffected(result, id)
}

// ExpireRule sets a rule's expiry date so it stops matching after that
// date without being deleted.
func (s *SQLiteStorage) ExpireRule(ctx context.Context, id int64, expiry time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tariff_rules SET expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		expiry, id)
	if err != nil {
		return fmt.Errorf("failed to expire rule %d: %w", id, err)
	}
	return requireRowAffected(result, id)
}

func requireRowAffected(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tariff rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for the rule scan.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*model.TariffRule, error) {
	var (
		rule      model.TariffRule
		pricing   string
		expiresAt sql.NullTime
		excerpt   sql.NullString
	)
	err := row.Scan(&rule.ID, &rule.Provider, &rule.Service, &rule.Category,
		&rule.FinancialYear, &rule.EffectiveFrom, &expiresAt, &pricing,
		&rule.VATRate, &rule.VATInclusive, &excerpt, &rule.SourcePage,
		&rule.Verified, &rule.Confidence, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		rule.ExpiresAt = &expiresAt.Time
	}
	rule.SourceExcerpt = excerpt.String

	rule.Pricing, err = model.DecodePricing([]byte(pricing))
	if err != nil {
		return nil, fmt.Errorf("tariff rule %d: %w", rule.ID, err)
	}
	return &rule, nil
}

func scanRules(rows *sql.Rows) ([]model.TariffRule, error) {
	var rules []model.TariffRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tariff rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tariff rules: %w", err)
	}
	return rules, nil
}
