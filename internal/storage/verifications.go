package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fairbill/fairbill/internal/model"
)

// SaveVerification persists one verification run.
func (s *SQLiteStorage) SaveVerification(ctx context.Context, record *model.VerificationRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateVerification(record); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO verifications
		(bill_hash, account_number, bill_date, verified_at, verified_count,
		likely_wrong_count, cannot_verify_count, impact_min_cents,
		impact_max_cents, recommendation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.BillHash, record.AccountNumber, record.BillDate, record.VerifiedAt,
		record.Verified, record.LikelyWrong, record.CannotVerify,
		int64(record.Impact.Min), int64(record.Impact.Max),
		string(record.Recommendation))
	if err != nil {
		return fmt.Errorf("failed to insert verification record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted verification ID: %w", err)
	}
	record.ID = id
	return nil
}

// GetVerifications returns the most recent verification runs, newest
// first. A non-positive limit returns everything.
func (s *SQLiteStorage) GetVerifications(ctx context.Context, limit int) ([]model.VerificationRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, bill_hash, account_number, bill_date, verified_at,
		verified_count, likely_wrong_count, cannot_verify_count,
		impact_min_cents, impact_max_cents, recommendation
		FROM verifications ORDER BY verified_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.VerificationRecord
	for rows.Next() {
		var (
			record   model.VerificationRecord
			billDate sql.NullTime
			account  sql.NullString
			min, max int64
		)
		if err := rows.Scan(&record.ID, &record.BillHash, &account, &billDate,
			&record.VerifiedAt, &record.Verified, &record.LikelyWrong,
			&record.CannotVerify, &min, &max, &record.Recommendation); err != nil {
			return nil, fmt.Errorf("failed to scan verification record: %w", err)
		}
		if billDate.Valid {
			record.BillDate = &billDate.Time
		}
		record.AccountNumber = account.String
		record.Impact = model.ImpactRange{Min: model.Cents(min), Max: model.Cents(max)}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verifications: %w", err)
	}
	return records, nil
}
