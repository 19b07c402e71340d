package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Tariff rules",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS tariff_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					provider TEXT NOT NULL,
					service TEXT NOT NULL,
					category TEXT NOT NULL,
					financial_year TEXT NOT NULL,
					effective_from DATETIME NOT NULL,
					expires_at DATETIME,
					pricing TEXT NOT NULL,
					vat_rate REAL NOT NULL DEFAULT 0.15,
					vat_inclusive INTEGER NOT NULL DEFAULT 0,
					source_excerpt TEXT,
					source_page INTEGER DEFAULT 0,
					verified INTEGER NOT NULL DEFAULT 0,
					confidence INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_tariff_rules_key ON tariff_rules(provider, service, category, financial_year)`,
				`CREATE INDEX idx_tariff_rules_year ON tariff_rules(financial_year)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Missing-tariff alerts",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS missing_tariff_alerts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					provider TEXT NOT NULL,
					service TEXT NOT NULL,
					financial_year TEXT NOT NULL,
					first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
					last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
					hit_count INTEGER NOT NULL DEFAULT 1,
					UNIQUE(provider, service, financial_year)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Verification history for audit and duplicate detection",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS verifications (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					bill_hash TEXT NOT NULL,
					account_number TEXT,
					bill_date DATETIME,
					verified_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					verified_count INTEGER NOT NULL DEFAULT 0,
					likely_wrong_count INTEGER NOT NULL DEFAULT 0,
					cannot_verify_count INTEGER NOT NULL DEFAULT 0,
					impact_min_cents INTEGER NOT NULL DEFAULT 0,
					impact_max_cents INTEGER NOT NULL DEFAULT 0,
					recommendation TEXT NOT NULL
				)`,
				`CREATE INDEX idx_verifications_hash ON verifications(bill_hash)`,
				`CREATE INDEX idx_verifications_account ON verifications(account_number)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
