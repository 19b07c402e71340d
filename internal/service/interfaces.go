// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/fairbill/fairbill/internal/model"
)

// RuleFilter defines filtering options for tariff rule queries.
type RuleFilter struct {
	Provider      string
	FinancialYear string
	Service       model.ServiceType
	Category      model.CustomerCategory
	VerifiedOnly  bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Tariff rule operations. LookupRules is the read-only interface the
	// rule matcher consumes: all rules for a (provider, service, category,
	// financial year) key, most recently effective first.
	LookupRules(ctx context.Context, provider string, svc model.ServiceType, category model.CustomerCategory, financialYear string) ([]model.TariffRule, error)
	GetRules(ctx context.Context, filter RuleFilter) ([]model.TariffRule, error)
	GetRuleByID(ctx context.Context, id int64) (*model.TariffRule, error)
	SaveRule(ctx context.Context, rule *model.TariffRule) error
	MarkRuleVerified(ctx context.Context, id int64, verified bool) error
	ExpireRule(ctx context.Context, id int64, expiry time.Time) error

	// Missing-tariff alert operations.
	RecordMissingTariff(ctx context.Context, provider string, svc model.ServiceType, financialYear string) error
	GetMissingTariffAlerts(ctx context.Context) ([]model.MissingTariffAlert, error)

	// Verification history.
	SaveVerification(ctx context.Context, record *model.VerificationRecord) error
	GetVerifications(ctx context.Context, limit int) ([]model.VerificationRecord, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// ReportWriter exports a verification report to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, report *VerificationReport) error
}

// VerificationReport is the exportable shape of one verification run.
type VerificationReport struct {
	VerifiedAt     time.Time
	AccountNumber  string
	BillDate       *time.Time
	Recommendation model.Recommendation
	Findings       []model.Finding
	Impact         model.ImpactRange
}

// RetryOptions configures retry behavior for operations against remote
// services.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
