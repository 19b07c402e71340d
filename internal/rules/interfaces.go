// Package rules selects the best applicable tariff rule for a charge.
package rules

import (
	"context"

	"github.com/fairbill/fairbill/internal/model"
)

// Store is the read-only rule repository the matcher consumes.
type Store interface {
	// LookupRules returns all rules for the key, most recently effective first.
	LookupRules(ctx context.Context, provider string, svc model.ServiceType, category model.CustomerCategory, financialYear string) ([]model.TariffRule, error)
}

// AlertSink receives a fire-and-forget signal when no rule could be
// matched, so the missing tariff can be chased up externally.
type AlertSink interface {
	RecordMissingTariff(ctx context.Context, provider string, svc model.ServiceType, financialYear string) error
}

// Match is a selected rule together with the confidence the selection
// tier assigns it.
type Match struct {
	Rule       model.TariffRule
	SourceNote string
	Confidence int
	PriorYear  bool
}
