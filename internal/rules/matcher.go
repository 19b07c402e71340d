package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fairbill/fairbill/internal/model"
)

// Selection-tier confidence levels. A verified current-year rule is worth
// more than any unverified one, and any current-year rule beats a
// prior-year fallback.
const (
	verifiedConfidence      = 95
	unverifiedConfidenceCap = 80
	priorYearVerifiedScore  = 60
	priorYearUnverifiedCap  = 50
)

// Matcher selects the single best-fit tariff rule for a
// (provider, service, category, as-of date) key.
type Matcher struct {
	store  Store
	alerts AlertSink
}

// NewMatcher creates a matcher over the given rule store. The alert sink
// may be nil, in which case misses are only logged.
func NewMatcher(store Store, alerts AlertSink) *Matcher {
	return &Matcher{store: store, alerts: alerts}
}

// Match walks the selection hierarchy, most to least preferred:
// verified current-year rule, unverified current-year rule, prior-year
// rule (verified preferred). A nil Match with nil error means no rule
// exists; the miss is recorded with the alert sink.
func (m *Matcher) Match(ctx context.Context, provider string, svc model.ServiceType, category model.CustomerCategory, asOf time.Time) (*Match, error) {
	fy := model.FinancialYearOf(asOf)

	current, err := m.store.LookupRules(ctx, provider, svc, category, fy.String())
	if err != nil {
		// A failed repository lookup yields "no match", never a guess.
		slog.Warn("rule lookup failed",
			"provider", provider,
			"service", svc,
			"financial_year", fy.String(),
			"error", err)
		return nil, nil
	}

	if match := selectCurrent(current, asOf); match != nil {
		return match, nil
	}

	prior, err := m.store.LookupRules(ctx, provider, svc, category, fy.Prev().String())
	if err == nil {
		if match := selectPrior(prior, fy.Prev()); match != nil {
			return match, nil
		}
	}

	m.recordMiss(ctx, provider, svc, fy.String())
	return nil, nil
}

// selectCurrent applies tiers one and two: active rules for the target
// financial year, verified before unverified.
func selectCurrent(candidates []model.TariffRule, asOf time.Time) *Match {
	active := activeRules(candidates, asOf)
	if len(active) == 0 {
		return nil
	}

	for _, rule := range active {
		if rule.Verified {
			return &Match{Rule: rule, Confidence: verifiedConfidence}
		}
	}

	rule := active[0]
	confidence := rule.Confidence
	if confidence > unverifiedConfidenceCap {
		confidence = unverifiedConfidenceCap
	}
	return &Match{Rule: rule, Confidence: confidence}
}

// selectPrior applies tier three: the previous financial year's rules,
// verified preferred, with confidence reduced further and the excerpt
// annotated as belonging to a prior year.
func selectPrior(candidates []model.TariffRule, prior model.FinancialYear) *Match {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]model.TariffRule, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.After(sorted[j].EffectiveFrom)
	})

	chosen := sorted[0]
	confidence := chosen.Confidence
	if confidence > priorYearUnverifiedCap {
		confidence = priorYearUnverifiedCap
	}
	for _, rule := range sorted {
		if rule.Verified {
			chosen = rule
			confidence = priorYearVerifiedScore
			break
		}
	}

	return &Match{
		Rule:       chosen,
		Confidence: confidence,
		PriorYear:  true,
		SourceNote: fmt.Sprintf("tariff from prior financial year %s; current schedule not yet on file", prior),
	}
}

// activeRules filters to rules in force on the given date, most recently
// effective first.
func activeRules(candidates []model.TariffRule, asOf time.Time) []model.TariffRule {
	var active []model.TariffRule
	for _, rule := range candidates {
		if rule.ActiveAt(asOf) {
			active = append(active, rule)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].EffectiveFrom.After(active[j].EffectiveFrom)
	})
	return active
}

func (m *Matcher) recordMiss(ctx context.Context, provider string, svc model.ServiceType, financialYear string) {
	slog.Info("no tariff rule matched",
		"provider", provider,
		"service", svc,
		"financial_year", financialYear)
	if m.alerts == nil {
		return
	}
	if err := m.alerts.RecordMissingTariff(ctx, provider, svc, financialYear); err != nil {
		slog.Warn("failed to record missing tariff alert", "error", err)
	}
}
