// Package verify runs the verification engine: three independent check
// families over an extracted bill, producing findings under a strict
// citation discipline and a three-way recommendation.
package verify

import (
	"context"
	"log/slog"
	"time"

	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/rules"
)

// RuleMatcher is the slice of the rule matcher the engine consumes.
type RuleMatcher interface {
	Match(ctx context.Context, provider string, svc model.ServiceType, category model.CustomerCategory, asOf time.Time) (*rules.Match, error)
}

// handleYourselfCeiling is the maximum total impact below which a
// discrepancy is worth a phone call rather than a formal dispute.
const handleYourselfCeiling = model.Cents(50000) // R500

// Summary counts findings per verdict.
type Summary struct {
	Verified     int
	LikelyWrong  int
	CannotVerify int
}

// Result is one complete verification run.
type Result struct {
	VerifiedAt     time.Time
	Findings       []model.Finding
	Summary        Summary
	Impact         model.ImpactRange
	Recommendation model.Recommendation
}

// Engine orchestrates the check families. It is stateless: each Verify
// call is independent and bills may be verified concurrently.
type Engine struct {
	matcher    RuleMatcher
	tolerances Tolerances
}

// NewEngine creates a verification engine.
func NewEngine(matcher RuleMatcher, tolerances Tolerances) *Engine {
	return &Engine{matcher: matcher, tolerances: tolerances}
}

// Verify runs all check families over the bill and aggregates the
// findings. An error indicates a defect in a check implementation, not a
// problem with the bill: bad or missing bill data always degrades to
// CANNOT_VERIFY findings instead.
func (e *Engine) Verify(ctx context.Context, bill *model.Bill) (*Result, error) {
	var findings []model.Finding

	tariff, err := e.tariffChecks(ctx, bill)
	if err != nil {
		return nil, err
	}
	findings = append(findings, tariff...)

	meter, err := e.meterChecks(bill)
	if err != nil {
		return nil, err
	}
	findings = append(findings, meter...)

	arithmetic, err := e.arithmeticChecks(bill)
	if err != nil {
		return nil, err
	}
	findings = append(findings, arithmetic...)

	result := &Result{
		VerifiedAt: time.Now(),
		Findings:   findings,
	}
	for _, f := range findings {
		switch f.Status {
		case model.StatusVerified:
			result.Summary.Verified++
		case model.StatusLikelyWrong:
			result.Summary.LikelyWrong++
			if f.Impact != nil {
				result.Impact = result.Impact.Add(*f.Impact)
			}
		case model.StatusCannotVerify:
			result.Summary.CannotVerify++
		}
	}
	result.Recommendation = recommend(result.Summary, result.Impact)

	slog.Info("bill verified",
		"account", bill.AccountNumber,
		"verified", result.Summary.Verified,
		"likely_wrong", result.Summary.LikelyWrong,
		"cannot_verify", result.Summary.CannotVerify,
		"recommendation", result.Recommendation)

	return result, nil
}

// recommend maps the aggregate outcome to advice: nothing wrong means no
// action, a small total impact is worth handling yourself, anything
// larger should be escalated formally.
func recommend(summary Summary, impact model.ImpactRange) model.Recommendation {
	if summary.LikelyWrong == 0 {
		return model.RecommendNoAction
	}
	if impact.Max <= handleYourselfCeiling {
		return model.RecommendHandleYourself
	}
	return model.RecommendEscalate
}
