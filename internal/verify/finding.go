package verify

import (
	"fmt"

	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/model"
)

// findingBuilder is the only way a Finding comes into existence. It
// refuses to finalize an under-specified finding, which is what makes the
// citation discipline enforceable: a LIKELY_WRONG finding without
// documentary evidence fails at construction instead of slipping into the
// result set.
type findingBuilder struct {
	finding model.Finding
}

func newFinding(check model.CheckType, name string) *findingBuilder {
	return &findingBuilder{finding: model.Finding{Check: check, CheckName: name}}
}

func (b *findingBuilder) status(s model.FindingStatus) *findingBuilder {
	b.finding.Status = s
	return b
}

func (b *findingBuilder) title(t string) *findingBuilder {
	b.finding.Title = t
	return b
}

func (b *findingBuilder) explainf(format string, args ...any) *findingBuilder {
	b.finding.Explanation = fmt.Sprintf(format, args...)
	return b
}

func (b *findingBuilder) confidence(c int) *findingBuilder {
	b.finding.Confidence = c
	return b
}

func (b *findingBuilder) cite(c model.Citation) *findingBuilder {
	b.finding.Citation = c
	return b
}

// selfEvident marks the finding as derived purely from the bill's own
// printed rates, which satisfies the citation discipline without an
// external source.
func (b *findingBuilder) selfEvident() *findingBuilder {
	b.finding.Citation = model.Citation{
		Source:      "the bill's own printed rates",
		SelfEvident: true,
	}
	return b
}

func (b *findingBuilder) impact(min, max model.Cents) *findingBuilder {
	b.finding.Impact = &model.ImpactRange{Min: min, Max: max}
	return b
}

// build validates and returns the finding. A build failure is a
// programming error in a check implementation, never a data problem.
func (b *findingBuilder) build() (model.Finding, error) {
	f := b.finding
	if f.Status == "" {
		return model.Finding{}, fmt.Errorf("finding %q has no status", f.CheckName)
	}
	if f.Title == "" {
		return model.Finding{}, fmt.Errorf("finding %q has no title", f.CheckName)
	}
	if f.Explanation == "" {
		return model.Finding{}, fmt.Errorf("finding %q has no explanation", f.CheckName)
	}
	if f.Confidence < 0 || f.Confidence > 100 {
		return model.Finding{}, fmt.Errorf("finding %q confidence %d out of range", f.CheckName, f.Confidence)
	}
	if f.Status == model.StatusLikelyWrong && !f.Citation.HasSource && !f.Citation.SelfEvident {
		return model.Finding{}, fmt.Errorf("finding %q alleges an overcharge without evidence: %w",
			f.CheckName, common.ErrMissingCitation)
	}
	return f, nil
}
