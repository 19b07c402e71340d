package model

// CheckType classifies which family of checks produced a finding.
type CheckType string

// Check families run by the verification engine.
const (
	CheckTariff     CheckType = "tariff"
	CheckMeter      CheckType = "meter"
	CheckArithmetic CheckType = "arithmetic"
)

// FindingStatus is the verdict a check reached.
type FindingStatus string

// Verdicts. CANNOT_VERIFY means insufficient data exists to confirm or
// deny correctness; it is distinct from both "correct" and "incorrect".
const (
	StatusVerified     FindingStatus = "VERIFIED"
	StatusLikelyWrong  FindingStatus = "LIKELY_WRONG"
	StatusCannotVerify FindingStatus = "CANNOT_VERIFY"
)

// Citation records the documentary evidence behind a finding. A finding
// alleging an overcharge must either carry a source (HasSource) or state
// that it was derived purely from the bill's own printed rates
// (SelfEvident).
type Citation struct {
	Source      string
	Excerpt     string
	Page        int
	HasSource   bool
	SelfEvident bool
}

// ImpactRange is the estimated monetary impact of a discrepancy.
type ImpactRange struct {
	Min Cents
	Max Cents
}

// Add accumulates another impact range into this one.
func (r ImpactRange) Add(other ImpactRange) ImpactRange {
	return ImpactRange{Min: r.Min + other.Min, Max: r.Max + other.Max}
}

// Finding is one verification result. Findings are only ever produced by
// the finding builder in the verify package, which enforces that every
// finding has a status, title, explanation, confidence and citation, and
// that accusatory findings always carry evidence.
type Finding struct {
	CheckName   string
	Title       string
	Explanation string
	Impact      *ImpactRange
	Check       CheckType
	Status      FindingStatus
	Citation    Citation
	Confidence  int
}

// Recommendation is the engine's three-way advice to the account holder.
type Recommendation string

// Recommendations, ordered by escalation.
const (
	RecommendNoAction       Recommendation = "no_action"
	RecommendHandleYourself Recommendation = "handle_yourself"
	RecommendEscalate       Recommendation = "escalate"
)
