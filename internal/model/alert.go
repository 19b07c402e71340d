package model

import "time"

// MissingTariffAlert records that verification was attempted against a
// (provider, service, financial year) for which no tariff rule exists.
// Alerts are upserted on each miss so operators can see how often each
// gap is hit.
type MissingTariffAlert struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Provider      string
	FinancialYear string
	Service       ServiceType
	ID            int64
	HitCount      int
}

// VerificationRecord is one persisted verification run, kept for audit
// and duplicate detection.
type VerificationRecord struct {
	VerifiedAt     time.Time
	BillDate       *time.Time
	AccountNumber  string
	BillHash       string
	Recommendation Recommendation
	ID             int64
	Verified       int
	LikelyWrong    int
	CannotVerify   int
	Impact         ImpactRange
}
