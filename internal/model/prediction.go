package model

import "time"

// Outcome is a farmer's post-hoc confirmation of whether an alert was
// accurate. Unset until the farmer acts; once set it is immutable so the
// accuracy metrics in /api/impact stay stable.
type Outcome string

const (
	OutcomeUnset       Outcome = ""
	OutcomeConfirmed   Outcome = "confirmed"
	OutcomeUnconfirmed Outcome = "unconfirmed"
)

// ValidOutcome reports whether s is a settable outcome value.
func ValidOutcome(s string) bool {
	return Outcome(s) == OutcomeConfirmed || Outcome(s) == OutcomeUnconfirmed
}

// Prediction is an append-only snapshot of one scoring event. Outcome is the
// only field that changes after creation, and only from unset to a final
// value.
type Prediction struct {
	ID              string    `json:"id"`
	CowID           int       `json:"cow_id"`
	RiskScore       float64   `json:"risk_score"`
	DominantDisease Disease   `json:"dominant_disease,omitempty"`
	Status          Status    `json:"status"`
	Outcome         Outcome   `json:"outcome,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
