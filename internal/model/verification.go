package model

import "time"

// Outcome is the result of one verification attempt
type Outcome string

const (
	OutcomeCorrect       Outcome = "correct"
	OutcomeIncorrect     Outcome = "incorrect"
	OutcomePartial       Outcome = "partial" // Right direction, wrong magnitude (or equivalent per type)
	OutcomeIndeterminate Outcome = "indeterminate"
	OutcomeError         Outcome = "error" // Attempt failed; recorded for the audit trail
)

// Resolved reports whether o counts toward accuracy aggregation.
func (o Outcome) Resolved() bool {
	return o == OutcomeCorrect || o == OutcomeIncorrect || o == OutcomePartial
}

// Evidence is the structured payload describing the data a verifier
// consulted. Fields are optional; Data carries verifier-specific detail
// in transparent form.
type Evidence struct {
	Source        string             `json:"source,omitempty"`    // Data source domain (financial, factual, sentiment)
	Reference     string             `json:"reference,omitempty"` // Series or subject consulted
	AsOf          time.Time          `json:"as_of,omitempty"`
	ObservedValue *float64           `json:"observed_value,omitempty"`
	ObservedText  string             `json:"observed_text,omitempty"`
	Snapshot      *SentimentSnapshot `json:"snapshot,omitempty"`
	Data          map[string]any     `json:"data,omitempty"`
}

// SentimentSnapshot records one commentary drift observation.
type SentimentSnapshot struct {
	Stated   Sentiment `json:"stated"`
	Observed Sentiment `json:"observed"`
	Baseline Sentiment `json:"baseline,omitempty"`
	Drifted  bool      `json:"drifted"` // Observed differs from stated sentiment
}

// Verification is one append-only record of a tracking attempt.
// Never mutated or deleted after creation.
type Verification struct {
	ID          string    `json:"id"`
	OpinionID   string    `json:"opinion_id"`
	AttemptedAt time.Time `json:"attempted_at"`
	Outcome     Outcome   `json:"outcome"`
	Evidence    Evidence  `json:"evidence"`
	Notes       string    `json:"notes,omitempty"`
}

// OutcomeCounts tallies resolved opinions by final outcome.
type OutcomeCounts struct {
	Correct   int `json:"correct"`
	Partial   int `json:"partial"`
	Incorrect int `json:"incorrect"`
	Expired   int `json:"expired"`
}

// CredibilityProfile is the derived per-author rolling accuracy record.
// It is a pure view over verification history and can be rebuilt at any
// time by replaying that history through the scorer.
type CredibilityProfile struct {
	AuthorID  string        `json:"author_id"`
	Accuracy  float64       `json:"accuracy"` // [0,1], half-life weighted
	Counts    OutcomeCounts `json:"counts"`
	Resolved  int           `json:"resolved"`
	UpdatedAt time.Time     `json:"updated_at"`
}
