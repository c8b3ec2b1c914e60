package model

import "time"

// OpinionType categorizes the nature of an extracted opinion
type OpinionType string

const (
	TypePrediction OpinionType = "prediction" // Claims about future events
	TypeHistory    OpinionType = "history"    // Claims about past events
	TypeAdvice     OpinionType = "advice"     // Actionable recommendations
	TypeCommentary OpinionType = "commentary" // Sentiment toward a subject
)

// ValidType reports whether t is one of the four opinion types.
func ValidType(t OpinionType) bool {
	switch t {
	case TypePrediction, TypeHistory, TypeAdvice, TypeCommentary:
		return true
	}
	return false
}

// Status is the lifecycle state of an opinion
type Status string

const (
	StatusPending  Status = "pending"  // Extracted, not yet dispatched
	StatusTracking Status = "tracking" // Under periodic verification
	StatusVerified Status = "verified" // Resolved correct (or partial, per type policy)
	StatusRefuted  Status = "refuted"  // Resolved incorrect
	StatusExpired  Status = "expired"  // Horizon elapsed while still indeterminate
	StatusClosed   Status = "closed"   // Manually closed, terminal
)

// Abstraction levels for extracted fragments
const (
	AbstractionVerbatim  = 1
	AbstractionSummary   = 2
	AbstractionCoreTheme = 3
)

// ComparisonRule declares how a prediction is checked against observed data
type ComparisonRule string

const (
	CompareExact       ComparisonRule = "exact"       // Observed matches target within tolerance
	CompareThreshold   ComparisonRule = "threshold"   // Observed >= target
	CompareDirectional ComparisonRule = "directional" // Observed moved in predicted direction from baseline
)

// Direction is the predicted movement for directional comparisons
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Sentiment is the categorical sentiment of a commentary opinion
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ValidSentiment reports whether s is a recognized sentiment category.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

// Opinion is one extracted, classified claim derived from a RawPost.
// Exactly one type-specific attribute bundle is non-nil, matching Type.
// Type is immutable after creation; status transitions are governed by
// the lifecycle package.
type Opinion struct {
	ID               string      `json:"id"`
	RawPostID        string      `json:"raw_post_id"`
	AuthorID         string      `json:"author_id"`
	Type             OpinionType `json:"type"`
	AbstractionLevel int         `json:"abstraction_level"` // 1 verbatim, 2 summary, 3 core theme
	Status           Status      `json:"status"`
	Fragment         string      `json:"fragment"`
	Confidence       float64     `json:"confidence"`
	Fingerprint      string      `json:"fingerprint"`

	Prediction *PredictionAttrs `json:"prediction,omitempty"`
	History    *HistoryAttrs    `json:"history,omitempty"`
	Advice     *AdviceAttrs     `json:"advice,omitempty"`
	Commentary *CommentaryAttrs `json:"commentary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PredictionAttrs describes a checkable claim about the future.
// Reference names the external data series used for verification
// (e.g., "price:BTC-USD"); an empty reference means the claim is not
// objectively checkable and verification yields indeterminate.
type PredictionAttrs struct {
	Deadline           time.Time      `json:"deadline"`
	Reference          string         `json:"reference,omitempty"`
	Comparison         ComparisonRule `json:"comparison,omitempty"`
	TargetValue        float64        `json:"target_value,omitempty"`
	Direction          Direction      `json:"direction,omitempty"`
	BaselineValue      float64        `json:"baseline_value,omitempty"` // Observed value at creation, for directional checks
	VerificationStatus Outcome        `json:"verification_status,omitempty"`
}

// HistoryAttrs describes a claim about past events.
type HistoryAttrs struct {
	Completeness    float64 `json:"completeness"`     // [0,1] how fully the claim is stated
	AssumptionLevel float64 `json:"assumption_level"` // [0,1] reliance on unstated assumptions
	Verifiability   float64 `json:"verifiability"`    // [0,1] how objectively checkable
	Reference       string  `json:"reference,omitempty"`
}

// AdviceAttrs describes an actionable recommendation.
type AdviceAttrs struct {
	Basis             string   `json:"basis"`
	RarityScore       float64  `json:"rarity_score"`     // [0,1]
	ImportanceScore   float64  `json:"importance_score"` // [0,1]
	ActionItems       []string `json:"action_items"`
	Reference         string   `json:"reference,omitempty"`          // Data series tracking the advised action
	BaselineReference string   `json:"baseline_reference,omitempty"` // No-action baseline series
}

// CommentaryAttrs describes a sentiment stance toward a subject.
// Baseline is an optional public-opinion snapshot at creation time.
type CommentaryAttrs struct {
	Sentiment     Sentiment `json:"sentiment"`
	TargetSubject string    `json:"target_subject"`
	Baseline      Sentiment `json:"public_opinion_baseline,omitempty"`
}

// Terminal reports whether s is a terminal lifecycle state.
func (s Status) Terminal() bool {
	switch s {
	case StatusVerified, StatusRefuted, StatusExpired, StatusClosed:
		return true
	}
	return false
}

// Resolved reports whether s is a terminal state reached through
// verification rather than manual action.
func (s Status) Resolved() bool {
	return s == StatusVerified || s == StatusRefuted || s == StatusExpired
}

// CandidateOpinion is an unvalidated fragment proposed by the extraction
// adapter. Attributes are untrusted until they pass the type validator.
type CandidateOpinion struct {
	FragmentText       string         `json:"fragment_text"`
	ProposedType       string         `json:"proposed_type"`
	AbstractionLevel   int            `json:"abstraction_level"`
	ProposedAttributes map[string]any `json:"proposed_attributes"`
	Confidence         float64        `json:"confidence"`
}
