// Package validate enforces the per-type attribute schemas at the
// extraction boundary. Candidates come from an LLM and are untrusted:
// nothing becomes a stored opinion without passing through here.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/model"
)

// Validator turns candidate opinions into validated opinions or typed
// errors. It never mutates store state.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator using the given clock (nil means
// time.Now).
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate checks a candidate against its proposed type's schema and
// builds the opinion. A prediction whose deadline already passed is
// rejected with ErrExpiredOnArrival rather than silently fast-tracked.
func (v *Validator) Validate(c model.CandidateOpinion, postID, authorID string) (*model.Opinion, error) {
	typ := model.OpinionType(strings.ToLower(strings.TrimSpace(c.ProposedType)))
	if !model.ValidType(typ) {
		return nil, &model.ValidationError{Field: "proposed_type", Reason: fmt.Sprintf("unknown type %q", c.ProposedType)}
	}
	if strings.TrimSpace(c.FragmentText) == "" {
		return nil, &model.ValidationError{Field: "fragment_text", Reason: "empty"}
	}
	if c.AbstractionLevel < model.AbstractionVerbatim || c.AbstractionLevel > model.AbstractionCoreTheme {
		return nil, &model.ValidationError{Field: "abstraction_level", Reason: fmt.Sprintf("%d outside {1,2,3}", c.AbstractionLevel)}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return nil, &model.ValidationError{Field: "confidence", Reason: fmt.Sprintf("%.3f outside [0,1]", c.Confidence)}
	}

	now := v.now().UTC()
	op := &model.Opinion{
		ID:               uuid.NewString(),
		RawPostID:        postID,
		AuthorID:         authorID,
		Type:             typ,
		AbstractionLevel: c.AbstractionLevel,
		Status:           model.StatusPending,
		Fragment:         strings.TrimSpace(c.FragmentText),
		Confidence:       c.Confidence,
		Fingerprint:      Fingerprint(authorID, typ, c.FragmentText),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	attrs := newAttrReader(c.ProposedAttributes)
	var err error
	switch typ {
	case model.TypePrediction:
		op.Prediction, err = v.prediction(attrs, now)
	case model.TypeHistory:
		op.History, err = history(attrs)
	case model.TypeAdvice:
		op.Advice, err = advice(attrs)
	case model.TypeCommentary:
		// Commentary is continuously, not terminally, evaluated: it
		// enters tracking immediately on creation.
		op.Commentary, err = commentary(attrs)
		op.Status = model.StatusTracking
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (v *Validator) prediction(a *attrReader, now time.Time) (*model.PredictionAttrs, error) {
	deadline, err := a.timestamp("deadline", true)
	if err != nil {
		return nil, err
	}
	if deadline.Before(now) {
		return nil, fmt.Errorf("deadline %s already passed: %w", deadline.Format(time.RFC3339), model.ErrExpiredOnArrival)
	}

	comparison := model.ComparisonRule(a.str("comparison"))
	switch comparison {
	case "", model.CompareExact, model.CompareThreshold, model.CompareDirectional:
	default:
		return nil, &model.ValidationError{Field: "comparison", Reason: fmt.Sprintf("unknown rule %q", comparison)}
	}

	direction := model.Direction(a.str("direction"))
	if comparison == model.CompareDirectional && direction != model.DirectionUp && direction != model.DirectionDown {
		return nil, &model.ValidationError{Field: "direction", Reason: fmt.Sprintf("%q not up or down", direction)}
	}

	return &model.PredictionAttrs{
		Deadline:      deadline,
		Reference:     a.str("reference"),
		Comparison:    comparison,
		TargetValue:   a.float("target_value"),
		Direction:     direction,
		BaselineValue: a.float("baseline_value"),
	}, nil
}

func history(a *attrReader) (*model.HistoryAttrs, error) {
	h := &model.HistoryAttrs{
		Completeness:    a.float("completeness"),
		AssumptionLevel: a.float("assumption_level"),
		Verifiability:   a.float("verifiability"),
		Reference:       a.str("reference"),
	}
	for field, score := range map[string]float64{
		"completeness":     h.Completeness,
		"assumption_level": h.AssumptionLevel,
		"verifiability":    h.Verifiability,
	} {
		if score < 0 || score > 1 {
			return nil, &model.ValidationError{Field: field, Reason: fmt.Sprintf("%.3f outside [0,1]", score)}
		}
	}
	return h, nil
}

func advice(a *attrReader) (*model.AdviceAttrs, error) {
	adv := &model.AdviceAttrs{
		Basis:             a.str("basis"),
		RarityScore:       a.float("rarity_score"),
		ImportanceScore:   a.float("importance_score"),
		ActionItems:       a.strSlice("action_items"),
		Reference:         a.str("reference"),
		BaselineReference: a.str("baseline_reference"),
	}
	for field, score := range map[string]float64{
		"rarity_score":     adv.RarityScore,
		"importance_score": adv.ImportanceScore,
	} {
		if score < 0 || score > 1 {
			return nil, &model.ValidationError{Field: field, Reason: fmt.Sprintf("%.3f outside [0,1]", score)}
		}
	}
	if len(adv.ActionItems) == 0 {
		return nil, &model.ValidationError{Field: "action_items", Reason: "empty"}
	}
	return adv, nil
}

func commentary(a *attrReader) (*model.CommentaryAttrs, error) {
	c := &model.CommentaryAttrs{
		Sentiment:     model.Sentiment(strings.ToLower(a.str("sentiment"))),
		TargetSubject: a.str("target_subject"),
		Baseline:      model.Sentiment(strings.ToLower(a.str("public_opinion_baseline"))),
	}
	if !model.ValidSentiment(c.Sentiment) {
		return nil, &model.ValidationError{Field: "sentiment", Reason: fmt.Sprintf("unknown category %q", c.Sentiment)}
	}
	if c.TargetSubject == "" {
		return nil, &model.ValidationError{Field: "target_subject", Reason: "empty"}
	}
	if c.Baseline != "" && !model.ValidSentiment(c.Baseline) {
		return nil, &model.ValidationError{Field: "public_opinion_baseline", Reason: fmt.Sprintf("unknown category %q", c.Baseline)}
	}
	return c, nil
}

// attrReader reads loosely-typed attribute maps from LLM output, where
// numbers may arrive as float64 or string and lists as []any.
type attrReader struct {
	attrs map[string]any
}

func newAttrReader(attrs map[string]any) *attrReader {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &attrReader{attrs: attrs}
}

func (a *attrReader) str(key string) string {
	if v, ok := a.attrs[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (a *attrReader) float(key string) float64 {
	switch v := a.attrs[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func (a *attrReader) strSlice(key string) []string {
	var out []string
	switch v := a.attrs[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func (a *attrReader) timestamp(key string, required bool) (time.Time, error) {
	raw := a.str(key)
	if raw == "" {
		if required {
			return time.Time{}, &model.ValidationError{Field: key, Reason: "missing"}
		}
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, &model.ValidationError{Field: key, Reason: fmt.Sprintf("unparseable timestamp %q", raw)}
}
