package track

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// HistoryVerifier cross-checks a historical claim against reference
// sources. The opinion's declared verifiability caps the achievable
// outcome: a low-verifiability claim is inherently inconclusive and can
// reach partial at best, no matter how supportive the evidence.
type HistoryVerifier struct {
	data       *Registry
	thresholds model.Thresholds
}

// NewHistoryVerifier creates the verifier for history opinions.
func NewHistoryVerifier(data *Registry, thresholds model.Thresholds) *HistoryVerifier {
	return &HistoryVerifier{data: data, thresholds: thresholds}
}

// Verify queries the factual source for evidence support in [0,1] and
// maps it to an outcome through the configured thresholds.
func (v *HistoryVerifier) Verify(ctx context.Context, op model.Opinion, now time.Time) (Attempt, error) {
	h := op.History
	if h == nil {
		return indeterminate(model.Evidence{}, "history bundle missing"), nil
	}

	reference := h.Reference
	if reference == "" {
		reference = op.Fragment
	}

	value, err := v.data.Query(ctx, DomainFactual, reference, now)
	if err != nil {
		return Attempt{}, err
	}

	evidence := model.Evidence{
		Source:       string(DomainFactual),
		Reference:    reference,
		AsOf:         now,
		ObservedText: value.Text,
		Data: map[string]any{
			"verifiability":        h.Verifiability,
			"support_threshold":    v.thresholds.SupportThreshold,
			"contradict_threshold": v.thresholds.ContradictThreshold,
		},
	}
	if value.Support == nil {
		return indeterminate(evidence, "no evidence support available"), nil
	}
	support := *value.Support
	evidence.Data["support"] = support

	var outcome model.Outcome
	var notes string
	switch {
	case support >= v.thresholds.SupportThreshold:
		outcome = model.OutcomeCorrect
		notes = fmt.Sprintf("support %.2f >= %.2f", support, v.thresholds.SupportThreshold)
	case support < v.thresholds.ContradictThreshold:
		outcome = model.OutcomeIncorrect
		notes = fmt.Sprintf("support %.2f below contradiction threshold %.2f", support, v.thresholds.ContradictThreshold)
	case support >= (v.thresholds.SupportThreshold+v.thresholds.ContradictThreshold)/2:
		outcome = model.OutcomePartial
		notes = fmt.Sprintf("support %.2f partially corroborates the claim", support)
	default:
		outcome = model.OutcomeIndeterminate
		notes = fmt.Sprintf("support %.2f inconclusive", support)
	}

	if outcome == model.OutcomeCorrect && h.Verifiability < v.thresholds.VerifiabilityCap {
		outcome = model.OutcomePartial
		notes += fmt.Sprintf("; verifiability %.2f below %.2f caps outcome at partial", h.Verifiability, v.thresholds.VerifiabilityCap)
	}
	return Attempt{Outcome: outcome, Evidence: evidence, Notes: notes}, nil
}
