package track

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// defaultBaseline is the no-action return series consulted when advice
// does not declare its own baseline.
const defaultBaseline = "baseline:no-action"

// AdviceVerifier back-tests whether following the action items would
// have produced a favorable result relative to a no-action baseline.
// The dispatcher only routes advice here after an elapsed window
// proportional to its importance score.
type AdviceVerifier struct {
	data       *Registry
	thresholds model.Thresholds
}

// NewAdviceVerifier creates the verifier for advice opinions.
func NewAdviceVerifier(data *Registry, thresholds model.Thresholds) *AdviceVerifier {
	return &AdviceVerifier{data: data, thresholds: thresholds}
}

// Verify compares the realized return of the advised action against the
// baseline. Beating the baseline by the configured margin is correct;
// beating it by less is partial; underperforming it is incorrect.
func (v *AdviceVerifier) Verify(ctx context.Context, op model.Opinion, now time.Time) (Attempt, error) {
	a := op.Advice
	if a == nil {
		return indeterminate(model.Evidence{}, "advice bundle missing"), nil
	}
	if a.Reference == "" {
		return indeterminate(model.Evidence{}, "no data series tracks the advised action"), nil
	}

	advised, err := v.data.Query(ctx, DomainFinancial, a.Reference, now)
	if err != nil {
		return Attempt{}, err
	}
	baselineRef := a.BaselineReference
	if baselineRef == "" {
		baselineRef = defaultBaseline
	}
	baseline, err := v.data.Query(ctx, DomainFinancial, baselineRef, now)
	if err != nil {
		return Attempt{}, err
	}

	evidence := model.Evidence{
		Source:    string(DomainFinancial),
		Reference: a.Reference,
		AsOf:      now,
		Data: map[string]any{
			"baseline_reference": baselineRef,
			"action_items":       a.ActionItems,
			"importance_score":   a.ImportanceScore,
			"outperform_margin":  v.thresholds.OutperformMargin,
		},
	}
	if advised.Numeric == nil || baseline.Numeric == nil {
		return indeterminate(evidence, "realized or baseline return unavailable"), nil
	}

	realized := *advised.Numeric
	base := *baseline.Numeric
	edge := realized - base
	evidence.ObservedValue = advised.Numeric
	evidence.Data["baseline_return"] = base
	evidence.Data["edge"] = edge

	switch {
	case edge >= v.thresholds.OutperformMargin:
		return Attempt{
			Outcome:  model.OutcomeCorrect,
			Evidence: evidence,
			Notes:    fmt.Sprintf("advised %.4f beat baseline %.4f by %.4f", realized, base, edge),
		}, nil
	case edge > 0:
		return Attempt{
			Outcome:  model.OutcomePartial,
			Evidence: evidence,
			Notes:    fmt.Sprintf("edge %.4f positive but under margin %.4f", edge, v.thresholds.OutperformMargin),
		}, nil
	default:
		return Attempt{
			Outcome:  model.OutcomeIncorrect,
			Evidence: evidence,
			Notes:    fmt.Sprintf("advised %.4f underperformed baseline %.4f", realized, base),
		}, nil
	}
}
