package track

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// PredictionVerifier checks a prediction against the real-world value it
// references, using the opinion's declared comparison rule. Partial
// means right direction, wrong magnitude; the tolerance deciding "close
// enough" is configuration, not a constant.
type PredictionVerifier struct {
	data       *Registry
	thresholds model.Thresholds
}

// NewPredictionVerifier creates the verifier for prediction opinions.
func NewPredictionVerifier(data *Registry, thresholds model.Thresholds) *PredictionVerifier {
	return &PredictionVerifier{data: data, thresholds: thresholds}
}

// Verify retrieves the referenced observation and applies the comparison
// rule. Claims without a reference or rule are not objectively checkable
// and yield indeterminate.
func (v *PredictionVerifier) Verify(ctx context.Context, op model.Opinion, now time.Time) (Attempt, error) {
	p := op.Prediction
	if p == nil {
		return indeterminate(model.Evidence{}, "prediction bundle missing"), nil
	}
	if p.Reference == "" || p.Comparison == "" {
		return indeterminate(model.Evidence{}, "claim is not objectively checkable"), nil
	}

	value, err := v.data.Query(ctx, DomainFinancial, p.Reference, now)
	if err != nil {
		return Attempt{}, err
	}
	if value.Numeric == nil {
		return indeterminate(model.Evidence{
			Source:       string(DomainFinancial),
			Reference:    p.Reference,
			AsOf:         now,
			ObservedText: value.Text,
		}, "no numeric observation available"), nil
	}

	observed := *value.Numeric
	evidence := model.Evidence{
		Source:        string(DomainFinancial),
		Reference:     p.Reference,
		AsOf:          now,
		ObservedValue: value.Numeric,
		Data: map[string]any{
			"comparison":   string(p.Comparison),
			"target_value": p.TargetValue,
			"direction":    string(p.Direction),
			"baseline":     p.BaselineValue,
			"tolerance":    v.thresholds.DirectionalTolerance,
		},
	}

	outcome, notes := v.compare(p, observed)
	return Attempt{Outcome: outcome, Evidence: evidence, Notes: notes}, nil
}

func (v *PredictionVerifier) compare(p *model.PredictionAttrs, observed float64) (model.Outcome, string) {
	tolerance := v.thresholds.DirectionalTolerance

	switch p.Comparison {
	case model.CompareThreshold:
		if observed >= p.TargetValue {
			return model.OutcomeCorrect, fmt.Sprintf("observed %.4g >= target %.4g", observed, p.TargetValue)
		}
		// Moved toward the target from baseline but fell short: right
		// direction, wrong magnitude.
		if p.BaselineValue != 0 && observed > p.BaselineValue {
			return model.OutcomePartial, fmt.Sprintf("observed %.4g above baseline %.4g but below target %.4g", observed, p.BaselineValue, p.TargetValue)
		}
		return model.OutcomeIncorrect, fmt.Sprintf("observed %.4g < target %.4g", observed, p.TargetValue)

	case model.CompareExact:
		if p.TargetValue == 0 {
			if observed == 0 {
				return model.OutcomeCorrect, "exact match"
			}
			return model.OutcomeIncorrect, "target zero, observed nonzero"
		}
		deviation := math.Abs(observed-p.TargetValue) / math.Abs(p.TargetValue)
		switch {
		case deviation <= tolerance:
			return model.OutcomeCorrect, fmt.Sprintf("deviation %.3f within tolerance %.3f", deviation, tolerance)
		case deviation <= 2*tolerance:
			return model.OutcomePartial, fmt.Sprintf("deviation %.3f within 2x tolerance", deviation)
		default:
			return model.OutcomeIncorrect, fmt.Sprintf("deviation %.3f exceeds tolerance", deviation)
		}

	case model.CompareDirectional:
		moved := observed - p.BaselineValue
		wantUp := p.Direction == model.DirectionUp
		if moved == 0 || (moved > 0) != wantUp {
			return model.OutcomeIncorrect, fmt.Sprintf("moved %.4g, predicted direction %s", moved, p.Direction)
		}
		// Right direction; magnitude decides correct vs partial.
		if p.BaselineValue != 0 && math.Abs(moved)/math.Abs(p.BaselineValue) < tolerance {
			return model.OutcomePartial, "right direction, movement below tolerance"
		}
		return model.OutcomeCorrect, fmt.Sprintf("moved %.4g in predicted direction", moved)
	}

	return model.OutcomeIndeterminate, fmt.Sprintf("unknown comparison rule %q", p.Comparison)
}
