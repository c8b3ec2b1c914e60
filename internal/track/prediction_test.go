package track

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

func TestPredictionVerifier_Threshold(t *testing.T) {
	deadline := testNow.Add(-time.Hour)

	tests := []struct {
		name     string
		observed float64
		baseline float64
		want     model.Outcome
	}{
		{"target reached", 210000, 0, model.OutcomeCorrect},
		{"above baseline short of target", 150000, 95000, model.OutcomePartial},
		{"below target no baseline", 150000, 0, model.OutcomeIncorrect},
		{"fell below baseline", 80000, 95000, model.OutcomeIncorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{value: Value{Numeric: ptr(tt.observed)}}
			v := NewPredictionVerifier(testRegistry(DomainFinancial, source), testThresholds())

			op := predictionOpinion(deadline)
			op.Prediction.BaselineValue = tt.baseline
			attempt, err := v.Verify(context.Background(), *op, testNow)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if attempt.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", attempt.Outcome, tt.want)
			}
			if attempt.Evidence.ObservedValue == nil || *attempt.Evidence.ObservedValue != tt.observed {
				t.Errorf("evidence observed value = %v, want %v", attempt.Evidence.ObservedValue, tt.observed)
			}
		})
	}
}

func TestPredictionVerifier_Exact(t *testing.T) {
	tests := []struct {
		name     string
		target   float64
		observed float64
		want     model.Outcome
	}{
		{"within tolerance", 100, 105, model.OutcomeCorrect},
		{"within double tolerance", 100, 115, model.OutcomePartial},
		{"way off", 100, 150, model.OutcomeIncorrect},
		{"zero target match", 0, 0, model.OutcomeCorrect},
		{"zero target miss", 0, 3, model.OutcomeIncorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{value: Value{Numeric: ptr(tt.observed)}}
			v := NewPredictionVerifier(testRegistry(DomainFinancial, source), testThresholds())

			op := predictionOpinion(testNow.Add(-time.Hour))
			op.Prediction.Comparison = model.CompareExact
			op.Prediction.TargetValue = tt.target
			attempt, err := v.Verify(context.Background(), *op, testNow)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if attempt.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", attempt.Outcome, tt.want)
			}
		})
	}
}

func TestPredictionVerifier_Directional(t *testing.T) {
	tests := []struct {
		name      string
		direction model.Direction
		baseline  float64
		observed  float64
		want      model.Outcome
	}{
		{"up and moved up", model.DirectionUp, 100, 130, model.OutcomeCorrect},
		{"up but moved down", model.DirectionUp, 100, 90, model.OutcomeIncorrect},
		{"up but barely moved", model.DirectionUp, 100, 103, model.OutcomePartial},
		{"down and moved down", model.DirectionDown, 100, 70, model.OutcomeCorrect},
		{"no movement", model.DirectionUp, 100, 100, model.OutcomeIncorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{value: Value{Numeric: ptr(tt.observed)}}
			v := NewPredictionVerifier(testRegistry(DomainFinancial, source), testThresholds())

			op := predictionOpinion(testNow.Add(-time.Hour))
			op.Prediction.Comparison = model.CompareDirectional
			op.Prediction.Direction = tt.direction
			op.Prediction.BaselineValue = tt.baseline
			attempt, err := v.Verify(context.Background(), *op, testNow)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if attempt.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", attempt.Outcome, tt.want)
			}
		})
	}
}

func TestPredictionVerifier_NotCheckable(t *testing.T) {
	source := &stubSource{value: Value{Numeric: ptr(1.0)}}
	v := NewPredictionVerifier(testRegistry(DomainFinancial, source), testThresholds())

	op := predictionOpinion(testNow.Add(-time.Hour))
	op.Prediction.Reference = ""
	attempt, err := v.Verify(context.Background(), *op, testNow)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if attempt.Outcome != model.OutcomeIndeterminate {
		t.Errorf("outcome = %s, want indeterminate", attempt.Outcome)
	}
	if source.calls.Load() != 0 {
		t.Errorf("source queried %d times for uncheckable claim", source.calls.Load())
	}
}

func TestPredictionVerifier_NoNumericObservation(t *testing.T) {
	source := &stubSource{value: Value{Text: "series discontinued"}}
	v := NewPredictionVerifier(testRegistry(DomainFinancial, source), testThresholds())

	attempt, err := v.Verify(context.Background(), *predictionOpinion(testNow.Add(-time.Hour)), testNow)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if attempt.Outcome != model.OutcomeIndeterminate {
		t.Errorf("outcome = %s, want indeterminate", attempt.Outcome)
	}
}
