package track

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/model"
)

func historyOpinion(verifiability float64) *model.Opinion {
	return &model.Opinion{
		ID:               uuid.NewString(),
		Type:             model.TypeHistory,
		AbstractionLevel: 2,
		Status:           model.StatusTracking,
		Fragment:         "the 2013 taper tantrum pushed 10y yields up over 100bps",
		Confidence:       0.8,
		Fingerprint:      uuid.NewString(),
		History: &model.HistoryAttrs{
			Completeness:    0.7,
			AssumptionLevel: 0.2,
			Verifiability:   verifiability,
			Reference:       "wiki:taper-tantrum",
		},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func TestHistoryVerifier_SupportMapping(t *testing.T) {
	tests := []struct {
		name    string
		support float64
		want    model.Outcome
	}{
		{"strong support", 0.8, model.OutcomeCorrect},
		{"at threshold", 0.6, model.OutcomeCorrect},
		{"partial corroboration", 0.5, model.OutcomePartial},
		{"inconclusive", 0.3, model.OutcomeIndeterminate},
		{"contradicted", 0.1, model.OutcomeIncorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{value: Value{Support: ptr(tt.support), Text: "encyclopedia extract"}}
			v := NewHistoryVerifier(testRegistry(DomainFactual, source), testThresholds())

			attempt, err := v.Verify(context.Background(), *historyOpinion(0.9), testNow)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if attempt.Outcome != tt.want {
				t.Errorf("support %.2f: outcome = %s, want %s", tt.support, attempt.Outcome, tt.want)
			}
		})
	}
}

func TestHistoryVerifier_VerifiabilityCapsCorrect(t *testing.T) {
	source := &stubSource{value: Value{Support: ptr(0.9)}}
	v := NewHistoryVerifier(testRegistry(DomainFactual, source), testThresholds())

	attempt, err := v.Verify(context.Background(), *historyOpinion(0.2), testNow)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if attempt.Outcome != model.OutcomePartial {
		t.Errorf("outcome = %s, want partial (verifiability capped)", attempt.Outcome)
	}
	if !strings.Contains(attempt.Notes, "caps outcome") {
		t.Errorf("notes should mention the cap, got %q", attempt.Notes)
	}
}

func TestHistoryVerifier_FragmentFallbackReference(t *testing.T) {
	source := &stubSource{value: Value{Support: ptr(0.7)}}
	v := NewHistoryVerifier(testRegistry(DomainFactual, source), testThresholds())

	op := historyOpinion(0.9)
	op.History.Reference = ""
	attempt, err := v.Verify(context.Background(), *op, testNow)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if attempt.Evidence.Reference != op.Fragment {
		t.Errorf("evidence reference = %q, want fragment fallback", attempt.Evidence.Reference)
	}
}

func TestHistoryVerifier_NoSupportSignal(t *testing.T) {
	source := &stubSource{value: Value{Text: "no relevant passages"}}
	v := NewHistoryVerifier(testRegistry(DomainFactual, source), testThresholds())

	attempt, err := v.Verify(context.Background(), *historyOpinion(0.9), testNow)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if attempt.Outcome != model.OutcomeIndeterminate {
		t.Errorf("outcome = %s, want indeterminate", attempt.Outcome)
	}
}
