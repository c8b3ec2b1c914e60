package track

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/model"
)

func commentaryOpinion() *model.Opinion {
	return &model.Opinion{
		ID:               uuid.NewString(),
		Type:             model.TypeCommentary,
		AbstractionLevel: 3,
		Status:           model.StatusTracking,
		Fragment:         "the market is far too complacent about inflation",
		Confidence:       0.7,
		Fingerprint:      uuid.NewString(),
		Commentary: &model.CommentaryAttrs{
			Sentiment:     model.SentimentNegative,
			TargetSubject: "inflation",
			Baseline:      model.SentimentNeutral,
		},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func TestCommentaryVerifier_AlwaysIndeterminate(t *testing.T) {
	tests := []struct {
		name     string
		observed model.Sentiment
		drifted  bool
	}{
		{"sentiment unchanged", model.SentimentNegative, false},
		{"sentiment drifted", model.SentimentPositive, true},
		{"no observation", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{value: Value{Sentiment: tt.observed}}
			v := NewCommentaryVerifier(testRegistry(DomainSentiment, source))

			attempt, err := v.Verify(context.Background(), *commentaryOpinion(), testNow)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if attempt.Outcome != model.OutcomeIndeterminate {
				t.Fatalf("outcome = %s, want indeterminate", attempt.Outcome)
			}
			snap := attempt.Evidence.Snapshot
			if snap == nil {
				t.Fatal("expected sentiment snapshot in evidence")
			}
			if snap.Stated != model.SentimentNegative {
				t.Errorf("stated = %s, want negative", snap.Stated)
			}
			if snap.Observed != tt.observed {
				t.Errorf("observed = %s, want %s", snap.Observed, tt.observed)
			}
			if snap.Drifted != tt.drifted {
				t.Errorf("drifted = %v, want %v", snap.Drifted, tt.drifted)
			}
		})
	}
}

func TestCommentaryVerifier_MissingBundle(t *testing.T) {
	v := NewCommentaryVerifier(testRegistry(DomainSentiment, &stubSource{}))

	op := commentaryOpinion()
	op.Commentary = nil
	attempt, err := v.Verify(context.Background(), *op, testNow)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if attempt.Outcome != model.OutcomeIndeterminate {
		t.Errorf("outcome = %s, want indeterminate", attempt.Outcome)
	}
}
