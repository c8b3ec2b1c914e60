package track

import (
	"context"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// CommentaryVerifier is non-terminal by design: each run captures a
// snapshot comparing current public sentiment to the stated stance and
// baseline, recording drift over time. The lifecycle outcome is always
// indeterminate; the evidence is the point.
type CommentaryVerifier struct {
	data *Registry
}

// NewCommentaryVerifier creates the verifier for commentary opinions.
func NewCommentaryVerifier(data *Registry) *CommentaryVerifier {
	return &CommentaryVerifier{data: data}
}

// Verify records one sentiment drift snapshot for the target subject.
func (v *CommentaryVerifier) Verify(ctx context.Context, op model.Opinion, now time.Time) (Attempt, error) {
	c := op.Commentary
	if c == nil {
		return indeterminate(model.Evidence{}, "commentary bundle missing"), nil
	}

	value, err := v.data.Query(ctx, DomainSentiment, c.TargetSubject, now)
	if err != nil {
		return Attempt{}, err
	}

	snapshot := &model.SentimentSnapshot{
		Stated:   c.Sentiment,
		Observed: value.Sentiment,
		Baseline: c.Baseline,
		Drifted:  value.Sentiment != "" && value.Sentiment != c.Sentiment,
	}
	evidence := model.Evidence{
		Source:       string(DomainSentiment),
		Reference:    c.TargetSubject,
		AsOf:         now,
		ObservedText: value.Text,
		Snapshot:     snapshot,
	}
	return indeterminate(evidence, "commentary accumulates snapshots until manually closed"), nil
}
