package track

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubSource returns a canned value (or error) and counts queries.
type stubSource struct {
	value Value
	err   error
	calls atomic.Int64
}

func (s *stubSource) Query(ctx context.Context, reference string, asOf time.Time) (Value, error) {
	s.calls.Add(1)
	if s.err != nil {
		return Value{}, s.err
	}
	return s.value, nil
}

// lookupSource routes by reference, for verifiers that query more than
// one series in a single attempt.
type lookupSource struct {
	values map[string]Value
}

func (s *lookupSource) Query(ctx context.Context, reference string, asOf time.Time) (Value, error) {
	if v, ok := s.values[reference]; ok {
		return v, nil
	}
	return Value{}, model.ErrDataSourceUnavailable
}

func testRegistry(domain Domain, source Source) *Registry {
	r := NewRegistry(model.TrackConfig{MaxRetries: 1, CacheTTL: time.Minute})
	r.sleep = func(time.Duration) {}
	r.Register(domain, source)
	return r
}

func testThresholds() model.Thresholds {
	return model.Thresholds{
		DirectionalTolerance: 0.10,
		VerifiabilityCap:     0.4,
		SupportThreshold:     0.6,
		ContradictThreshold:  0.2,
		OutperformMargin:     0.02,
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedOpinion inserts an author, a post, and the opinion itself, filling
// in the linkage fields.
func seedOpinion(t *testing.T, s *store.Store, op *model.Opinion) {
	t.Helper()
	ctx := context.Background()
	author, err := s.UpsertAuthor(ctx, "twitter", "macro_guy")
	if err != nil {
		t.Fatalf("upsert author: %v", err)
	}
	post := &model.RawPost{
		ID:         uuid.NewString(),
		AuthorID:   author.ID,
		Platform:   "twitter",
		Content:    op.Fragment,
		CapturedAt: testNow,
		State:      model.PostProcessed,
		CreatedAt:  testNow,
	}
	if err := s.CreatePost(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	op.RawPostID = post.ID
	op.AuthorID = author.ID
	if err := s.CreateOpinion(ctx, op); err != nil {
		t.Fatalf("create opinion: %v", err)
	}
}

func predictionOpinion(deadline time.Time) *model.Opinion {
	return &model.Opinion{
		ID:               uuid.NewString(),
		Type:             model.TypePrediction,
		AbstractionLevel: 2,
		Status:           model.StatusPending,
		Fragment:         "BTC will reach $200k by end of year",
		Confidence:       0.9,
		Fingerprint:      uuid.NewString(),
		Prediction: &model.PredictionAttrs{
			Deadline:    deadline,
			Reference:   "price:BTC-USD",
			Comparison:  model.CompareThreshold,
			TargetValue: 200000,
		},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func ptr(f float64) *float64 { return &f }
