// Package score folds verification outcomes into per-author credibility
// profiles. Profiles are pure derived views: recomputation replays the
// full verification history and always yields the same result for the
// same inputs.
package score

import (
	"context"
	"math"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/store"
)

// Outcome weights for accuracy aggregation. Indeterminate and error
// outcomes never count.
const (
	weightCorrect = 1.0
	weightPartial = 0.5
)

// Resolution is one opinion's final resolved outcome with the time it
// was reached.
type Resolution struct {
	Outcome model.Outcome
	At      time.Time
}

// Scorer recomputes credibility profiles with half-life decay so recent
// accuracy dominates.
type Scorer struct {
	halfLife time.Duration
	now      func() time.Time
}

// NewScorer creates a scorer with the configured half-life and clock
// (nil means time.Now).
func NewScorer(cfg model.ScoreConfig, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	halfLife := cfg.HalfLife
	if halfLife <= 0 {
		halfLife = 180 * 24 * time.Hour
	}
	return &Scorer{halfLife: halfLife, now: now}
}

// Recompute rebuilds the author's profile from stored opinions and
// verification history and persists it. Idempotent: calling it again
// without new terminal outcomes produces the same profile (up to the
// decay reference time).
func (s *Scorer) Recompute(ctx context.Context, st *store.Store, authorID string) (*model.CredibilityProfile, error) {
	opinions, err := st.ListOpinions(ctx, store.OpinionFilter{AuthorID: authorID})
	if err != nil {
		return nil, err
	}
	verifications, err := st.ListAuthorVerifications(ctx, authorID)
	if err != nil {
		return nil, err
	}

	// Final resolved outcome per opinion: the last verification with a
	// resolving outcome. Records are already in attempt order.
	finals := make(map[string]Resolution)
	for _, v := range verifications {
		if v.Outcome.Resolved() {
			finals[v.OpinionID] = Resolution{Outcome: v.Outcome, At: v.AttemptedAt}
		}
	}

	var resolutions []Resolution
	expired := 0
	for _, op := range opinions {
		switch op.Status {
		case model.StatusVerified, model.StatusRefuted:
			if res, ok := finals[op.ID]; ok {
				resolutions = append(resolutions, res)
			}
		case model.StatusExpired:
			expired++
		}
	}

	profile := s.Compute(authorID, resolutions, expired)
	if err := st.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Compute aggregates resolutions into a profile. Accuracy is the decayed
// weight of correct (1.0) and partial (0.5) outcomes over all resolved
// opinions, where each resolution's weight decays with age by the
// configured half-life.
func (s *Scorer) Compute(authorID string, resolutions []Resolution, expired int) *model.CredibilityProfile {
	now := s.now().UTC()
	profile := &model.CredibilityProfile{
		AuthorID:  authorID,
		Counts:    model.OutcomeCounts{Expired: expired},
		UpdatedAt: now,
	}

	var num, den float64
	for _, r := range resolutions {
		decay := s.decay(now.Sub(r.At))
		den += decay
		switch r.Outcome {
		case model.OutcomeCorrect:
			profile.Counts.Correct++
			num += weightCorrect * decay
		case model.OutcomePartial:
			profile.Counts.Partial++
			num += weightPartial * decay
		case model.OutcomeIncorrect:
			profile.Counts.Incorrect++
		}
	}
	profile.Resolved = profile.Counts.Correct + profile.Counts.Partial + profile.Counts.Incorrect
	if den > 0 {
		profile.Accuracy = num / den
	}
	return profile
}

func (s *Scorer) decay(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, float64(age)/float64(s.halfLife))
}
