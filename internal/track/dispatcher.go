package track

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/lifecycle"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/store"
	"github.com/ppiankov/trackrecord/internal/worker"
)

// ProfileRecomputer rebuilds an author's credibility profile. Satisfied
// by score.Scorer; an interface so dispatcher tests can stub it.
type ProfileRecomputer interface {
	Recompute(ctx context.Context, st *store.Store, authorID string) (*model.CredibilityProfile, error)
}

// SweepStats summarizes one dispatch sweep.
type SweepStats struct {
	Scanned    int `json:"scanned"`
	Dispatched int `json:"dispatched"`
	Skipped    int `json:"skipped"`
	Resolved   int `json:"resolved"`
	Expired    int `json:"expired"`
	Errors     int `json:"errors"`
}

// Dispatcher periodically sweeps open opinions, decides which are due
// for a check, and runs verification attempts through a bounded worker
// pool. At most one attempt per opinion is in flight at a time,
// enforced by an in-process lease registry.
type Dispatcher struct {
	store     *store.Store
	verifiers map[model.OpinionType]Verifier
	leases    *LeaseRegistry
	cfg       model.TrackConfig
	scorer    ProfileRecomputer
	log       *slog.Logger
	now       func() time.Time
}

// NewDispatcher wires the dispatcher. A nil clock means time.Now; a nil
// logger discards.
func NewDispatcher(st *store.Store, verifiers map[model.OpinionType]Verifier, cfg model.TrackConfig, scorer ProfileRecomputer, log *slog.Logger, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ttl := cfg.MaxAttemptDuration
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Dispatcher{
		store:     st,
		verifiers: verifiers,
		leases:    NewLeaseRegistry(ttl, now),
		cfg:       cfg,
		scorer:    scorer,
		log:       log,
		now:       now,
	}
}

// dispatch actions decided per candidate during a sweep.
type action int

const (
	actionSkip action = iota
	actionVerify
	actionExpire
)

// DispatchOnce runs one sweep: scan open opinions, compute due checks,
// and execute them concurrently. Safe to call from overlapping sweeps;
// the lease registry deduplicates in-flight attempts.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (SweepStats, error) {
	now := d.now().UTC()
	candidates, err := d.store.ListDispatchable(ctx)
	if err != nil {
		return SweepStats{}, fmt.Errorf("sweep: %w", err)
	}

	stats := SweepStats{Scanned: len(candidates)}
	pool := worker.NewPool(ctx, d.cfg.Workers)
	pool.Start()
	submitted := 0
	for _, c := range candidates {
		switch d.eligibility(c, now) {
		case actionSkip:
			stats.Skipped++
		case actionVerify:
			pool.Submit(&verifyJob{d: d, opinionID: c.Opinion.ID, expire: false})
			submitted++
		case actionExpire:
			pool.Submit(&verifyJob{d: d, opinionID: c.Opinion.ID, expire: true})
			submitted++
		}
	}
	stats.Dispatched = submitted

	for _, res := range pool.Wait() {
		jr := res.(*jobResult)
		if jr.err != nil {
			// Another attempt holding the lease is expected when sweeps
			// overlap, not a failure.
			if errors.Is(jr.err, model.ErrLeaseHeld) {
				stats.Skipped++
				continue
			}
			stats.Errors++
			d.log.Error("verification attempt failed", "opinion_id", jr.opinionID, "error", jr.err)
			continue
		}
		switch jr.status {
		case model.StatusVerified, model.StatusRefuted:
			stats.Resolved++
		case model.StatusExpired:
			stats.Expired++
		}
	}

	d.log.Info("dispatch sweep complete",
		"scanned", stats.Scanned, "dispatched", stats.Dispatched,
		"skipped", stats.Skipped, "resolved", stats.Resolved,
		"expired", stats.Expired, "errors", stats.Errors)
	return stats, nil
}

// eligibility decides what, if anything, to do with one open opinion.
func (d *Dispatcher) eligibility(c store.DispatchCandidate, now time.Time) action {
	op := c.Opinion
	due := func() action {
		if c.LastAttempt == nil || now.Sub(*c.LastAttempt) >= d.cfg.RecheckInterval {
			return actionVerify
		}
		return actionSkip
	}

	switch op.Type {
	case model.TypePrediction:
		if op.Prediction == nil {
			return actionSkip
		}
		deadline := op.Prediction.Deadline
		if now.After(deadline.Add(d.cfg.PredictionGrace)) {
			return actionExpire
		}
		// Outcomes are generally unknowable before the deadline; early
		// checks are opt-in and only record interim evidence.
		if now.Before(deadline) && !d.cfg.EarlyCheck {
			return actionSkip
		}
		return due()

	case model.TypeHistory:
		if now.Sub(op.CreatedAt) > d.cfg.MaxHorizon {
			return actionExpire
		}
		return due()

	case model.TypeAdvice:
		if now.Sub(op.CreatedAt) > d.cfg.MaxHorizon {
			return actionExpire
		}
		// Advice needs time to play out before a back-test means
		// anything; higher-importance advice gets a longer window.
		window := d.cfg.AdviceMinWindow
		if op.Advice != nil {
			window += time.Duration(op.Advice.ImportanceScore * float64(d.cfg.AdviceWindowScale))
		}
		if now.Sub(op.CreatedAt) < window {
			return actionSkip
		}
		return due()

	case model.TypeCommentary:
		// Snapshots accumulate until someone closes the opinion.
		return due()
	}
	return actionSkip
}

// VerifyNow runs one verification attempt for the opinion immediately,
// bypassing cadence but not the lease or the status rules. Used by the
// manual trigger endpoint.
func (d *Dispatcher) VerifyNow(ctx context.Context, opinionID string) (*model.Verification, error) {
	job := &verifyJob{d: d, opinionID: opinionID}
	res := job.Execute(ctx).(*jobResult)
	if res.err != nil {
		return nil, res.err
	}
	return res.record, nil
}

// Close performs the manual close transition and refreshes the author's
// profile. Valid from any non-pending state; an attempt already in
// flight for the opinion records its outcome as evidence only.
func (d *Dispatcher) Close(ctx context.Context, opinionID string) (*model.Opinion, error) {
	op, err := d.store.GetOpinion(ctx, opinionID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Close(op, d.now().UTC()); err != nil {
		return nil, err
	}
	if err := d.store.UpdateOpinion(ctx, op); err != nil {
		return nil, err
	}
	if _, err := d.scorer.Recompute(ctx, d.store, op.AuthorID); err != nil {
		d.log.Error("profile recompute failed", "author_id", op.AuthorID, "error", err)
	}
	d.log.Info("opinion closed", "opinion_id", op.ID)
	return op, nil
}

// verifyJob is one attempt against one opinion, run on the sweep pool.
type verifyJob struct {
	d         *Dispatcher
	opinionID string
	expire    bool
}

// jobResult reports what the attempt did. A held lease or a terminal
// status produces an empty result, not an error.
type jobResult struct {
	opinionID string
	status    model.Status
	record    *model.Verification
	err       error
}

func (r *jobResult) GetError() error { return r.err }

func (j *verifyJob) Execute(ctx context.Context) worker.Result {
	d := j.d
	res := &jobResult{opinionID: j.opinionID}

	if !d.leases.Acquire(j.opinionID) {
		res.err = fmt.Errorf("opinion %s: %w", j.opinionID, model.ErrLeaseHeld)
		return res
	}
	defer d.leases.Release(j.opinionID)

	now := d.now().UTC()

	// Re-fetch under the lease: the sweep snapshot may be stale.
	op, err := d.store.GetOpinion(ctx, j.opinionID)
	if err != nil {
		res.err = err
		return res
	}
	if op.Status.Terminal() {
		res.status = op.Status
		return res
	}

	if j.expire {
		// Expire only moves tracking opinions. A pending opinion whose
		// horizon already elapsed (service outage longer than the grace
		// window) still enters tracking through this attempt first.
		if op.Status == model.StatusPending {
			if err := lifecycle.Begin(op, now); err != nil {
				res.err = err
				return res
			}
		}
		if err := lifecycle.Expire(op, now); err != nil {
			res.err = err
			return res
		}
		if err := d.store.UpdateOpinion(ctx, op); err != nil {
			res.err = err
			return res
		}
		res.status = op.Status
		res.record = d.recordAttempt(ctx, op.ID, now, Attempt{
			Outcome: model.OutcomeIndeterminate,
			Notes:   "horizon elapsed without resolution",
		})
		d.recompute(ctx, op.AuthorID)
		d.log.Info("opinion expired", "opinion_id", op.ID, "type", op.Type)
		return res
	}

	if op.Status == model.StatusPending {
		if err := lifecycle.Begin(op, now); err != nil {
			res.err = err
			return res
		}
		if err := d.store.UpdateOpinion(ctx, op); err != nil {
			res.err = err
			return res
		}
	}

	verifier, ok := d.verifiers[op.Type]
	if !ok {
		res.err = fmt.Errorf("no verifier for type %s", op.Type)
		return res
	}

	attemptCtx := ctx
	if d.cfg.MaxAttemptDuration > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, d.cfg.MaxAttemptDuration)
		defer cancel()
	}

	attempt, verr := verifier.Verify(attemptCtx, *op, now)
	if verr != nil {
		// Failures are part of the audit trail too.
		attempt = Attempt{Outcome: model.OutcomeError, Notes: verr.Error()}
		if !errors.Is(verr, model.ErrDataSourceUnavailable) {
			d.log.Error("verifier error", "opinion_id", op.ID, "type", op.Type, "error", verr)
		}
	}
	res.record = d.recordAttempt(ctx, op.ID, now, attempt)

	// Re-check before mutating status: a manual close racing this
	// attempt wins, and the outcome stays recorded as evidence only.
	current, err := d.store.GetOpinion(ctx, op.ID)
	if err != nil {
		res.err = err
		return res
	}
	if current.Status.Terminal() {
		res.status = current.Status
		return res
	}

	status, err := lifecycle.Resolve(current, attempt.Outcome, now)
	if err != nil {
		res.err = err
		return res
	}
	if err := d.store.UpdateOpinion(ctx, current); err != nil {
		res.err = err
		return res
	}
	res.status = status
	if status.Resolved() {
		d.recompute(ctx, current.AuthorID)
		d.log.Info("opinion resolved",
			"opinion_id", current.ID, "type", current.Type,
			"outcome", attempt.Outcome, "status", status)
	}
	return res
}

func (d *Dispatcher) recordAttempt(ctx context.Context, opinionID string, now time.Time, attempt Attempt) *model.Verification {
	record := &model.Verification{
		ID:          uuid.NewString(),
		OpinionID:   opinionID,
		AttemptedAt: now,
		Outcome:     attempt.Outcome,
		Evidence:    attempt.Evidence,
		Notes:       attempt.Notes,
	}
	if err := d.store.AppendVerification(ctx, record); err != nil {
		d.log.Error("append verification failed", "opinion_id", opinionID, "error", err)
		return nil
	}
	return record
}

func (d *Dispatcher) recompute(ctx context.Context, authorID string) {
	if d.scorer == nil {
		return
	}
	if _, err := d.scorer.Recompute(ctx, d.store, authorID); err != nil {
		d.log.Error("profile recompute failed", "author_id", authorID, "error", err)
	}
}
