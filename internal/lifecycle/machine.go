// Package lifecycle governs opinion status transitions. All status
// mutations flow through this package; verifiers and the dispatcher
// never write status directly.
package lifecycle

import (
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// transitions enumerates the permitted status edges. pending is the
// initial state and unreachable from anywhere else; closed is terminal.
var transitions = map[model.Status][]model.Status{
	model.StatusPending:  {model.StatusTracking},
	model.StatusTracking: {model.StatusVerified, model.StatusRefuted, model.StatusExpired, model.StatusClosed},
	model.StatusVerified: {model.StatusClosed},
	model.StatusRefuted:  {model.StatusClosed},
	model.StatusExpired:  {model.StatusClosed},
	model.StatusClosed:   {},
}

// CanTransition reports whether the edge from -> to is permitted.
func CanTransition(from, to model.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Begin moves a pending opinion into tracking. Called when dispatch first
// attempts a check (commentary opinions enter tracking at creation and
// never pass through here).
func Begin(op *model.Opinion, now time.Time) error {
	if op.Status != model.StatusPending {
		return &model.InvalidTransitionError{From: op.Status, To: model.StatusTracking}
	}
	op.Status = model.StatusTracking
	op.UpdatedAt = now
	return nil
}

// Close performs the explicit manual transition to closed, valid from any
// non-pending state and independent of verification outcome.
func Close(op *model.Opinion, now time.Time) error {
	if !CanTransition(op.Status, model.StatusClosed) {
		return &model.InvalidTransitionError{From: op.Status, To: model.StatusClosed}
	}
	op.Status = model.StatusClosed
	op.UpdatedAt = now
	return nil
}

// Resolve applies a verification outcome to a tracking opinion and
// returns the resulting status. Policy:
//
//   - correct always resolves verified
//   - partial resolves verified for history and advice; for prediction
//     only once the deadline has passed, otherwise the opinion stays in
//     tracking
//   - incorrect resolves refuted
//   - indeterminate and error leave the status unchanged
//   - commentary never resolves; it stays in tracking regardless of
//     outcome until manually closed
func Resolve(op *model.Opinion, outcome model.Outcome, now time.Time) (model.Status, error) {
	if op.Status != model.StatusTracking {
		return op.Status, &model.InvalidTransitionError{From: op.Status, To: model.StatusVerified}
	}
	if op.Type == model.TypeCommentary {
		return op.Status, nil
	}

	next := op.Status
	switch outcome {
	case model.OutcomeCorrect:
		next = model.StatusVerified
	case model.OutcomePartial:
		switch op.Type {
		case model.TypeHistory, model.TypeAdvice:
			next = model.StatusVerified
		case model.TypePrediction:
			if op.Prediction != nil && !now.Before(op.Prediction.Deadline) {
				next = model.StatusVerified
			}
		}
	case model.OutcomeIncorrect:
		next = model.StatusRefuted
	}

	if next != op.Status {
		op.Status = next
		op.UpdatedAt = now
		if op.Type == model.TypePrediction && op.Prediction != nil {
			op.Prediction.VerificationStatus = outcome
		}
	}
	return op.Status, nil
}

// Expire moves a tracking opinion to expired after its horizon elapsed
// with the outcome still indeterminate. Commentary opinions never expire.
func Expire(op *model.Opinion, now time.Time) error {
	if op.Type == model.TypeCommentary {
		return &model.InvalidTransitionError{From: op.Status, To: model.StatusExpired}
	}
	if !CanTransition(op.Status, model.StatusExpired) {
		return &model.InvalidTransitionError{From: op.Status, To: model.StatusExpired}
	}
	op.Status = model.StatusExpired
	op.UpdatedAt = now
	return nil
}
