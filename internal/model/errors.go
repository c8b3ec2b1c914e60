package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the extraction and verification boundaries.
// Transient errors are retried with bounded backoff by their callers;
// permanent errors drop the candidate and surface the reason.
var (
	// ErrExtractionUnavailable indicates an upstream timeout or rate
	// limit. Transient: retry with backoff, then mark the post failed.
	ErrExtractionUnavailable = errors.New("extraction unavailable")

	// ErrExtractionMalformed indicates the extraction response could not
	// be parsed. Permanent: candidate discarded, raw payload logged.
	ErrExtractionMalformed = errors.New("extraction response malformed")

	// ErrExpiredOnArrival indicates a prediction whose deadline had
	// already passed at validation time. Permanent.
	ErrExpiredOnArrival = errors.New("prediction expired on arrival")

	// ErrDataSourceUnavailable indicates the external data source could
	// not be reached. Transient: the opinion stays in tracking and is
	// re-queued on the next sweep.
	ErrDataSourceUnavailable = errors.New("data source unavailable")

	// ErrLeaseHeld indicates another verification attempt is in flight
	// for the same opinion. Not an error condition: the dispatch is
	// silently skipped.
	ErrLeaseHeld = errors.New("verification lease held")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects a candidate opinion that fails the per-type
// attribute schema. Permanent; the reason is surfaced to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError rejects a lifecycle transition not permitted by
// the state machine.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
