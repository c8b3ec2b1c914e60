package track

import (
	"context"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// Attempt is the output of one verification run: an outcome plus the
// evidence consulted. The dispatcher turns attempts (and verifier
// errors) into append-only Verification records.
type Attempt struct {
	Outcome  model.Outcome
	Evidence model.Evidence
	Notes    string
}

// Verifier is the common contract of the four type-specific verifiers.
// Implementations fail with an error wrapping ErrDataSourceUnavailable
// when the external data source cannot be reached; the dispatcher
// records such failures as error-outcome verifications.
type Verifier interface {
	Verify(ctx context.Context, op model.Opinion, now time.Time) (Attempt, error)
}

func indeterminate(evidence model.Evidence, notes string) Attempt {
	return Attempt{Outcome: model.OutcomeIndeterminate, Evidence: evidence, Notes: notes}
}
