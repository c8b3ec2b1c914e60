package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/trackrecord/internal/model"
)

// AppendVerification stores one verification attempt. Records are
// append-only: nothing updates or deletes them afterwards.
func (s *Store) AppendVerification(ctx context.Context, v *model.Verification) error {
	evidence, err := json.Marshal(v.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verifications (id, opinion_id, attempted_at, outcome, evidence, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.OpinionID, formatTime(v.AttemptedAt), string(v.Outcome), string(evidence), v.Notes)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// ListVerifications returns the audit trail for one opinion in attempt
// order.
func (s *Store) ListVerifications(ctx context.Context, opinionID string) ([]model.Verification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, opinion_id, attempted_at, outcome, evidence, notes
		 FROM verifications WHERE opinion_id = ? ORDER BY attempted_at`, opinionID)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()
	return collectVerifications(rows)
}

// ListAuthorVerifications returns every verification for the author's
// opinions in attempt order, for scorer replay.
func (s *Store) ListAuthorVerifications(ctx context.Context, authorID string) ([]model.Verification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.opinion_id, v.attempted_at, v.outcome, v.evidence, v.notes
		 FROM verifications v
		 JOIN opinions o ON o.id = v.opinion_id
		 WHERE o.author_id = ?
		 ORDER BY v.attempted_at`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list author verifications: %w", err)
	}
	defer rows.Close()
	return collectVerifications(rows)
}

func collectVerifications(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]model.Verification, error) {
	var out []model.Verification
	for rows.Next() {
		var v model.Verification
		var attemptedAt, outcome, evidence string
		if err := rows.Scan(&v.ID, &v.OpinionID, &attemptedAt, &outcome, &evidence, &v.Notes); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		v.Outcome = model.Outcome(outcome)
		var err error
		if v.AttemptedAt, err = parseTime(attemptedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(evidence), &v.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
