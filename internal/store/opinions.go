package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// opinionAttrs is the JSON envelope for the type-specific bundle.
// Exactly one field is set, matching the opinion type.
type opinionAttrs struct {
	Prediction *model.PredictionAttrs `json:"prediction,omitempty"`
	History    *model.HistoryAttrs    `json:"history,omitempty"`
	Advice     *model.AdviceAttrs     `json:"advice,omitempty"`
	Commentary *model.CommentaryAttrs `json:"commentary,omitempty"`
}

// OpinionFilter narrows ListOpinions results. Zero values mean "any".
type OpinionFilter struct {
	Type     model.OpinionType
	Status   model.Status
	AuthorID string
	Limit    int
}

// CreateOpinion inserts a validated opinion. A fingerprint collision
// returns ErrDuplicate so overlapping ingestion cannot create two rows.
func (s *Store) CreateOpinion(ctx context.Context, op *model.Opinion) error {
	attrs, err := json.Marshal(opinionAttrs{
		Prediction: op.Prediction,
		History:    op.History,
		Advice:     op.Advice,
		Commentary: op.Commentary,
	})
	if err != nil {
		return fmt.Errorf("marshal attrs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO opinions (id, raw_post_id, author_id, type, abstraction_level, status,
		                       fragment, confidence, fingerprint, attrs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.RawPostID, op.AuthorID, string(op.Type), op.AbstractionLevel, string(op.Status),
		op.Fragment, op.Confidence, op.Fingerprint, string(attrs),
		formatTime(op.CreatedAt), formatTime(op.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert opinion: %w", err)
	}
	return nil
}

// ErrDuplicate indicates a fingerprint collision: the claim is already
// tracked.
var ErrDuplicate = errors.New("opinion already tracked")

// FingerprintExists reports whether an opinion with the fingerprint is
// already stored.
func (s *Store) FingerprintExists(ctx context.Context, fingerprint string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM opinions WHERE fingerprint = ? LIMIT 1`, fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return true, nil
}

// GetOpinion fetches one opinion by id.
func (s *Store) GetOpinion(ctx context.Context, id string) (*model.Opinion, error) {
	row := s.db.QueryRowContext(ctx, selectOpinion+` WHERE id = ?`, id)
	op, err := scanOpinion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opinion: %w", err)
	}
	return op, nil
}

// ListOpinions returns opinions matching the filter, newest first.
func (s *Store) ListOpinions(ctx context.Context, f OpinionFilter) ([]model.Opinion, error) {
	query := selectOpinion
	var conds []string
	var args []any
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.AuthorID != "" {
		conds = append(conds, "author_id = ?")
		args = append(args, f.AuthorID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opinions: %w", err)
	}
	defer rows.Close()
	return collectOpinions(rows)
}

// DispatchCandidate pairs an open opinion with its last verification
// attempt time (nil when never attempted). The dispatcher computes
// eligibility from this.
type DispatchCandidate struct {
	Opinion     model.Opinion
	LastAttempt *time.Time
}

// ListDispatchable returns all opinions in pending or tracking together
// with their most recent attempt timestamps, oldest first.
func (s *Store) ListDispatchable(ctx context.Context) ([]DispatchCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.id, o.raw_post_id, o.author_id, o.type, o.abstraction_level, o.status,
		        o.fragment, o.confidence, o.fingerprint, o.attrs, o.created_at, o.updated_at,
		        MAX(v.attempted_at)
		 FROM opinions o
		 LEFT JOIN verifications v ON v.opinion_id = o.id
		 WHERE o.status IN (?, ?)
		 GROUP BY o.id
		 ORDER BY o.created_at`,
		string(model.StatusPending), string(model.StatusTracking))
	if err != nil {
		return nil, fmt.Errorf("list dispatchable: %w", err)
	}
	defer rows.Close()

	var out []DispatchCandidate
	for rows.Next() {
		var c DispatchCandidate
		var attrs, createdAt, updatedAt, typ, status string
		var lastAttempt sql.NullString
		if err := rows.Scan(&c.Opinion.ID, &c.Opinion.RawPostID, &c.Opinion.AuthorID, &typ,
			&c.Opinion.AbstractionLevel, &status, &c.Opinion.Fragment, &c.Opinion.Confidence,
			&c.Opinion.Fingerprint, &attrs, &createdAt, &updatedAt, &lastAttempt); err != nil {
			return nil, fmt.Errorf("scan dispatchable: %w", err)
		}
		if err := fillOpinion(&c.Opinion, typ, status, attrs, createdAt, updatedAt); err != nil {
			return nil, err
		}
		if lastAttempt.Valid {
			t, err := parseTime(lastAttempt.String)
			if err != nil {
				return nil, err
			}
			c.LastAttempt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateOpinion persists status, updated_at, and the attribute bundle
// (prediction verification status lives inside attrs).
func (s *Store) UpdateOpinion(ctx context.Context, op *model.Opinion) error {
	attrs, err := json.Marshal(opinionAttrs{
		Prediction: op.Prediction,
		History:    op.History,
		Advice:     op.Advice,
		Commentary: op.Commentary,
	})
	if err != nil {
		return fmt.Errorf("marshal attrs: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE opinions SET status = ?, attrs = ?, updated_at = ? WHERE id = ?`,
		string(op.Status), string(attrs), formatTime(op.UpdatedAt), op.ID)
	if err != nil {
		return fmt.Errorf("update opinion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CountOpinions returns per-status counts for the stats endpoint.
func (s *Store) CountOpinions(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM opinions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count opinions: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

const selectOpinion = `SELECT id, raw_post_id, author_id, type, abstraction_level, status,
	fragment, confidence, fingerprint, attrs, created_at, updated_at FROM opinions`

func scanOpinion(row rowScanner) (*model.Opinion, error) {
	var op model.Opinion
	var attrs, createdAt, updatedAt, typ, status string
	if err := row.Scan(&op.ID, &op.RawPostID, &op.AuthorID, &typ, &op.AbstractionLevel,
		&status, &op.Fragment, &op.Confidence, &op.Fingerprint, &attrs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := fillOpinion(&op, typ, status, attrs, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &op, nil
}

func fillOpinion(op *model.Opinion, typ, status, attrs, createdAt, updatedAt string) error {
	op.Type = model.OpinionType(typ)
	op.Status = model.Status(status)

	var bundle opinionAttrs
	if err := json.Unmarshal([]byte(attrs), &bundle); err != nil {
		return fmt.Errorf("unmarshal attrs: %w", err)
	}
	op.Prediction = bundle.Prediction
	op.History = bundle.History
	op.Advice = bundle.Advice
	op.Commentary = bundle.Commentary

	var err error
	if op.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	if op.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return err
	}
	return nil
}

func collectOpinions(rows *sql.Rows) ([]model.Opinion, error) {
	var out []model.Opinion
	for rows.Next() {
		op, err := scanOpinion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	return out, rows.Err()
}
