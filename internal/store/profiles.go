package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ppiankov/trackrecord/internal/model"
)

// UpsertProfile writes the recomputed credibility profile for an author.
// Profiles are a derived cache: the scorer can rebuild them from
// verification history at any time.
func (s *Store) UpsertProfile(ctx context.Context, p *model.CredibilityProfile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credibility_profiles (author_id, accuracy, correct, partial, incorrect, expired, resolved, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (author_id) DO UPDATE SET
			accuracy = excluded.accuracy,
			correct = excluded.correct,
			partial = excluded.partial,
			incorrect = excluded.incorrect,
			expired = excluded.expired,
			resolved = excluded.resolved,
			updated_at = excluded.updated_at`,
		p.AuthorID, p.Accuracy, p.Counts.Correct, p.Counts.Partial, p.Counts.Incorrect,
		p.Counts.Expired, p.Resolved, formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile fetches the credibility profile for an author.
func (s *Store) GetProfile(ctx context.Context, authorID string) (*model.CredibilityProfile, error) {
	var p model.CredibilityProfile
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT author_id, accuracy, correct, partial, incorrect, expired, resolved, updated_at
		 FROM credibility_profiles WHERE author_id = ?`, authorID).
		Scan(&p.AuthorID, &p.Accuracy, &p.Counts.Correct, &p.Counts.Partial,
			&p.Counts.Incorrect, &p.Counts.Expired, &p.Resolved, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
