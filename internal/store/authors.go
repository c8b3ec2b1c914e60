package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/model"
)

// UpsertAuthor returns the existing author for (platform, displayName)
// or creates one. Authors are immutable except for display metadata.
func (s *Store) UpsertAuthor(ctx context.Context, platform, displayName string) (*model.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, platform, display_name, created_at FROM authors WHERE platform = ? AND display_name = ?`,
		platform, displayName)

	author, err := scanAuthor(row)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup author: %w", err)
	}

	author = &model.Author{
		ID:          uuid.NewString(),
		Platform:    platform,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO authors (id, platform, display_name, created_at) VALUES (?, ?, ?, ?)`,
		author.ID, author.Platform, author.DisplayName, formatTime(author.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}
	return author, nil
}

// GetAuthor fetches one author by id.
func (s *Store) GetAuthor(ctx context.Context, id string) (*model.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, platform, display_name, created_at FROM authors WHERE id = ?`, id)
	author, err := scanAuthor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	return author, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuthor(row rowScanner) (*model.Author, error) {
	var a model.Author
	var createdAt string
	if err := row.Scan(&a.ID, &a.Platform, &a.DisplayName, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}
