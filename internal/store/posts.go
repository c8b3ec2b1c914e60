package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/trackrecord/internal/model"
)

// CreatePost stores a new raw post. Content is immutable once stored.
func (s *Store) CreatePost(ctx context.Context, post *model.RawPost) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raw_posts (id, author_id, platform, content, captured_at, source_url, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.Platform, post.Content,
		formatTime(post.CapturedAt), post.SourceURL, string(post.State), formatTime(post.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert raw post: %w", err)
	}
	return nil
}

// GetPost fetches one raw post by id.
func (s *Store) GetPost(ctx context.Context, id string) (*model.RawPost, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, author_id, platform, content, captured_at, source_url, state, processed_at, created_at
		 FROM raw_posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get raw post: %w", err)
	}
	return post, nil
}

// ListFailedPosts returns posts whose extraction exhausted retries and
// awaits a manual re-trigger.
func (s *Store) ListFailedPosts(ctx context.Context) ([]model.RawPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author_id, platform, content, captured_at, source_url, state, processed_at, created_at
		 FROM raw_posts WHERE state = ? ORDER BY created_at`, string(model.PostFailed))
	if err != nil {
		return nil, fmt.Errorf("list failed posts: %w", err)
	}
	defer rows.Close()

	var posts []model.RawPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// SetPostState updates the extraction state of a post.
func (s *Store) SetPostState(ctx context.Context, id string, state model.PostState, processedAt *time.Time) error {
	var processed any
	if processedAt != nil {
		processed = formatTime(*processedAt)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_posts SET state = ?, processed_at = ? WHERE id = ?`,
		string(state), processed, id)
	if err != nil {
		return fmt.Errorf("update post state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanPost(row rowScanner) (*model.RawPost, error) {
	var p model.RawPost
	var capturedAt, createdAt string
	var processedAt sql.NullString
	var state string
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Platform, &p.Content, &capturedAt,
		&p.SourceURL, &state, &processedAt, &createdAt); err != nil {
		return nil, err
	}
	p.State = model.PostState(state)

	var err error
	if p.CapturedAt, err = parseTime(capturedAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if processedAt.Valid {
		t, err := parseTime(processedAt.String)
		if err != nil {
			return nil, err
		}
		p.ProcessedAt = &t
	}
	return &p, nil
}
