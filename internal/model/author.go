package model

import "time"

// Author is a tracked commentator. Immutable except for display metadata.
type Author struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostState tracks extraction progress for a raw post
type PostState string

const (
	PostPending   PostState = "pending"   // Not yet extracted
	PostProcessed PostState = "processed" // Extraction completed (possibly zero opinions)
	PostFailed    PostState = "failed"    // Extraction exhausted retries; manual re-trigger required
)

// RawPost is one piece of ingested source content. Content is immutable
// once stored; only the extraction state fields change.
type RawPost struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Platform    string     `json:"platform"`
	Content     string     `json:"content"`
	CapturedAt  time.Time  `json:"captured_at"`
	SourceURL   string     `json:"source_url"`
	State       PostState  `json:"state"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
