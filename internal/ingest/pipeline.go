// Package ingest turns raw commentator posts into tracked opinions:
// extraction, validation, deduplication, and persistence in one pass.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/extract"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/store"
	"github.com/ppiankov/trackrecord/internal/validate"
)

// Submission is one incoming post from a platform.
type Submission struct {
	Platform   string    `json:"platform"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	SourceURL  string    `json:"source_url,omitempty"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

// Report summarizes what one submission produced. A post can be
// processed successfully and still yield zero opinions: irrelevant
// content, all candidates rejected, or all duplicates.
type Report struct {
	PostID     string          `json:"post_id"`
	AuthorID   string          `json:"author_id"`
	Relevant   bool            `json:"relevant"`
	SkipReason string          `json:"skip_reason,omitempty"`
	Created    []model.Opinion `json:"created"`
	Rejected   int             `json:"rejected"`
	Duplicates int             `json:"duplicates"`
}

// Pipeline runs submissions through extraction and validation into the
// store.
type Pipeline struct {
	store     *store.Store
	adapter   extract.Adapter
	validator *validate.Validator
	log       *slog.Logger
	now       func() time.Time
}

// NewPipeline wires the ingestion pipeline. A nil clock means time.Now;
// a nil logger discards.
func NewPipeline(st *store.Store, adapter extract.Adapter, log *slog.Logger, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		store:     st,
		adapter:   adapter,
		validator: validate.NewValidator(now),
		log:       log,
		now:       now,
	}
}

// Ingest processes one submission end to end. The raw post is always
// persisted; its state records whether extraction succeeded. Candidate
// rejections and duplicates are not errors: they are counted and the
// rest of the batch proceeds.
func (p *Pipeline) Ingest(ctx context.Context, sub Submission) (*Report, error) {
	if sub.Platform == "" || sub.AuthorName == "" {
		return nil, &model.ValidationError{Field: "platform/author_name", Reason: "required"}
	}
	content := NormalizeContent(sub.Content)
	if content == "" {
		return nil, &model.ValidationError{Field: "content", Reason: "empty after normalization"}
	}

	now := p.now().UTC()
	author, err := p.store.UpsertAuthor(ctx, sub.Platform, sub.AuthorName)
	if err != nil {
		return nil, err
	}

	capturedAt := sub.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}
	post := &model.RawPost{
		ID:         uuid.NewString(),
		AuthorID:   author.ID,
		Platform:   sub.Platform,
		Content:    content,
		CapturedAt: capturedAt,
		SourceURL:  sub.SourceURL,
		State:      model.PostPending,
		CreatedAt:  now,
	}
	if err := p.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	report := &Report{PostID: post.ID, AuthorID: author.ID}
	result, err := p.adapter.Extract(ctx, *post)
	if err != nil {
		if serr := p.store.SetPostState(ctx, post.ID, model.PostFailed, nil); serr != nil {
			p.log.Error("mark post failed", "post_id", post.ID, "error", serr)
		}
		return report, fmt.Errorf("extract post %s: %w", post.ID, err)
	}

	report.Relevant = result.Relevant
	report.SkipReason = result.SkipReason
	if result.Relevant {
		p.persistCandidates(ctx, result.Candidates, post.ID, author.ID, report)
	}

	processedAt := p.now().UTC()
	if err := p.store.SetPostState(ctx, post.ID, model.PostProcessed, &processedAt); err != nil {
		return report, err
	}

	p.log.Info("post ingested",
		"post_id", post.ID, "author_id", author.ID, "relevant", report.Relevant,
		"created", len(report.Created), "rejected", report.Rejected, "duplicates", report.Duplicates)
	return report, nil
}

func (p *Pipeline) persistCandidates(ctx context.Context, candidates []model.CandidateOpinion, postID, authorID string, report *Report) {
	for _, c := range candidates {
		op, err := p.validator.Validate(c, postID, authorID)
		if err != nil {
			report.Rejected++
			p.log.Warn("candidate rejected",
				"post_id", postID, "type", c.ProposedType, "error", err)
			continue
		}
		if err := p.store.CreateOpinion(ctx, op); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				report.Duplicates++
				continue
			}
			report.Rejected++
			p.log.Error("persist opinion", "post_id", postID, "error", err)
			continue
		}
		report.Created = append(report.Created, *op)
	}
}

// Reprocess re-runs extraction for posts that previously failed.
func (p *Pipeline) Reprocess(ctx context.Context) (int, error) {
	posts, err := p.store.ListFailedPosts(ctx)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, post := range posts {
		result, err := p.adapter.Extract(ctx, post)
		if err != nil {
			p.log.Warn("reprocess failed", "post_id", post.ID, "error", err)
			continue
		}
		report := &Report{PostID: post.ID, AuthorID: post.AuthorID, Relevant: result.Relevant}
		if result.Relevant {
			p.persistCandidates(ctx, result.Candidates, post.ID, post.AuthorID, report)
		}
		processedAt := p.now().UTC()
		if err := p.store.SetPostState(ctx, post.ID, model.PostProcessed, &processedAt); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}
