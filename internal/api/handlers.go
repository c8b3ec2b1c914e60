package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/trackrecord/internal/ingest"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/store"
)

// Ingestor processes submitted posts and re-runs the ones whose
// extraction failed. Satisfied by ingest.Pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, sub ingest.Submission) (*ingest.Report, error)
	Reprocess(ctx context.Context) (int, error)
}

// Lifecycle exposes the manual actions the dispatcher supports.
// Satisfied by track.Dispatcher.
type Lifecycle interface {
	VerifyNow(ctx context.Context, opinionID string) (*model.Verification, error)
	Close(ctx context.Context, opinionID string) (*model.Opinion, error)
}

// Handler serves all routes.
type Handler struct {
	store     *store.Store
	ingestor  Ingestor
	lifecycle Lifecycle
	log       *slog.Logger
}

// NewHandler wires the handler. A nil logger discards.
func NewHandler(st *store.Store, ingestor Ingestor, lifecycle Lifecycle, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{store: st, ingestor: ingestor, lifecycle: lifecycle, log: log}
}

// SubmitPost ingests one post and returns what it produced.
func (h *Handler) SubmitPost(c *gin.Context) {
	var sub ingest.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	report, err := h.ingestor.Ingest(c.Request.Context(), sub)
	if err != nil {
		var verr *model.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		case errors.Is(err, model.ErrExtractionUnavailable):
			// The post is stored; retry happens out of band.
			c.JSON(http.StatusAccepted, gin.H{
				"post_id": report.PostID,
				"status":  "extraction deferred",
			})
		default:
			h.log.Error("ingest failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ReprocessPosts re-runs extraction for posts stuck in the failed state.
func (h *Handler) ReprocessPosts(c *gin.Context) {
	recovered, err := h.ingestor.Reprocess(c.Request.Context())
	if err != nil {
		h.log.Error("reprocess posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reprocess failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recovered": recovered})
}

// ListOpinions returns opinions filtered by query parameters.
func (h *Handler) ListOpinions(c *gin.Context) {
	filter := store.OpinionFilter{
		Type:     model.OpinionType(c.Query("type")),
		Status:   model.Status(c.Query("status")),
		AuthorID: c.Query("author"),
	}
	if filter.AuthorID == "" {
		filter.AuthorID = c.Query("author_id")
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	opinions, err := h.store.ListOpinions(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("list opinions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"opinions": opinions, "total": len(opinions)})
}

// GetOpinion returns one opinion by id.
func (h *Handler) GetOpinion(c *gin.Context) {
	op, err := h.store.GetOpinion(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOr500(c, err, "get opinion")
		return
	}
	c.JSON(http.StatusOK, op)
}

// ListVerifications returns the opinion's audit trail in attempt order.
func (h *Handler) ListVerifications(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetOpinion(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, err, "get opinion")
		return
	}
	records, err := h.store.ListVerifications(c.Request.Context(), id)
	if err != nil {
		h.log.Error("list verifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verifications": records, "total": len(records)})
}

// VerifyOpinion triggers one immediate verification attempt.
func (h *Handler) VerifyOpinion(c *gin.Context) {
	record, err := h.lifecycle.VerifyNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "opinion not found"})
		case errors.Is(err, model.ErrLeaseHeld):
			c.JSON(http.StatusConflict, gin.H{"error": "verification already in flight"})
		default:
			h.log.Error("verify now", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}
	if record == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "opinion is in a terminal state"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// CloseOpinion performs the manual close transition.
func (h *Handler) CloseOpinion(c *gin.Context) {
	op, err := h.lifecycle.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		var invalid *model.InvalidTransitionError
		switch {
		case errors.Is(err, model.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "opinion not found"})
		case errors.As(err, &invalid):
			c.JSON(http.StatusConflict, gin.H{"error": invalid.Error()})
		default:
			h.log.Error("close opinion", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "close failed"})
		}
		return
	}
	c.JSON(http.StatusOK, op)
}

// GetCredibility returns the author's credibility profile.
func (h *Handler) GetCredibility(c *gin.Context) {
	profile, err := h.store.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOr500(c, err, "get profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Stats returns per-status opinion counts.
func (h *Handler) Stats(c *gin.Context) {
	counts, err := h.store.CountOpinions(c.Request.Context())
	if err != nil {
		h.log.Error("count opinions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"opinions":  counts,
		"total":     total,
	})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := h.store.CountOpinions(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		health["status"] = "degraded"
		health["error"] = "store unreachable"
	}
	c.JSON(status, health)
}

func (h *Handler) notFoundOr500(c *gin.Context, err error, op string) {
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.log.Error(op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
}
