package cli

import (
	"log/slog"
	"os"

	"github.com/ppiankov/trackrecord/internal/extract"
	"github.com/ppiankov/trackrecord/internal/ingest"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/score"
	"github.com/ppiankov/trackrecord/internal/store"
	"github.com/ppiankov/trackrecord/internal/track"
)

// app bundles the wired components shared by the long-running and
// one-shot commands.
type app struct {
	cfg        *model.Config
	log        *slog.Logger
	store      *store.Store
	dispatcher *track.Dispatcher
}

func newApp(cfg *model.Config) (*app, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	registry := track.NewRegistry(cfg.Track)
	for domain, baseURL := range cfg.Track.Sources {
		registry.Register(track.Domain(domain), track.NewHTTPSource(baseURL, nil))
	}
	verifiers := map[model.OpinionType]track.Verifier{
		model.TypePrediction: track.NewPredictionVerifier(registry, cfg.Verify),
		model.TypeHistory:    track.NewHistoryVerifier(registry, cfg.Verify),
		model.TypeAdvice:     track.NewAdviceVerifier(registry, cfg.Verify),
		model.TypeCommentary: track.NewCommentaryVerifier(registry),
	}
	scorer := score.NewScorer(cfg.Score, nil)
	dispatcher := track.NewDispatcher(st, verifiers, cfg.Track, scorer, log, nil)

	return &app{cfg: cfg, log: log, store: st, dispatcher: dispatcher}, nil
}

// pipeline builds the ingestion pipeline. Separate from newApp because
// it needs extraction credentials the tracking-only commands do not.
func (a *app) pipeline() (*ingest.Pipeline, error) {
	adapter, err := extract.NewOpenAIAdapter(a.cfg.Extract)
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(a.store, adapter, a.log, nil), nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("close store", "error", err)
	}
}
