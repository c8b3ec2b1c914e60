// Package scheduler drives periodic dispatch sweeps while the service
// runs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppiankov/trackrecord/internal/track"
)

// Sweeper runs one dispatch sweep. Satisfied by track.Dispatcher.
type Sweeper interface {
	DispatchOnce(ctx context.Context) (track.SweepStats, error)
}

// Scheduler runs sweeps on a fixed interval until its context is
// cancelled. One sweep runs immediately on start so a restarted service
// does not wait a full interval before catching up.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	log      *slog.Logger
}

// New creates a scheduler. A nil logger discards.
func New(sweeper Sweeper, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{sweeper: sweeper, interval: interval, log: log}
}

// Run blocks until ctx is cancelled. Sweep failures are logged, not
// fatal: the next tick retries.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", "interval", s.interval)
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.sweeper.DispatchOnce(ctx); err != nil {
		s.log.Error("sweep failed", "error", err)
	}
}
