package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/trackrecord/internal/track"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (c *countingSweeper) DispatchOnce(ctx context.Context) (track.SweepStats, error) {
	c.calls.Add(1)
	return track.SweepStats{}, c.err
}

func TestRun_SweepsImmediatelyThenOnTicks(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sweeper.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d sweeps before deadline", sweeper.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestRun_SweepErrorsAreNotFatal(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db locked")}
	s := New(sweeper, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("scheduler stopped after failure, %d sweeps", sweeper.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
