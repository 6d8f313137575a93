// Package tasks runs the periodic ingestion loop. The single-flight guard
// lives here, not in the ingestion engine: the engine stays stateless and
// the scheduler decides whether a run may start.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"veille/app/feed"
)

type IngestorInterface interface {
	Run(ctx context.Context) feed.Result
	RunSource(ctx context.Context, sourceID string) (feed.Result, error)
}

var _ IngestorInterface = (*feed.Ingestor)(nil)

type Scheduler struct {
	ingestor IngestorInterface
	interval time.Duration
	inFlight atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(ingestor IngestorInterface, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		ingestor: ingestor,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the refresh loop: one run at startup, then one per
// interval tick. Ticks arriving while a run is still active are skipped.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// RunNow executes an immediate synchronous run unless one is already
// active. The second return value is false when the guard rejected it.
func (s *Scheduler) RunNow(ctx context.Context) (feed.Result, bool) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return feed.Result{}, false
	}
	defer s.inFlight.Store(false)

	return s.ingestor.Run(ctx), true
}

// RunSource refreshes a single source. Targeted refreshes are short and
// touch one source, so they bypass the batch guard.
func (s *Scheduler) RunSource(ctx context.Context, sourceID string) (feed.Result, error) {
	return s.ingestor.RunSource(ctx, sourceID)
}

func (s *Scheduler) runOnce() {
	if !s.inFlight.CompareAndSwap(false, true) {
		slog.Warn("Previous refresh still running, skipping scheduled run")
		return
	}
	defer s.inFlight.Store(false)

	result := s.ingestor.Run(s.ctx)

	if len(result.Errors) > 0 {
		slog.Warn("Scheduled refresh finished with errors", "added", result.Added, "errors", result.Errors)
	} else {
		slog.Debug("Scheduled refresh finished", "added", result.Added)
	}
}
