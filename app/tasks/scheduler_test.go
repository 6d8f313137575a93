package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"veille/app/feed"
)

type blockingIngestor struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func newBlockingIngestor() *blockingIngestor {
	return &blockingIngestor{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingIngestor) Run(_ context.Context) feed.Result {
	b.runs.Add(1)
	b.started <- struct{}{}
	<-b.release
	return feed.Result{}
}

func (b *blockingIngestor) RunSource(ctx context.Context, _ string) (feed.Result, error) {
	return b.Run(ctx), nil
}

type countingIngestor struct {
	runs       atomic.Int32
	sourceRuns atomic.Int32
}

func (c *countingIngestor) Run(_ context.Context) feed.Result {
	c.runs.Add(1)
	return feed.Result{Added: 1}
}

func (c *countingIngestor) RunSource(_ context.Context, _ string) (feed.Result, error) {
	c.sourceRuns.Add(1)
	return feed.Result{Added: 1}, nil
}

func TestSchedulerRunsOnStart(t *testing.T) {
	ingestor := &countingIngestor{}
	scheduler := NewScheduler(ingestor, time.Hour)

	scheduler.Start()
	defer scheduler.Stop()

	deadline := time.After(time.Second)
	for ingestor.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("Expected an initial run shortly after Start")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunNowGuardRejectsOverlap(t *testing.T) {
	ingestor := newBlockingIngestor()
	scheduler := NewScheduler(ingestor, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := scheduler.RunNow(context.Background()); !ok {
			t.Error("Expected first RunNow to be accepted")
		}
	}()

	<-ingestor.started

	if _, ok := scheduler.RunNow(context.Background()); ok {
		t.Error("Expected overlapping RunNow to be rejected")
	}

	close(ingestor.release)
	<-done

	if got := ingestor.runs.Load(); got != 1 {
		t.Errorf("Expected exactly 1 run, got: %d", got)
	}
}

func TestRunNowGuardReleasesAfterRun(t *testing.T) {
	ingestor := &countingIngestor{}
	scheduler := NewScheduler(ingestor, time.Hour)

	result, ok := scheduler.RunNow(context.Background())
	if !ok {
		t.Fatal("Expected first RunNow to be accepted")
	}
	if result.Added != 1 {
		t.Errorf("Expected run result to be returned, got added: %d", result.Added)
	}

	if _, ok := scheduler.RunNow(context.Background()); !ok {
		t.Error("Expected guard to release after run completed")
	}
}

type mixedIngestor struct {
	*blockingIngestor
	sourceRuns atomic.Int32
}

func (m *mixedIngestor) RunSource(_ context.Context, _ string) (feed.Result, error) {
	m.sourceRuns.Add(1)
	return feed.Result{Added: 1}, nil
}

func TestRunSourceBypassesGuard(t *testing.T) {
	ingestor := &mixedIngestor{blockingIngestor: newBlockingIngestor()}
	scheduler := NewScheduler(ingestor, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.RunNow(context.Background())
	}()
	<-ingestor.started

	// A targeted refresh goes through even while a batch is in flight.
	result, err := scheduler.RunSource(context.Background(), "s1")
	if err != nil {
		t.Errorf("Expected targeted refresh to succeed, got: %v", err)
	}
	if result.Added != 1 || ingestor.sourceRuns.Load() != 1 {
		t.Errorf("Expected 1 targeted run, got: %d", ingestor.sourceRuns.Load())
	}

	close(ingestor.release)
	<-done
}

func TestSchedulerStopWaitsForRuns(t *testing.T) {
	ingestor := newBlockingIngestor()
	scheduler := NewScheduler(ingestor, time.Hour)

	scheduler.Start()
	<-ingestor.started

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Expected Stop to wait for the in-flight run")
	case <-time.After(50 * time.Millisecond):
	}

	close(ingestor.release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Expected Stop to return once the run finished")
	}
}

func TestSchedulerTicks(t *testing.T) {
	ingestor := &countingIngestor{}
	scheduler := NewScheduler(ingestor, 20*time.Millisecond)

	scheduler.Start()
	defer scheduler.Stop()

	deadline := time.After(2 * time.Second)
	for ingestor.runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Expected at least 3 runs, got: %d", ingestor.runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
