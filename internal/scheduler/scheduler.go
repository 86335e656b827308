// Package scheduler runs jobs on fixed intervals.
//
// Every job gets its own ticker goroutine. A tick starts the job in a new
// goroutine so that a tick arriving during a long run reaches the job, whose
// guard drops it. Runs are detached from the scheduler's cancellation:
// stopping the scheduler stops the tickers and waits for in-flight runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job        Job
	interval   time.Duration
	runOnStart bool
}

// Scheduler triggers registered jobs at their intervals.
type Scheduler struct {
	logger   *slog.Logger
	mu       sync.Mutex
	entries  []entry
	started  bool
	inflight sync.WaitGroup
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{logger: logger}
}

// Add registers a job. It must be called before Run.
func (s *Scheduler) Add(job Job, interval time.Duration, runOnStart bool) error {
	if job == nil {
		return errors.New("scheduler: nil job")
	}
	if interval <= 0 {
		return fmt.Errorf("scheduler: job %s: interval must be positive, got %s", job.Name(), interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler: job %s added after start", job.Name())
	}
	s.entries = append(s.entries, entry{job: job, interval: interval, runOnStart: runOnStart})
	return nil
}

// Run blocks until ctx is cancelled, then waits for in-flight runs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler: already started")
	}
	s.started = true
	entries := append([]entry(nil), s.entries...)
	s.mu.Unlock()

	if len(entries) == 0 {
		return errors.New("scheduler: no jobs registered")
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		s.logger.Info("scheduling job",
			"job", e.job.Name(),
			"interval", e.interval,
			"run_on_start", e.runOnStart)
		group.Go(func() error {
			s.loop(gctx, e)
			return nil
		})
	}

	err := group.Wait()
	s.logger.Info("scheduler stopping, waiting for running jobs")
	s.inflight.Wait()
	return err
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	if e.runOnStart {
		s.fire(ctx, e.job)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, e.job)
		}
	}
}

// fire starts one run of the job without waiting for it.
func (s *Scheduler) fire(ctx context.Context, job Job) {
	runCtx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.run(runCtx, job)
	}()
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	log := s.logger.With("job", job.Name())
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r)
		}
	}()

	err := job.Run(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		log.Info("previous run still active, trigger dropped")
	case err != nil:
		log.Error("job failed", "error", err.Error(), "duration", time.Since(start))
	default:
		log.Debug("job finished", "duration", time.Since(start))
	}
}
