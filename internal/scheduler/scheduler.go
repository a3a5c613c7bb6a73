package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Job is one recurring cycle: it runs once at startup and then on every
// interval tick until the scheduler stops.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives its registered jobs on independent recurring timers.
// Lifecycle is Stopped -> Running -> Stopped; Stop is idempotent.
type Scheduler struct {
	jobs   []Job
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a Scheduler instance.
func New(logger zerolog.Logger, jobs ...Job) *Scheduler {
	for _, job := range jobs {
		if job.Interval <= 0 {
			panic("scheduler job interval must be positive")
		}
		if job.Run == nil {
			panic("scheduler job run func must be set")
		}
	}
	return &Scheduler{jobs: jobs, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Start transitions to Running: every job executes once immediately, then its
// recurring timer is armed. Returns an error when already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	for i := range s.jobs {
		job := s.jobs[i]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runLoop(ctx, job)
		}()
	}
	return nil
}

// Stop transitions to Stopped: all timers are cancelled and in-flight cycles
// are awaited. Calling Stop again is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	// Overlap guard: a firing that arrives while the previous one is still in
	// flight is skipped rather than stacked against the provider.
	var busy atomic.Bool

	launch := func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.fire(ctx, job, &busy)
		}()
	}

	launch()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			launch()
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, job Job, busy *atomic.Bool) {
	if !busy.CompareAndSwap(false, true) {
		s.logger.Warn().Str("job", job.Name).Msg("previous cycle still running; skipping this firing")
		return
	}
	defer busy.Store(false)

	s.logger.Info().Str("job", job.Name).Msg("executing cycle")
	started := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", job.Name).Msg("cycle failed")
		return
	}
	s.logger.Debug().Str("job", job.Name).Dur("elapsed", time.Since(started)).Msg("cycle complete")
}
