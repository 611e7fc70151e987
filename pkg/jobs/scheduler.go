package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultJobTimeout bounds a single execution.
const DefaultJobTimeout = 30 * time.Second

// Job represents a background job.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// Func adapts a function into a Job.
func Func(name string, fn func(ctx context.Context) error) Job {
	return funcJob{name: name, fn: fn}
}

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                      { return j.name }
func (j funcJob) Execute(ctx context.Context) error { return j.fn(ctx) }

// Scheduler runs jobs on fixed intervals until its context ends.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*scheduledJob
	order   []string
	logger  *slog.Logger
	timeout time.Duration
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:    make(map[string]*scheduledJob),
		logger:  logger,
		timeout: DefaultJobTimeout,
	}
}

// AddJob registers a job. Adding a name twice replaces the earlier job; jobs
// added after Start are not picked up.
func (s *Scheduler) AddJob(job Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; !exists {
		s.order = append(s.order, job.Name())
	}
	s.jobs[job.Name()] = &scheduledJob{job: job, interval: interval}
}

// Start runs every job once immediately and then on its interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)

	scheduled := make([]*scheduledJob, 0, len(s.order))
	for _, name := range s.order {
		scheduled = append(scheduled, s.jobs[name])
	}
	s.mu.Unlock()

	for _, sj := range scheduled {
		s.wg.Add(1)
		go s.loop(ctx, sj)
	}

	s.logger.Info("job scheduler started", slog.Int("jobs", len(scheduled)))
}

// Stop cancels all jobs and waits for in-flight executions.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("job scheduler stopped")
}

// RunOnce executes a registered job synchronously.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.execute(ctx, sj.job)
}

func (s *Scheduler) loop(ctx context.Context, sj *scheduledJob) {
	defer s.wg.Done()

	_ = s.execute(ctx, sj.job)

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.execute(ctx, sj.job)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panic", slog.String("name", job.Name()), slog.Any("panic", r))
			err = fmt.Errorf("job %s panicked", job.Name())
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err = job.Execute(ctx); err != nil {
		s.logger.Warn("job execution failed",
			slog.String("name", job.Name()),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return err
	}

	s.logger.Debug("job completed", slog.String("name", job.Name()), slog.Duration("duration", time.Since(start)))
	return nil
}
