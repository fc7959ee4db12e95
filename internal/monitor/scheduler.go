package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Task is a unit of periodic work.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler runs each task on its own ticker until stopped.
type Scheduler struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	tasks   []Task
	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler for tasks. Tasks with a non-positive
// interval are skipped.
func NewScheduler(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, tasks ...Task) *Scheduler {
	return &Scheduler{
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		tasks:   tasks,
	}
}

// CheckReadiness returns nil while the scheduler is running.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.running.Load() {
		return errors.New("scheduler is not running")
	}
	return nil
}

// Run starts every task and blocks until ctx is cancelled and all tasks have returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "tasks", len(s.tasks))
	s.running.Store(true)
	s.metrics.SchedulerAlive.Set(1)
	defer func() {
		s.running.Store(false)
		s.metrics.SchedulerAlive.Set(0)
	}()

	var wg sync.WaitGroup
	for _, t := range s.tasks {
		if t.Interval <= 0 {
			s.logger.Warn("task disabled", "task", t.Name, "interval", t.Interval)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, t)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	s.logger.Info("scheduler stopped", "reason", ctx.Err())
	return nil
}

// Start runs the scheduler in the background. Calling Start on a started
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop cancels every task and waits for them to return. Safe to call more
// than once, and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	ticker := s.clock.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "task", t.Name, "panic", r)
		}
		s.metrics.TaskDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())
	}()
	t.Run(ctx)
}
