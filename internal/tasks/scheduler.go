package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper runs the periodic maintenance passes
type Sweeper interface {
	ReconcileSweep(ctx context.Context) (int, error)
	OrphanCleanup(ctx context.Context) (int, error)
}

// SchedulerOptions configures the periodic sweeps
type SchedulerOptions struct {
	ReconcileInterval time.Duration
	OrphanInterval    time.Duration
}

// Scheduler triggers the reconciliation sweep and orphan cleanup on
// their intervals. Both handlers are idempotent; a missed or doubled
// tick is harmless.
type Scheduler struct {
	sweeper Sweeper
	opts    SchedulerOptions
	logger  *zap.Logger

	wg      sync.WaitGroup
	stopCh  chan struct{}
	mu      sync.Mutex
	running bool
}

func NewScheduler(sweeper Sweeper, opts SchedulerOptions, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		opts:    opts,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the periodic sweeps
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true

	s.logger.Info("starting maintenance scheduler",
		zap.Duration("reconcile_interval", s.opts.ReconcileInterval),
		zap.Duration("orphan_interval", s.opts.OrphanInterval))

	s.wg.Add(2)
	go s.loop(ctx, s.opts.ReconcileInterval, "reconcile-sweep", func(ctx context.Context) error {
		requeued, err := s.sweeper.ReconcileSweep(ctx)
		if err != nil {
			return err
		}
		if requeued > 0 {
			s.logger.Info("reconcile sweep finished", zap.Int("requeued", requeued))
		}
		return nil
	})
	go s.loop(ctx, s.opts.OrphanInterval, "orphan-cleanup", func(ctx context.Context) error {
		deleted, err := s.sweeper.OrphanCleanup(ctx)
		if err != nil {
			return err
		}
		if deleted > 0 {
			s.logger.Info("orphan cleanup finished", zap.Int("deleted", deleted))
		}
		return nil
	})

	return nil
}

// Stop halts the periodic sweeps
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopCh)
	s.wg.Wait()
	s.running = false
	s.logger.Info("maintenance scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, name string, run func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				s.logger.Error("periodic task failed",
					zap.String("task", name),
					zap.Error(err))
			}
		}
	}
}
