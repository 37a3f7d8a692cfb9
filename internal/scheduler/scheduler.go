// Package scheduler runs the periodic status reconciliation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler recomputes the status of every book
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Scheduler runs a reconciliation immediately and then on a cron schedule
type Scheduler struct {
	reconciler Reconciler
	schedule   string
	logger     *zap.Logger
	timeout    time.Duration

	cron *cron.Cron
	wg   sync.WaitGroup
}

// New creates a Scheduler; an empty schedule disables the periodic job
func New(reconciler Reconciler, schedule string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		reconciler: reconciler,
		schedule:   schedule,
		logger:     logger,
		timeout:    5 * time.Minute,
		cron:       cron.New(),
	}
	if schedule == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs one reconciliation in the background, then starts the cron jobs
func (s *Scheduler) Start() {
	if s.schedule == "" {
		s.logger.Info("Reconcile scheduler disabled")
		return
	}
	s.logger.Info("Reconcile scheduler started", zap.String("schedule", s.schedule))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
	s.cron.Start()
}

// Stop stops the cron and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	done, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error("Scheduled reconcile finished with errors",
			zap.Int("books", done),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return
	}
	s.logger.Info("Scheduled reconcile completed",
		zap.Int("books", done),
		zap.Duration("took", time.Since(start)))
}
