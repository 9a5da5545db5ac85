// Package scheduler runs the engine's periodic duties: overtime sweeps,
// idle-timeout sweeps, and cron-based rule toggles.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// cronResolution bounds how late a cron toggle can fire.
const cronResolution = 15 * time.Second

// Duty is a unit of periodic work. A returned error is logged and reported
// on the error channel; it never stops the duty's schedule.
type Duty func(ctx context.Context) error

type intervalDuty struct {
	name  string
	every time.Duration
	run   Duty
}

// CronDuty is a duty that fires on a cron schedule.
type CronDuty struct {
	Schedule cron.Schedule
	Run      Duty
}

type cronEntry struct {
	name     string
	schedule cron.Schedule
	next     time.Time
	run      Duty
}

// Scheduler drives interval and cron duties from a single lifecycle.
// Interval duties are registered before Start; cron duties may be replaced
// at any time via ReplaceCrons when the configuration changes.
type Scheduler struct {
	mu        sync.Mutex
	intervals []intervalDuty
	crons     map[string]*cronEntry

	logger *zap.Logger
	now    func() time.Time
	errs   chan error

	cancel context.CancelFunc
	pool   *pool.ContextPool
}

// New creates an idle scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		crons:  make(map[string]*cronEntry),
		logger: logger.Named("scheduler"),
		now:    time.Now,
		errs:   make(chan error, 16),
	}
}

// Errors exposes duty failures for process-level monitoring. The channel is
// buffered; when nobody drains it, further reports are dropped rather than
// blocking duty loops.
func (s *Scheduler) Errors() <-chan error {
	return s.errs
}

// RegisterInterval adds a fixed-interval duty. Must be called before Start.
func (s *Scheduler) RegisterInterval(name string, every time.Duration, duty Duty) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.intervals = append(s.intervals, intervalDuty{name: name, every: every, run: duty})
}

// ReplaceCrons atomically swaps the cron duty set. Fire times for every
// entry are recomputed from now, so calling twice with the same input is
// harmless.
func (s *Scheduler) ReplaceCrons(duties map[string]CronDuty) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.crons = make(map[string]*cronEntry, len(duties))
	for name, duty := range duties {
		s.crons[name] = &cronEntry{
			name:     name,
			schedule: duty.Schedule,
			next:     duty.Schedule.Next(now),
			run:      duty.Run,
		}
	}

	s.logger.Debug("Replaced cron duties", zap.Int("count", len(duties)))
}

// Start launches one goroutine per interval duty plus the cron loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.pool = pool.New().WithContext(ctx)

	s.mu.Lock()
	intervals := make([]intervalDuty, len(s.intervals))
	copy(intervals, s.intervals)
	s.mu.Unlock()

	for _, duty := range intervals {
		s.pool.Go(func(ctx context.Context) error {
			s.runIntervalLoop(ctx, duty)
			return nil
		})
	}

	s.pool.Go(func(ctx context.Context) error {
		s.runCronLoop(ctx)
		return nil
	})

	s.logger.Info("Scheduler started", zap.Int("interval_duties", len(intervals)))
}

// Stop cancels all duty loops and waits for in-flight duty runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}

	s.cancel()
	_ = s.pool.Wait()

	s.logger.Info("Scheduler stopped")
}

// runIntervalLoop fires a duty every interval until the context ends.
func (s *Scheduler) runIntervalLoop(ctx context.Context, duty intervalDuty) {
	ticker := time.NewTicker(duty.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDuty(ctx, duty.name, duty.run)
		}
	}
}

// runCronLoop checks cron entries at a fixed resolution and fires those
// that came due. Entries are collected under the lock but run outside it so
// a slow duty cannot block ReplaceCrons.
func (s *Scheduler) runCronLoop(ctx context.Context) {
	ticker := time.NewTicker(cronResolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, entry := range s.collectDue() {
				s.runDuty(ctx, entry.name, entry.run)
			}
		}
	}
}

// collectDue advances and returns every cron entry whose fire time passed.
func (s *Scheduler) collectDue() []*cronEntry {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*cronEntry

	for _, entry := range s.crons {
		if entry.next.After(now) {
			continue
		}

		entry.next = entry.schedule.Next(now)
		due = append(due, entry)
	}

	return due
}

// runDuty executes one duty invocation. Failures are logged with the run ID
// and reported on the error channel; one bad run never takes the schedule
// down.
func (s *Scheduler) runDuty(ctx context.Context, name string, duty Duty) {
	runID := uuid.New().String()

	start := s.now()
	if err := duty(ctx); err != nil {
		s.logger.Error("Duty failed",
			zap.String("duty", name),
			zap.String("run_id", runID),
			zap.Error(err))

		select {
		case s.errs <- fmt.Errorf("duty %s failed: %w", name, err):
		default:
		}

		return
	}

	s.logger.Debug("Duty completed",
		zap.String("duty", name),
		zap.String("run_id", runID),
		zap.Duration("elapsed", s.now().Sub(start)))
}
