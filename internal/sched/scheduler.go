// Package sched provides a persistent in-process job scheduler. Jobs are
// durably recorded in a jobstore.Store before a timer is armed, so pending
// work survives process restarts; handlers are re-attached by job kind on
// Start.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gatekeepbot/gatekeep/internal/jobstore"
	"github.com/gatekeepbot/gatekeep/internal/telemetry"
)

// Sentinel errors for scheduler operations.
var (
	// ErrJobExists indicates Schedule hit an id that is already pending.
	// Expected on duplicate events; the existing timer is left untouched.
	ErrJobExists = errors.New("sched: job already scheduled")

	// ErrUnknownKind indicates a job names a kind with no registered handler.
	ErrUnknownKind = errors.New("sched: no handler registered for job kind")

	// ErrStarted indicates a handler registration after Start.
	ErrStarted = errors.New("sched: scheduler already started")
)

// Handler executes a job body. The payload is passed by value; the job row
// may already be gone from the store by the time the handler runs.
type Handler func(ctx context.Context, payload map[string]any) error

// Scheduler arms one in-process timer per pending job and keeps the timer
// set consistent with the job store. Firing and cancellation of the same
// id are mutually exclusive: a cancel racing a firing either disarms the
// timer before the body is committed, or observes the row already deleted
// and reports not-found.
type Scheduler struct {
	store   jobstore.Store
	logger  *slog.Logger
	parser  cron.Parser
	clock   func() time.Time

	mu       sync.Mutex
	handlers map[string]Handler
	timers   map[string]*time.Timer
	started  bool

	wg sync.WaitGroup
}

// New creates a scheduler over the given store. Handlers must be
// registered before Start.
func New(store jobstore.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		logger:   logger,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		clock:    time.Now,
		handlers: make(map[string]Handler),
		timers:   make(map[string]*time.Timer),
	}
}

// RegisterHandler binds a job kind to its body. Must be called before
// Start so persisted jobs can be re-attached on recovery.
func (s *Scheduler) RegisterHandler(kind string, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}
	if _, exists := s.handlers[kind]; exists {
		return fmt.Errorf("sched: duplicate handler kind %q", kind)
	}
	s.handlers[kind] = h
	return nil
}

// Schedule persists a job and arms its timer. If the id is already
// pending it returns ErrJobExists and leaves the existing job and timer
// untouched, so a duplicate event cannot reset the clock.
func (s *Scheduler) Schedule(ctx context.Context, id, kind string, trigger jobstore.Trigger, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handlers[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	next, err := s.nextRun(trigger, s.clock())
	if err != nil {
		return err
	}

	job := jobstore.Job{
		ID:      id,
		Kind:    kind,
		Trigger: trigger,
		Payload: payload,
		NextRun: next,
	}

	if err := s.store.Put(ctx, job, jobstore.ModeConflict); err != nil {
		if errors.Is(err, jobstore.ErrConflict) {
			telemetry.JobsConflicted.Inc()
			return fmt.Errorf("%w: %s", ErrJobExists, id)
		}
		return err
	}

	if s.started {
		s.arm(id, next)
	}

	telemetry.JobsScheduled.Inc()
	s.logger.Info("sched: job scheduled", "job", id, "kind", kind, "next_run", next)
	return nil
}

// Cancel removes a job and disarms its timer. The bool reports whether
// the job still existed; false means it already fired or was cancelled,
// which callers treat as "already resolved".
func (s *Scheduler) Cancel(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
		telemetry.JobsPending.Dec()
	}

	existed, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if existed {
		telemetry.JobsCancelled.Inc()
		s.logger.Info("sched: job cancelled", "job", id)
	}
	return existed, nil
}

// Get returns the pending job with the given id, or jobstore.ErrNotFound.
func (s *Scheduler) Get(ctx context.Context, id string) (*jobstore.Job, error) {
	return s.store.Get(ctx, id)
}

// Pending returns the number of currently armed jobs.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Start loads persisted jobs and arms a timer for each. Jobs whose
// deadline passed while the process was down fire immediately, once, in
// arbitrary order.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}

	jobs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("sched: load persisted jobs: %w", err)
	}

	s.started = true

	restored := 0
	for _, job := range jobs {
		if _, ok := s.handlers[job.Kind]; !ok {
			s.logger.Error("sched: persisted job has unknown kind, leaving row for inspection",
				"job", job.ID, "kind", job.Kind)
			continue
		}
		s.arm(job.ID, job.NextRun)
		restored++
	}

	s.logger.Info("sched: scheduler started", "restored", restored)
	return nil
}

// Shutdown disarms all timers without deleting persisted rows, then waits
// for in-flight job bodies to finish. A later Start resumes the jobs.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		telemetry.JobsPending.Dec()
	}
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("sched: scheduler stopped")
}

// arm registers an in-process timer for the job. Callers hold s.mu.
func (s *Scheduler) arm(id string, at time.Time) {
	delay := at.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	telemetry.JobsPending.Inc()
}

// fire runs when a timer matures. Under the lock it decides ownership
// against concurrent Cancel calls, removes one-shot rows before the body
// runs (at-most-once: a crash between delete and body completion loses
// the run, an accepted risk), and re-arms recurring triggers. The body
// itself runs outside the lock.
func (s *Scheduler) fire(id string) {
	ctx := context.Background()

	s.mu.Lock()
	if _, ok := s.timers[id]; !ok {
		// Cancelled or shut down after the timer matured.
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	telemetry.JobsPending.Dec()

	job, err := s.store.Get(ctx, id)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("sched: load firing job failed", "job", id, "error", err)
		return
	}

	if job.Trigger.Kind == jobstore.TriggerAt {
		if _, err := s.store.Delete(ctx, id); err != nil {
			s.mu.Unlock()
			s.logger.Error("sched: delete one-shot job failed, body not run", "job", id, "error", err)
			return
		}
	} else {
		next, err := s.nextRun(job.Trigger, s.clock())
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("sched: recompute next run failed", "job", id, "error", err)
			return
		}
		job.NextRun = next
		if err := s.store.Put(ctx, *job, jobstore.ModeReplace); err != nil {
			s.logger.Error("sched: advance recurring job failed", "job", id, "error", err)
		}
		s.arm(id, next)
	}

	handler := s.handlers[job.Kind]
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	telemetry.JobsFired.Inc()
	s.logger.Info("sched: job firing", "job", id, "kind", job.Kind)
	if err := handler(ctx, job.Payload); err != nil {
		s.logger.Error("sched: job body failed", "job", id, "kind", job.Kind, "error", err)
	} else {
		s.logger.Debug("sched: job completed", "job", id, "kind", job.Kind)
	}
}

// nextRun computes the next activation time for a trigger.
func (s *Scheduler) nextRun(trigger jobstore.Trigger, from time.Time) (time.Time, error) {
	switch trigger.Kind {
	case jobstore.TriggerAt:
		if trigger.At.IsZero() {
			return time.Time{}, errors.New("sched: at-trigger requires a time")
		}
		return trigger.At, nil
	case jobstore.TriggerEvery:
		if trigger.Every <= 0 {
			return time.Time{}, fmt.Errorf("sched: every-trigger requires a positive interval, got %s", trigger.Every)
		}
		return from.Add(trigger.Every), nil
	case jobstore.TriggerCron:
		schedule, err := s.parser.Parse(trigger.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("sched: invalid cron expression %q: %w", trigger.Cron, err)
		}
		return schedule.Next(from), nil
	default:
		return time.Time{}, fmt.Errorf("sched: unknown trigger kind %q", trigger.Kind)
	}
}
