// Package jobstore defines the durable job ledger used by the scheduler.
// Jobs survive process restarts; the SQLite-backed implementation is the
// only on-disk state the bot owns.
package jobstore

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrConflict indicates a Put in ModeConflict hit an existing job id.
	ErrConflict = errors.New("jobstore: job id already exists")

	// ErrNotFound indicates the requested job does not exist.
	ErrNotFound = errors.New("jobstore: job not found")

	// ErrUnavailable wraps persistence I/O failures. Callers may retry;
	// a failed Put for a new job means "job not guaranteed scheduled".
	ErrUnavailable = errors.New("jobstore: store unavailable")
)

// TriggerKind discriminates the timing rule of a Trigger.
type TriggerKind string

// Supported trigger kinds.
const (
	TriggerAt    TriggerKind = "at"
	TriggerEvery TriggerKind = "every"
	TriggerCron  TriggerKind = "cron"
)

// Trigger is the timing rule governing when a job fires: a one-shot
// point in time, a fixed interval, or a cron expression.
type Trigger struct {
	Kind  TriggerKind
	At    time.Time     // TriggerAt only
	Every time.Duration // TriggerEvery only
	Cron  string        // TriggerCron only, 5-field expression
}

// At returns a one-shot trigger firing at t.
func At(t time.Time) Trigger {
	return Trigger{Kind: TriggerAt, At: t.UTC()}
}

// Every returns a recurring trigger firing every d, starting d from now.
func Every(d time.Duration) Trigger {
	return Trigger{Kind: TriggerEvery, Every: d}
}

// Cron returns a recurring trigger driven by a 5-field cron expression.
func Cron(expr string) Trigger {
	return Trigger{Kind: TriggerCron, Cron: expr}
}

// Job is a scheduled unit of work. Kind names a handler registered with
// the scheduler; the handler is re-attached after a restart, so no
// function value is ever persisted.
type Job struct {
	ID      string
	Kind    string
	Trigger Trigger
	Payload map[string]any

	// NextRun is the next activation time, zero once exhausted.
	NextRun   time.Time
	CreatedAt time.Time
}

// PutMode controls how Put treats an existing job id.
type PutMode int

const (
	// ModeConflict rejects a Put on an existing id with ErrConflict.
	// The scheduler uses this for one-shot jobs so a duplicate event
	// cannot clobber an in-flight timer.
	ModeConflict PutMode = iota

	// ModeReplace overwrites an existing row. Used to advance NextRun
	// on recurring jobs.
	ModeReplace
)

// Store is the durable job ledger. All operations are safe for
// concurrent use from the scheduler's firing goroutines and the
// webhook-triggered cancellation paths.
type Store interface {
	Put(ctx context.Context, job Job, mode PutMode) error
	Get(ctx context.Context, id string) (*Job, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Job, error)
}
