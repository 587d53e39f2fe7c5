// Package jobs provides the work scheduler for grading pipelines.
// Jobs describe WHAT to do as work units; worker pools decide WHEN
// each unit runs, bounded by per-provider rate limits and worker counts.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Extazy1/ezmark/internal/defra"
)

// Job is the interface all pipeline stage jobs implement.
// Jobs emit work units from Start, then react to completions in
// OnComplete, possibly emitting follow-up units. The scheduler owns
// dispatch; jobs never block on work execution themselves.
type Job interface {
	// ID returns the persisted record ID. Empty until SetRecordID is called.
	ID() string

	// SetRecordID sets the DefraDB record ID after persistence.
	SetRecordID(id string)

	// Type returns the job type identifier (e.g. "decompose", "objective").
	Type() string

	// Start returns the initial work units.
	//
	// Start must be idempotent. Jobs may be resumed after server
	// restarts, so implementations check existing state and only emit
	// units for work not already done.
	Start(ctx context.Context) ([]WorkUnit, error)

	// OnComplete handles a finished work unit and may return follow-up
	// units. Called serially per job by the scheduler loop.
	OnComplete(ctx context.Context, result WorkResult) ([]WorkUnit, error)

	// Done reports whether all work has completed.
	Done() bool

	// Status returns the current status as key-value pairs for
	// progress reporting. Returns nil map if nothing to report.
	Status(ctx context.Context) (map[string]string, error)
}

// JobFactory recreates a job from its persisted record for resumption.
type JobFactory func(id string, metadata map[string]any) (Job, error)

var (
	// ErrWorkerQueueFull is returned when a pool cannot accept more work.
	ErrWorkerQueueFull = errors.New("worker queue full")

	// ErrManagerRequired is returned by operations that need persistence.
	ErrManagerRequired = errors.New("job manager required")
)

// Dependencies provides access to shared resources for job execution.
type Dependencies struct {
	DefraClient *defra.Client
	Logger      *slog.Logger
}

// depsKey is the context key for Dependencies.
type depsKey struct{}

// ContextWithDeps returns a new context with Dependencies attached.
func ContextWithDeps(ctx context.Context, deps Dependencies) context.Context {
	return context.WithValue(ctx, depsKey{}, deps)
}

// DepsFromContext retrieves Dependencies from the context.
// Returns a Dependencies with nil fields if not found.
func DepsFromContext(ctx context.Context) Dependencies {
	deps, ok := ctx.Value(depsKey{}).(Dependencies)
	if !ok {
		return Dependencies{}
	}
	return deps
}

// Status represents the current state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Record represents a job record stored in DefraDB.
// This maps to the Job schema.
type Record struct {
	ID          string         `json:"_docID,omitempty"`
	JobType     string         `json:"job_type"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewRecord creates a new job record for submission.
func NewRecord(jobType string, metadata map[string]any) *Record {
	return &Record{
		JobType:   jobType,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
	}
}
