package jobs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Extazy1/ezmark/internal/defra"
)

// Scheduler coordinates jobs and worker pools. Jobs emit work units;
// the scheduler routes each unit to its pool and feeds results back
// into the owning job via OnComplete, enqueueing any follow-up units.
// One pool per provider bounds concurrent recognition fan-out.
type Scheduler struct {
	mu      sync.RWMutex
	pools   map[string]WorkerPool // pools by name
	cpuPool *CPUWorkerPool
	jobs    map[string]Job // active jobs by record ID
	pending map[string]int // jobID -> count of pending work units

	factories map[string]JobFactory // job type -> factory, for resume

	// Results channel shared by all pools (workers -> scheduler)
	results chan workerResult

	manager *Manager    // optional persistence
	sink    *defra.Sink // optional async metrics writes
	logger  *slog.Logger

	running bool
	ctx     context.Context
}

// SchedulerConfig configures a new scheduler.
type SchedulerConfig struct {
	Manager       *Manager    // Optional: persistence for job records
	Sink          *defra.Sink // Optional: metrics writes from provider pools
	Logger        *slog.Logger
	ResultsBuffer int // Size of shared results channel buffer (default 1000)
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bufSize := cfg.ResultsBuffer
	if bufSize <= 0 {
		bufSize = 1000
	}

	return &Scheduler{
		pools:     make(map[string]WorkerPool),
		jobs:      make(map[string]Job),
		pending:   make(map[string]int),
		factories: make(map[string]JobFactory),
		results:   make(chan workerResult, bufSize),
		manager:   cfg.Manager,
		sink:      cfg.Sink,
		logger:    logger,
	}
}

// Run starts all registered pools and processes results until ctx is
// cancelled. Call this in a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.ctx = ctx
	pools := make([]WorkerPool, 0, len(s.pools))
	for _, p := range s.pools {
		pools = append(pools, p)
	}
	s.mu.Unlock()

	for _, p := range pools {
		go p.Start(ctx)
	}

	s.logger.Info("scheduler started", "pools", len(pools))

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.logger.Info("scheduler stopping")
			return

		case res := <-s.results:
			s.handleResult(ctx, res)
		}
	}
}

// handleResult feeds a work result back into its job and enqueues any
// follow-up units. Runs on the scheduler goroutine, so OnComplete
// calls are serialized.
func (s *Scheduler) handleResult(ctx context.Context, res workerResult) {
	s.mu.Lock()
	job, ok := s.jobs[res.JobID]
	if ok {
		s.pending[res.JobID]--
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("received result for unknown job", "job_id", res.JobID)
		return
	}

	newUnits, err := job.OnComplete(ctx, res.Result)
	if err != nil {
		s.logger.Error("job failed", "job_id", res.JobID, "type", job.Type(), "error", err)
		s.mu.Lock()
		delete(s.jobs, res.JobID)
		delete(s.pending, res.JobID)
		s.mu.Unlock()
		if s.manager != nil {
			if uerr := s.manager.UpdateStatus(ctx, res.JobID, StatusFailed, err.Error()); uerr != nil {
				s.logger.Warn("failed to mark job failed", "job_id", res.JobID, "error", uerr)
			}
		}
		return
	}

	if len(newUnits) > 0 {
		s.enqueueUnits(res.JobID, newUnits)
	}

	// Check if job is done
	s.mu.Lock()
	pendingCount := s.pending[res.JobID]
	isDone := job.Done() && pendingCount == 0
	if isDone {
		delete(s.jobs, res.JobID)
		delete(s.pending, res.JobID)
	}
	s.mu.Unlock()

	if isDone {
		s.logger.Info("job completed", "job_id", job.ID(), "type", job.Type())
		if s.manager != nil {
			if err := s.manager.UpdateStatus(ctx, job.ID(), StatusCompleted, ""); err != nil {
				s.logger.Warn("failed to mark job completed", "job_id", job.ID(), "error", err)
			}
		}
	}
}
