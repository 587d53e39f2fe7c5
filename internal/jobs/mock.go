package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Extazy1/ezmark/internal/providers"
)

const MockJobType = "mock"

// MockJob is a simple job for testing the job system.
// It creates N work units and tracks their completion.
type MockJob struct {
	id         string
	workUnits  int
	unitType   WorkUnitType
	provider   string
	shouldFail bool

	mu        sync.Mutex
	started   bool
	completed int
	results   []WorkResult
}

// MockJobConfig configures a mock job.
type MockJobConfig struct {
	ID         string       // Job ID (auto-generated if empty)
	WorkUnits  int          // Number of work units to create
	UnitType   WorkUnitType // Type of work units (default: LLM)
	Provider   string       // Provider to use (empty = any)
	ShouldFail bool         // If true, job fails after all work completes
}

// NewMockJob creates a new mock job with default settings.
func NewMockJob(cfg MockJobConfig) *MockJob {
	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}
	unitType := cfg.UnitType
	if unitType == "" {
		unitType = WorkUnitTypeLLM
	}
	workUnits := cfg.WorkUnits
	if workUnits <= 0 {
		workUnits = 5
	}

	return &MockJob{
		id:         id,
		workUnits:  workUnits,
		unitType:   unitType,
		provider:   cfg.Provider,
		shouldFail: cfg.ShouldFail,
	}
}

func (j *MockJob) ID() string {
	return j.id
}

// SetRecordID sets the persisted record ID.
func (j *MockJob) SetRecordID(id string) {
	j.id = id
}

func (j *MockJob) Type() string {
	return MockJobType
}

// Start creates initial work units.
func (j *MockJob) Start(ctx context.Context) ([]WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil, fmt.Errorf("job already started")
	}
	j.started = true

	units := make([]WorkUnit, j.workUnits)
	for i := 0; i < j.workUnits; i++ {
		units[i] = WorkUnit{
			ID:       fmt.Sprintf("%s-unit-%d", j.id, i),
			Type:     j.unitType,
			Provider: j.provider,
			JobID:    j.id,
		}

		if j.unitType == WorkUnitTypeLLM {
			units[i].ChatRequest = &providers.ChatRequest{
				Messages: []providers.Message{
					{Role: "user", Content: fmt.Sprintf("Mock request %d", i)},
				},
			}
		} else {
			units[i].CPURequest = &CPUWorkRequest{
				Task:    "mock",
				Payload: map[string]any{"index": i},
			}
		}
	}

	return units, nil
}

// OnComplete handles work unit completion.
func (j *MockJob) OnComplete(ctx context.Context, result WorkResult) ([]WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.completed++
	j.results = append(j.results, result)

	if j.shouldFail && j.completed >= j.workUnits {
		return nil, fmt.Errorf("mock job failure")
	}

	// MockJob doesn't create follow-up work
	return nil, nil
}

// Done returns true when all work is complete.
func (j *MockJob) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.started && j.completed >= j.workUnits
}

// Status returns current progress.
func (j *MockJob) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return map[string]string{
		"completed": fmt.Sprintf("%d", j.completed),
		"total":     fmt.Sprintf("%d", j.workUnits),
		"started":   fmt.Sprintf("%t", j.started),
		"done":      fmt.Sprintf("%t", j.started && j.completed >= j.workUnits),
	}, nil
}

// Results returns all collected results (for testing).
func (j *MockJob) Results() []WorkResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.results
}

// Verify interface
var _ Job = (*MockJob)(nil)

// CountingJob is a simple job that counts work unit completions.
// Useful for testing the scheduler.
type CountingJob struct {
	id        string
	total     int
	completed atomic.Int32
	done      atomic.Bool
}

func NewCountingJob(id string, total int) *CountingJob {
	if id == "" {
		id = uuid.New().String()
	}
	return &CountingJob{
		id:    id,
		total: total,
	}
}

func (j *CountingJob) ID() string            { return j.id }
func (j *CountingJob) SetRecordID(id string) { j.id = id }
func (j *CountingJob) Type() string          { return "counting" }

func (j *CountingJob) Start(ctx context.Context) ([]WorkUnit, error) {
	units := make([]WorkUnit, j.total)
	for i := 0; i < j.total; i++ {
		units[i] = WorkUnit{
			ID:   fmt.Sprintf("%s-unit-%d", j.id, i),
			Type: WorkUnitTypeLLM,
			ChatRequest: &providers.ChatRequest{
				Messages: []providers.Message{
					{Role: "user", Content: "test"},
				},
			},
		}
	}
	return units, nil
}

func (j *CountingJob) OnComplete(ctx context.Context, result WorkResult) ([]WorkUnit, error) {
	j.completed.Add(1)
	if int(j.completed.Load()) >= j.total {
		j.done.Store(true)
	}
	return nil, nil
}

func (j *CountingJob) Done() bool {
	return j.done.Load()
}

func (j *CountingJob) Status(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		"completed": fmt.Sprintf("%d", j.completed.Load()),
		"total":     fmt.Sprintf("%d", j.total),
	}, nil
}

func (j *CountingJob) Completed() int {
	return int(j.completed.Load())
}

var _ Job = (*CountingJob)(nil)

// TwoPhaseJob simulates a real grading workflow: CPU decomposition
// units first, then recognition units created as each CPU unit
// completes. This exercises dynamic work unit creation via OnComplete.
type TwoPhaseJob struct {
	id          string
	cpuUnits    int
	llmPerCPU   int
	llmProvider string

	mu           sync.Mutex
	started      bool
	cpuCompleted int
	llmCompleted int
	llmCreated   int
	failedUnits  []string
}

// TwoPhaseJobConfig configures a two-phase job.
type TwoPhaseJobConfig struct {
	CPUUnits    int    // Number of CPU units in phase 1 (default 5)
	LLMPerCPU   int    // Recognition units per CPU completion (default 1)
	LLMProvider string // Specific provider (empty = any)
}

// NewTwoPhaseJob creates a job that simulates a decompose-then-recognize workflow.
func NewTwoPhaseJob(cfg TwoPhaseJobConfig) *TwoPhaseJob {
	cpuUnits := cfg.CPUUnits
	if cpuUnits <= 0 {
		cpuUnits = 5
	}
	llmPerCPU := cfg.LLMPerCPU
	if llmPerCPU <= 0 {
		llmPerCPU = 1
	}

	return &TwoPhaseJob{
		cpuUnits:    cpuUnits,
		llmPerCPU:   llmPerCPU,
		llmProvider: cfg.LLMProvider,
	}
}

func (j *TwoPhaseJob) ID() string            { return j.id }
func (j *TwoPhaseJob) SetRecordID(id string) { j.id = id }
func (j *TwoPhaseJob) Type() string          { return "two-phase" }

// Start returns the initial CPU work units.
func (j *TwoPhaseJob) Start(ctx context.Context) ([]WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil, fmt.Errorf("job already started")
	}
	j.started = true

	units := make([]WorkUnit, j.cpuUnits)
	for i := 0; i < j.cpuUnits; i++ {
		units[i] = WorkUnit{
			ID:    fmt.Sprintf("%s-cpu-%d", j.id, i),
			Type:  WorkUnitTypeCPU,
			JobID: j.id,
			CPURequest: &CPUWorkRequest{
				Task:    "mock",
				Payload: map[string]any{"index": i},
			},
		}
	}

	return units, nil
}

// OnComplete creates recognition units when a CPU unit finishes.
func (j *TwoPhaseJob) OnComplete(ctx context.Context, result WorkResult) ([]WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !result.Success {
		j.failedUnits = append(j.failedUnits, result.WorkUnitID)
		return nil, nil // No follow-up work for failures
	}

	if result.CPUResult != nil {
		j.cpuCompleted++

		units := make([]WorkUnit, j.llmPerCPU)
		for i := 0; i < j.llmPerCPU; i++ {
			units[i] = WorkUnit{
				ID:       fmt.Sprintf("%s-llm-%d-%d", j.id, j.cpuCompleted-1, i),
				Type:     WorkUnitTypeLLM,
				Provider: j.llmProvider,
				JobID:    j.id,
				ChatRequest: &providers.ChatRequest{
					Messages: []providers.Message{
						{Role: "user", Content: fmt.Sprintf("Recognize region %d", j.cpuCompleted)},
					},
				},
			}
			j.llmCreated++
		}
		return units, nil
	}

	if result.ChatResult != nil {
		j.llmCompleted++
	}

	return nil, nil
}

// Done returns true when all work is complete.
func (j *TwoPhaseJob) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.isDone()
}

// isDone assumes the lock is held.
func (j *TwoPhaseJob) isDone() bool {
	expectedLLM := j.cpuCompleted * j.llmPerCPU
	return j.started && j.cpuCompleted+len(j.failedUnits) >= j.cpuUnits && j.llmCompleted >= expectedLLM
}

// Status returns current progress.
func (j *TwoPhaseJob) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return map[string]string{
		"cpu_completed": fmt.Sprintf("%d", j.cpuCompleted),
		"cpu_total":     fmt.Sprintf("%d", j.cpuUnits),
		"llm_completed": fmt.Sprintf("%d", j.llmCompleted),
		"llm_created":   fmt.Sprintf("%d", j.llmCreated),
		"failed":        fmt.Sprintf("%d", len(j.failedUnits)),
		"done":          fmt.Sprintf("%t", j.isDone()),
	}, nil
}

// Stats returns detailed statistics for testing.
func (j *TwoPhaseJob) Stats() (cpuCompleted, llmCompleted, failed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cpuCompleted, j.llmCompleted, len(j.failedUnits)
}

var _ Job = (*TwoPhaseJob)(nil)
