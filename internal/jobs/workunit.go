package jobs

import (
	"time"

	"github.com/Extazy1/ezmark/internal/providers"
)

// WorkUnitType identifies what kind of worker a unit needs.
type WorkUnitType string

const (
	// WorkUnitTypeLLM is a recognition call against a vision model.
	WorkUnitTypeLLM WorkUnitType = "llm"

	// WorkUnitTypeCPU is local CPU-bound work (PDF split, image render, scoring).
	WorkUnitTypeCPU WorkUnitType = "cpu"
)

// WorkUnit is a single schedulable piece of work emitted by a job.
type WorkUnit struct {
	ID       string       // Unique within the job (e.g. "jobid-paper-3-q-5")
	JobID    string       // Set by the scheduler on enqueue
	Type     WorkUnitType // Routes to LLM or CPU pool
	Provider string       // Specific provider pool (empty = default)
	Priority int          // Higher values dequeue first

	// LLM work
	ChatRequest *providers.ChatRequest
	Tools       []providers.Tool

	// CPU work
	CPURequest *CPUWorkRequest

	// Attribution for cost/usage metrics (nil = not recorded)
	Metrics *WorkUnitMetrics
}

// WorkUnitMetrics attributes a work unit to a schedule and stage for
// cost tracking.
type WorkUnitMetrics struct {
	ScheduleID string
	Stage      string // "header", "objective", "subjective", "decompose", "result"
	ItemKey    string // e.g. "paper_0003_header", "paper_0003_q_05"
}

// WorkResult is the outcome of a processed work unit.
type WorkResult struct {
	WorkUnitID string
	Success    bool
	Error      error

	// Set for LLM units
	ChatResult *providers.ChatResult

	// Set for CPU units
	CPUResult *CPUWorkResult

	// Metric record written for this unit, when metrics are configured.
	// Jobs use it to link outputs back to the call that produced them.
	MetricDocID string
}

// CPUWorkRequest describes a CPU-bound task dispatched to the CPU pool.
// Task names map to handlers registered via RegisterCPUHandler.
type CPUWorkRequest struct {
	Task    string         // Handler name (e.g. "pdf_split", "page_render")
	Payload map[string]any // Task-specific inputs
}

// CPUWorkResult is the outcome of a CPU task.
type CPUWorkResult struct {
	Success       bool
	Output        map[string]any
	ErrorMessage  string
	ExecutionTime time.Duration
}
