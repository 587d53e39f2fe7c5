package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/Extazy1/ezmark/internal/defra"
	"github.com/Extazy1/ezmark/internal/providers"
)

// Recorder handles recording metrics to DefraDB.
type Recorder struct {
	client *defra.Client
}

// NewRecorder creates a new metrics recorder.
func NewRecorder(client *defra.Client) *Recorder {
	return &Recorder{client: client}
}

// RecordOpts provides context for a metric recording.
type RecordOpts struct {
	JobID       string
	ScheduleID  string
	Stage       string
	ItemKey     string // e.g., "paper_0003_header"
	OutputDocID string // Stable doc reference
	OutputCID   string // Version-specific (from doc.Head().String())
	OutputType  string // Collection name (e.g., "AnswerRecord")
}

// Record stores a single metric in DefraDB.
func (r *Recorder) Record(ctx context.Context, m Metric) (string, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return r.client.Create(ctx, "Metric", m.ToMap())
}

// RecordLLMCall records metrics from a recognition chat result.
func (r *Recorder) RecordLLMCall(ctx context.Context, opts RecordOpts, result *providers.ChatResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil chat result")
	}

	m := Metric{
		JobID:      opts.JobID,
		ScheduleID: opts.ScheduleID,
		Stage:      opts.Stage,
		ItemKey:    opts.ItemKey,

		OutputDocID: opts.OutputDocID,
		OutputCID:   opts.OutputCID,
		OutputType:  opts.OutputType,

		Provider: result.Provider,
		Model:    result.ModelUsed,

		CostUSD:          result.CostUSD,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		ReasoningTokens:  result.ReasoningTokens,
		TotalTokens:      result.TotalTokens,

		QueueSeconds:     result.QueueTime.Seconds(),
		ExecutionSeconds: result.ExecutionTime.Seconds(),
		TotalSeconds:     result.TotalTime.Seconds(),

		Success:   result.Success,
		ErrorType: result.ErrorType,

		CreatedAt: time.Now(),
	}

	return r.Record(ctx, m)
}

// RecordError records a failed operation as a metric.
func (r *Recorder) RecordError(ctx context.Context, opts RecordOpts, provider, model, errorType string, duration time.Duration) (string, error) {
	m := Metric{
		JobID:      opts.JobID,
		ScheduleID: opts.ScheduleID,
		Stage:      opts.Stage,
		ItemKey:    opts.ItemKey,

		Provider: provider,
		Model:    model,

		TotalSeconds: duration.Seconds(),

		Success:   false,
		ErrorType: errorType,

		CreatedAt: time.Now(),
	}

	return r.Record(ctx, m)
}
