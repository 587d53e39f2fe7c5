package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Extazy1/ezmark/internal/defra"
	"github.com/Extazy1/ezmark/internal/metrics"
	"github.com/Extazy1/ezmark/internal/providers"
)

// ProviderWorkerPool manages a pool of workers for a single recognition provider.
// Uses the dispatcher pattern: a single dispatcher goroutine owns the rate limiter
// and distributes work to N worker goroutines that execute without rate limit awareness.
// Work units are processed by priority (high priority first).
type ProviderWorkerPool struct {
	name string

	client providers.LLMClient

	// Rate limiting (owned by dispatcher)
	rateLimiter *providers.RateLimiter

	// Logging
	logger *slog.Logger

	// Priority queue (jobs submit here)
	queue *PriorityQueue

	// Internal work channel (dispatcher -> workers)
	work chan *WorkUnit

	// Results channel (workers -> scheduler)
	results chan<- workerResult

	// Configuration
	workerCount int

	// In-flight tracking
	inFlight atomic.Int32

	// Metrics sink (optional)
	sink *defra.Sink
}

// ProviderWorkerPoolConfig configures a new provider worker pool.
type ProviderWorkerPoolConfig struct {
	Name   string
	Logger *slog.Logger

	Client providers.LLMClient

	// Rate limiting (requests per second)
	// If 0, uses the client's configured value
	RPS float64

	// Number of worker goroutines
	// If 0, uses providers.DefaultMaxConcurrency
	WorkerCount int

	// Sink for async metrics writes (optional)
	Sink *defra.Sink
}

// NewProviderWorkerPool creates a new provider worker pool.
func NewProviderWorkerPool(cfg ProviderWorkerPoolConfig) (*ProviderWorkerPool, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("must provide a recognition client")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &ProviderWorkerPool{
		name:   cfg.Name,
		client: cfg.Client,
		sink:   cfg.Sink,
	}
	if p.name == "" {
		p.name = cfg.Client.Name()
	}

	rps := cfg.RPS
	if rps == 0 {
		if rl, ok := cfg.Client.(interface{ RequestsPerSecond() float64 }); ok {
			rps = rl.RequestsPerSecond()
		}
		if rps == 0 {
			rps = 1.0
		}
	}

	workerCount := cfg.WorkerCount
	if workerCount == 0 {
		workerCount = providers.DefaultMaxConcurrency
	}

	p.rateLimiter = providers.NewRateLimiter(rps)
	p.workerCount = workerCount
	p.logger = logger.With("pool", p.name, "type", PoolTypeLLM, "workers", workerCount, "rps", rps)

	return p, nil
}

// Name returns the pool name.
func (p *ProviderWorkerPool) Name() string {
	return p.name
}

// Type returns PoolTypeLLM.
func (p *ProviderWorkerPool) Type() PoolType {
	return PoolTypeLLM
}

// init initializes the priority queue and channels. Called by scheduler before Start.
func (p *ProviderWorkerPool) init(results chan<- workerResult) {
	p.queue = NewPriorityQueue()
	p.work = make(chan *WorkUnit, p.workerCount) // Buffered to avoid blocking dispatcher
	p.results = results
	p.logger.Debug("provider pool initialized")
}

// Start begins the pool's processing. Blocks until ctx cancelled.
func (p *ProviderWorkerPool) Start(ctx context.Context) {
	p.logger.Debug("provider pool started")

	// Start dispatcher (owns rate limiter)
	go p.dispatcher(ctx)

	// Start worker goroutines
	for i := 0; i < p.workerCount; i++ {
		go p.worker(ctx, i)
	}

	// Block until context cancelled
	<-ctx.Done()
	p.logger.Debug("provider pool stopping")
}

// dispatcher owns the rate limiter. Pulls from priority queue, waits for token, sends to work channel.
// Higher priority work units are processed first.
func (p *ProviderWorkerPool) dispatcher(ctx context.Context) {
	done := ctx.Done()
	for {
		// Pop blocks until an item is available or context is cancelled
		unit := p.queue.Pop(done)
		if unit == nil {
			// Context cancelled
			return
		}

		// Wait for rate limit token (only dispatcher does this)
		if err := p.rateLimiter.Wait(ctx); err != nil {
			// Context cancelled, send failure result
			p.results <- workerResult{
				JobID: unit.JobID,
				Unit:  unit,
				Result: WorkResult{
					WorkUnitID: unit.ID,
					Success:    false,
					Error:      fmt.Errorf("rate limit wait cancelled: %w", err),
				},
			}
			continue
		}

		// Send to work channel for workers to pick up
		p.inFlight.Add(1)
		select {
		case p.work <- unit:
			// Sent successfully
		case <-ctx.Done():
			p.inFlight.Add(-1)
			return
		}
	}
}

// worker processes work units from the work channel.
func (p *ProviderWorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return

		case unit, ok := <-p.work:
			if !ok || unit == nil {
				return
			}
			result := p.process(ctx, unit)
			p.inFlight.Add(-1)
			p.results <- workerResult{
				JobID:  unit.JobID,
				Unit:   unit,
				Result: result,
			}
		}
	}
}

// Submit adds a work unit to the pool's priority queue.
// Higher priority work units will be processed first.
// Returns an error if the pool is not initialized or unit is nil.
func (p *ProviderWorkerPool) Submit(unit *WorkUnit) error {
	if p.queue == nil {
		return fmt.Errorf("pool not initialized: call init() before Submit()")
	}
	return p.queue.Push(unit)
}

// Status returns current pool status with priority queue breakdown.
func (p *ProviderWorkerPool) Status() PoolStatus {
	rlStatus := p.rateLimiter.Status()
	queueStats := p.queue.Stats()
	return PoolStatus{
		Name:            p.name,
		Type:            string(PoolTypeLLM),
		Workers:         p.workerCount,
		InFlight:        int(p.inFlight.Load()),
		QueueDepth:      queueStats.Total,
		QueueByPriority: &queueStats,
		RateLimiter:     &rlStatus,
	}
}

// process executes a work unit with retry logic.
func (p *ProviderWorkerPool) process(ctx context.Context, unit *WorkUnit) WorkResult {
	result := WorkResult{
		WorkUnitID: unit.ID,
	}

	if unit.Type != WorkUnitTypeLLM {
		result.Success = false
		result.Error = fmt.Errorf("work unit type %s does not match pool type llm", unit.Type)
		return result
	}
	if unit.ChatRequest == nil {
		result.Success = false
		result.Error = fmt.Errorf("LLM work unit missing ChatRequest")
		return result
	}

	maxRetries := p.getMaxRetries()
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Rate limiting is handled by dispatcher, not here.

		var chatResult *providers.ChatResult
		var err error

		if len(unit.Tools) > 0 {
			chatResult, err = p.client.ChatWithTools(ctx, unit.ChatRequest, unit.Tools)
		} else {
			chatResult, err = p.client.Chat(ctx, unit.ChatRequest)
		}

		result.ChatResult = chatResult
		if err != nil {
			lastErr = err
			if p.isRetriableError(err) && attempt < maxRetries {
				p.logger.Debug("recognition request failed, retrying",
					"unit_id", unit.ID,
					"attempt", attempt+1,
					"max_attempts", maxRetries+1,
					"error", err)
				p.sleepBeforeRetry(ctx, err, attempt)
				continue
			}
			result.Success = false
			result.Error = err
		} else {
			result.Success = chatResult.Success
			if !chatResult.Success {
				resultErr := fmt.Errorf("%s: %s", chatResult.ErrorType, chatResult.ErrorMessage)
				if p.isRetriableResultError(chatResult) && attempt < maxRetries {
					lastErr = resultErr
					p.logger.Debug("recognition result error, retrying",
						"unit_id", unit.ID,
						"attempt", attempt+1,
						"max_attempts", maxRetries+1,
						"error_type", chatResult.ErrorType)
					p.sleepBeforeRetry(ctx, resultErr, attempt)
					continue
				}
				result.Error = resultErr
			}
		}

		break
	}

	// If we exhausted retries, set the last error
	if !result.Success && result.Error == nil && lastErr != nil {
		result.Error = fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
	}

	p.recordMetrics(ctx, unit, &result)

	if result.Success {
		p.logger.Debug("work unit completed", "unit_id", unit.ID)
	} else {
		p.logger.Warn("work unit failed", "unit_id", unit.ID, "error", result.Error)
	}

	return result
}

func (p *ProviderWorkerPool) getMaxRetries() int {
	if rc, ok := p.client.(interface{ MaxRetries() int }); ok {
		return rc.MaxRetries()
	}
	return 3
}

func (p *ProviderWorkerPool) isRetriableError(err error) bool {
	if err == nil {
		return false
	}

	// Check for structured RateLimitError
	if rle, ok := providers.IsRateLimitError(err); ok {
		p.rateLimiter.Record429(rle.RetryAfter)
		p.logger.Debug("rate limit hit, backing off", "retry_after", rle.RetryAfter)
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "status 500") ||
		strings.Contains(errStr, "status 502") ||
		strings.Contains(errStr, "status 503") ||
		strings.Contains(errStr, "status 504") {
		return true
	}
	if strings.Contains(errStr, "status 429") ||
		strings.Contains(errStr, "rate limit") {
		p.rateLimiter.Record429(5 * time.Second)
		return true
	}
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") {
		return true
	}
	return false
}

func (p *ProviderWorkerPool) isRetriableResultError(result *providers.ChatResult) bool {
	if result == nil {
		return false
	}
	return result.ErrorType == "json_parse"
}

func (p *ProviderWorkerPool) sleepBeforeRetry(ctx context.Context, err error, attempt int) {
	var delay time.Duration

	if rle, ok := providers.IsRateLimitError(err); ok && rle.RetryAfter > 0 {
		delay = rle.RetryAfter
		p.logger.Debug("sleeping for Retry-After duration", "delay", delay)
	} else {
		base := time.Duration(1000) * time.Millisecond
		delay = base * time.Duration(1<<uint(attempt))
		jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
		delay += jitter

		if delay > 30*time.Second {
			delay = 30*time.Second + jitter
		}
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (p *ProviderWorkerPool) recordMetrics(ctx context.Context, unit *WorkUnit, result *WorkResult) {
	if p.sink == nil {
		return
	}
	if unit.Metrics == nil {
		p.logger.Debug("recordMetrics: unit.Metrics is nil, skipping", "unit_id", unit.ID)
		return
	}

	m := &metrics.Metric{
		JobID:      unit.JobID,
		ScheduleID: unit.Metrics.ScheduleID,
		Stage:      unit.Metrics.Stage,
		ItemKey:    unit.Metrics.ItemKey,
		Success:    result.Success,
		CreatedAt:  time.Now(),
	}

	if result.ChatResult != nil {
		m.Provider = result.ChatResult.Provider
		m.Model = result.ChatResult.ModelUsed
		m.CostUSD = result.ChatResult.CostUSD
		m.PromptTokens = result.ChatResult.PromptTokens
		m.CompletionTokens = result.ChatResult.CompletionTokens
		m.ReasoningTokens = result.ChatResult.ReasoningTokens
		m.TotalTokens = result.ChatResult.TotalTokens
		m.QueueSeconds = result.ChatResult.QueueTime.Seconds()
		m.ExecutionSeconds = result.ChatResult.ExecutionTime.Seconds()
		m.TotalSeconds = result.ChatResult.TotalTime.Seconds()
		if !result.ChatResult.Success {
			m.ErrorType = result.ChatResult.ErrorType
		}
	}

	// Synchronous write so jobs can link outputs to the metric doc.
	writeResult, err := p.sink.SendSync(ctx, defra.WriteOp{
		Op:         defra.OpCreate,
		Collection: "Metric",
		Document:   m.ToMap(),
	})
	if err != nil {
		p.logger.Warn("recordMetrics: failed to persist metric",
			"unit_id", unit.ID,
			"error", err)
		return
	}
	result.MetricDocID = writeResult.DocID
}

// Verify interface compliance
var _ WorkerPool = (*ProviderWorkerPool)(nil)
