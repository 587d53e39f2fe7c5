package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Extazy1/ezmark/internal/providers"
)

func newTestLLMPool(t *testing.T, name string, client providers.LLMClient) *ProviderWorkerPool {
	t.Helper()
	pool, err := NewProviderWorkerPool(ProviderWorkerPoolConfig{
		Name:   name,
		Client: client,
		Logger: slog.Default(),
	})
	if err != nil {
		t.Fatalf("NewProviderWorkerPool() error = %v", err)
	}
	return pool
}

func waitForDone(t *testing.T, job Job) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if job.Done() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("job %s not done", job.ID())
}

// TestScheduler_SubmitAndComplete tests the basic submit/complete cycle.
func TestScheduler_SubmitAndComplete(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{Logger: slog.Default()})

	client := providers.NewMockClient()
	client.RPS = 100
	client.Latency = time.Millisecond
	scheduler.RegisterPool(newTestLLMPool(t, "mock", client))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go scheduler.Run(ctx)

	job := NewCountingJob("", 5)
	if err := scheduler.Submit(ctx, job); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	waitForDone(t, job)

	if client.RequestCount() != 5 {
		t.Errorf("client got %d requests, want 5", client.RequestCount())
	}

	// Scheduler should clean up after completion
	time.Sleep(100 * time.Millisecond)
	if scheduler.ActiveJobs() != 0 {
		t.Errorf("ActiveJobs() = %d after completion, want 0", scheduler.ActiveJobs())
	}
}

// TestScheduler_JobStatus tests job status reporting.
func TestScheduler_JobStatus(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{})

	client := providers.NewMockClient()
	client.RPS = 100
	client.Latency = 100 * time.Millisecond // Slow to allow status check
	scheduler.RegisterPool(newTestLLMPool(t, "mock", client))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go scheduler.Run(ctx)

	job := NewCountingJob("", 5)
	if err := scheduler.Submit(ctx, job); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Check status while running
	time.Sleep(50 * time.Millisecond)

	status, err := scheduler.JobStatus(ctx, job.ID())
	if err != nil {
		t.Fatalf("JobStatus() error = %v", err)
	}

	if status == nil {
		t.Fatal("status is nil")
	}
	if _, ok := status["pending_units"]; !ok {
		t.Error("status missing pending_units")
	}

	waitForDone(t, job)
}

// TestScheduler_ActiveJobs tests active job tracking.
func TestScheduler_ActiveJobs(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{})

	client := providers.NewMockClient()
	client.RPS = 100
	client.Latency = 50 * time.Millisecond
	scheduler.RegisterPool(newTestLLMPool(t, "mock", client))

	if scheduler.ActiveJobs() != 0 {
		t.Error("should start with 0 active jobs")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go scheduler.Run(ctx)

	job1 := NewCountingJob("", 3)
	job2 := NewCountingJob("", 3)

	scheduler.Submit(ctx, job1)
	scheduler.Submit(ctx, job2)

	time.Sleep(10 * time.Millisecond)
	if scheduler.ActiveJobs() != 2 {
		t.Errorf("ActiveJobs() = %d, want 2", scheduler.ActiveJobs())
	}

	waitForDone(t, job1)
	waitForDone(t, job2)

	// Give scheduler time to clean up
	time.Sleep(200 * time.Millisecond)
	if scheduler.ActiveJobs() != 0 {
		t.Errorf("ActiveJobs() = %d after completion, want 0", scheduler.ActiveJobs())
	}
}

// TestScheduler_NoPoolForUnit tests error handling when no pool is available.
func TestScheduler_NoPoolForUnit(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{Logger: slog.Default()})

	// Only an LLM pool - no CPU pool
	client := providers.NewMockClient()
	client.RPS = 100
	scheduler.RegisterPool(newTestLLMPool(t, "mock", client))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go scheduler.Run(ctx)

	// Job that needs CPU work
	job := NewMockJob(MockJobConfig{WorkUnits: 2, UnitType: WorkUnitTypeCPU})
	if err := scheduler.Submit(ctx, job); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	waitForDone(t, job)

	for _, result := range job.Results() {
		if result.Success {
			t.Error("expected failure result for unit with no pool")
		}
		if result.Error == nil {
			t.Error("expected error on failure result")
		}
	}
}

// TestScheduler_RoutesToNamedProvider tests provider-specific routing.
func TestScheduler_RoutesToNamedProvider(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{})

	clientA := providers.NewMockClient()
	clientA.RPS = 100
	clientB := providers.NewMockClient()
	clientB.RPS = 100

	scheduler.RegisterPool(newTestLLMPool(t, "provider-a", clientA))
	scheduler.RegisterPool(newTestLLMPool(t, "provider-b", clientB))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go scheduler.Run(ctx)

	job := NewMockJob(MockJobConfig{WorkUnits: 3, Provider: "provider-b"})
	if err := scheduler.Submit(ctx, job); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	waitForDone(t, job)

	if clientA.RequestCount() != 0 {
		t.Errorf("provider-a got %d requests, want 0", clientA.RequestCount())
	}
	if clientB.RequestCount() != 3 {
		t.Errorf("provider-b got %d requests, want 3", clientB.RequestCount())
	}
}

// TestScheduler_PoolStatuses tests pool status reporting.
func TestScheduler_PoolStatuses(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{})

	client := providers.NewMockClient()
	scheduler.RegisterPool(newTestLLMPool(t, "mock", client))
	scheduler.InitCPUPool(2)

	statuses := scheduler.PoolStatuses()
	if len(statuses) != 2 {
		t.Fatalf("got %d pool statuses, want 2", len(statuses))
	}

	llm, ok := statuses["mock"]
	if !ok {
		t.Fatal("mock pool not in statuses")
	}
	if llm.Type != string(PoolTypeLLM) {
		t.Errorf("mock pool type = %s, want llm", llm.Type)
	}
	if llm.RateLimiter == nil {
		t.Error("llm pool should report rate limiter status")
	}

	cpu, ok := statuses["cpu"]
	if !ok {
		t.Fatal("cpu pool not in statuses")
	}
	if cpu.Type != string(PoolTypeCPU) {
		t.Errorf("cpu pool type = %s, want cpu", cpu.Type)
	}
	if cpu.RateLimiter != nil {
		t.Error("cpu pool should not report rate limiter status")
	}
	if cpu.Workers != 2 {
		t.Errorf("cpu pool workers = %d, want 2", cpu.Workers)
	}
}

// TestScheduler_RegisterFactory tests job factory registration.
func TestScheduler_RegisterFactory(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{})

	factory := func(id string, metadata map[string]any) (Job, error) {
		job := NewMockJob(MockJobConfig{})
		job.SetRecordID(id)
		return job, nil
	}

	scheduler.RegisterFactory("test-type", factory)

	if _, ok := scheduler.factories["test-type"]; !ok {
		t.Error("factory not registered")
	}
}

// TestScheduler_GetPool tests pool lookup.
func TestScheduler_GetPool(t *testing.T) {
	scheduler := NewScheduler(SchedulerConfig{})

	_, ok := scheduler.GetPool("nonexistent")
	if ok {
		t.Error("should not find nonexistent pool")
	}

	client := providers.NewMockClient()
	scheduler.RegisterPool(newTestLLMPool(t, "test-llm", client))

	p, ok := scheduler.GetPool("test-llm")
	if !ok {
		t.Fatal("should find registered pool")
	}
	if p.Name() != "test-llm" {
		t.Errorf("Name() = %s, want test-llm", p.Name())
	}

	names := scheduler.ListPools()
	if len(names) != 1 {
		t.Errorf("got %d pools, want 1", len(names))
	}
}

// TestScheduler_InitFromRegistry tests pool creation from a provider registry.
func TestScheduler_InitFromRegistry(t *testing.T) {
	registry := providers.NewRegistry()
	registry.Register("mock-a", providers.NewMockClient())
	registry.Register("mock-b", providers.NewMockClient())

	scheduler := NewScheduler(SchedulerConfig{})
	if err := scheduler.InitFromRegistry(registry); err != nil {
		t.Fatalf("InitFromRegistry() error = %v", err)
	}

	pools := scheduler.ListPools()
	if len(pools) != 2 {
		t.Errorf("got %d pools, want 2", len(pools))
	}
	for _, name := range []string{"mock-a", "mock-b"} {
		if _, ok := scheduler.GetPool(name); !ok {
			t.Errorf("pool %s not created", name)
		}
	}
}
