// Package result computes final totals and statistics for a schedule.
// It runs as a single CPU unit: every per-question score is already
// final when the stage launches, so the tally is pure arithmetic.
package result

import (
	"context"
	"fmt"
	"sync"

	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/stats"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

const JobType = "result"

// TaskComputeStats is the CPU task that tallies a schedule.
const TaskComputeStats = "compute_stats"

// Job runs the result stage.
type Job struct {
	mu sync.Mutex
	id string

	scheduleID string
	started    bool
	finished   bool
	errMsg     string
}

// New creates a result job for a schedule.
func New(scheduleID string) *Job {
	return &Job{scheduleID: scheduleID}
}

// Factory recreates result jobs from persisted records for resume.
func Factory() jobs.JobFactory {
	return func(id string, metadata map[string]any) (jobs.Job, error) {
		scheduleID, _ := metadata["schedule_id"].(string)
		if scheduleID == "" {
			return nil, fmt.Errorf("result record %s has no schedule_id", id)
		}
		j := New(scheduleID)
		j.SetRecordID(id)
		return j, nil
	}
}

// RegisterHandlers registers the result CPU handler on the scheduler.
func RegisterHandlers(s *jobs.Scheduler) {
	s.RegisterCPUHandler(TaskComputeStats, handleComputeStats)
}

func (j *Job) ID() string            { return j.id }
func (j *Job) SetRecordID(id string) { j.id = id }
func (j *Job) Type() string          { return JobType }

func (j *Job) Start(ctx context.Context) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil, fmt.Errorf("result job already started")
	}
	j.started = true

	return []jobs.WorkUnit{{
		ID:   fmt.Sprintf("%s-stats", j.scheduleID),
		Type: jobs.WorkUnitTypeCPU,
		CPURequest: &jobs.CPUWorkRequest{
			Task:    TaskComputeStats,
			Payload: map[string]any{"schedule_id": j.scheduleID},
		},
		Metrics: &jobs.WorkUnitMetrics{
			ScheduleID: j.scheduleID,
			Stage:      "stats",
			ItemKey:    "stats_" + j.scheduleID,
		},
	}}, nil
}

func (j *Job) OnComplete(ctx context.Context, result jobs.WorkResult) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.finished = true
	if !result.Success {
		if result.Error != nil {
			j.errMsg = result.Error.Error()
		} else if result.CPUResult != nil {
			j.errMsg = result.CPUResult.ErrorMessage
		}
		return nil, fmt.Errorf("result stage failed: %s", j.errMsg)
	}
	return nil, nil
}

func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

func (j *Job) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := map[string]string{"schedule_id": j.scheduleID}
	if j.errMsg != "" {
		status["error"] = j.errMsg
	}
	return status, nil
}

// handleComputeStats tallies every student paper and writes the schedule
// statistics, advancing to RESULT_DONE. Every answer score must be final;
// a pending sentinel anywhere aborts the tally.
func handleComputeStats(ctx context.Context, req *jobs.CPUWorkRequest) (*jobs.CPUWorkResult, error) {
	scheduleID, _ := req.Payload["schedule_id"].(string)
	if scheduleID == "" {
		return nil, fmt.Errorf("compute_stats requires schedule_id")
	}

	store := svcctx.ScheduleStoreFrom(ctx)
	if store == nil {
		return nil, fmt.Errorf("schedule store required")
	}

	sched, err := store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	exam, err := store.GetExam(ctx, sched.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	_, err = store.Mutate(ctx, scheduleID, func(sched *types.Schedule) error {
		for i := range sched.Result.StudentPapers {
			sp := &sched.Result.StudentPapers[i]
			if err := checkFinal(sp); err != nil {
				return err
			}
			sp.TotalScore = stats.TotalScore(*sp)
		}
		statistics := stats.Compute(exam, sched.Result.StudentPapers)
		sched.Result.Statistics = &statistics
		return schedule.AdvanceProgress(sched, types.ProgressResultDone)
	})
	if err != nil {
		return nil, err
	}

	return &jobs.CPUWorkResult{
		Success: true,
		Output:  map[string]any{"papers": len(sched.Result.StudentPapers)},
	}, nil
}

// checkFinal rejects papers still carrying a pending score.
func checkFinal(sp *types.StudentPaper) error {
	for _, a := range sp.ObjectiveAnswers {
		if a.Uncertain || a.Score == types.PendingScore {
			return fmt.Errorf("paper %s question %s has no final objective score", sp.PaperID, a.QuestionID)
		}
	}
	for _, a := range sp.SubjectiveAnswers {
		if !a.Done || a.Score == types.PendingScore {
			return fmt.Errorf("paper %s question %s has no final subjective score", sp.PaperID, a.QuestionID)
		}
	}
	return nil
}
