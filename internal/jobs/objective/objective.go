// Package objective recognizes and scores every choice question across a
// schedule's matched papers. Answers the model cannot read confidently
// stay unscored and flagged uncertain for teacher adjudication; the
// schedule only reaches OBJECTIVE_DONE once no uncertainty remains.
package objective

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Extazy1/ezmark/internal/jobs"
	objrec "github.com/Extazy1/ezmark/internal/recognition/objective"
	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

const JobType = "objective"

// unitRef locates one recognition unit's slot in the answer grid.
type unitRef struct {
	paperID   string
	component int // index into components
}

// Job runs the objective scoring stage.
type Job struct {
	mu sync.Mutex
	id string

	scheduleID string

	components []types.Component
	answers    map[string][]types.ObjectiveAnswer // paper ID -> answers in layout order
	unitRefs   map[string]unitRef
	pending    int
	done       int
	started    bool
	finished   bool
	errMsg     string
}

// New creates an objective scoring job for a schedule.
func New(scheduleID string) *Job {
	return &Job{
		scheduleID: scheduleID,
		answers:    make(map[string][]types.ObjectiveAnswer),
		unitRefs:   make(map[string]unitRef),
	}
}

// Factory recreates objective jobs from persisted records for resume.
func Factory() jobs.JobFactory {
	return func(id string, metadata map[string]any) (jobs.Job, error) {
		scheduleID, _ := metadata["schedule_id"].(string)
		if scheduleID == "" {
			return nil, fmt.Errorf("objective record %s has no schedule_id", id)
		}
		j := New(scheduleID)
		j.SetRecordID(id)
		return j, nil
	}
}

func (j *Job) ID() string            { return j.id }
func (j *Job) SetRecordID(id string) { j.id = id }
func (j *Job) Type() string          { return JobType }

// Start emits one recognition unit per matched paper per choice question.
// A layout without choice questions completes immediately.
func (j *Job) Start(ctx context.Context) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil, fmt.Errorf("objective job already started")
	}
	j.started = true

	store := svcctx.ScheduleStoreFrom(ctx)
	homeDir := svcctx.HomeFrom(ctx)
	if store == nil || homeDir == nil {
		return nil, fmt.Errorf("schedule store and home directory required")
	}

	sched, err := store.GetSchedule(ctx, j.scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	exam, err := store.GetExam(ctx, sched.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}
	if len(sched.Result.StudentPapers) == 0 {
		return nil, fmt.Errorf("schedule %s has no student papers", j.scheduleID)
	}

	j.components = exam.ObjectiveComponents()
	if len(j.components) == 0 {
		return nil, j.finalize(ctx)
	}

	var units []jobs.WorkUnit
	for _, sp := range sched.Result.StudentPapers {
		j.answers[sp.PaperID] = make([]types.ObjectiveAnswer, len(j.components))
		for ci, c := range j.components {
			image, err := os.ReadFile(homeDir.QuestionCropPath(j.scheduleID, sp.PaperID, c.ID))
			if err != nil {
				return nil, fmt.Errorf("failed to read crop for %s/%s: %w", sp.PaperID, c.ID, err)
			}

			unit := objrec.CreateWorkUnit(objrec.Input{
				Image:          image,
				MultipleChoice: c.Type == types.ComponentMultiChoice,
			})
			unit.ID = fmt.Sprintf("%s-objective-%s-%s", j.scheduleID, sp.PaperID, c.ID)
			unit.Metrics = &jobs.WorkUnitMetrics{
				ScheduleID: j.scheduleID,
				Stage:      "objective",
				ItemKey:    fmt.Sprintf("%s_q_%s", sp.PaperID, c.ID),
			}
			j.unitRefs[unit.ID] = unitRef{paperID: sp.PaperID, component: ci}
			units = append(units, *unit)
		}
	}

	j.pending = len(units)
	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("objective scoring started",
			"schedule_id", j.scheduleID,
			"papers", len(j.answers),
			"questions", len(j.components))
	}
	return units, nil
}

// OnComplete scores one recognized answer. Failed or uncertain readings
// keep the pending sentinel and are flagged for adjudication.
func (j *Job) OnComplete(ctx context.Context, result jobs.WorkResult) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ref, ok := j.unitRefs[result.WorkUnitID]
	if !ok {
		return nil, nil
	}
	delete(j.unitRefs, result.WorkUnitID)
	j.done++

	component := j.components[ref.component]
	answer := types.ObjectiveAnswer{
		QuestionID:    component.ID,
		StudentAnswer: []string{types.UnknownMarker},
		Uncertain:     true,
		Score:         types.PendingScore,
	}

	if result.Success && result.ChatResult != nil && len(result.ChatResult.ParsedJSON) > 0 {
		if parsed, err := objrec.ParseResult(result.ChatResult.ParsedJSON); err == nil {
			answer.StudentAnswer = parsed.Answer
			if !parsed.IsUncertain() {
				answer.Uncertain = false
				answer.Score = schedule.ScoreObjective(component.Answer, parsed.Answer, component.Score)
			}
		}
	}
	j.answers[ref.paperID][ref.component] = answer

	if j.done < j.pending {
		return nil, nil
	}
	return nil, j.finalize(ctx)
}

// finalize writes the answer grid onto the schedule. With no uncertainty
// left the schedule advances straight to OBJECTIVE_DONE; otherwise it
// stays at OBJECTIVE_START until adjudication clears the flags. Caller
// holds j.mu.
func (j *Job) finalize(ctx context.Context) error {
	j.finished = true

	store := svcctx.ScheduleStoreFrom(ctx)
	_, err := store.Mutate(ctx, j.scheduleID, func(sched *types.Schedule) error {
		uncertain := 0
		for paperID, answers := range j.answers {
			paper := sched.Result.StudentPaperByID(paperID)
			if paper == nil {
				return fmt.Errorf("student paper %s not found", paperID)
			}
			paper.ObjectiveAnswers = answers
			for _, a := range answers {
				if a.Uncertain {
					uncertain++
				}
			}
		}
		if uncertain == 0 {
			return schedule.AdvanceProgress(sched, types.ProgressObjectiveDone)
		}
		return nil
	})
	if err != nil {
		j.errMsg = err.Error()
		return fmt.Errorf("failed to record objective answers: %w", err)
	}

	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("objective scoring complete", "schedule_id", j.scheduleID)
	}
	return nil
}

func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

func (j *Job) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := map[string]string{
		"schedule_id": j.scheduleID,
		"recognized":  fmt.Sprintf("%d/%d", j.done, j.pending),
	}
	if j.errMsg != "" {
		status["error"] = j.errMsg
	}
	return status, nil
}
