// Package subjective launches AI-assisted grading of free-response
// questions. It materializes a pending answer record per matched paper
// per question, then prefetches a grading suggestion for each one. The
// teacher assigns every final score; a failed suggestion never blocks
// scoring and the stage never advances progress past SUBJECTIVE_START.
package subjective

import (
	"context"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/Extazy1/ezmark/internal/jobs"
	subjrec "github.com/Extazy1/ezmark/internal/recognition/subjective"
	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

const JobType = "subjective"

// unitRef locates one suggestion unit's answer record.
type unitRef struct {
	paperID    string
	questionID string
	maxScore   float64
}

// Job runs the subjective suggestion stage.
type Job struct {
	mu sync.Mutex
	id string

	scheduleID string

	unitRefs map[string]unitRef
	pending  int
	done     int
	failed   int
	started  bool
	finished bool
}

// New creates a subjective grading job for a schedule.
func New(scheduleID string) *Job {
	return &Job{
		scheduleID: scheduleID,
		unitRefs:   make(map[string]unitRef),
	}
}

// Factory recreates subjective jobs from persisted records for resume.
func Factory() jobs.JobFactory {
	return func(id string, metadata map[string]any) (jobs.Job, error) {
		scheduleID, _ := metadata["schedule_id"].(string)
		if scheduleID == "" {
			return nil, fmt.Errorf("subjective record %s has no schedule_id", id)
		}
		j := New(scheduleID)
		j.SetRecordID(id)
		return j, nil
	}
}

func (j *Job) ID() string            { return j.id }
func (j *Job) SetRecordID(id string) { j.id = id }
func (j *Job) Type() string          { return JobType }

// Start creates the pending answer records and emits one suggestion unit
// per answer. A layout without free-response questions advances straight
// to SUBJECTIVE_DONE.
func (j *Job) Start(ctx context.Context) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil, fmt.Errorf("subjective job already started")
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

	components := exam.SubjectiveComponents()
	if len(components) == 0 {
		j.finished = true
		_, err := store.Mutate(ctx, j.scheduleID, func(sched *types.Schedule) error {
			return schedule.AdvanceProgress(sched, types.ProgressSubjectiveDone)
		})
		return nil, err
	}

	// Materialize pending answer records first so the teacher can score
	// before, or without, any suggestion arriving.
	_, err = store.Mutate(ctx, j.scheduleID, func(sched *types.Schedule) error {
		for i := range sched.Result.StudentPapers {
			sp := &sched.Result.StudentPapers[i]
			if len(sp.SubjectiveAnswers) > 0 {
				continue
			}
			for _, c := range components {
				sp.SubjectiveAnswers = append(sp.SubjectiveAnswers, types.SubjectiveAnswer{
					QuestionID:   c.ID,
					ImageRef:     path.Join(j.scheduleID, sp.PaperID, "questions", c.ID+".png"),
					AISuggestion: types.AISuggestion{Score: types.PendingScore},
					Score:        types.PendingScore,
					Done:         false,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to materialize subjective answers: %w", err)
	}

	var units []jobs.WorkUnit
	for _, sp := range sched.Result.StudentPapers {
		for _, c := range components {
			image, err := os.ReadFile(homeDir.QuestionCropPath(j.scheduleID, sp.PaperID, c.ID))
			if err != nil {
				return nil, fmt.Errorf("failed to read crop for %s/%s: %w", sp.PaperID, c.ID, err)
			}

			unit := subjrec.CreateWorkUnit(subjrec.Input{
				QuestionHTML:    c.QuestionHTML,
				ReferenceAnswer: c.ReferenceAnswer,
				MaxScore:        c.Score,
				AnswerImage:     image,
			})
			unit.ID = fmt.Sprintf("%s-subjective-%s-%s", j.scheduleID, sp.PaperID, c.ID)
			unit.Metrics = &jobs.WorkUnitMetrics{
				ScheduleID: j.scheduleID,
				Stage:      "subjective",
				ItemKey:    fmt.Sprintf("%s_q_%s", sp.PaperID, c.ID),
			}
			j.unitRefs[unit.ID] = unitRef{paperID: sp.PaperID, questionID: c.ID, maxScore: c.Score}
			units = append(units, *unit)
		}
	}

	j.pending = len(units)
	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("subjective suggestions started", "schedule_id", j.scheduleID, "answers", len(units))
	}
	return units, nil
}

// OnComplete caches one grading suggestion. Failures are logged and
// skipped; the answer keeps its pending suggestion and the teacher
// scores it cold.
func (j *Job) OnComplete(ctx context.Context, result jobs.WorkResult) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ref, ok := j.unitRefs[result.WorkUnitID]
	if !ok {
		return nil, nil
	}
	delete(j.unitRefs, result.WorkUnitID)
	j.done++
	if j.done >= j.pending {
		j.finished = true
	}

	logger := svcctx.LoggerFrom(ctx)

	var parsed *subjrec.Result
	if result.Success && result.ChatResult != nil && len(result.ChatResult.ParsedJSON) > 0 {
		parsed, _ = subjrec.ParseResult(result.ChatResult.ParsedJSON)
	}
	if parsed == nil || parsed.Failed() {
		j.failed++
		if logger != nil {
			logger.Warn("suggestion unavailable",
				"schedule_id", j.scheduleID,
				"paper_id", ref.paperID,
				"question_id", ref.questionID,
				"error", result.Error)
		}
		return nil, nil
	}

	suggestion := types.AISuggestion{
		Reasoning:  parsed.Reasoning,
		OCRText:    parsed.OCRResult,
		Suggestion: parsed.Suggestion,
		Score:      parsed.Clamp(ref.maxScore),
	}

	store := svcctx.ScheduleStoreFrom(ctx)
	if _, err := store.SetAISuggestion(ctx, j.scheduleID, ref.paperID, ref.questionID, suggestion); err != nil {
		j.failed++
		if logger != nil {
			logger.Warn("failed to cache suggestion",
				"schedule_id", j.scheduleID,
				"paper_id", ref.paperID,
				"question_id", ref.questionID,
				"error", err)
		}
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

	status := map[string]string{
		"schedule_id": j.scheduleID,
		"suggestions": fmt.Sprintf("%d/%d", j.done, j.pending),
	}
	if j.failed > 0 {
		status["failed"] = fmt.Sprintf("%d", j.failed)
	}
	return status, nil
}
