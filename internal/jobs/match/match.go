// Package match recognizes each paper's header region and pairs papers
// with roster students by exact student ID. Papers the model cannot read
// and students no paper claims land in the unmatched pools for manual
// reconciliation. The stage always finishes at MATCH_DONE; a partial
// match is resolved by the teacher, not by retrying the stage.
package match

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/recognition/header"
	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

const JobType = "match"

// recognized holds one paper's header reading.
type recognized struct {
	paperID   string
	name      string
	studentID string
}

// Job runs header recognition over a schedule's papers and builds the
// match result.
type Job struct {
	mu sync.Mutex
	id string

	scheduleID string

	unitPaper map[string]string // work unit ID -> paper ID
	readings  []recognized
	paperIDs  []string
	pending   int
	started   bool
	finished  bool
	errMsg    string
}

// New creates a match job for a schedule.
func New(scheduleID string) *Job {
	return &Job{
		scheduleID: scheduleID,
		unitPaper:  make(map[string]string),
	}
}

// Factory recreates match jobs from persisted records for resume.
func Factory() jobs.JobFactory {
	return func(id string, metadata map[string]any) (jobs.Job, error) {
		scheduleID, _ := metadata["schedule_id"].(string)
		if scheduleID == "" {
			return nil, fmt.Errorf("match record %s has no schedule_id", id)
		}
		j := New(scheduleID)
		j.SetRecordID(id)
		return j, nil
	}
}

func (j *Job) ID() string            { return j.id }
func (j *Job) SetRecordID(id string) { j.id = id }
func (j *Job) Type() string          { return JobType }

// Start emits one header recognition unit per paper. A layout without a
// header component recognizes nothing and sends every paper to manual
// reconciliation.
func (j *Job) Start(ctx context.Context) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil, fmt.Errorf("match job already started")
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
	if len(sched.Result.Papers) == 0 {
		return nil, fmt.Errorf("schedule %s has no papers to match", j.scheduleID)
	}

	for _, p := range sched.Result.Papers {
		j.paperIDs = append(j.paperIDs, p.PaperID)
	}

	headerComp := exam.HeaderComponent()
	if headerComp == nil {
		return nil, j.finalize(ctx)
	}

	var units []jobs.WorkUnit
	for _, p := range sched.Result.Papers {
		image, err := os.ReadFile(homeDir.QuestionCropPath(j.scheduleID, p.PaperID, headerComp.ID))
		if err != nil {
			return nil, fmt.Errorf("failed to read header crop for %s: %w", p.PaperID, err)
		}

		unit := header.CreateWorkUnit(header.Input{Image: image})
		unit.ID = fmt.Sprintf("%s-header-%s", j.scheduleID, p.PaperID)
		unit.Metrics = &jobs.WorkUnitMetrics{
			ScheduleID: j.scheduleID,
			Stage:      "header",
			ItemKey:    p.PaperID + "_header",
		}
		j.unitPaper[unit.ID] = p.PaperID
		units = append(units, *unit)
	}

	j.pending = len(units)
	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("match started", "schedule_id", j.scheduleID, "papers", len(units))
	}
	return units, nil
}

// OnComplete records one header reading. An unreadable or failed
// recognition marks the paper Unknown rather than failing the stage.
func (j *Job) OnComplete(ctx context.Context, result jobs.WorkResult) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	paperID, ok := j.unitPaper[result.WorkUnitID]
	if !ok {
		return nil, nil
	}
	delete(j.unitPaper, result.WorkUnitID)
	j.pending--

	reading := recognized{paperID: paperID, studentID: types.UnknownMarker}
	if result.Success && result.ChatResult != nil && len(result.ChatResult.ParsedJSON) > 0 {
		if parsed, err := header.ParseResult(result.ChatResult.ParsedJSON); err == nil && !parsed.Empty() {
			reading.name = parsed.Name
			reading.studentID = parsed.StudentID
			if reading.studentID == "" {
				reading.studentID = types.UnknownMarker
			}
		}
	}
	j.readings = append(j.readings, reading)

	if j.pending > 0 {
		return nil, nil
	}
	return nil, j.finalize(ctx)
}

// finalize partitions papers and roster students into matched pairs and
// unmatched pools, then advances the schedule to MATCH_DONE. A student
// ID claimed by more than one paper matches none of them. Caller holds
// j.mu.
func (j *Job) finalize(ctx context.Context) error {
	j.finished = true

	store := svcctx.ScheduleStoreFrom(ctx)
	sched, err := store.GetSchedule(ctx, j.scheduleID)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	class, err := store.GetClass(ctx, sched.ClassID)
	if err != nil {
		return fmt.Errorf("failed to load class: %w", err)
	}

	byPaper := make(map[string]recognized, len(j.readings))
	for _, r := range j.readings {
		byPaper[r.paperID] = r
	}

	headerRefs := make(map[string]string, len(sched.Result.Papers))
	for _, p := range sched.Result.Papers {
		headerRefs[p.PaperID] = p.HeaderImageRef
	}

	result := partition(j.readings, j.paperIDs, class.Students, headerRefs)

	_, err = store.Mutate(ctx, j.scheduleID, func(sched *types.Schedule) error {
		// Stamp the raw readings as hints for the reconciliation UI.
		// Roster identity overwrites these when scoring launches.
		for paperID, r := range byPaper {
			if paper := sched.Result.PaperByID(paperID); paper != nil {
				paper.Name = r.name
				paper.StudentID = r.studentID
			}
		}
		sched.Result.MatchResult = result
		return schedule.AdvanceProgress(sched, types.ProgressMatchDone)
	})
	if err != nil {
		j.errMsg = err.Error()
		return fmt.Errorf("failed to record match result: %w", err)
	}

	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("match complete",
			"schedule_id", j.scheduleID,
			"matched", len(result.Matched),
			"unmatched_students", len(result.Unmatched.StudentIDs),
			"unmatched_papers", len(result.Unmatched.Papers))
	}
	return nil
}

// partition pairs papers with roster students by exact student ID.
// Matched pairs and unmatched students come out in roster order,
// unmatched papers in scan order. A student ID claimed by more than one
// paper matches none of them.
func partition(readings []recognized, paperIDs []string, roster []types.Student, headerRefs map[string]string) *types.MatchResult {
	claims := make(map[string][]string) // student ID -> claiming papers
	for _, r := range readings {
		if r.studentID != types.UnknownMarker {
			claims[r.studentID] = append(claims[r.studentID], r.paperID)
		}
	}

	result := &types.MatchResult{}
	matchedPapers := make(map[string]bool)
	for _, student := range roster {
		papers := claims[student.StudentID]
		if len(papers) == 1 {
			result.Matched = append(result.Matched, types.MatchedPair{
				StudentID:      student.StudentID,
				PaperID:        papers[0],
				HeaderImageRef: headerRefs[papers[0]],
			})
			matchedPapers[papers[0]] = true
			continue
		}
		result.Unmatched.StudentIDs = append(result.Unmatched.StudentIDs, student.StudentID)
	}
	for _, paperID := range paperIDs {
		if !matchedPapers[paperID] {
			result.Unmatched.Papers = append(result.Unmatched.Papers, paperID)
		}
	}
	result.Done = len(result.Unmatched.StudentIDs) == 0 && len(result.Unmatched.Papers) == 0
	return result
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
		"recognized":  fmt.Sprintf("%d/%d", len(j.readings), len(j.paperIDs)),
	}
	if j.errMsg != "" {
		status["error"] = j.errMsg
	}
	return status, nil
}
