// Package decompose splits an uploaded scan into per-student papers.
// Phase one rasterizes every scan page; phase two assembles papers and
// crops each layout component for recognition. On success the schedule
// records its papers and advances to UPLOADED.
package decompose

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/Extazy1/ezmark/internal/ingest"
	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

const JobType = "decompose"

type phase string

const (
	phaseRender phase = "render"
	phaseSplit  phase = "split"
	phaseDone   phase = "done"
)

// Job rasterizes a scan and splits it into papers.
type Job struct {
	mu sync.Mutex
	id string

	scheduleID string

	totalPages   int
	pagesPerExam int
	paperCount   int
	headerID     string

	phase      phase
	pagesDone  int
	papersDone int
	failures   []string
	started    bool
}

// New creates a decompose job for a schedule.
func New(scheduleID string) *Job {
	return &Job{scheduleID: scheduleID, phase: phaseRender}
}

// Factory recreates decompose jobs from persisted records for resume.
func Factory() jobs.JobFactory {
	return func(id string, metadata map[string]any) (jobs.Job, error) {
		scheduleID, _ := metadata["schedule_id"].(string)
		if scheduleID == "" {
			return nil, fmt.Errorf("decompose record %s has no schedule_id", id)
		}
		j := New(scheduleID)
		j.SetRecordID(id)
		return j, nil
	}
}

func (j *Job) ID() string            { return j.id }
func (j *Job) SetRecordID(id string) { j.id = id }
func (j *Job) Type() string          { return JobType }

// Start validates the stored scan against the exam layout and emits one
// render unit per scan page.
func (j *Job) Start(ctx context.Context) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil, fmt.Errorf("decompose job already started")
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
	class, err := store.GetClass(ctx, sched.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to load class: %w", err)
	}

	j.pagesPerExam = exam.PagesPerExam()
	if hc := exam.HeaderComponent(); hc != nil {
		j.headerID = hc.ID
	}

	j.totalPages, err = ingest.PageCount(homeDir.ScanPath(j.scheduleID))
	if err != nil {
		return nil, err
	}
	// The upload handler already checked this, but the roster may have
	// been edited between upload and decompose.
	j.paperCount, err = ingest.ValidatePageCount(j.totalPages, j.pagesPerExam, len(class.Students))
	if err != nil {
		return nil, err
	}

	if err := homeDir.EnsureAllPagesDir(j.scheduleID); err != nil {
		return nil, fmt.Errorf("failed to create raster directory: %w", err)
	}

	units := make([]jobs.WorkUnit, 0, j.totalPages)
	for page := 1; page <= j.totalPages; page++ {
		units = append(units, jobs.WorkUnit{
			ID:   fmt.Sprintf("%s-render-%d", j.scheduleID, page),
			Type: jobs.WorkUnitTypeCPU,
			CPURequest: &jobs.CPUWorkRequest{
				Task: TaskRenderPage,
				Payload: map[string]any{
					"schedule_id": j.scheduleID,
					"page":        page,
				},
			},
			Metrics: &jobs.WorkUnitMetrics{
				ScheduleID: j.scheduleID,
				Stage:      JobType,
				ItemKey:    fmt.Sprintf("page_%04d", page),
			},
		})
	}

	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("decompose started",
			"schedule_id", j.scheduleID,
			"pages", j.totalPages,
			"papers", j.paperCount)
	}
	return units, nil
}

// OnComplete advances the render/split phases. All pages must render
// before papers are split; any failure fails the whole stage and removes
// partial paper directories.
func (j *Job) OnComplete(ctx context.Context, result jobs.WorkResult) ([]jobs.WorkUnit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !result.Success {
		errMsg := "unknown failure"
		if result.Error != nil {
			errMsg = result.Error.Error()
		} else if result.CPUResult != nil && result.CPUResult.ErrorMessage != "" {
			errMsg = result.CPUResult.ErrorMessage
		}
		j.failures = append(j.failures, fmt.Sprintf("%s: %s", result.WorkUnitID, errMsg))
	}

	switch j.phase {
	case phaseRender:
		j.pagesDone++
		if j.pagesDone < j.totalPages {
			return nil, nil
		}
		if len(j.failures) > 0 {
			return nil, j.fail(ctx)
		}
		j.phase = phaseSplit
		return j.splitUnits(), nil

	case phaseSplit:
		j.papersDone++
		if j.papersDone < j.paperCount {
			return nil, nil
		}
		if len(j.failures) > 0 {
			return nil, j.fail(ctx)
		}
		return nil, j.finish(ctx)
	}
	return nil, nil
}

// splitUnits emits one split unit per paper. Caller holds j.mu.
func (j *Job) splitUnits() []jobs.WorkUnit {
	units := make([]jobs.WorkUnit, 0, j.paperCount)
	for i := 0; i < j.paperCount; i++ {
		paperID := paperID(i)
		units = append(units, jobs.WorkUnit{
			ID:   fmt.Sprintf("%s-split-%s", j.scheduleID, paperID),
			Type: jobs.WorkUnitTypeCPU,
			CPURequest: &jobs.CPUWorkRequest{
				Task: TaskSplitPaper,
				Payload: map[string]any{
					"schedule_id": j.scheduleID,
					"paper_id":    paperID,
					"start_page":  i*j.pagesPerExam + 1,
					"end_page":    (i + 1) * j.pagesPerExam,
				},
			},
			Metrics: &jobs.WorkUnitMetrics{
				ScheduleID: j.scheduleID,
				Stage:      JobType,
				ItemKey:    fmt.Sprintf("split_%s", paperID),
			},
		})
	}
	return units
}

// finish records the decomposition on the schedule. Caller holds j.mu.
func (j *Job) finish(ctx context.Context) error {
	j.phase = phaseDone

	store := svcctx.ScheduleStoreFrom(ctx)
	papers := make([]types.Paper, 0, j.paperCount)
	for i := 0; i < j.paperCount; i++ {
		p := types.Paper{
			PaperID:   paperID(i),
			StartPage: i*j.pagesPerExam + 1,
			EndPage:   (i + 1) * j.pagesPerExam,
		}
		if j.headerID != "" {
			p.HeaderImageRef = path.Join(j.scheduleID, p.PaperID, "questions", j.headerID+".png")
		}
		papers = append(papers, p)
	}

	pdfRef := path.Join(j.scheduleID, "scan.pdf")
	if _, err := store.SetDecomposition(ctx, j.scheduleID, pdfRef, papers); err != nil {
		j.failures = append(j.failures, err.Error())
		return fmt.Errorf("failed to record decomposition: %w", err)
	}

	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("decompose complete", "schedule_id", j.scheduleID, "papers", j.paperCount)
	}
	return nil
}

// fail abandons the stage, removing any partial paper directories so a
// re-upload starts clean. Caller holds j.mu.
func (j *Job) fail(ctx context.Context) error {
	j.phase = phaseDone

	homeDir := svcctx.HomeFrom(ctx)
	if homeDir != nil {
		ids := make([]string, 0, j.paperCount)
		for i := 0; i < j.paperCount; i++ {
			ids = append(ids, paperID(i))
		}
		if err := homeDir.RemovePaperDirs(j.scheduleID, ids); err != nil {
			if logger := svcctx.LoggerFrom(ctx); logger != nil {
				logger.Warn("failed to clean up paper directories", "schedule_id", j.scheduleID, "error", err)
			}
		}
	}

	return fmt.Errorf("decompose failed: %s", j.failures[0])
}

func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase == phaseDone
}

func (j *Job) Status(ctx context.Context) (map[string]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := map[string]string{
		"schedule_id": j.scheduleID,
		"phase":       string(j.phase),
		"pages":       fmt.Sprintf("%d/%d", j.pagesDone, j.totalPages),
		"papers":      fmt.Sprintf("%d/%d", j.papersDone, j.paperCount),
	}
	if len(j.failures) > 0 {
		status["error"] = j.failures[0]
	}
	return status, nil
}

// paperID names papers by scan order.
func paperID(i int) string {
	return fmt.Sprintf("paper-%d", i)
}
