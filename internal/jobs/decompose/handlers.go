package decompose

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/Extazy1/ezmark/internal/ingest"
	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/layout"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

// CPU task names handled by this package.
const (
	TaskRenderPage = "render_page"
	TaskSplitPaper = "split_paper"
)

// RegisterHandlers registers the decompose CPU handlers on the scheduler.
func RegisterHandlers(s *jobs.Scheduler) {
	s.RegisterCPUHandler(TaskRenderPage, handleRenderPage)
	s.RegisterCPUHandler(TaskSplitPaper, handleSplitPaper)
}

// handleRenderPage rasterizes one scan page into the schedule's raster
// directory.
func handleRenderPage(ctx context.Context, req *jobs.CPUWorkRequest) (*jobs.CPUWorkResult, error) {
	scheduleID, _ := req.Payload["schedule_id"].(string)
	page := payloadInt(req.Payload, "page")
	if scheduleID == "" || page <= 0 {
		return nil, fmt.Errorf("render_page requires schedule_id and page")
	}

	homeDir := svcctx.HomeFrom(ctx)
	if homeDir == nil {
		return nil, fmt.Errorf("home directory required")
	}

	dst := homeDir.PageImagePath(scheduleID, page)
	if err := ingest.RenderPage(homeDir.ScanPath(scheduleID), dst, page); err != nil {
		return nil, err
	}

	return &jobs.CPUWorkResult{
		Success: true,
		Output:  map[string]any{"page": page, "path": dst},
	}, nil
}

// handleSplitPaper assembles one paper from its raster pages and crops
// every recognizable layout component.
func handleSplitPaper(ctx context.Context, req *jobs.CPUWorkRequest) (*jobs.CPUWorkResult, error) {
	scheduleID, _ := req.Payload["schedule_id"].(string)
	paperID, _ := req.Payload["paper_id"].(string)
	startPage := payloadInt(req.Payload, "start_page")
	endPage := payloadInt(req.Payload, "end_page")
	if scheduleID == "" || paperID == "" || startPage <= 0 || endPage < startPage {
		return nil, fmt.Errorf("split_paper requires schedule_id, paper_id and a page range")
	}

	store := svcctx.ScheduleStoreFrom(ctx)
	homeDir := svcctx.HomeFrom(ctx)
	if store == nil || homeDir == nil {
		return nil, fmt.Errorf("schedule store and home directory required")
	}

	sched, err := store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	exam, err := store.GetExam(ctx, sched.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	// Copy raster pages into the paper directory with paper-relative
	// numbering.
	if err := homeDir.EnsureQuestionsDir(scheduleID, paperID); err != nil {
		return nil, fmt.Errorf("failed to create paper directory: %w", err)
	}
	for page := startPage; page <= endPage; page++ {
		src := homeDir.PageImagePath(scheduleID, page)
		dst := homeDir.PaperPagePath(scheduleID, paperID, page-startPage+1)
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("failed to copy page %d: %w", page, err)
		}
	}

	crops := 0
	for _, c := range exam.Components {
		if !isRecognizable(c.Type) {
			continue
		}
		pageNum := c.Position.PageIndex + 1
		if pageNum > endPage-startPage+1 {
			return nil, fmt.Errorf("component %s is on page %d, paper has %d pages", c.ID, pageNum, endPage-startPage+1)
		}

		src := homeDir.PaperPagePath(scheduleID, paperID, pageNum)
		dst := homeDir.QuestionCropPath(scheduleID, paperID, c.ID)
		pos := c.Position
		err := layout.CropToFile(src, dst, func(w, h int) image.Rectangle {
			return layout.PixelRect(pos, w, h, layout.DefaultPaddingPX)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to crop component %s: %w", c.ID, err)
		}
		crops++
	}

	return &jobs.CPUWorkResult{
		Success: true,
		Output:  map[string]any{"paper_id": paperID, "crops": crops},
	}, nil
}

// isRecognizable reports whether a component type produces a crop that
// later stages consume. Decorative elements (text, line) are skipped.
func isRecognizable(t types.ComponentType) bool {
	return t == types.ComponentHeader || t.IsObjective() || t.IsSubjective()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// payloadInt reads an int from a payload map. JSON round-trips turn ints
// into float64, so both are accepted.
func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
