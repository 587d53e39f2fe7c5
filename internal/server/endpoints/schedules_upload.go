package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/ingest"
	"github.com/Extazy1/ezmark/internal/jobs/decompose"
	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/svcctx"
)

// maxScanSize caps the multipart upload at 500MB. High-DPI scans of a
// full class run large but not that large.
const maxScanSize = 500 << 20

// UploadScanResponse reports the accepted scan and the decompose job ID.
type UploadScanResponse struct {
	Success    bool   `json:"success"`
	ScheduleID string `json:"schedule_id"`
	Pages      int    `json:"pages"`
	Papers     int    `json:"papers"`
	JobID      string `json:"job_id"`
}

// UploadScanEndpoint handles POST /api/schedules/{id}/upload.
type UploadScanEndpoint struct{}

func (e *UploadScanEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/upload", e.handler
}

func (e *UploadScanEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload scanned exam PDF
//	@Description	Store the batch scan for a schedule and start paper decomposition
//	@Tags			schedules
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Schedule ID"
//	@Param			file	formData	file	true	"Scanned PDF"
//	@Success		202		{object}	UploadScanResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/schedules/{id}/upload [post]
func (e *UploadScanEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	homeDir := svcctx.HomeFrom(r.Context())
	scheduler := svcctx.SchedulerFrom(r.Context())
	if store == nil || homeDir == nil || scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	scheduleID := r.PathValue("id")
	sched, err := store.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := schedule.CanUpload(sched.Progress); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	exam, err := store.GetExam(r.Context(), sched.ExamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "exam: "+err.Error())
		return
	}
	class, err := store.GetClass(r.Context(), sched.ClassID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "class: "+err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxScanSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	pages, err := ingest.StoreScan(homeDir, scheduleID, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan: "+err.Error())
		return
	}
	papers, err := ingest.ValidatePageCount(pages, exam.PagesPerExam(), len(class.Students))
	if err != nil {
		// The scan is useless unless it holds exactly one paper per
		// student, so do not keep it around for a retry with the same file.
		if rmErr := os.Remove(homeDir.ScanPath(scheduleID)); rmErr != nil && !os.IsNotExist(rmErr) {
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Warn("failed to remove rejected scan", "schedule_id", scheduleID, "error", rmErr)
			}
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := decompose.New(scheduleID)
	if err := scheduler.Submit(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start decomposition: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, UploadScanResponse{
		Success:    true,
		ScheduleID: scheduleID,
		Pages:      pages,
		Papers:     papers,
		JobID:      job.ID(),
	})
}

func (e *UploadScanEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <schedule-id> <pdf-path>",
		Short: "Upload a scanned exam PDF",
		Long:  "Upload the batch scan for a schedule. The server splits it into per-student papers and question crops.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[1]
			if _, err := os.Stat(pdfPath); err != nil {
				return fmt.Errorf("cannot read %s: %w", pdfPath, err)
			}
			if ext := filepath.Ext(pdfPath); ext != ".pdf" {
				return errors.New("scan must be a .pdf file")
			}

			client := api.NewClient(getServerURL())
			var resp UploadScanResponse
			path := "/api/schedules/" + args[0] + "/upload"
			if err := client.PostFile(cmd.Context(), path, "file", pdfPath, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
