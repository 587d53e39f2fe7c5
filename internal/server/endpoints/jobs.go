package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/jobs"
	"github.com/Extazy1/ezmark/internal/svcctx"
)

// ListJobsResponse is the response for listing job records.
type ListJobsResponse struct {
	Jobs  []*jobs.Record `json:"jobs"`
	Count int            `json:"count"`
}

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List jobs
//	@Description	List persisted job records, newest first
//	@Tags			jobs
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status (pending, running, completed, failed)"
//	@Param			type	query		string	false	"Filter by job type"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	ListJobsResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs [get]
func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	manager := svcctx.JobManagerFrom(r.Context())
	if manager == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	filter := jobs.ListFilter{
		Status:  jobs.Status(r.URL.Query().Get("status")),
		JobType: r.URL.Query().Get("type"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	records, err := manager.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListJobsResponse{Jobs: records, Count: len(records)})
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status, jobType string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/jobs?"
			if status != "" {
				path += "status=" + status + "&"
			}
			if jobType != "" {
				path += "type=" + jobType + "&"
			}
			if limit > 0 {
				path += "limit=" + strconv.Itoa(limit)
			}
			var resp ListJobsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&jobType, "type", "", "filter by job type")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results")
	return cmd
}

// GetJobResponse is a job record plus live progress when the job is
// still in the scheduler.
type GetJobResponse struct {
	Job      *jobs.Record      `json:"job"`
	Progress map[string]string `json:"progress,omitempty"`
}

// GetJobEndpoint handles GET /api/jobs/{id}.
type GetJobEndpoint struct{}

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get job
//	@Description	Fetch one job record, with live stage progress for running jobs
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	GetJobResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/jobs/{id} [get]
func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	manager := svcctx.JobManagerFrom(r.Context())
	if manager == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	jobID := r.PathValue("id")
	record, err := manager.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := GetJobResponse{Job: record}
	if scheduler := svcctx.SchedulerFrom(r.Context()); scheduler != nil {
		// Running jobs report richer state from memory than the record.
		if progress, err := scheduler.JobStatus(r.Context(), jobID); err == nil {
			resp.Progress = progress
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp GetJobResponse
			if err := client.Get(cmd.Context(), "/api/jobs/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
