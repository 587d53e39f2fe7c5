package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/metrics"
	"github.com/Extazy1/ezmark/internal/svcctx"
)

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Metrics summary
//	@Description	Aggregate cost, token, and latency figures for recognition and grading calls
//	@Tags			metrics
//	@Produce		json
//	@Param			job_id		query		string	false	"Filter by job ID"
//	@Param			schedule_id	query		string	false	"Filter by schedule ID"
//	@Param			stage		query		string	false	"Filter by pipeline stage"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			model		query		string	false	"Filter by model"
//	@Success		200			{object}	metrics.Summary
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/metrics/summary [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	query := svcctx.MetricsQueryFrom(r.Context())
	if query == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}

	q := r.URL.Query()
	filter := metrics.Filter{
		JobID:      q.Get("job_id"),
		ScheduleID: q.Get("schedule_id"),
		Stage:      q.Get("stage"),
		Provider:   q.Get("provider"),
		Model:      q.Get("model"),
	}

	summary, err := query.GetSummary(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var scheduleID, stage string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a metrics summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/metrics/summary?"
			if scheduleID != "" {
				path += "schedule_id=" + scheduleID + "&"
			}
			if stage != "" {
				path += "stage=" + stage
			}
			var resp metrics.Summary
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&scheduleID, "schedule", "", "filter by schedule ID")
	cmd.Flags().StringVar(&stage, "stage", "", "filter by pipeline stage")
	return cmd
}

// ScheduleCostResponse is the recognition and grading spend for one
// schedule, broken down by pipeline stage.
type ScheduleCostResponse struct {
	ScheduleID   string             `json:"schedule_id"`
	TotalCostUSD float64            `json:"total_cost_usd"`
	ByStage      map[string]float64 `json:"by_stage"`
}

// ScheduleCostEndpoint handles GET /api/schedules/{id}/cost.
type ScheduleCostEndpoint struct{}

func (e *ScheduleCostEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules/{id}/cost", e.handler
}

func (e *ScheduleCostEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Schedule cost breakdown
//	@Description	AI spend for one grading run, broken down by stage
//	@Tags			metrics
//	@Produce	json
//	@Param		id	path		string	true	"Schedule ID"
//	@Success	200	{object}	ScheduleCostResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/schedules/{id}/cost [get]
func (e *ScheduleCostEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	query := svcctx.MetricsQueryFrom(r.Context())
	if query == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}

	scheduleID := r.PathValue("id")
	byStage, err := query.ScheduleStageBreakdown(r.Context(), scheduleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var total float64
	for _, cost := range byStage {
		total += cost
	}

	writeJSON(w, http.StatusOK, ScheduleCostResponse{
		ScheduleID:   scheduleID,
		TotalCostUSD: total,
		ByStage:      byStage,
	})
}

func (e *ScheduleCostEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cost <schedule-id>",
		Short: "Show a schedule's cost breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ScheduleCostResponse
			if err := client.Get(cmd.Context(), "/api/schedules/"+args[0]+"/cost", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
