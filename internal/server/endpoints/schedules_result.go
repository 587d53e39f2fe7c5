package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/jobs/result"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

// StartResultEndpoint handles POST /api/schedules/{id}/result/start.
type StartResultEndpoint struct{}

func (e *StartResultEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/result/start", e.handler
}

func (e *StartResultEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start result computation
//	@Description	Launch final tally and statistics over the fully graded schedule
//	@Tags			results
//	@Produce		json
//	@Param			id	path		string	true	"Schedule ID"
//	@Success		202	{object}	StartStageResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/schedules/{id}/result/start [post]
func (e *StartResultEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	scheduler := svcctx.SchedulerFrom(r.Context())
	if store == nil || scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	scheduleID := r.PathValue("id")
	sched, err := store.BeginStage(r.Context(), scheduleID, types.ProgressResultStart)
	if err != nil {
		writeError(w, stageStatusCode(err), err.Error())
		return
	}

	job := result.New(scheduleID)
	if err := scheduler.Submit(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start result computation: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, StartStageResponse{
		Success:    true,
		ScheduleID: scheduleID,
		Progress:   string(sched.Progress),
		JobID:      job.ID(),
	})
}

func (e *StartResultEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "start <schedule-id>",
		Short: "Start result computation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartStageResponse
			path := "/api/schedules/" + args[0] + "/result/start"
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// StatisticsResponse returns exam-level and per-question statistics.
type StatisticsResponse struct {
	ScheduleID string            `json:"schedule_id"`
	Progress   string            `json:"progress"`
	Statistics *types.Statistics `json:"statistics"`
}

// GetStatisticsEndpoint handles GET /api/schedules/{id}/statistics.
type GetStatisticsEndpoint struct{}

func (e *GetStatisticsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules/{id}/statistics", e.handler
}

func (e *GetStatisticsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get exam statistics
//	@Description	Aggregate figures over student totals and per-question scores
//	@Tags			results
//	@Produce	json
//	@Param		id	path		string	true	"Schedule ID"
//	@Success	200	{object}	StatisticsResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	409	{object}	ErrorResponse
//	@Router		/api/schedules/{id}/statistics [get]
func (e *GetStatisticsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	sched, err := store.GetSchedule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if sched.Result.Statistics == nil {
		writeError(w, http.StatusConflict, "statistics not computed yet, schedule is "+string(sched.Progress))
		return
	}

	writeJSON(w, http.StatusOK, StatisticsResponse{
		ScheduleID: sched.ID,
		Progress:   string(sched.Progress),
		Statistics: sched.Result.Statistics,
	})
}

func (e *GetStatisticsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "statistics <schedule-id>",
		Short: "Get exam statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatisticsResponse
			path := "/api/schedules/" + args[0] + "/statistics"
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
