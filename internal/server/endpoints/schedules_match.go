package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/jobs/match"
	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

// StartStageResponse reports a launched pipeline stage.
type StartStageResponse struct {
	Success    bool   `json:"success"`
	ScheduleID string `json:"schedule_id"`
	Progress   string `json:"progress"`
	JobID      string `json:"job_id,omitempty"`
}

// stageStatusCode maps a stage-transition failure to an HTTP status.
// Progress gate violations are conflicts, everything else is a 500.
func stageStatusCode(err error) int {
	var pe *schedule.ProgressError
	if errors.As(err, &pe) {
		return http.StatusConflict
	}
	if errors.Is(err, schedule.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// StartMatchEndpoint handles POST /api/schedules/{id}/match/start.
type StartMatchEndpoint struct{}

func (e *StartMatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/match/start", e.handler
}

func (e *StartMatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start roster matching
//	@Description	Launch header recognition and automatic roster matching for a decomposed scan
//	@Tags			matching
//	@Produce		json
//	@Param			id	path		string	true	"Schedule ID"
//	@Success		202	{object}	StartStageResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/schedules/{id}/match/start [post]
func (e *StartMatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	scheduler := svcctx.SchedulerFrom(r.Context())
	if store == nil || scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	scheduleID := r.PathValue("id")
	sched, err := store.BeginStage(r.Context(), scheduleID, types.ProgressMatchStart)
	if err != nil {
		writeError(w, stageStatusCode(err), err.Error())
		return
	}

	job := match.New(scheduleID)
	if err := scheduler.Submit(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start matching: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, StartStageResponse{
		Success:    true,
		ScheduleID: scheduleID,
		Progress:   string(sched.Progress),
		JobID:      job.ID(),
	})
}

func (e *StartMatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "start <schedule-id>",
		Short: "Start roster matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartStageResponse
			path := "/api/schedules/" + args[0] + "/match/start"
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// MatchPairRequest names a student and a paper for manual reconciliation.
type MatchPairRequest struct {
	StudentID string `json:"student_id"`
	PaperID   string `json:"paper_id"`
}

// MatchResultResponse returns the current match state after a change.
type MatchResultResponse struct {
	Success     bool               `json:"success"`
	MatchResult *types.MatchResult `json:"match_result"`
}

// GetMatchEndpoint handles GET /api/schedules/{id}/match.
type GetMatchEndpoint struct{}

func (e *GetMatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules/{id}/match", e.handler
}

func (e *GetMatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get match state
//	@Description	Return the matched and unmatched student/paper sets for reconciliation
//	@Tags			match
//	@Produce		json
//	@Param			id	path		string	true	"Schedule ID"
//	@Success		200	{object}	MatchResultResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/schedules/{id}/match [get]
func (e *GetMatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
	if sched.Result.MatchResult == nil {
		writeError(w, http.StatusConflict, "matching has not run yet, schedule is "+string(sched.Progress))
		return
	}
	writeJSON(w, http.StatusOK, MatchResultResponse{Success: true, MatchResult: sched.Result.MatchResult})
}

func (e *GetMatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <schedule-id>",
		Short: "Show the current match state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp MatchResultResponse
			if err := client.Get(cmd.Context(), "/api/schedules/"+args[0]+"/match", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func matchStatusCode(err error) int {
	var pe *schedule.ProgressError
	switch {
	case errors.As(err, &pe):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrAlreadyMatched), errors.Is(err, schedule.ErrPairNotMatched):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ConnectMatchEndpoint handles POST /api/schedules/{id}/match/connect.
type ConnectMatchEndpoint struct{}

func (e *ConnectMatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/match/connect", e.handler
}

func (e *ConnectMatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Manually match a student to a paper
//	@Description	Pair an unmatched student with an unmatched paper after automatic matching
//	@Tags			matching
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Schedule ID"
//	@Param			pair	body		MatchPairRequest	true	"Student and paper"
//	@Success		200		{object}	MatchResultResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/schedules/{id}/match/connect [post]
func (e *ConnectMatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	var req MatchPairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.StudentID == "" || req.PaperID == "" {
		writeError(w, http.StatusBadRequest, "student_id and paper_id are required")
		return
	}

	sched, err := store.Connect(r.Context(), r.PathValue("id"), req.StudentID, req.PaperID)
	if err != nil {
		writeError(w, matchStatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MatchResultResponse{Success: true, MatchResult: sched.Result.MatchResult})
}

func (e *ConnectMatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	var studentID, paperID string
	cmd := &cobra.Command{
		Use:   "connect <schedule-id>",
		Short: "Manually match a student to a paper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp MatchResultResponse
			path := "/api/schedules/" + args[0] + "/match/connect"
			req := MatchPairRequest{StudentID: studentID, PaperID: paperID}
			if err := client.Post(cmd.Context(), path, req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student ID from the roster")
	cmd.Flags().StringVar(&paperID, "paper", "", "paper ID from the decomposition")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("paper")
	return cmd
}

// DisconnectMatchEndpoint handles POST /api/schedules/{id}/match/disconnect.
type DisconnectMatchEndpoint struct{}

func (e *DisconnectMatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/match/disconnect", e.handler
}

func (e *DisconnectMatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Undo a student-paper match
//	@Description	Return a matched pair to the unmatched pools for re-reconciliation
//	@Tags			matching
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Schedule ID"
//	@Param			pair	body		MatchPairRequest	true	"Student and paper"
//	@Success		200		{object}	MatchResultResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/schedules/{id}/match/disconnect [post]
func (e *DisconnectMatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	var req MatchPairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.StudentID == "" || req.PaperID == "" {
		writeError(w, http.StatusBadRequest, "student_id and paper_id are required")
		return
	}

	sched, err := store.Disconnect(r.Context(), r.PathValue("id"), req.StudentID, req.PaperID)
	if err != nil {
		writeError(w, matchStatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MatchResultResponse{Success: true, MatchResult: sched.Result.MatchResult})
}

func (e *DisconnectMatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	var studentID, paperID string
	cmd := &cobra.Command{
		Use:   "disconnect <schedule-id>",
		Short: "Undo a student-paper match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp MatchResultResponse
			path := "/api/schedules/" + args[0] + "/match/disconnect"
			req := MatchPairRequest{StudentID: studentID, PaperID: paperID}
			if err := client.Post(cmd.Context(), path, req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student ID from the roster")
	cmd.Flags().StringVar(&paperID, "paper", "", "paper ID from the decomposition")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("paper")
	return cmd
}
