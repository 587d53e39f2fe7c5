package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/jobs/objective"
	"github.com/Extazy1/ezmark/internal/schedule"
	"github.com/Extazy1/ezmark/internal/svcctx"
)

// StartObjectiveEndpoint handles POST /api/schedules/{id}/objective/start.
type StartObjectiveEndpoint struct{}

func (e *StartObjectiveEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/objective/start", e.handler
}

func (e *StartObjectiveEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start objective scoring
//	@Description	Finalize the roster match and launch recognition of choice and fill-in answers
//	@Tags			objective
//	@Produce		json
//	@Param			id	path		string	true	"Schedule ID"
//	@Success		202	{object}	StartStageResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/schedules/{id}/objective/start [post]
func (e *StartObjectiveEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	scheduler := svcctx.SchedulerFrom(r.Context())
	if store == nil || scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	scheduleID := r.PathValue("id")
	sched, err := store.BeginObjective(r.Context(), scheduleID)
	if err != nil {
		writeError(w, stageStatusCode(err), err.Error())
		return
	}

	job := objective.New(scheduleID)
	if err := scheduler.Submit(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start objective scoring: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, StartStageResponse{
		Success:    true,
		ScheduleID: scheduleID,
		Progress:   string(sched.Progress),
		JobID:      job.ID(),
	})
}

func (e *StartObjectiveEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "start <schedule-id>",
		Short: "Start objective scoring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartStageResponse
			path := "/api/schedules/" + args[0] + "/objective/start"
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// UncertainAnswersResponse lists objective answers needing human review.
type UncertainAnswersResponse struct {
	ScheduleID string                     `json:"schedule_id"`
	Count      int                        `json:"count"`
	Answers    []schedule.UncertainAnswer `json:"answers"`
}

// ListUncertainEndpoint handles GET /api/schedules/{id}/objective/uncertain.
type ListUncertainEndpoint struct{}

func (e *ListUncertainEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules/{id}/objective/uncertain", e.handler
}

func (e *ListUncertainEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List uncertain objective answers
//	@Description	Objective answers the recognizer could not read, awaiting adjudication
//	@Tags			objective
//	@Produce		json
//	@Param			id	path		string	true	"Schedule ID"
//	@Success		200	{object}	UncertainAnswersResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/schedules/{id}/objective/uncertain [get]
func (e *ListUncertainEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	answers := schedule.ListUncertain(&sched.Result)
	writeJSON(w, http.StatusOK, UncertainAnswersResponse{
		ScheduleID: sched.ID,
		Count:      len(answers),
		Answers:    answers,
	})
}

func (e *ListUncertainEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "uncertain <schedule-id>",
		Short: "List uncertain objective answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UncertainAnswersResponse
			path := "/api/schedules/" + args[0] + "/objective/uncertain"
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// AdjudicateRequest resolves one uncertain objective answer.
type AdjudicateRequest struct {
	PaperID    string `json:"paper_id"`
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
}

// AdjudicateResponse reports the remaining uncertain count after a ruling.
type AdjudicateResponse struct {
	Success   bool   `json:"success"`
	Uncertain int    `json:"uncertain"`
	Progress  string `json:"progress"`
}

// AdjudicateEndpoint handles POST /api/schedules/{id}/objective/adjudicate.
type AdjudicateEndpoint struct{}

func (e *AdjudicateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/objective/adjudicate", e.handler
}

func (e *AdjudicateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Adjudicate an uncertain answer
//	@Description	Rule an unreadable objective answer correct or incorrect. Full marks or zero.
//	@Tags			objective
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Schedule ID"
//	@Param			ruling	body		AdjudicateRequest	true	"Ruling"
//	@Success		200		{object}	AdjudicateResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/schedules/{id}/objective/adjudicate [post]
func (e *AdjudicateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	var req AdjudicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PaperID == "" || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "paper_id and question_id are required")
		return
	}

	sched, err := store.Adjudicate(r.Context(), r.PathValue("id"), req.PaperID, req.QuestionID, req.Correct)
	if err != nil {
		writeError(w, stageStatusCode(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AdjudicateResponse{
		Success:   true,
		Uncertain: sched.Result.UncertainCount(),
		Progress:  string(sched.Progress),
	})
}

func (e *AdjudicateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var paperID, questionID string
	var correct bool
	cmd := &cobra.Command{
		Use:   "adjudicate <schedule-id>",
		Short: "Adjudicate an uncertain objective answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp AdjudicateResponse
			path := "/api/schedules/" + args[0] + "/objective/adjudicate"
			req := AdjudicateRequest{PaperID: paperID, QuestionID: questionID, Correct: correct}
			if err := client.Post(cmd.Context(), path, req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&paperID, "paper", "", "paper ID")
	cmd.Flags().StringVar(&questionID, "question", "", "question component ID")
	cmd.Flags().BoolVar(&correct, "correct", false, "rule the answer correct")
	_ = cmd.MarkFlagRequired("paper")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}
