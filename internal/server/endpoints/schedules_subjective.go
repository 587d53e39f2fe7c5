package endpoints

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/jobs/subjective"
	subjrec "github.com/Extazy1/ezmark/internal/recognition/subjective"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

// StartSubjectiveEndpoint handles POST /api/schedules/{id}/subjective/start.
type StartSubjectiveEndpoint struct{}

func (e *StartSubjectiveEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/subjective/start", e.handler
}

func (e *StartSubjectiveEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start subjective grading
//	@Description	Launch AI suggestion generation for free-response answers
//	@Tags			subjective
//	@Produce		json
//	@Param			id	path		string	true	"Schedule ID"
//	@Success		202	{object}	StartStageResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/schedules/{id}/subjective/start [post]
func (e *StartSubjectiveEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	scheduler := svcctx.SchedulerFrom(r.Context())
	if store == nil || scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	scheduleID := r.PathValue("id")
	sched, err := store.BeginStage(r.Context(), scheduleID, types.ProgressSubjectiveStart)
	if err != nil {
		writeError(w, stageStatusCode(err), err.Error())
		return
	}

	job := subjective.New(scheduleID)
	if err := scheduler.Submit(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start subjective grading: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, StartStageResponse{
		Success:    true,
		ScheduleID: scheduleID,
		Progress:   string(sched.Progress),
		JobID:      job.ID(),
	})
}

func (e *StartSubjectiveEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "start <schedule-id>",
		Short: "Start subjective grading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartStageResponse
			path := "/api/schedules/" + args[0] + "/subjective/start"
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SuggestionResponse returns one free-response answer with its AI
// suggestion, if generated.
type SuggestionResponse struct {
	PaperID    string                  `json:"paper_id"`
	StudentID  string                  `json:"student_id"`
	QuestionID string                  `json:"question_id"`
	Answer     *types.SubjectiveAnswer `json:"answer"`
}

// GetSuggestionEndpoint handles
// GET /api/schedules/{id}/subjective/{paper_id}/{question_id}/suggestion.
type GetSuggestionEndpoint struct{}

func (e *GetSuggestionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules/{id}/subjective/{paper_id}/{question_id}/suggestion", e.handler
}

func (e *GetSuggestionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get AI grading suggestion
//	@Description	Fetch one free-response answer and its AI suggestion for human review
//	@Tags			subjective
//	@Produce		json
//	@Param			id			path		string	true	"Schedule ID"
//	@Param			paper_id	path		string	true	"Paper ID"
//	@Param			question_id	path		string	true	"Question component ID"
//	@Success		200			{object}	SuggestionResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/schedules/{id}/subjective/{paper_id}/{question_id}/suggestion [get]
func (e *GetSuggestionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	scheduleID := r.PathValue("id")
	paperID := r.PathValue("paper_id")
	questionID := r.PathValue("question_id")

	sched, err := store.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	sp := sched.Result.StudentPaperByID(paperID)
	if sp == nil {
		writeError(w, http.StatusNotFound, "no paper "+paperID)
		return
	}
	for i := range sp.SubjectiveAnswers {
		answer := &sp.SubjectiveAnswers[i]
		if answer.QuestionID != questionID {
			continue
		}
		// The stage prefetches suggestions, but a prefetch can fail.
		// Retry once, synchronously, when the cache is still pending.
		if answer.AISuggestion.Score == types.PendingScore {
			if fresh := e.computeSuggestion(r, sched, paperID, questionID); fresh != nil {
				answer = fresh
			}
		}
		writeJSON(w, http.StatusOK, SuggestionResponse{
			PaperID:    paperID,
			StudentID:  sp.Student.StudentID,
			QuestionID: questionID,
			Answer:     answer,
		})
		return
	}
	writeError(w, http.StatusNotFound, "no subjective answer "+questionID+" on paper "+paperID)
}

// computeSuggestion grades one answer crop on demand and caches the
// result. Any failure leaves the cached suggestion pending; the teacher
// scores the answer cold.
func (e *GetSuggestionEndpoint) computeSuggestion(r *http.Request, sched *types.Schedule, paperID, questionID string) *types.SubjectiveAnswer {
	ctx := r.Context()
	store := svcctx.ScheduleStoreFrom(ctx)
	registry := svcctx.RegistryFrom(ctx)
	homeDir := svcctx.HomeFrom(ctx)
	logger := svcctx.LoggerFrom(ctx)
	if registry == nil || homeDir == nil {
		return nil
	}

	warn := func(msg string, err error) {
		if logger != nil {
			logger.Warn(msg,
				"schedule_id", sched.ID,
				"paper_id", paperID,
				"question_id", questionID,
				"error", err)
		}
	}

	client, err := registry.Default()
	if err != nil {
		warn("no provider for on-demand suggestion", err)
		return nil
	}
	exam, err := store.GetExam(ctx, sched.ExamID)
	if err != nil {
		warn("failed to load exam for on-demand suggestion", err)
		return nil
	}
	component := exam.ComponentByID(questionID)
	if component == nil {
		return nil
	}
	image, err := os.ReadFile(homeDir.QuestionCropPath(sched.ID, paperID, questionID))
	if err != nil {
		warn("failed to read crop for on-demand suggestion", err)
		return nil
	}

	result, err := subjrec.Recognize(ctx, client, subjrec.Input{
		QuestionHTML:    component.QuestionHTML,
		ReferenceAnswer: component.ReferenceAnswer,
		MaxScore:        component.Score,
		AnswerImage:     image,
	})
	if err != nil {
		warn("on-demand suggestion failed", err)
		return nil
	}
	if result.Failed() {
		return nil
	}

	updated, err := store.SetAISuggestion(ctx, sched.ID, paperID, questionID, types.AISuggestion{
		Reasoning:  result.Reasoning,
		OCRText:    result.OCRResult,
		Suggestion: result.Suggestion,
		Score:      result.Score,
	})
	if err != nil {
		warn("failed to cache on-demand suggestion", err)
		return nil
	}

	if sp := updated.Result.StudentPaperByID(paperID); sp != nil {
		for i := range sp.SubjectiveAnswers {
			if sp.SubjectiveAnswers[i].QuestionID == questionID {
				return &sp.SubjectiveAnswers[i]
			}
		}
	}
	return nil
}

func (e *GetSuggestionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var paperID, questionID string
	cmd := &cobra.Command{
		Use:   "suggestion <schedule-id>",
		Short: "Get an AI grading suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SuggestionResponse
			path := "/api/schedules/" + args[0] + "/subjective/" + paperID + "/" + questionID + "/suggestion"
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&paperID, "paper", "", "paper ID")
	cmd.Flags().StringVar(&questionID, "question", "", "question component ID")
	_ = cmd.MarkFlagRequired("paper")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

// ScoreRequest records a human score for one free-response answer.
type ScoreRequest struct {
	PaperID    string  `json:"paper_id"`
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
}

// ScoreResponse reports progress after recording a score.
type ScoreResponse struct {
	Success  bool   `json:"success"`
	Progress string `json:"progress"`
}

// ScoreSubjectiveEndpoint handles POST /api/schedules/{id}/subjective/score.
type ScoreSubjectiveEndpoint struct{}

func (e *ScoreSubjectiveEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules/{id}/subjective/score", e.handler
}

func (e *ScoreSubjectiveEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Score a free-response answer
//	@Description	Record the teacher's score for one answer. Grading finishes when every answer is scored.
//	@Tags			subjective
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Schedule ID"
//	@Param			score	body		ScoreRequest	true	"Score"
//	@Success		200		{object}	ScoreResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/schedules/{id}/subjective/score [post]
func (e *ScoreSubjectiveEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PaperID == "" || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "paper_id and question_id are required")
		return
	}

	sched, err := store.SetSubjectiveScore(r.Context(), r.PathValue("id"), req.PaperID, req.QuestionID, req.Score)
	if err != nil {
		writeError(w, stageStatusCode(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ScoreResponse{Success: true, Progress: string(sched.Progress)})
}

func (e *ScoreSubjectiveEndpoint) Command(getServerURL func() string) *cobra.Command {
	var paperID, questionID string
	var score float64
	cmd := &cobra.Command{
		Use:   "score <schedule-id>",
		Short: "Score a free-response answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ScoreResponse
			path := "/api/schedules/" + args[0] + "/subjective/score"
			req := ScoreRequest{PaperID: paperID, QuestionID: questionID, Score: score}
			if err := client.Post(cmd.Context(), path, req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&paperID, "paper", "", "paper ID")
	cmd.Flags().StringVar(&questionID, "question", "", "question component ID")
	cmd.Flags().Float64Var(&score, "score", 0, "awarded score")
	_ = cmd.MarkFlagRequired("paper")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}
