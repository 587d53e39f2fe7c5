package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

// CreateScheduleRequest binds an exam template to a class roster.
type CreateScheduleRequest struct {
	ExamID  string `json:"exam_id"`
	ClassID string `json:"class_id"`
}

// CreateScheduleResponse returns the new schedule's document ID.
type CreateScheduleResponse struct {
	ID string `json:"id"`
}

// CreateScheduleEndpoint handles POST /api/schedules.
type CreateScheduleEndpoint struct{}

func (e *CreateScheduleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schedules", e.handler
}

func (e *CreateScheduleEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create grading schedule
//	@Description	Bind an exam template to a class roster, starting a new grading run
//	@Tags			schedules
//	@Accept			json
//	@Produce		json
//	@Param			schedule	body		CreateScheduleRequest	true	"Exam and class IDs"
//	@Success		201			{object}	CreateScheduleResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/schedules [post]
func (e *CreateScheduleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ExamID == "" || req.ClassID == "" {
		writeError(w, http.StatusBadRequest, "exam_id and class_id are required")
		return
	}

	// Reject dangling references up front so the schedule never points at
	// an exam or class that cannot be loaded by the pipeline stages.
	if _, err := store.GetExam(r.Context(), req.ExamID); err != nil {
		writeError(w, http.StatusNotFound, "exam: "+err.Error())
		return
	}
	if _, err := store.GetClass(r.Context(), req.ClassID); err != nil {
		writeError(w, http.StatusNotFound, "class: "+err.Error())
		return
	}

	id, err := store.CreateSchedule(r.Context(), req.ExamID, req.ClassID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CreateScheduleResponse{ID: id})
}

func (e *CreateScheduleEndpoint) Command(getServerURL func() string) *cobra.Command {
	var examID, classID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a grading schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CreateScheduleResponse
			req := CreateScheduleRequest{ExamID: examID, ClassID: classID}
			if err := client.Post(cmd.Context(), "/api/schedules", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&examID, "exam", "", "exam template ID")
	cmd.Flags().StringVar(&classID, "class", "", "class roster ID")
	_ = cmd.MarkFlagRequired("exam")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

// ListSchedulesResponse is the response for listing schedules.
type ListSchedulesResponse struct {
	Schedules []*types.Schedule `json:"schedules"`
}

// ListSchedulesEndpoint handles GET /api/schedules.
type ListSchedulesEndpoint struct{}

func (e *ListSchedulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules", e.handler
}

func (e *ListSchedulesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List grading schedules
//	@Tags		schedules
//	@Produce	json
//	@Success	200	{object}	ListSchedulesResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/schedules [get]
func (e *ListSchedulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	schedules, err := store.ListSchedules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListSchedulesResponse{Schedules: schedules})
}

func (e *ListSchedulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List grading schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListSchedulesResponse
			if err := client.Get(cmd.Context(), "/api/schedules", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetScheduleEndpoint handles GET /api/schedules/{id}.
type GetScheduleEndpoint struct{}

func (e *GetScheduleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules/{id}", e.handler
}

func (e *GetScheduleEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get grading schedule
//	@Tags		schedules
//	@Produce	json
//	@Param		id	path		string	true	"Schedule ID"
//	@Success	200	{object}	types.Schedule
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/schedules/{id} [get]
func (e *GetScheduleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, sched)
}

func (e *GetScheduleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a grading schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp types.Schedule
			if err := client.Get(cmd.Context(), "/api/schedules/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteScheduleEndpoint handles DELETE /api/schedules/{id}.
type DeleteScheduleEndpoint struct{}

func (e *DeleteScheduleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/schedules/{id}", e.handler
}

func (e *DeleteScheduleEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Delete grading schedule
//	@Tags		schedules
//	@Produce	json
//	@Param		id	path		string	true	"Schedule ID"
//	@Success	200	{object}	OperationResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/schedules/{id} [delete]
func (e *DeleteScheduleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	id := r.PathValue("id")
	if err := store.DeleteSchedule(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Drop the working directory too; the scan and crops are useless
	// without the schedule document.
	if homeDir := svcctx.HomeFrom(r.Context()); homeDir != nil {
		if err := homeDir.RemoveScheduleDir(id); err != nil {
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Warn("failed to remove schedule directory", "schedule_id", id, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "schedule deleted", DocumentID: id})
}

func (e *DeleteScheduleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a grading schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/schedules/"+args[0])
		},
	}
}
