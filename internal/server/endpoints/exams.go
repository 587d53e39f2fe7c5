package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

// CreateExamRequest is the body for creating an exam layout.
type CreateExamRequest struct {
	Name       string            `json:"name"`
	Components []types.Component `json:"components"`
}

// CreateExamResponse returns the new exam's document ID.
type CreateExamResponse struct {
	ID string `json:"id"`
}

// CreateExamEndpoint handles POST /api/exams.
type CreateExamEndpoint struct{}

func (e *CreateExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/exams", e.handler
}

func (e *CreateExamEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create exam layout
//	@Description	Create an exam layout definition with positioned components
//	@Tags			exams
//	@Accept			json
//	@Produce		json
//	@Param			exam	body		CreateExamRequest	true	"Exam layout"
//	@Success		201		{object}	CreateExamResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/exams [post]
func (e *CreateExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	var req CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "exam name is required")
		return
	}
	if len(req.Components) == 0 {
		writeError(w, http.StatusBadRequest, "exam needs at least one component")
		return
	}

	id, err := store.CreateExam(r.Context(), &types.Exam{
		Name:       req.Name,
		Components: req.Components,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CreateExamResponse{ID: id})
}

func (e *CreateExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}

// ListExamsResponse is the response for listing exams.
type ListExamsResponse struct {
	Exams []*types.Exam `json:"exams"`
}

// ListExamsEndpoint handles GET /api/exams.
type ListExamsEndpoint struct{}

func (e *ListExamsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/exams", e.handler
}

func (e *ListExamsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List exam layouts
//	@Tags		exams
//	@Produce	json
//	@Success	200	{object}	ListExamsResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/exams [get]
func (e *ListExamsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	exams, err := store.ListExams(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListExamsResponse{Exams: exams})
}

func (e *ListExamsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exam layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListExamsResponse
			if err := client.Get(cmd.Context(), "/api/exams", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetExamEndpoint handles GET /api/exams/{id}.
type GetExamEndpoint struct{}

func (e *GetExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/exams/{id}", e.handler
}

func (e *GetExamEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get exam layout
//	@Tags		exams
//	@Produce	json
//	@Param		id	path		string	true	"Exam ID"
//	@Success	200	{object}	types.Exam
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/exams/{id} [get]
func (e *GetExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	exam, err := store.GetExam(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (e *GetExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an exam layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp types.Exam
			if err := client.Get(cmd.Context(), "/api/exams/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteExamEndpoint handles DELETE /api/exams/{id}.
type DeleteExamEndpoint struct{}

func (e *DeleteExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/exams/{id}", e.handler
}

func (e *DeleteExamEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Delete exam layout
//	@Tags		exams
//	@Produce	json
//	@Param		id	path		string	true	"Exam ID"
//	@Success	200	{object}	OperationResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/exams/{id} [delete]
func (e *DeleteExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	id := r.PathValue("id")
	if err := store.DeleteExam(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "exam deleted", DocumentID: id})
}

func (e *DeleteExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an exam layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/exams/"+args[0])
		},
	}
}
