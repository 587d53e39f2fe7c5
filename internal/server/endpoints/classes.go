package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/svcctx"
	"github.com/Extazy1/ezmark/internal/types"
)

// CreateClassRequest is the body for creating a class roster.
type CreateClassRequest struct {
	Name     string          `json:"name"`
	Students []types.Student `json:"students"`
}

// CreateClassResponse returns the new class's document ID.
type CreateClassResponse struct {
	ID string `json:"id"`
}

// CreateClassEndpoint handles POST /api/classes.
type CreateClassEndpoint struct{}

func (e *CreateClassEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/classes", e.handler
}

func (e *CreateClassEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create class roster
//	@Description	Create a class roster with student names and IDs
//	@Tags			classes
//	@Accept			json
//	@Produce		json
//	@Param			class	body		CreateClassRequest	true	"Class roster"
//	@Success		201		{object}	CreateClassResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/classes [post]
func (e *CreateClassEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	var req CreateClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "class name is required")
		return
	}
	if len(req.Students) == 0 {
		writeError(w, http.StatusBadRequest, "class needs at least one student")
		return
	}
	seen := make(map[string]bool, len(req.Students))
	for _, s := range req.Students {
		if s.StudentID == "" {
			writeError(w, http.StatusBadRequest, "every student needs a student_id")
			return
		}
		if seen[s.StudentID] {
			writeError(w, http.StatusBadRequest, "duplicate student_id "+s.StudentID)
			return
		}
		seen[s.StudentID] = true
	}

	id, err := store.CreateClass(r.Context(), &types.Class{
		Name:     req.Name,
		Students: req.Students,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CreateClassResponse{ID: id})
}

func (e *CreateClassEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}

// ListClassesResponse is the response for listing classes.
type ListClassesResponse struct {
	Classes []*types.Class `json:"classes"`
}

// ListClassesEndpoint handles GET /api/classes.
type ListClassesEndpoint struct{}

func (e *ListClassesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/classes", e.handler
}

func (e *ListClassesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List class rosters
//	@Tags		classes
//	@Produce	json
//	@Success	200	{object}	ListClassesResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/classes [get]
func (e *ListClassesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	classes, err := store.ListClasses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListClassesResponse{Classes: classes})
}

func (e *ListClassesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List class rosters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListClassesResponse
			if err := client.Get(cmd.Context(), "/api/classes", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetClassEndpoint handles GET /api/classes/{id}.
type GetClassEndpoint struct{}

func (e *GetClassEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/classes/{id}", e.handler
}

func (e *GetClassEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get class roster
//	@Tags		classes
//	@Produce	json
//	@Param		id	path		string	true	"Class ID"
//	@Success	200	{object}	types.Class
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/classes/{id} [get]
func (e *GetClassEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	class, err := store.GetClass(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (e *GetClassEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a class roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp types.Class
			if err := client.Get(cmd.Context(), "/api/classes/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteClassEndpoint handles DELETE /api/classes/{id}.
type DeleteClassEndpoint struct{}

func (e *DeleteClassEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/classes/{id}", e.handler
}

func (e *DeleteClassEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Delete class roster
//	@Tags		classes
//	@Produce	json
//	@Param		id	path		string	true	"Class ID"
//	@Success	200	{object}	OperationResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/classes/{id} [delete]
func (e *DeleteClassEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ScheduleStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store not initialized")
		return
	}

	id := r.PathValue("id")
	if err := store.DeleteClass(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "class deleted", DocumentID: id})
}

func (e *DeleteClassEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a class roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/classes/"+args[0])
		},
	}
}
