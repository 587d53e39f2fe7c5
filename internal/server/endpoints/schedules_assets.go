package endpoints

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/svcctx"
)

// ScheduleAssetsEndpoint handles GET /api/schedules/{id}/assets/{path...}.
// It serves page renders and question crops from the schedule's working
// directory so reconciliation and adjudication tooling can show the
// operator what the model saw.
type ScheduleAssetsEndpoint struct{}

func (e *ScheduleAssetsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schedules/{id}/assets/{path...}", e.handler
}

func (e *ScheduleAssetsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Serve a schedule asset
//	@Description	Serve a page render or question crop from the schedule's working directory
//	@Tags			schedules
//	@Produce		png
//	@Param			id		path	string	true	"Schedule ID"
//	@Param			path	path	string	true	"Asset path relative to the schedule directory"
//	@Success		200
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/schedules/{id}/assets/{path} [get]
func (e *ScheduleAssetsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	homeDir := svcctx.HomeFrom(r.Context())
	if homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not initialized")
		return
	}

	rel := filepath.Clean(r.PathValue("path"))
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		writeError(w, http.StatusBadRequest, "invalid asset path")
		return
	}

	full := filepath.Join(homeDir.ScheduleDir(r.PathValue("id")), rel)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "no such asset")
		return
	}
	http.ServeFile(w, r, full)
}

func (e *ScheduleAssetsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}
