package server

import (
	"net/http"

	"github.com/ashita-ai/yurai/internal/model"
)

// HandleCreateProject creates or updates a project.
func (h *Handlers) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProjectRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	project, err := h.svc.UpsertProject(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.ProjectResponse{Project: project})
}

// HandleGetProject returns a project with its stats.
func (h *Handlers) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetProjectDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
