package server

import (
	"net/http"

	"github.com/ashita-ai/yurai/internal/model"
)

// HandleBlame attributes git-blame segments of a file to AI traces.
func (h *Handlers) HandleBlame(w http.ResponseWriter, r *http.Request) {
	var req model.BlameRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.svc.Blame(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
