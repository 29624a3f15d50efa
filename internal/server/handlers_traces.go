package server

import (
	"net/http"
	"strconv"

	"github.com/ashita-ai/yurai/internal/model"
)

// HandleIngestTrace stores one trace plus optional conversation contents.
func (h *Handlers) HandleIngestTrace(w http.ResponseWriter, r *http.Request) {
	var req model.IngestTraceRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	traceID, err := h.svc.IngestTrace(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.IngestTraceResponse{OK: true, TraceID: traceID})
}

// HandleBatchIngest stores a batch of traces atomically.
func (h *Handlers) HandleBatchIngest(w http.ResponseWriter, r *http.Request) {
	var req model.BatchIngestRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	traceIDs, err := h.svc.BatchIngest(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.BatchIngestResponse{
		OK:       true,
		Count:    len(traceIDs),
		TraceIDs: traceIDs,
	})
}

// HandleListTraces returns a page of trace records.
func (h *Handlers) HandleListTraces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), 0)
	offset := queryInt(q.Get("offset"), 0)

	resp, err := h.svc.ListTraces(r.Context(), q.Get("project_id"), q.Get("since"), q.Get("until"), limit, offset)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetTrace returns one full trace record.
func (h *Handlers) HandleGetTrace(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetTrace(r.Context(), r.URL.Query().Get("project_id"), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleSyncConversations upserts conversation transcripts.
func (h *Handlers) HandleSyncConversations(w http.ResponseWriter, r *http.Request) {
	var req model.SyncConversationsRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.svc.SyncConversations(r.Context(), UserIDFromContext(r.Context()), req); err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleGetConversationContent returns one stored transcript.
func (h *Handlers) HandleGetConversationContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	content, err := h.svc.GetConversationContent(r.Context(), q.Get("project_id"), q.Get("url"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

// HandleIngestCommitLink stores a commit-trace link.
func (h *Handlers) HandleIngestCommitLink(w http.ResponseWriter, r *http.Request) {
	var req model.IngestCommitLinkRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	commitSHA, err := h.svc.IngestCommitLink(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.IngestCommitLinkResponse{OK: true, CommitSHA: commitSHA})
}

// HandleGetCommitLink returns a commit link with trace summaries.
func (h *Handlers) HandleGetCommitLink(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetCommitLinkDetail(r.Context(), r.URL.Query().Get("project_id"), r.PathValue("sha"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleGetLedger returns the raw ledger attached to a commit.
func (h *Handlers) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.svc.GetLedger(r.Context(), r.URL.Query().Get("project_id"), r.PathValue("sha"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ledger)
}

func queryInt(value string, defaultVal int) int {
	if value == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return defaultVal
}
