package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashita-ai/yurai/internal/auth"
	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/service/provenance"
	"github.com/ashita-ai/yurai/internal/storage"
)

// Handlers implements all HTTP endpoints.
type Handlers struct {
	svc      *provenance.Service
	codec    *auth.Codec
	logger   *slog.Logger
	version  string
	maxBytes int64
}

// serviceError maps facade errors onto HTTP statuses: validation 400,
// not-found 404, anything else a logged 500.
func (h *Handlers) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *provenance.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleRoot returns the service descriptor.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "yurai",
		"version": h.version,
		"endpoints": []string{
			"GET  /health",
			"POST /api/v1/tokens/generate",
			"POST /api/v1/tokens/verify",
			"POST /api/v1/projects",
			"GET  /api/v1/projects/{id}",
			"POST /api/v1/traces",
			"POST /api/v1/traces/batch",
			"GET  /api/v1/traces",
			"GET  /api/v1/traces/{id}",
			"POST /api/v1/conversations/sync",
			"GET  /api/v1/conversations/content",
			"POST /api/v1/commit-links",
			"GET  /api/v1/commit-links/{sha}",
			"GET  /api/v1/ledgers/{sha}",
			"POST /api/v1/blame",
		},
	})
}

// HandleHealth reports service and database health. 503 when the database
// is unreachable.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:    "ok",
		DB:        "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		resp.Status = "degraded"
		resp.DB = "unreachable"
		resp.Error = "database unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGenerateToken issues a bearer token for a user ID. Open by design:
// the token binds identity for attribution, it is not an access grant.
func (h *Handlers) HandleGenerateToken(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateTokenRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := h.codec.Generate(req.UserID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.GenerateTokenResponse{
		Token:  token,
		UserID: req.UserID,
		Note:   "keep this token; it identifies you in ingested traces",
	})
}

// HandleVerifyToken checks a token's signature and returns its user ID.
func (h *Handlers) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyTokenRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	userID, ok := h.codec.Decode(req.Token)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, model.VerifyTokenResponse{
			Valid: false,
			Error: "invalid token",
		})
		return
	}
	writeJSON(w, http.StatusOK, model.VerifyTokenResponse{Valid: true, UserID: userID})
}
