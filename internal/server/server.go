package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/yurai/internal/auth"
	"github.com/ashita-ai/yurai/internal/service/provenance"
)

// Server is the Yurai HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Config holds all dependencies and settings for creating a Server.
type Config struct {
	Svc    *provenance.Service
	Codec  *auth.Codec
	Logger *slog.Logger

	// Optional MCP server; nil disables the /mcp mount.
	MCPServer *mcpserver.MCPServer

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg Config) *Server {
	h := &Handlers{
		svc:      cfg.Svc,
		codec:    cfg.Codec,
		logger:   cfg.Logger,
		version:  cfg.Version,
		maxBytes: cfg.MaxRequestBodyBytes,
	}

	mux := http.NewServeMux()

	// Open endpoints.
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("POST /api/v1/tokens/generate", h.HandleGenerateToken)
	mux.HandleFunc("POST /api/v1/tokens/verify", h.HandleVerifyToken)

	// Projects.
	mux.HandleFunc("POST /api/v1/projects", h.HandleCreateProject)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.HandleGetProject)

	// Trace ingestion and queries.
	mux.HandleFunc("POST /api/v1/traces", h.HandleIngestTrace)
	mux.HandleFunc("POST /api/v1/traces/batch", h.HandleBatchIngest)
	mux.HandleFunc("GET /api/v1/traces", h.HandleListTraces)
	mux.HandleFunc("GET /api/v1/traces/{id}", h.HandleGetTrace)

	// Conversations.
	mux.HandleFunc("POST /api/v1/conversations/sync", h.HandleSyncConversations)
	mux.HandleFunc("GET /api/v1/conversations/content", h.HandleGetConversationContent)

	// Commit links and ledgers.
	mux.HandleFunc("POST /api/v1/commit-links", h.HandleIngestCommitLink)
	mux.HandleFunc("GET /api/v1/commit-links/{sha}", h.HandleGetCommitLink)
	mux.HandleFunc("GET /api/v1/ledgers/{sha}", h.HandleGetLedger)

	// Blame.
	mux.HandleFunc("POST /api/v1/blame", h.HandleBlame)

	// MCP StreamableHTTP transport (auth required via the middleware chain).
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.Codec, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
