// Package mcp implements the Model Context Protocol server for Yurai.
//
// It exposes the provenance store to MCP-compatible coding agents as
// read-only tools: blame a span of a file, fetch a trace, and inspect a
// commit link. Agents use these to answer "who wrote this?" questions
// without shelling out to the HTTP API.
package mcp

import (
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/yurai/internal/service/provenance"
)

// Server wraps the MCP server with Yurai's provenance facade.
type Server struct {
	mcpServer *mcpserver.MCPServer
	svc       *provenance.Service
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all tools registered.
func New(svc *provenance.Service, version string, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"yurai",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}
