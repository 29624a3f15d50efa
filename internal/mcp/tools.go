package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/yurai/internal/model"
)

func (s *Server) registerTools() {
	// yurai_blame — attribute a span of a file to an AI trace.
	s.mcpServer.AddTool(
		mcplib.NewTool("yurai_blame",
			mcplib.WithDescription(`Attribute a span of a file to the AI conversation that authored it.

Supply the output of git blame for the span: the commit that introduced the
lines, its parent, and optionally a content hash and the commit's author
date. Returns the matching trace with a confidence tier (1 = provably
certain, 6 = suggestive) and the signals behind it.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("project_id",
				mcplib.Description("Project that owns the traces"),
				mcplib.Required(),
			),
			mcplib.WithString("file_path",
				mcplib.Description("Path of the file being blamed, as recorded in traces"),
				mcplib.Required(),
			),
			mcplib.WithNumber("start_line",
				mcplib.Description("First line of the span (1-based, inclusive)"),
				mcplib.Required(),
				mcplib.Min(1),
			),
			mcplib.WithNumber("end_line",
				mcplib.Description("Last line of the span (inclusive)"),
				mcplib.Required(),
				mcplib.Min(1),
			),
			mcplib.WithString("commit_sha",
				mcplib.Description("Commit that git blame says introduced these lines"),
				mcplib.Required(),
			),
			mcplib.WithString("parent_sha",
				mcplib.Description("First parent of commit_sha (git rev-parse <commit>^)"),
			),
			mcplib.WithString("content_hash",
				mcplib.Description("SHA-256 prefix of the normalized span content, optionally sha256:-prefixed"),
			),
			mcplib.WithString("timestamp",
				mcplib.Description("ISO-8601 author date of commit_sha"),
			),
		),
		s.handleBlame,
	)

	// yurai_trace — fetch a full trace record.
	s.mcpServer.AddTool(
		mcplib.NewTool("yurai_trace",
			mcplib.WithDescription("Fetch the full record of one ingested trace by its trace_id."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("project_id",
				mcplib.Description("Project that owns the trace"),
				mcplib.Required(),
			),
			mcplib.WithString("trace_id",
				mcplib.Description("Trace identifier"),
				mcplib.Required(),
			),
		),
		s.handleTrace,
	)

	// yurai_commit — inspect the trace linkage of a commit.
	s.mcpServer.AddTool(
		mcplib.NewTool("yurai_commit",
			mcplib.WithDescription("Look up which traces contributed to a commit, with a compact summary of each."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("project_id",
				mcplib.Description("Project that owns the commit link"),
				mcplib.Required(),
			),
			mcplib.WithString("commit_sha",
				mcplib.Description("Full SHA of the commit"),
				mcplib.Required(),
			),
		),
		s.handleCommit,
	)
}

func (s *Server) handleBlame(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	filePath := request.GetString("file_path", "")
	startLine := request.GetInt("start_line", 0)
	endLine := request.GetInt("end_line", 0)
	commitSHA := request.GetString("commit_sha", "")

	if projectID == "" || filePath == "" || commitSHA == "" {
		return errorResult("project_id, file_path, and commit_sha are required"), nil
	}
	if startLine < 1 || endLine < startLine {
		return errorResult("start_line and end_line must form a valid 1-based range"), nil
	}

	segment := model.BlameSegment{
		StartLine: &startLine,
		EndLine:   &endLine,
		CommitSHA: commitSHA,
	}
	if v := request.GetString("parent_sha", ""); v != "" {
		segment.ParentSHA = &v
	}
	if v := request.GetString("content_hash", ""); v != "" {
		segment.ContentHash = &v
	}
	if v := request.GetString("timestamp", ""); v != "" {
		segment.Timestamp = &v
	}

	resp, err := s.svc.Blame(ctx, model.BlameRequest{
		ProjectID: projectID,
		FilePath:  filePath,
		BlameData: []model.BlameSegment{segment},
	})
	if err != nil {
		return errorResult(fmt.Sprintf("blame failed: %v", err)), nil
	}

	return jsonResult(resp)
}

func (s *Server) handleTrace(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	traceID := request.GetString("trace_id", "")
	if projectID == "" || traceID == "" {
		return errorResult("project_id and trace_id are required"), nil
	}

	detail, err := s.svc.GetTrace(ctx, projectID, traceID)
	if err != nil {
		return errorResult(fmt.Sprintf("trace lookup failed: %v", err)), nil
	}

	return jsonResult(detail)
}

func (s *Server) handleCommit(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	commitSHA := request.GetString("commit_sha", "")
	if projectID == "" || commitSHA == "" {
		return errorResult("project_id and commit_sha are required"), nil
	}

	detail, err := s.svc.GetCommitLinkDetail(ctx, projectID, commitSHA)
	if err != nil {
		return errorResult(fmt.Sprintf("commit link lookup failed: %v", err)), nil
	}

	return jsonResult(detail)
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
