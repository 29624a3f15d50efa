package model

import (
	"encoding/json"
	"time"
)

// GenerateTokenRequest is the request body for POST /api/v1/tokens/generate.
type GenerateTokenRequest struct {
	UserID string `json:"user_id"`
}

// GenerateTokenResponse is the response for POST /api/v1/tokens/generate.
type GenerateTokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Note   string `json:"note"`
}

// VerifyTokenRequest is the request body for POST /api/v1/tokens/verify.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyTokenResponse is the response for POST /api/v1/tokens/verify.
type VerifyTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CreateProjectRequest is the request body for POST /api/v1/projects.
type CreateProjectRequest struct {
	ProjectID   string  `json:"project_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ProjectResponse wraps a project row.
type ProjectResponse struct {
	Project Project `json:"project"`
}

// ProjectDetailResponse is the response for GET /api/v1/projects/{id}.
type ProjectDetailResponse struct {
	Project Project      `json:"project"`
	Stats   ProjectStats `json:"stats"`
}

// IngestTraceRequest is the request body for POST /api/v1/traces.
// Trace is the raw trace record; it is indexed and preserved verbatim.
type IngestTraceRequest struct {
	ProjectID            string                `json:"project_id"`
	Trace                json.RawMessage       `json:"trace"`
	ConversationContents []ConversationContent `json:"conversation_contents,omitempty"`
}

// IngestTraceResponse is the response for POST /api/v1/traces.
type IngestTraceResponse struct {
	OK      bool   `json:"ok"`
	TraceID string `json:"trace_id"`
}

// BatchItem is one trace plus its conversation contents in a batch ingest.
type BatchItem struct {
	Trace                json.RawMessage       `json:"trace"`
	ConversationContents []ConversationContent `json:"conversation_contents,omitempty"`
}

// BatchIngestRequest is the request body for POST /api/v1/traces/batch.
type BatchIngestRequest struct {
	ProjectID string      `json:"project_id"`
	Items     []BatchItem `json:"items"`
}

// BatchIngestResponse is the response for POST /api/v1/traces/batch.
type BatchIngestResponse struct {
	OK       bool     `json:"ok"`
	Count    int      `json:"count"`
	TraceIDs []string `json:"trace_ids"`
}

// TraceListResponse is the response for GET /api/v1/traces.
type TraceListResponse struct {
	Traces []json.RawMessage `json:"traces"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// TraceDetailResponse is the response for GET /api/v1/traces/{id}.
type TraceDetailResponse struct {
	Trace  json.RawMessage `json:"trace"`
	UserID string          `json:"user_id"`
}

// SyncConversationsRequest is the request body for POST /api/v1/conversations/sync.
type SyncConversationsRequest struct {
	ProjectID            string                `json:"project_id"`
	ConversationContents []ConversationContent `json:"conversation_contents"`
}

// IngestCommitLinkRequest is the request body for POST /api/v1/commit-links.
type IngestCommitLinkRequest struct {
	ProjectID    string          `json:"project_id"`
	CommitSHA    string          `json:"commit_sha"`
	ParentSHA    *string         `json:"parent_sha,omitempty"`
	TraceIDs     []string        `json:"trace_ids"`
	FilesChanged []string        `json:"files_changed,omitempty"`
	CommittedAt  *time.Time      `json:"committed_at,omitempty"`
	Ledger       json.RawMessage `json:"ledger,omitempty"`
}

// IngestCommitLinkResponse is the response for POST /api/v1/commit-links.
type IngestCommitLinkResponse struct {
	OK        bool   `json:"ok"`
	CommitSHA string `json:"commit_sha"`
}

// TraceSummary is a compact view of a linked trace in commit-link detail.
type TraceSummary struct {
	TraceID   string         `json:"trace_id"`
	Timestamp string         `json:"timestamp,omitempty"`
	Tool      map[string]any `json:"tool,omitempty"`
	ModelID   string         `json:"model_id,omitempty"`
	Found     *bool          `json:"found,omitempty"`
}

// CommitLinkDetailResponse is the response for GET /api/v1/commit-links/{sha}.
type CommitLinkDetailResponse struct {
	CommitLink
	TraceSummaries []TraceSummary `json:"trace_summaries"`
}

// BlameSegment is one segment of git-blame output submitted for attribution.
// All lines in a segment were introduced by the same commit.
type BlameSegment struct {
	StartLine   *int    `json:"start_line"`
	EndLine     *int    `json:"end_line"`
	CommitSHA   string  `json:"commit_sha"`
	ParentSHA   *string `json:"parent_sha,omitempty"`
	ContentHash *string `json:"content_hash,omitempty"`
	Timestamp   *string `json:"timestamp,omitempty"`
}

// BlameRequest is the request body for POST /api/v1/blame.
type BlameRequest struct {
	ProjectID string         `json:"project_id"`
	FilePath  string         `json:"file_path"`
	BlameData []BlameSegment `json:"blame_data"`
}

// Contributor identifies who produced a span of code.
type Contributor struct {
	Type    string `json:"type,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

// BlameAttribution is one merged attribution entry in a blame response.
// Tier and TraceID serialize as null when no attribution was possible.
type BlameAttribution struct {
	StartLine           int            `json:"start_line"`
	EndLine             int            `json:"end_line"`
	Tier                *int           `json:"tier"`
	Confidence          float64        `json:"confidence"`
	TraceID             *string        `json:"trace_id"`
	Contributor         *Contributor   `json:"contributor,omitempty"`
	ModelID             string         `json:"model_id,omitempty"`
	ContributorType     string         `json:"contributor_type,omitempty"`
	ConversationURL     string         `json:"conversation_url,omitempty"`
	ConversationSummary string         `json:"conversation_summary,omitempty"`
	Tool                map[string]any `json:"tool,omitempty"`
	Signals             []string       `json:"signals"`
	CommitLinkMatch     bool           `json:"commit_link_match"`
	ContentHashMatch    bool           `json:"content_hash_match"`
}

// BlameResponse is the response for POST /api/v1/blame.
type BlameResponse struct {
	FilePath     string             `json:"file_path"`
	Attributions []BlameAttribution `json:"attributions"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	DB        string `json:"db"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}
