// Package model defines the core entities and HTTP API types for Yurai.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project is a namespace that owns traces, conversations, and commit links.
// Projects are created on first reference and never deleted by the service.
type Project struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectStats aggregates per-project counters for the project detail endpoint.
type ProjectStats struct {
	TraceCount        int     `json:"trace_count"`
	ConversationCount int     `json:"conversation_count"`
	UniqueUsers       int     `json:"unique_users"`
	LatestTraceAt     *string `json:"latest_trace_at"`
}

// TraceFields holds the indexed projections extracted from a raw trace
// record, plus the full record preserved verbatim for replay.
type TraceFields struct {
	TraceID        string
	Version        string
	TraceTimestamp time.Time
	VCS            json.RawMessage
	Tool           json.RawMessage
	Files          json.RawMessage
	Metadata       json.RawMessage
	Record         json.RawMessage
}

// StoredTrace is a trace row as read back for attribution. The indexed
// columns may be empty; consumers fall back to the full record.
type StoredTrace struct {
	TraceID        string
	TraceTimestamp time.Time
	VCS            json.RawMessage
	Tool           json.RawMessage
	Files          json.RawMessage
	Record         json.RawMessage
}

// CommitLink maps a VCS commit to the traces that contributed to it.
// Written by a client-side post-commit hook after the commit is finalized.
type CommitLink struct {
	ID           uuid.UUID       `json:"id"`
	ProjectID    string          `json:"project_id"`
	UserID       string          `json:"user_id"`
	CommitSHA    string          `json:"commit_sha"`
	ParentSHA    *string         `json:"parent_sha"`
	TraceIDs     []string        `json:"trace_ids"`
	FilesChanged []string        `json:"files_changed,omitempty"`
	CommittedAt  *time.Time      `json:"committed_at"`
	Ledger       json.RawMessage `json:"ledger,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ConversationContent is a full conversation transcript keyed by URL
// within a project. Last write wins on (project_id, url).
type ConversationContent struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// LineRange is an inclusive 1-based line range.
type LineRange struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// AttributionResult is the outcome of attributing a blamed line to an AI
// trace. A nil Tier means no attribution; Signals lists the evidence that
// fired during scoring.
type AttributionResult struct {
	Tier                *int           `json:"tier"`
	Confidence          float64        `json:"confidence"`
	TraceID             *string        `json:"trace_id"`
	ConversationURL     string         `json:"conversation_url,omitempty"`
	ConversationContent string         `json:"conversation_content,omitempty"`
	ContributorType     string         `json:"contributor_type,omitempty"`
	ModelID             string         `json:"model_id,omitempty"`
	Tool                map[string]any `json:"tool,omitempty"`
	MatchedRange        *LineRange     `json:"matched_range,omitempty"`
	ContentHashMatch    bool           `json:"content_hash_match"`
	CommitLinkMatch     bool           `json:"commit_link_match"`
	Signals             []string       `json:"signals"`
}
