// Package provenance is the ingestion and query facade between the HTTP
// layer and storage. It validates payloads, extracts indexed projections
// from raw trace records, and orchestrates blame attribution.
package provenance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashita-ai/yurai/internal/attribution"
	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/storage"
	"github.com/ashita-ai/yurai/internal/trace"
)

// maxTraceListLimit caps page sizes on the trace list endpoint.
const maxTraceListLimit = 200

// defaultTraceListLimit applies when the caller omits a limit.
const defaultTraceListLimit = 50

// ValidationError marks a request rejected for a missing or malformed
// field. Handlers map it to a 400 with the message as the error body.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Service is the provenance facade.
type Service struct {
	db     *storage.DB
	engine *attribution.Engine
	logger *slog.Logger
}

// New creates the facade and its attribution engine over db.
func New(db *storage.DB, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		engine: attribution.New(db, logger),
		logger: logger,
	}
}

// UpsertProject creates or updates a project.
func (s *Service) UpsertProject(ctx context.Context, req model.CreateProjectRequest) (model.Project, error) {
	if req.ProjectID == "" {
		return model.Project{}, invalidf("project_id is required")
	}
	return s.db.UpsertProject(ctx, req.ProjectID, req.Name, req.Description)
}

// GetProjectDetail returns a project with its aggregate stats.
func (s *Service) GetProjectDetail(ctx context.Context, projectID string) (model.ProjectDetailResponse, error) {
	project, err := s.db.GetProject(ctx, projectID)
	if err != nil {
		return model.ProjectDetailResponse{}, err
	}
	stats, err := s.db.GetProjectStats(ctx, projectID)
	if err != nil {
		return model.ProjectDetailResponse{}, err
	}
	return model.ProjectDetailResponse{Project: project, Stats: stats}, nil
}

// extractFields pulls the indexed projections out of a raw trace record.
// The record itself is preserved verbatim; vcs, tool, files, and metadata
// are stored alongside as queryable blobs.
func extractFields(record json.RawMessage) (model.TraceFields, error) {
	var doc struct {
		ID        string          `json:"id"`
		Version   string          `json:"version"`
		Timestamp string          `json:"timestamp"`
		VCS       json.RawMessage `json:"vcs"`
		Tool      json.RawMessage `json:"tool"`
		Files     json.RawMessage `json:"files"`
		Metadata  json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(record, &doc); err != nil {
		return model.TraceFields{}, invalidf("trace must be a JSON object")
	}
	if doc.ID == "" {
		return model.TraceFields{}, invalidf("trace.id is required")
	}
	if doc.Timestamp == "" {
		return model.TraceFields{}, invalidf("trace.timestamp is required")
	}
	ts, err := trace.ParseTimestamp(doc.Timestamp)
	if err != nil {
		return model.TraceFields{}, invalidf("trace.timestamp must be ISO-8601")
	}
	if doc.Version == "" {
		doc.Version = "1.0"
	}

	return model.TraceFields{
		TraceID:        doc.ID,
		Version:        doc.Version,
		TraceTimestamp: ts,
		VCS:            doc.VCS,
		Tool:           doc.Tool,
		Files:          doc.Files,
		Metadata:       doc.Metadata,
		Record:         record,
	}, nil
}

// IngestTrace validates and stores one trace plus optional conversation
// contents. Returns the trace_id. Duplicate (project_id, trace_id) is a
// silent no-op.
func (s *Service) IngestTrace(ctx context.Context, userID string, req model.IngestTraceRequest) (string, error) {
	if req.ProjectID == "" {
		return "", invalidf("project_id is required")
	}
	if len(req.Trace) == 0 {
		return "", invalidf("trace is required")
	}
	fields, err := extractFields(req.Trace)
	if err != nil {
		return "", err
	}
	if err := s.db.InsertTrace(ctx, req.ProjectID, userID, fields, req.ConversationContents); err != nil {
		return "", err
	}
	return fields.TraceID, nil
}

// BatchIngest validates and stores a batch of traces atomically. Returns
// the trace_ids in input order.
func (s *Service) BatchIngest(ctx context.Context, userID string, req model.BatchIngestRequest) ([]string, error) {
	if req.ProjectID == "" {
		return nil, invalidf("project_id is required")
	}
	if len(req.Items) == 0 {
		return nil, invalidf("items must be a non-empty list")
	}

	traceIDs := make([]string, 0, len(req.Items))
	traces := make([]model.TraceFields, 0, len(req.Items))
	var contents []model.ConversationContent
	for i, item := range req.Items {
		if len(item.Trace) == 0 {
			return nil, invalidf("items[%d].trace is required", i)
		}
		fields, err := extractFields(item.Trace)
		if err != nil {
			return nil, err
		}
		traces = append(traces, fields)
		traceIDs = append(traceIDs, fields.TraceID)
		contents = append(contents, item.ConversationContents...)
	}

	if err := s.db.BatchInsertTraces(ctx, req.ProjectID, userID, traces, contents); err != nil {
		return nil, err
	}
	return traceIDs, nil
}

// ListTraces returns a page of full trace records, newest first. The limit
// defaults to 50 and is capped at 200; since/until are ISO-8601 bounds on
// trace_timestamp.
func (s *Service) ListTraces(ctx context.Context, projectID, since, until string, limit, offset int) (model.TraceListResponse, error) {
	if projectID == "" {
		return model.TraceListResponse{}, invalidf("project_id is required")
	}
	if limit <= 0 {
		limit = defaultTraceListLimit
	}
	if limit > maxTraceListLimit {
		limit = maxTraceListLimit
	}
	if offset < 0 {
		offset = 0
	}

	sinceTS, err := parseTimeFilter("since", since)
	if err != nil {
		return model.TraceListResponse{}, err
	}
	untilTS, err := parseTimeFilter("until", until)
	if err != nil {
		return model.TraceListResponse{}, err
	}

	records, total, err := s.db.ListTraces(ctx, projectID, sinceTS, untilTS, limit, offset)
	if err != nil {
		return model.TraceListResponse{}, err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return model.TraceListResponse{Traces: records, Total: total, Limit: limit, Offset: offset}, nil
}

func parseTimeFilter(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := trace.ParseTimestamp(value)
	if err != nil {
		return nil, invalidf("%s must be ISO-8601", name)
	}
	return &ts, nil
}

// GetTrace returns the full record of one trace plus the ingesting user.
func (s *Service) GetTrace(ctx context.Context, projectID, traceID string) (model.TraceDetailResponse, error) {
	if projectID == "" {
		return model.TraceDetailResponse{}, invalidf("project_id is required")
	}
	record, userID, err := s.db.GetTrace(ctx, projectID, traceID)
	if err != nil {
		return model.TraceDetailResponse{}, err
	}
	return model.TraceDetailResponse{Trace: record, UserID: userID}, nil
}

// SyncConversations upserts conversation transcripts without a trace. Used
// after the agent response completes, when the transcript is final.
func (s *Service) SyncConversations(ctx context.Context, userID string, req model.SyncConversationsRequest) error {
	if req.ProjectID == "" {
		return invalidf("project_id is required")
	}
	if len(req.ConversationContents) == 0 {
		return nil
	}
	return s.db.SyncConversationContents(ctx, req.ProjectID, userID, req.ConversationContents)
}

// GetConversationContent returns one stored transcript.
func (s *Service) GetConversationContent(ctx context.Context, projectID, url string) (string, error) {
	if projectID == "" {
		return "", invalidf("project_id is required")
	}
	if url == "" {
		return "", invalidf("url is required")
	}
	return s.db.GetConversationContent(ctx, projectID, url)
}

// IngestCommitLink validates and stores a commit-trace link. Returns the
// commit_sha. Re-submitting the same commit overwrites the previous link.
func (s *Service) IngestCommitLink(ctx context.Context, userID string, req model.IngestCommitLinkRequest) (string, error) {
	if req.ProjectID == "" {
		return "", invalidf("project_id is required")
	}
	if req.CommitSHA == "" {
		return "", invalidf("commit_sha is required")
	}
	if len(req.TraceIDs) == 0 {
		return "", invalidf("trace_ids must be a non-empty list")
	}
	if err := s.db.UpsertCommitLink(ctx, userID, req); err != nil {
		return "", err
	}
	return req.CommitSHA, nil
}

// GetCommitLinkDetail returns a commit link enriched with a compact summary
// of each linked trace: timestamp, tool, and the first model_id found in
// its conversation contributors. Traces that were never ingested are
// reported with found=false rather than dropped.
func (s *Service) GetCommitLinkDetail(ctx context.Context, projectID, commitSHA string) (model.CommitLinkDetailResponse, error) {
	if projectID == "" {
		return model.CommitLinkDetailResponse{}, invalidf("project_id is required")
	}
	link, err := s.db.GetCommitLink(ctx, projectID, commitSHA)
	if err != nil {
		return model.CommitLinkDetailResponse{}, err
	}

	summaries := make([]model.TraceSummary, 0, len(link.TraceIDs))
	for _, tid := range link.TraceIDs {
		record, _, err := s.db.GetTrace(ctx, projectID, tid)
		if err != nil {
			notFound := false
			summaries = append(summaries, model.TraceSummary{TraceID: tid, Found: &notFound})
			continue
		}
		summaries = append(summaries, summarizeTrace(tid, record))
	}

	return model.CommitLinkDetailResponse{CommitLink: link, TraceSummaries: summaries}, nil
}

func summarizeTrace(traceID string, record json.RawMessage) model.TraceSummary {
	summary := model.TraceSummary{TraceID: traceID}
	doc, err := trace.Decode(record)
	if err != nil {
		return summary
	}
	summary.Timestamp = doc.Timestamp
	summary.Tool = doc.Tool
	for _, fe := range doc.Files {
		for _, conv := range fe.Conversations {
			if conv.Contributor.ModelID != "" {
				summary.ModelID = conv.Contributor.ModelID
				return summary
			}
		}
	}
	return summary
}

// GetLedger returns the raw ledger attached to a commit link.
func (s *Service) GetLedger(ctx context.Context, projectID, commitSHA string) (json.RawMessage, error) {
	if projectID == "" {
		return nil, invalidf("project_id is required")
	}
	return s.db.GetLedger(ctx, projectID, commitSHA)
}

// Ping reports database connectivity for the health endpoint.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
