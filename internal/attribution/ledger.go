package attribution

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/storage"
	"github.com/ashita-ai/yurai/internal/trace"
)

// ledgerEntry is one attribution row inside a ledger document. The format
// is client-supplied and mostly opaque; only the identifiers and optional
// line ranges matter here.
type ledgerEntry struct {
	TraceID   string     `json:"trace_id"`
	StartLine trace.Line `json:"start_line"`
	EndLine   trace.Line `json:"end_line"`
}

// AttributeLedger produces a tier-1 attribution directly from a commit's
// ledger, bypassing scoring entirely. The ledger is authoritative: the
// client computed the per-line mapping at commit time. The trace named by
// the covering entry is looked up only to enrich the result with model and
// conversation metadata; a failed lookup still yields the attribution.
func (e *Engine) AttributeLedger(ctx context.Context, q Query, ledger json.RawMessage) model.AttributionResult {
	traceID := ledgerTraceID(ledger, q.LineNumber)
	if traceID == "" {
		return noAttribution()
	}

	tier := 1
	result := model.AttributionResult{
		Tier:            &tier,
		Confidence:      1.0,
		TraceID:         &traceID,
		ContributorType: "unknown",
		CommitLinkMatch: true,
		Signals:         []string{SignalLedger},
	}

	rows, err := e.store.FindTracesByIDs(ctx, q.ProjectID, []string{traceID})
	if err != nil || len(rows) == 0 {
		if err != nil && ctx.Err() == nil {
			e.logger.Debug("ledger trace lookup failed", "trace_id", traceID, "error", err)
		}
		return result
	}
	resolved := trace.Resolve(rows[0])

	var meta resultMeta
	matched := trace.MatchFile(resolved.Files, q.FilePath)
	if matched != nil {
		for _, conv := range matched.Conversations {
			meta.absorb(conv)
			if meta.complete() {
				break
			}
		}
		result.MatchedRange = matched.BestRange(q.LineNumber)
	}
	if !meta.complete() {
		meta.absorbFiles(resolved.Files, matched)
	}

	result.ModelID = meta.modelID
	result.ConversationURL = meta.conversationURL
	if meta.contributorType != "" {
		result.ContributorType = meta.contributorType
	}
	result.Tool = resolved.Tool

	if meta.conversationURL != "" {
		if content, err := e.store.GetConversationContent(ctx, q.ProjectID, meta.conversationURL); err == nil {
			result.ConversationContent = content
		} else if ctx.Err() == nil && !errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("conversation content lookup failed", "url", meta.conversationURL, "error", err)
		}
	}

	return result
}

// ledgerTraceID extracts the trace responsible for line from a ledger
// document. Three shapes are accepted: {"entries": [...]}, a bare entry
// array, and a single object with a "trace_id". Among entries, the first
// one whose range covers the line wins; entries without a range cover every
// line; when nothing covers the line, the first entry with a trace_id wins.
func ledgerTraceID(ledger json.RawMessage, line int) string {
	var doc struct {
		Entries []ledgerEntry `json:"entries"`
		TraceID string        `json:"trace_id"`
	}
	var entries []ledgerEntry
	if err := json.Unmarshal(ledger, &doc); err == nil {
		if len(doc.Entries) > 0 {
			entries = doc.Entries
		} else if doc.TraceID != "" {
			return doc.TraceID
		}
	}
	if len(entries) == 0 {
		var arr []ledgerEntry
		if err := json.Unmarshal(ledger, &arr); err == nil {
			entries = arr
		}
	}

	fallback := ""
	for _, entry := range entries {
		if entry.TraceID == "" {
			continue
		}
		if fallback == "" {
			fallback = entry.TraceID
		}
		if !entry.StartLine.Valid || !entry.EndLine.Valid {
			return entry.TraceID
		}
		if entry.StartLine.Value <= line && line <= entry.EndLine.Value {
			return entry.TraceID
		}
	}
	return fallback
}
