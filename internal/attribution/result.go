package attribution

import (
	"context"
	"errors"
	"slices"

	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/storage"
	"github.com/ashita-ai/yurai/internal/trace"
)

// resultMeta accumulates the display metadata walked out of trace documents.
type resultMeta struct {
	modelID         string
	conversationURL string
	contributorType string
}

func (m *resultMeta) complete() bool {
	return m.modelID != "" && m.conversationURL != ""
}

// absorb fills missing fields from one conversation entry.
func (m *resultMeta) absorb(conv trace.Conversation) {
	if m.modelID == "" && conv.Contributor.ModelID != "" {
		m.modelID = conv.Contributor.ModelID
	}
	if m.contributorType == "" && conv.Contributor.Type != "" {
		m.contributorType = conv.Contributor.Type
	}
	if m.conversationURL == "" && conv.URL != "" {
		m.conversationURL = conv.URL
	}
}

// absorbFiles walks file entries in order, skipping the one at skip.
func (m *resultMeta) absorbFiles(files []trace.FileEntry, skip *trace.FileEntry) {
	for i := range files {
		if &files[i] == skip {
			continue
		}
		for _, conv := range files[i].Conversations {
			m.absorb(conv)
		}
		if m.complete() {
			return
		}
	}
}

// buildResult constructs the full attribution from the winning trace:
// matched range, model and conversation metadata, the conversation
// transcript, and the trace's tool object. Metadata missing on the matched
// file entry is filled from the trace's other file entries, then from the
// other candidate traces.
func (e *Engine) buildResult(
	ctx context.Context,
	q Query,
	tier int,
	confidence float64,
	winner trace.Resolved,
	signals []string,
	candidates []trace.Resolved,
) model.AttributionResult {
	matched := trace.MatchFile(winner.Files, q.FilePath)

	var matchedRange *model.LineRange
	if matched != nil {
		matchedRange = matched.BestRange(q.LineNumber)
	}

	var meta resultMeta
	if matched != nil {
		for _, conv := range matched.Conversations {
			meta.absorb(conv)
			if meta.complete() {
				break
			}
		}
	}
	if !meta.complete() {
		meta.absorbFiles(winner.Files, matched)
	}
	if !meta.complete() {
		for _, cand := range candidates {
			if cand.TraceID == winner.TraceID {
				continue
			}
			meta.absorbFiles(cand.Files, nil)
			if meta.complete() {
				break
			}
		}
	}
	if meta.contributorType == "" {
		meta.contributorType = "unknown"
	}

	// Transcript lookup is enrichment; a miss or failure is non-fatal.
	var content string
	if meta.conversationURL != "" {
		c, err := e.store.GetConversationContent(ctx, q.ProjectID, meta.conversationURL)
		if err == nil {
			content = c
		} else if ctx.Err() == nil && !errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("conversation content lookup failed", "url", meta.conversationURL, "error", err)
		}
	}

	traceID := winner.TraceID
	return model.AttributionResult{
		Tier:                &tier,
		Confidence:          confidence,
		TraceID:             &traceID,
		ConversationURL:     meta.conversationURL,
		ConversationContent: content,
		ContributorType:     meta.contributorType,
		ModelID:             meta.modelID,
		Tool:                winner.Tool,
		MatchedRange:        matchedRange,
		ContentHashMatch:    slices.Contains(signals, SignalContentHash),
		CommitLinkMatch:     slices.Contains(signals, SignalCommitLink),
		Signals:             signals,
	}
}
