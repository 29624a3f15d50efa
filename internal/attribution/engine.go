// Package attribution scores candidate traces against git-blame evidence
// and assigns a confidence tier (1-6) expressing how certain the service is
// that a line originated from an AI conversation.
//
// Tier definitions:
//
//	1  Provably certain    (100%)   commit link + content hash + range
//	2  Effectively certain (99.9%)  inferred link + strong evidence
//	3  Very high           (95%+)   commit link + revision or range
//	4  High                (85%+)   revision match, range overlap, no hash
//	5  Medium              (60-85%) file match, partial overlap
//	6  Suggestive          (<60%)   same file, general time period
package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/storage"
)

// Store is the slice of the storage layer the engine reads from.
type Store interface {
	GetCommitLink(ctx context.Context, projectID, commitSHA string) (model.CommitLink, error)
	GetLedger(ctx context.Context, projectID, commitSHA string) (json.RawMessage, error)
	FindTracesByIDs(ctx context.Context, projectID string, traceIDs []string) ([]model.StoredTrace, error)
	FindTracesByRevision(ctx context.Context, projectID, revision string) ([]model.StoredTrace, error)
	FindTracesInTimeWindow(ctx context.Context, projectID string, from, to time.Time) ([]model.StoredTrace, error)
	GetConversationContent(ctx context.Context, projectID, url string) (string, error)
}

var _ Store = (*storage.DB)(nil)

// Query is the blame context for attributing a single representative line.
type Query struct {
	ProjectID string
	FilePath  string
	// LineNumber is the 1-based line to attribute, typically the midpoint
	// of a blame segment.
	LineNumber int
	// BlameCommit is the SHA git blame says introduced the line.
	BlameCommit string
	// BlameParent is BlameCommit's first parent, when the caller has it.
	BlameParent string
	// ContentHash is a hex digest of the normalized blamed lines, possibly
	// truncated and possibly "sha256:"-prefixed.
	ContentHash string
	// BlameTimestamp is the ISO-8601 author date of BlameCommit.
	BlameTimestamp string
}

// Engine attributes blamed lines to stored traces.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// New creates an attribution engine over the given store.
func New(store Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// AttributeLine attributes a single line of code to an AI trace. It never
// fails: store errors degrade to an empty candidate set and an absent
// attribution (tier null), because a blame response with holes is more
// useful than a 500.
func (e *Engine) AttributeLine(ctx context.Context, q Query) model.AttributionResult {
	link, linkFound := e.lookupCommitLink(ctx, q)

	var linkedIDs []string
	if linkFound {
		linkedIDs = link.TraceIDs
	}

	candidates := e.findCandidates(ctx, q, linkedIDs)
	if len(candidates) == 0 {
		return noAttribution()
	}

	var (
		bestScore   int
		bestIdx     = -1
		bestSignals []string
	)
	for i, cand := range candidates {
		score, signals := scoreTrace(cand, q, linkFound, linkedIDs)
		if score > bestScore {
			bestScore = score
			bestIdx = i
			bestSignals = signals
		}
	}
	if bestIdx < 0 || bestScore <= 0 {
		return noAttribution()
	}

	if !evidenceGate(bestSignals) {
		return noAttribution()
	}

	tier, ok := computeTier(bestScore, bestSignals)
	if !ok {
		return noAttribution()
	}

	return e.buildResult(ctx, q, tier, tierConfidence(tier), candidates[bestIdx], bestSignals, candidates)
}

func (e *Engine) lookupCommitLink(ctx context.Context, q Query) (model.CommitLink, bool) {
	link, err := e.store.GetCommitLink(ctx, q.ProjectID, q.BlameCommit)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("commit link lookup failed", "commit_sha", q.BlameCommit, "error", err)
		}
		return model.CommitLink{}, false
	}
	return link, true
}

// noAttribution is the empty result: tier null, zero confidence, no signals.
func noAttribution() model.AttributionResult {
	return model.AttributionResult{Confidence: 0, Signals: []string{}}
}
