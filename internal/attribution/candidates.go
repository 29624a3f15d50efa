package attribution

import (
	"context"
	"time"

	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/trace"
)

// Timestamp-window fallback bounds: traces captured up to 24h before the
// commit, or up to 1h after it (clock skew between client and VCS).
const (
	windowBefore = 24 * time.Hour
	windowAfter  = time.Hour
)

// windowThreshold: the fallback only runs when the first two strategies
// produced fewer candidates than this.
const windowThreshold = 5

// findCandidates gathers candidate traces with three strategies, in fixed
// priority order, merged and deduplicated by trace ID:
//
//  1. Traces named by the commit link's trace_ids.
//  2. Traces whose vcs.revision equals the blame parent.
//  3. Traces in a timestamp window around the commit, only when fewer than
//     five candidates have accumulated.
//
// None of the database queries filter by file path — path matching must be
// lenient (absolute vs project-relative), so the filter runs here instead.
// Commit links name traces that touched any file in the commit; a trace
// that only touched .gitignore must never attribute src lines, so every
// candidate that does not touch the blamed file is dropped.
func (e *Engine) findCandidates(ctx context.Context, q Query, linkedIDs []string) []trace.Resolved {
	seen := make(map[string]bool)
	var candidates []trace.Resolved

	add := func(rows []trace.Resolved) {
		for _, r := range rows {
			if r.TraceID == "" || seen[r.TraceID] {
				continue
			}
			seen[r.TraceID] = true
			candidates = append(candidates, r)
		}
	}

	if len(linkedIDs) > 0 {
		add(e.fetch(ctx, q, "commit_link", func(ctx context.Context) ([]trace.Resolved, error) {
			return e.resolveAll(e.store.FindTracesByIDs(ctx, q.ProjectID, linkedIDs))
		}))
	}

	if q.BlameParent != "" {
		add(e.fetch(ctx, q, "parent_revision", func(ctx context.Context) ([]trace.Resolved, error) {
			return e.resolveAll(e.store.FindTracesByRevision(ctx, q.ProjectID, q.BlameParent))
		}))
	}

	if q.BlameTimestamp != "" && len(candidates) < windowThreshold {
		if ts, err := trace.ParseTimestamp(q.BlameTimestamp); err == nil {
			add(e.fetch(ctx, q, "time_window", func(ctx context.Context) ([]trace.Resolved, error) {
				return e.resolveAll(e.store.FindTracesInTimeWindow(ctx, q.ProjectID, ts.Add(-windowBefore), ts.Add(windowAfter)))
			}))
		} else {
			e.logger.Debug("unparseable blame timestamp", "timestamp", q.BlameTimestamp)
		}
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if trace.TouchesFile(c.Files, q.FilePath) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// fetch runs one selector strategy, degrading errors to an empty result.
func (e *Engine) fetch(ctx context.Context, q Query, strategy string, fn func(context.Context) ([]trace.Resolved, error)) []trace.Resolved {
	rows, err := fn(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("candidate strategy failed", "strategy", strategy, "commit_sha", q.BlameCommit, "error", err)
		}
		return nil
	}
	return rows
}

func (e *Engine) resolveAll(rows []model.StoredTrace, err error) ([]trace.Resolved, error) {
	if err != nil {
		return nil, err
	}
	out := make([]trace.Resolved, 0, len(rows))
	for _, row := range rows {
		out = append(out, trace.Resolve(row))
	}
	return out, nil
}
