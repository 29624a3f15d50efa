package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/storage"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	links      map[string]model.CommitLink
	ledgers    map[string]json.RawMessage
	traces     map[string]model.StoredTrace
	byRevision map[string][]model.StoredTrace
	inWindow   []model.StoredTrace
	contents   map[string]string

	windowCalls int
	linkErr     error
}

func (f *fakeStore) GetCommitLink(_ context.Context, _, commitSHA string) (model.CommitLink, error) {
	if f.linkErr != nil {
		return model.CommitLink{}, f.linkErr
	}
	link, ok := f.links[commitSHA]
	if !ok {
		return model.CommitLink{}, storage.ErrNotFound
	}
	return link, nil
}

func (f *fakeStore) GetLedger(_ context.Context, _, commitSHA string) (json.RawMessage, error) {
	ledger, ok := f.ledgers[commitSHA]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return ledger, nil
}

func (f *fakeStore) FindTracesByIDs(_ context.Context, _ string, traceIDs []string) ([]model.StoredTrace, error) {
	var out []model.StoredTrace
	for _, id := range traceIDs {
		if row, ok := f.traces[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) FindTracesByRevision(_ context.Context, _, revision string) ([]model.StoredTrace, error) {
	return f.byRevision[revision], nil
}

func (f *fakeStore) FindTracesInTimeWindow(_ context.Context, _ string, _, _ time.Time) ([]model.StoredTrace, error) {
	f.windowCalls++
	return f.inWindow, nil
}

func (f *fakeStore) GetConversationContent(_ context.Context, _, url string) (string, error) {
	content, ok := f.contents[url]
	if !ok {
		return "", storage.ErrNotFound
	}
	return content, nil
}

func testEngine(store Store) *Engine {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// storedTrace builds a trace row whose projections all come from the record.
func storedTrace(id string, ts time.Time, record string) model.StoredTrace {
	return model.StoredTrace{
		TraceID:        id,
		TraceTimestamp: ts,
		Record:         json.RawMessage(record),
	}
}

const fullHash = "a3f8b2c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2"

var testTS = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// richTrace touches src/main.go lines 10-30 with a content hash and a
// conversation, captured at the given revision.
func richTrace(id, revision string) model.StoredTrace {
	record := fmt.Sprintf(`{
		"id": %q,
		"vcs": {"revision": %q},
		"tool": {"name": "capture-cli", "version": "2.1"},
		"files": [{
			"path": "src/main.go",
			"start_line": 10,
			"end_line": 30,
			"content_hash": %q,
			"conversations": [{
				"url": "https://chat.example/c/42",
				"contributor": {"type": "ai", "model_id": "model-x"}
			}]
		}]
	}`, id, revision, fullHash)
	return storedTrace(id, testTS, record)
}

func TestAttributeLineProvablyLinked(t *testing.T) {
	store := &fakeStore{
		links: map[string]model.CommitLink{
			"commit-a": {CommitSHA: "commit-a", TraceIDs: []string{"tr-1"}},
		},
		traces: map[string]model.StoredTrace{
			"tr-1": richTrace("tr-1", "parent-sha-1234567"),
		},
		contents: map[string]string{
			"https://chat.example/c/42": "user: add the retry loop",
		},
	}
	engine := testEngine(store)

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  15,
		BlameCommit: "commit-a",
		BlameParent: "parent-sha-1234567",
		ContentHash: fullHash[:16],
	})

	require.NotNil(t, result.Tier)
	assert.Equal(t, 1, *result.Tier)
	assert.Equal(t, 1.0, result.Confidence)
	require.NotNil(t, result.TraceID)
	assert.Equal(t, "tr-1", *result.TraceID)
	assert.True(t, result.CommitLinkMatch)
	assert.True(t, result.ContentHashMatch)
	assert.Equal(t, "model-x", result.ModelID)
	assert.Equal(t, "ai", result.ContributorType)
	assert.Equal(t, "https://chat.example/c/42", result.ConversationURL)
	assert.Equal(t, "user: add the retry loop", result.ConversationContent)
	require.NotNil(t, result.MatchedRange)
	assert.Equal(t, model.LineRange{StartLine: 10, EndLine: 30}, *result.MatchedRange)
	assert.Equal(t, []string{
		SignalCommitLink, SignalRevisionParent, SignalRangeMatch,
		SignalContentHash, SignalTimestamp,
	}, result.Signals)
}

func TestAttributeLineLinkedWithoutHash(t *testing.T) {
	// Commit link plus parent revision plus a near-miss range, no hash:
	// 40 + 15 + 5 + 5 = 65, tier 3.
	store := &fakeStore{
		links: map[string]model.CommitLink{
			"commit-a": {CommitSHA: "commit-a", TraceIDs: []string{"tr-1"}},
		},
		traces: map[string]model.StoredTrace{
			"tr-1": richTrace("tr-1", "parent-sha-1234567"),
		},
	}
	engine := testEngine(store)

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  33, // near the 10-30 range, not inside it
		BlameCommit: "commit-a",
		BlameParent: "parent-sha-1234567",
	})

	require.NotNil(t, result.Tier)
	assert.Equal(t, 3, *result.Tier)
	assert.Equal(t, 0.95, result.Confidence)
	assert.True(t, result.CommitLinkMatch)
	assert.False(t, result.ContentHashMatch)
	assert.Contains(t, result.Signals, SignalRangeOverlap)
}

func TestAttributeLineBareCommitLinkDenied(t *testing.T) {
	// The trace is linked to the commit and touches the file, but carries no
	// range, hash, or revision evidence. A bare commit_link proves the trace
	// was in the commit, not that it authored these lines.
	store := &fakeStore{
		links: map[string]model.CommitLink{
			"commit-a": {CommitSHA: "commit-a", TraceIDs: []string{"tr-1"}},
		},
		traces: map[string]model.StoredTrace{
			"tr-1": storedTrace("tr-1", time.Time{}, `{"id": "tr-1", "files": [{"path": "src/main.go"}]}`),
		},
	}
	engine := testEngine(store)

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  15,
		BlameCommit: "commit-a",
	})

	assert.Nil(t, result.Tier)
	assert.Zero(t, result.Confidence)
	assert.Nil(t, result.TraceID)
	assert.Empty(t, result.Signals)
}

func TestAttributeLineDropsCandidatesForOtherFiles(t *testing.T) {
	// The linked trace only touched .gitignore; it must never attribute
	// lines of src/main.go, whatever else matches.
	record := `{"id": "tr-1", "vcs": {"revision": "parent-sha-1234567"}, "files": [{"path": ".gitignore", "start_line": 1, "end_line": 5}]}`
	store := &fakeStore{
		links: map[string]model.CommitLink{
			"commit-a": {CommitSHA: "commit-a", TraceIDs: []string{"tr-1"}},
		},
		traces: map[string]model.StoredTrace{
			"tr-1": storedTrace("tr-1", testTS, record),
		},
	}
	engine := testEngine(store)

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  3,
		BlameCommit: "commit-a",
		BlameParent: "parent-sha-1234567",
	})

	assert.Nil(t, result.Tier)
	assert.Empty(t, result.Signals)
}

func TestAttributeLineTieBreakKeepsFirst(t *testing.T) {
	// Two linked traces with identical evidence: the first in commit-link
	// order wins, ties do not reshuffle.
	store := &fakeStore{
		links: map[string]model.CommitLink{
			"commit-a": {CommitSHA: "commit-a", TraceIDs: []string{"tr-1", "tr-2"}},
		},
		traces: map[string]model.StoredTrace{
			"tr-1": richTrace("tr-1", "parent-sha-1234567"),
			"tr-2": richTrace("tr-2", "parent-sha-1234567"),
		},
	}
	engine := testEngine(store)

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  15,
		BlameCommit: "commit-a",
		BlameParent: "parent-sha-1234567",
		ContentHash: fullHash[:16],
	})

	require.NotNil(t, result.TraceID)
	assert.Equal(t, "tr-1", *result.TraceID)
}

func TestAttributeLineRevisionFallback(t *testing.T) {
	// No commit link at all: candidates come from the parent-revision
	// strategy, and range evidence alone passes the gate.
	store := &fakeStore{
		byRevision: map[string][]model.StoredTrace{
			"parent-sha-1234567": {richTrace("tr-9", "parent-sha-1234567")},
		},
	}
	engine := testEngine(store)

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  12,
		BlameCommit: "unknown-commit",
		BlameParent: "parent-sha-1234567",
	})

	require.NotNil(t, result.Tier)
	require.NotNil(t, result.TraceID)
	assert.Equal(t, "tr-9", *result.TraceID)
	assert.False(t, result.CommitLinkMatch)
	assert.Contains(t, result.Signals, SignalRevisionParent)
	assert.Contains(t, result.Signals, SignalRangeMatch)
}

func TestAttributeLineWindowOnlyWhenFewCandidates(t *testing.T) {
	link := model.CommitLink{CommitSHA: "commit-a", TraceIDs: []string{"tr-1", "tr-2", "tr-3", "tr-4", "tr-5"}}
	traces := make(map[string]model.StoredTrace)
	for _, id := range link.TraceIDs {
		traces[id] = richTrace(id, "parent-sha-1234567")
	}
	store := &fakeStore{
		links:  map[string]model.CommitLink{"commit-a": link},
		traces: traces,
	}
	engine := testEngine(store)

	q := Query{
		ProjectID:      "p1",
		FilePath:       "src/main.go",
		LineNumber:     15,
		BlameCommit:    "commit-a",
		BlameTimestamp: "2026-03-01T13:00:00Z",
	}

	// Five candidates already: the time-window fallback must not run.
	engine.AttributeLine(context.Background(), q)
	assert.Zero(t, store.windowCalls)

	// With fewer candidates it does.
	store.links["commit-a"] = model.CommitLink{CommitSHA: "commit-a", TraceIDs: []string{"tr-1"}}
	engine.AttributeLine(context.Background(), q)
	assert.Equal(t, 1, store.windowCalls)

	// Offset-less blame timestamps still drive the fallback.
	q.BlameTimestamp = "2026-03-01T13:00:00"
	engine.AttributeLine(context.Background(), q)
	assert.Equal(t, 2, store.windowCalls)
}

func TestAttributeLineNoCandidates(t *testing.T) {
	engine := testEngine(&fakeStore{})

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  1,
		BlameCommit: "commit-a",
	})

	assert.Nil(t, result.Tier)
	assert.Zero(t, result.Confidence)
	assert.NotNil(t, result.Signals)
	assert.Empty(t, result.Signals)
}

func TestAttributeLineStoreErrorDegrades(t *testing.T) {
	// A failing commit-link lookup is treated as no link, not as a failure.
	store := &fakeStore{
		linkErr: errors.New("connection reset"),
		byRevision: map[string][]model.StoredTrace{
			"parent-sha-1234567": {richTrace("tr-1", "parent-sha-1234567")},
		},
	}
	engine := testEngine(store)

	result := engine.AttributeLine(context.Background(), Query{
		ProjectID:   "p1",
		FilePath:    "src/main.go",
		LineNumber:  15,
		BlameCommit: "commit-a",
		BlameParent: "parent-sha-1234567",
	})

	require.NotNil(t, result.Tier)
	assert.False(t, result.CommitLinkMatch)
}
