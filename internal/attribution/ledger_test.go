package attribution

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/yurai/internal/model"
)

func TestLedgerTraceID(t *testing.T) {
	tests := []struct {
		name   string
		ledger string
		line   int
		want   string
	}{
		{
			"entries object, covering range wins",
			`{"entries": [
				{"trace_id": "tr-a", "start_line": 1, "end_line": 10},
				{"trace_id": "tr-b", "start_line": 11, "end_line": 20}
			]}`,
			15, "tr-b",
		},
		{
			"bare array",
			`[{"trace_id": "tr-a", "start_line": 1, "end_line": 10}]`,
			5, "tr-a",
		},
		{
			"single object",
			`{"trace_id": "tr-solo"}`,
			99, "tr-solo",
		},
		{
			"rangeless entry covers every line",
			`{"entries": [
				{"trace_id": "tr-a", "start_line": 1, "end_line": 2},
				{"trace_id": "tr-b"}
			]}`,
			50, "tr-b",
		},
		{
			"nothing covers: first entry wins",
			`{"entries": [
				{"trace_id": "tr-a", "start_line": 1, "end_line": 2},
				{"trace_id": "tr-b", "start_line": 3, "end_line": 4}
			]}`,
			99, "tr-a",
		},
		{
			"entries without trace_id are skipped",
			`{"entries": [
				{"start_line": 1, "end_line": 100},
				{"trace_id": "tr-b", "start_line": 1, "end_line": 100}
			]}`,
			50, "tr-b",
		},
		{"empty object", `{}`, 1, ""},
		{"empty array", `[]`, 1, ""},
		{"garbage", `"not a ledger"`, 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledgerTraceID(json.RawMessage(tt.ledger), tt.line))
		})
	}
}

func TestAttributeLedger(t *testing.T) {
	store := &fakeStore{
		traces: map[string]model.StoredTrace{
			"tr-1": richTrace("tr-1", "parent-sha-1234567"),
		},
		contents: map[string]string{
			"https://chat.example/c/42": "user: write the parser",
		},
	}
	engine := testEngine(store)

	ledger := json.RawMessage(`{"entries": [{"trace_id": "tr-1", "start_line": 10, "end_line": 30}]}`)
	result := engine.AttributeLedger(context.Background(), Query{
		ProjectID:  "p1",
		FilePath:   "src/main.go",
		LineNumber: 15,
	}, ledger)

	require.NotNil(t, result.Tier)
	assert.Equal(t, 1, *result.Tier)
	assert.Equal(t, 1.0, result.Confidence)
	require.NotNil(t, result.TraceID)
	assert.Equal(t, "tr-1", *result.TraceID)
	assert.Equal(t, []string{SignalLedger}, result.Signals)
	assert.True(t, result.CommitLinkMatch)
	assert.Equal(t, "model-x", result.ModelID)
	assert.Equal(t, "ai", result.ContributorType)
	assert.Equal(t, "user: write the parser", result.ConversationContent)
	require.NotNil(t, result.MatchedRange)
}

func TestAttributeLedgerWithoutStoredTrace(t *testing.T) {
	// The ledger is authoritative even when the named trace was never
	// ingested; the attribution just lacks enrichment.
	engine := testEngine(&fakeStore{})

	result := engine.AttributeLedger(context.Background(), Query{
		ProjectID:  "p1",
		FilePath:   "src/main.go",
		LineNumber: 5,
	}, json.RawMessage(`{"trace_id": "tr-ghost"}`))

	require.NotNil(t, result.Tier)
	assert.Equal(t, 1, *result.Tier)
	require.NotNil(t, result.TraceID)
	assert.Equal(t, "tr-ghost", *result.TraceID)
	assert.Equal(t, "unknown", result.ContributorType)
	assert.Empty(t, result.ModelID)
}

func TestAttributeLedgerNoCoveringEntry(t *testing.T) {
	engine := testEngine(&fakeStore{})

	result := engine.AttributeLedger(context.Background(), Query{
		ProjectID:  "p1",
		FilePath:   "src/main.go",
		LineNumber: 5,
	}, json.RawMessage(`{"entries": []}`))

	assert.Nil(t, result.Tier)
	assert.Zero(t, result.Confidence)
}
