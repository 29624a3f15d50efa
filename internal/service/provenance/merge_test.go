package provenance

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/yurai/internal/model"
)

func segment(start, end int) model.BlameSegment {
	return model.BlameSegment{StartLine: &start, EndLine: &end, CommitSHA: "commit-a"}
}

func attributed(tier int, traceID string) model.AttributionResult {
	return model.AttributionResult{
		Tier:       &tier,
		Confidence: 0.95,
		TraceID:    &traceID,
		Signals:    []string{"commit_link", "range_match"},
	}
}

func TestMergeAttributionsAdjacentIdentical(t *testing.T) {
	raw := []segmentResult{
		{segment: segment(1, 10), result: attributed(3, "tr-1")},
		{segment: segment(11, 20), result: attributed(3, "tr-1")},
		{segment: segment(21, 30), result: attributed(3, "tr-1")},
	}

	merged := mergeAttributions(raw)
	require.Len(t, merged, 1)
	assert.Equal(t, 1, merged[0].StartLine)
	assert.Equal(t, 30, merged[0].EndLine)
}

func TestMergeAttributionsDifferentTraceStaysSplit(t *testing.T) {
	raw := []segmentResult{
		{segment: segment(1, 10), result: attributed(3, "tr-1")},
		{segment: segment(11, 20), result: attributed(3, "tr-2")},
	}

	merged := mergeAttributions(raw)
	require.Len(t, merged, 2)
}

func TestMergeAttributionsDifferentTierStaysSplit(t *testing.T) {
	raw := []segmentResult{
		{segment: segment(1, 10), result: attributed(3, "tr-1")},
		{segment: segment(11, 20), result: attributed(4, "tr-1")},
	}

	merged := mergeAttributions(raw)
	require.Len(t, merged, 2)
}

func TestMergeAttributionsGapStaysSplit(t *testing.T) {
	raw := []segmentResult{
		{segment: segment(1, 10), result: attributed(3, "tr-1")},
		{segment: segment(15, 20), result: attributed(3, "tr-1")},
	}

	merged := mergeAttributions(raw)
	require.Len(t, merged, 2)
}

func TestMergeAttributionsNullsCollapse(t *testing.T) {
	// Unattributed runs merge under the same adjacency rule.
	none := model.AttributionResult{Confidence: 0, Signals: []string{}}
	raw := []segmentResult{
		{segment: segment(1, 10), result: none},
		{segment: segment(11, 20), result: none},
	}

	merged := mergeAttributions(raw)
	require.Len(t, merged, 1)
	assert.Nil(t, merged[0].Tier)
	assert.Nil(t, merged[0].TraceID)
	assert.Equal(t, 20, merged[0].EndLine)
}

func TestMergeAttributionsNullDoesNotMergeWithAttributed(t *testing.T) {
	none := model.AttributionResult{Confidence: 0, Signals: []string{}}
	raw := []segmentResult{
		{segment: segment(1, 10), result: attributed(3, "tr-1")},
		{segment: segment(11, 20), result: none},
	}

	merged := mergeAttributions(raw)
	require.Len(t, merged, 2)
}

func TestMergeAttributionsOverlappingSegments(t *testing.T) {
	// Blame output sometimes overlaps; prev.end+1 >= next.start still merges.
	raw := []segmentResult{
		{segment: segment(1, 12), result: attributed(3, "tr-1")},
		{segment: segment(10, 20), result: attributed(3, "tr-1")},
	}

	merged := mergeAttributions(raw)
	require.Len(t, merged, 1)
	assert.Equal(t, 20, merged[0].EndLine)
}

func TestFormatAttributionContributor(t *testing.T) {
	result := attributed(2, "tr-1")
	result.ModelID = "model-x"
	result.ContributorType = "ai"
	result.ConversationURL = "https://chat.example/c/1"

	entry := formatAttribution(segment(5, 9), result)

	require.NotNil(t, entry.Contributor)
	assert.Equal(t, "model-x", entry.Contributor.ModelID)
	assert.Equal(t, "ai", entry.Contributor.Type)
	// Mirrored at the top level for display clients.
	assert.Equal(t, "model-x", entry.ModelID)
	assert.Equal(t, "ai", entry.ContributorType)
	assert.Equal(t, "https://chat.example/c/1", entry.ConversationURL)
}

func TestFormatAttributionNoContributor(t *testing.T) {
	entry := formatAttribution(segment(5, 9), model.AttributionResult{Signals: []string{}})
	assert.Nil(t, entry.Contributor)
	assert.Empty(t, entry.ModelID)
}

func TestFormatAttributionSummaryTruncation(t *testing.T) {
	result := attributed(1, "tr-1")
	result.ConversationContent = strings.Repeat("x", 500)

	entry := formatAttribution(segment(1, 5), result)
	assert.Len(t, entry.ConversationSummary, maxConversationSummaryLen+3)
	assert.True(t, strings.HasSuffix(entry.ConversationSummary, "..."))

	short := attributed(1, "tr-1")
	short.ConversationContent = "brief"
	entry = formatAttribution(segment(1, 5), short)
	assert.Equal(t, "brief", entry.ConversationSummary)
}

func TestFormatAttributionSummaryTruncatesOnRunes(t *testing.T) {
	result := attributed(1, "tr-1")
	result.ConversationContent = strings.Repeat("日本語のテキスト", 50)

	entry := formatAttribution(segment(1, 5), result)
	assert.True(t, utf8.ValidString(entry.ConversationSummary))
	assert.Equal(t, maxConversationSummaryLen+3, utf8.RuneCountInString(entry.ConversationSummary))
	assert.True(t, strings.HasSuffix(entry.ConversationSummary, "..."))
}
