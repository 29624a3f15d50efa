package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/yurai/internal/model"
)

func TestLineRangesCollectsAllSources(t *testing.T) {
	f := FileEntry{
		StartLine: line(1),
		EndLine:   line(100),
		Conversations: []Conversation{{
			StartLine: line(10),
			EndLine:   line(20),
			Ranges:    []Range{{StartLine: line(12), EndLine: line(14)}},
		}},
		Changes: []Change{{StartLine: line(50), EndLine: line(60)}},
	}

	got := f.LineRanges()
	assert.Equal(t, []model.LineRange{
		{StartLine: 1, EndLine: 100},
		{StartLine: 10, EndLine: 20},
		{StartLine: 12, EndLine: 14},
		{StartLine: 50, EndLine: 60},
	}, got)
}

func TestLineRangesSkipsPartialPairs(t *testing.T) {
	f := FileEntry{
		StartLine: line(1), // end missing
		Changes:   []Change{{StartLine: line(5), EndLine: line(9)}},
	}
	assert.Equal(t, []model.LineRange{{StartLine: 5, EndLine: 9}}, f.LineRanges())
}

func TestCheckLine(t *testing.T) {
	f := FileEntry{Changes: []Change{{StartLine: line(10), EndLine: line(20)}}}

	assert.Equal(t, RangeExact, f.CheckLine(10))
	assert.Equal(t, RangeExact, f.CheckLine(15))
	assert.Equal(t, RangeExact, f.CheckLine(20))
	// Within the 5-line margin on either side.
	assert.Equal(t, RangeOverlap, f.CheckLine(5))
	assert.Equal(t, RangeOverlap, f.CheckLine(25))
	// Beyond the margin.
	assert.Equal(t, RangeNone, f.CheckLine(4))
	assert.Equal(t, RangeNone, f.CheckLine(26))
}

func TestCheckLineContainmentBeatsOverlap(t *testing.T) {
	f := FileEntry{Changes: []Change{
		{StartLine: line(1), EndLine: line(5)},  // line 9 overlaps this
		{StartLine: line(8), EndLine: line(12)}, // line 9 is inside this
	}}
	assert.Equal(t, RangeExact, f.CheckLine(9))
}

func TestCheckLineNoRanges(t *testing.T) {
	var f FileEntry
	assert.Equal(t, RangeNone, f.CheckLine(1))
}

func TestBestRangeTightestContaining(t *testing.T) {
	f := FileEntry{
		StartLine: line(1),
		EndLine:   line(100),
		Changes:   []Change{{StartLine: line(10), EndLine: line(20)}},
	}
	got := f.BestRange(15)
	require.NotNil(t, got)
	assert.Equal(t, model.LineRange{StartLine: 10, EndLine: 20}, *got)
}

func TestBestRangeNearestWhenNoneContain(t *testing.T) {
	f := FileEntry{Changes: []Change{
		{StartLine: line(10), EndLine: line(20)},
		{StartLine: line(40), EndLine: line(50)},
	}}
	got := f.BestRange(36)
	require.NotNil(t, got)
	assert.Equal(t, model.LineRange{StartLine: 40, EndLine: 50}, *got)
}

func TestBestRangeEmpty(t *testing.T) {
	var f FileEntry
	assert.Nil(t, f.BestRange(1))
}

func TestHashForLinePriority(t *testing.T) {
	f := FileEntry{
		ContentHash: "file-hash",
		Conversations: []Conversation{{
			ContentHash: "conv-hash",
			StartLine:   line(1),
			EndLine:     line(25),
			Ranges: []Range{{
				StartLine:   line(10),
				EndLine:     line(20),
				ContentHash: "range-hash",
			}},
		}},
		Changes: []Change{{
			StartLine:   line(30),
			EndLine:     line(40),
			ContentHash: "change-hash",
		}},
	}

	// Most specific source wins.
	assert.Equal(t, "range-hash", f.HashForLine(15))
	// Outside the sub-range, the conversation hash covers.
	assert.Equal(t, "conv-hash", f.HashForLine(22))
	// Outside all conversations, the change hash covers.
	assert.Equal(t, "change-hash", f.HashForLine(35))
	// Covered by nothing: the file-level hash is the fallback.
	assert.Equal(t, "file-hash", f.HashForLine(60))
}

func TestHashForLineRangelessEntriesCoverAllLines(t *testing.T) {
	f := FileEntry{
		ContentHash:   "file-hash",
		Conversations: []Conversation{{ContentHash: "conv-hash"}},
	}
	assert.Equal(t, "conv-hash", f.HashForLine(999))
}

func TestHashForLineFileFallback(t *testing.T) {
	f := FileEntry{
		ContentHash: "file-hash",
		Changes:     []Change{{StartLine: line(1), EndLine: line(5), ContentHash: "change-hash"}},
	}
	assert.Equal(t, "file-hash", f.HashForLine(100))
}
