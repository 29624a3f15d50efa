package trace

import "github.com/ashita-ai/yurai/internal/model"

// overlapMargin is how far outside a recorded range a line may fall and
// still count as a near-miss.
const overlapMargin = 5

// RangeHit classifies how a line relates to a file entry's recorded ranges.
type RangeHit int

const (
	// RangeNone means no recorded range is anywhere near the line.
	RangeNone RangeHit = iota
	// RangeOverlap means the line is within overlapMargin of a range
	// boundary but inside none.
	RangeOverlap
	// RangeExact means the line falls inside a recorded range.
	RangeExact
)

// LineRanges collects every valid (start, end) pair on a file entry:
// the file-level range, per-conversation ranges and their hashed
// sub-ranges, and per-change ranges. This is the merged range-source view
// used by both scoring and result building.
func (f *FileEntry) LineRanges() []model.LineRange {
	var out []model.LineRange
	add := func(start, end Line) {
		if start.Valid && end.Valid {
			out = append(out, model.LineRange{StartLine: start.Value, EndLine: end.Value})
		}
	}

	add(f.StartLine, f.EndLine)
	for _, conv := range f.Conversations {
		add(conv.StartLine, conv.EndLine)
		for _, r := range conv.Ranges {
			add(r.StartLine, r.EndLine)
		}
	}
	for _, ch := range f.Changes {
		add(ch.StartLine, ch.EndLine)
	}
	return out
}

// CheckLine reports whether line falls inside any recorded range, near one,
// or neither. Containment anywhere wins over a nearer miss elsewhere.
func (f *FileEntry) CheckLine(line int) RangeHit {
	ranges := f.LineRanges()
	for _, r := range ranges {
		if r.StartLine <= line && line <= r.EndLine {
			return RangeExact
		}
	}
	for _, r := range ranges {
		if r.StartLine-overlapMargin <= line && line <= r.EndLine+overlapMargin {
			return RangeOverlap
		}
	}
	return RangeNone
}

// BestRange returns the range that best covers line: the tightest
// containing range when one exists, otherwise the nearest by endpoint
// distance. Returns nil when the entry records no ranges at all.
func (f *FileEntry) BestRange(line int) *model.LineRange {
	ranges := f.LineRanges()
	if len(ranges) == 0 {
		return nil
	}

	var best *model.LineRange
	containing := false
	bestDist := 0

	for i := range ranges {
		r := ranges[i]
		if r.StartLine <= line && line <= r.EndLine {
			if !containing || r.EndLine-r.StartLine < best.EndLine-best.StartLine {
				best = &ranges[i]
				containing = true
			}
			continue
		}
		if containing {
			continue
		}
		dist := min(abs(line-r.StartLine), abs(line-r.EndLine))
		if best == nil || dist < bestDist {
			best = &ranges[i]
			bestDist = dist
		}
	}
	return best
}

// HashForLine resolves the content hash that covers line, searching most
// specific first: hashed conversation sub-ranges, then conversation-level
// hashes, then change-level hashes, then the file-level hash as an
// unconditional fallback. Entries without a valid range are treated as
// covering every line of the file.
func (f *FileEntry) HashForLine(line int) string {
	for _, conv := range f.Conversations {
		for _, r := range conv.Ranges {
			if r.ContentHash != "" && lineCovered(r.StartLine, r.EndLine, line) {
				return r.ContentHash
			}
		}
	}
	for _, conv := range f.Conversations {
		if conv.ContentHash != "" && lineCovered(conv.StartLine, conv.EndLine, line) {
			return conv.ContentHash
		}
	}
	for _, ch := range f.Changes {
		if ch.ContentHash != "" && lineCovered(ch.StartLine, ch.EndLine, line) {
			return ch.ContentHash
		}
	}
	return f.ContentHash
}

// lineCovered treats an entry with no range info as covering the line.
func lineCovered(start, end Line, line int) bool {
	if !start.Valid || !end.Valid {
		return true
	}
	return start.Value <= line && line <= end.Value
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
