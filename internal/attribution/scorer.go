package attribution

import (
	"slices"

	"github.com/ashita-ai/yurai/internal/trace"
)

// Signal weights. The score of a candidate is the sum of the weights of the
// signals that fired; signals are independent and several may accrue.
const (
	weightCommitLink     = 40 // trace ID appears in the commit link's trace_ids
	weightContentHash    = 30 // blamed content hash matches a trace hash covering the line
	weightRevisionParent = 15 // trace vcs.revision matches the blame parent
	weightRangeMatch     = 10 // blamed line falls within a recorded range
	weightRangeOverlap   = 5  // blamed line is near (not inside) a recorded range
	weightTimestamp      = 5  // trace timestamp is plausible for the commit window
)

// weightRevisionAncestor is reserved for an ancestor-revision signal.
// Nothing emits it: deciding ancestry needs a commit-graph oracle the
// service does not have, and guessing one would inflate confidence.
const weightRevisionAncestor = 8

// Signal names as they appear in API responses.
const (
	SignalCommitLink       = "commit_link"
	SignalContentHash      = "content_hash"
	SignalRevisionParent   = "revision_parent"
	SignalRevisionAncestor = "revision_ancestor"
	SignalRangeMatch       = "range_match"
	SignalRangeOverlap     = "range_overlap"
	SignalTimestamp        = "timestamp_match"
	SignalLedger           = "ledger"
)

// structuralSignals are the signals that carry positional or identity
// evidence. Timestamp alone never yields a tier: it would false-positive on
// every manual edit made within a day of any AI trace.
var structuralSignals = []string{
	SignalCommitLink, SignalContentHash, SignalRevisionParent,
	SignalRevisionAncestor, SignalRangeMatch, SignalRangeOverlap,
}

// scoreTrace scores how well a candidate trace matches the blamed line,
// returning the numeric score and the names of the signals that fired.
func scoreTrace(cand trace.Resolved, q Query, hasLink bool, linkedIDs []string) (int, []string) {
	score := 0
	var signals []string

	if hasLink && slices.Contains(linkedIDs, cand.TraceID) {
		score += weightCommitLink
		signals = append(signals, SignalCommitLink)
	}

	if cand.Revision != "" && q.BlameParent != "" {
		// Exact match, or an abbreviated-SHA prefix match.
		if cand.Revision == q.BlameParent || trace.SHAPrefixMatch(cand.Revision, q.BlameParent) {
			score += weightRevisionParent
			signals = append(signals, SignalRevisionParent)
		}
	}

	if matched := trace.MatchFile(cand.Files, q.FilePath); matched != nil {
		switch matched.CheckLine(q.LineNumber) {
		case trace.RangeExact:
			score += weightRangeMatch
			signals = append(signals, SignalRangeMatch)
		case trace.RangeOverlap:
			score += weightRangeOverlap
			signals = append(signals, SignalRangeOverlap)
		}

		if q.ContentHash != "" {
			if h := matched.HashForLine(q.LineNumber); h != "" && trace.HashesMatch(q.ContentHash, h) {
				score += weightContentHash
				signals = append(signals, SignalContentHash)
			}
		}
	}

	// Weak liveness signal: the trace carries a usable timestamp and the
	// caller supplied commit topology. The real time-window comparison
	// already happened at candidate selection.
	if !cand.Timestamp.IsZero() && q.BlameParent != "" {
		score += weightTimestamp
		signals = append(signals, SignalTimestamp)
	}

	return score, signals
}

// evidenceGate decides whether the winning signal set justifies emitting an
// attribution at all. Admitted when there is line-range evidence, or the
// commit link is corroborated by a content hash, or the commit link is
// corroborated by a parent-revision match (the trace was linked to this
// commit and captured at its parent; the file filter already ran). A bare
// commit_link is denied: it proves the trace was in the commit, not that it
// authored these lines.
func evidenceGate(signals []string) bool {
	has := func(s string) bool { return slices.Contains(signals, s) }

	switch {
	case has(SignalRangeMatch) || has(SignalRangeOverlap):
		return true
	case has(SignalCommitLink) && has(SignalContentHash):
		return true
	case has(SignalCommitLink) && has(SignalRevisionParent):
		return true
	}
	return false
}
