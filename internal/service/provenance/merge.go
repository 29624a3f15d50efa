package provenance

import "github.com/ashita-ai/yurai/internal/model"

// maxConversationSummaryLen bounds the transcript excerpt in blame output.
const maxConversationSummaryLen = 200

type segmentResult struct {
	segment model.BlameSegment
	result  model.AttributionResult
}

// mergeAttributions formats attribution results and collapses adjacent
// segments that attributed identically. Two entries merge when the previous
// end line is adjacent to (or past) the next start line and both trace_id
// and tier are equal; null trace_ids and null tiers collapse together under
// the same rule. A single left-to-right pass, order preserved.
func mergeAttributions(raw []segmentResult) []model.BlameAttribution {
	merged := make([]model.BlameAttribution, 0, len(raw))

	for _, sr := range raw {
		entry := formatAttribution(sr.segment, sr.result)

		if len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if prev.EndLine+1 >= entry.StartLine &&
				ptrEq(prev.TraceID, entry.TraceID) &&
				ptrEq(prev.Tier, entry.Tier) {
				prev.EndLine = entry.EndLine
				continue
			}
		}
		merged = append(merged, entry)
	}

	return merged
}

func ptrEq[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// formatAttribution shapes one attribution result for the API response.
// Contributor info appears both nested and top-level so blame display
// clients can show the model without digging.
func formatAttribution(segment model.BlameSegment, result model.AttributionResult) model.BlameAttribution {
	entry := model.BlameAttribution{
		StartLine:        *segment.StartLine,
		EndLine:          *segment.EndLine,
		Tier:             result.Tier,
		Confidence:       result.Confidence,
		TraceID:          result.TraceID,
		Tool:             result.Tool,
		Signals:          result.Signals,
		CommitLinkMatch:  result.CommitLinkMatch,
		ContentHashMatch: result.ContentHashMatch,
	}

	if result.ContributorType != "" || result.ModelID != "" {
		entry.Contributor = &model.Contributor{
			Type:    result.ContributorType,
			ModelID: result.ModelID,
		}
		entry.ModelID = result.ModelID
		entry.ContributorType = result.ContributorType
	}

	entry.ConversationURL = result.ConversationURL
	if result.ConversationContent != "" {
		summary := result.ConversationContent
		// Truncate on runes so a multibyte transcript is never cut mid-character.
		if runes := []rune(summary); len(runes) > maxConversationSummaryLen {
			summary = string(runes[:maxConversationSummaryLen]) + "..."
		}
		entry.ConversationSummary = summary
	}

	return entry
}
