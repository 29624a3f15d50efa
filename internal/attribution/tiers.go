package attribution

import "slices"

// computeTier maps a score and signal set to a confidence tier. Returns
// false when no tier applies: non-positive score, or no structural signal.
//
// Tier 1 additionally requires both commit_link and content_hash; a high
// score assembled from weaker signals caps at tier 2.
func computeTier(score int, signals []string) (int, bool) {
	if score <= 0 {
		return 0, false
	}

	structural := false
	for _, s := range signals {
		if slices.Contains(structuralSignals, s) {
			structural = true
			break
		}
	}
	if !structural {
		return 0, false
	}

	if score >= 95 && slices.Contains(signals, SignalCommitLink) && slices.Contains(signals, SignalContentHash) {
		return 1, true
	}
	switch {
	case score >= 80:
		return 2, true
	case score >= 60:
		return 3, true
	case score >= 45:
		return 4, true
	case score >= 25:
		return 5, true
	}
	return 6, true
}

// tierConfidence converts a tier to its representative confidence value.
func tierConfidence(tier int) float64 {
	switch tier {
	case 1:
		return 1.0
	case 2:
		return 0.999
	case 3:
		return 0.95
	case 4:
		return 0.85
	case 5:
		return 0.70
	case 6:
		return 0.40
	}
	return 0.0
}
