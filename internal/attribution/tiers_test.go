package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTierThresholds(t *testing.T) {
	// A structural signal set without the tier-1 pair.
	structural := []string{SignalRevisionParent, SignalRangeMatch}

	tests := []struct {
		score int
		tier  int
	}{
		{100, 2}, // high score alone never reaches tier 1
		{95, 2},
		{80, 2},
		{79, 3},
		{60, 3},
		{59, 4},
		{45, 4},
		{44, 5},
		{25, 5},
		{24, 6},
		{1, 6},
	}
	for _, tt := range tests {
		tier, ok := computeTier(tt.score, structural)
		assert.True(t, ok, "score %d", tt.score)
		assert.Equal(t, tt.tier, tier, "score %d", tt.score)
	}
}

func TestComputeTierOne(t *testing.T) {
	signals := []string{SignalCommitLink, SignalContentHash, SignalRevisionParent, SignalRangeMatch}

	tier, ok := computeTier(95, signals)
	assert.True(t, ok)
	assert.Equal(t, 1, tier)

	// Same signals below the threshold fall back to tier 2.
	tier, ok = computeTier(94, signals)
	assert.True(t, ok)
	assert.Equal(t, 2, tier)
}

func TestComputeTierRequiresStructuralSignal(t *testing.T) {
	// A timestamp is not evidence of authorship on its own.
	_, ok := computeTier(50, []string{SignalTimestamp})
	assert.False(t, ok)

	_, ok = computeTier(50, nil)
	assert.False(t, ok)
}

func TestComputeTierNonPositiveScore(t *testing.T) {
	_, ok := computeTier(0, []string{SignalRangeMatch})
	assert.False(t, ok)
}

func TestTierConfidence(t *testing.T) {
	assert.Equal(t, 1.0, tierConfidence(1))
	assert.Equal(t, 0.999, tierConfidence(2))
	assert.Equal(t, 0.95, tierConfidence(3))
	assert.Equal(t, 0.85, tierConfidence(4))
	assert.Equal(t, 0.70, tierConfidence(5))
	assert.Equal(t, 0.40, tierConfidence(6))
	assert.Equal(t, 0.0, tierConfidence(0))
}
