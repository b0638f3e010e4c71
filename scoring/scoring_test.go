package scoring

import (
	"math"
	"testing"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResearchCompleteness(t *testing.T) {
	cfg := DefaultResearchConfig()

	tests := []struct {
		name string
		in   ResearchInputs
		want float64
	}{
		{"empty", ResearchInputs{}, 0},
		{"saturated", ResearchInputs{EvidenceNodeCount: 12, SOSTACFieldsFilled: 5, CompetitorsFound: 5}, 1},
		{"over target", ResearchInputs{EvidenceNodeCount: 40, SOSTACFieldsFilled: 5, CompetitorsFound: 9}, 1},
		{"partial", ResearchInputs{EvidenceNodeCount: 6, SOSTACFieldsFilled: 4, CompetitorsFound: 0}, 0.3*0.5 + 0.4*0.8},
		{"no competitors", ResearchInputs{EvidenceNodeCount: 12, SOSTACFieldsFilled: 5}, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ResearchCompleteness(tt.in, cfg)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, b.Completeness, 1e-9)
			recomputed := WeightEvidence*b.EvidenceScore + WeightSOSTAC*b.SOSTACScore + WeightCompetitor*b.CompetitorCoverageScore
			assert.InDelta(t, recomputed, b.Completeness, 1e-9)
		})
	}
}

func TestResearchCompleteness_OneOnlyWhenAllTargetsMet(t *testing.T) {
	cfg := DefaultResearchConfig()
	for ev := 0; ev <= 14; ev++ {
		for so := 0; so <= 5; so++ {
			for co := 0; co <= 6; co++ {
				b, err := ResearchCompleteness(ResearchInputs{EvidenceNodeCount: ev, SOSTACFieldsFilled: so, CompetitorsFound: co}, cfg)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, b.Completeness, 0.0)
				assert.LessOrEqual(t, b.Completeness, 1.0)
				full := ev >= 12 && so == 5 && co >= 5
				assert.Equal(t, full, b.Completeness == 1.0, "ev=%d so=%d co=%d", ev, so, co)
			}
		}
	}
}

func TestResearchCompleteness_InvalidInputs(t *testing.T) {
	_, err := ResearchCompleteness(ResearchInputs{}, ResearchConfig{TargetEvidenceCount: 0, TargetCompetitorCount: 5})
	assert.Error(t, err)

	_, err = ResearchCompleteness(ResearchInputs{SOSTACFieldsFilled: 6}, DefaultResearchConfig())
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestPositioningOverall(t *testing.T) {
	got, err := PositioningOverall(PositioningSubScores{Clarity: 1, Uniqueness: 0.5, Ownable: 0.5, Resonance: 0.25, Defensibility: 0.75})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got, 1e-9)

	_, err = PositioningOverall(PositioningSubScores{Clarity: 1.2})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = PositioningOverall(PositioningSubScores{Resonance: math.NaN()})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestICPTotal(t *testing.T) {
	got, err := ICPTotal(ICPSubScores{Fit: 1, Urgency: 0.5, Accessibility: 0}, DefaultICPWeights())
	require.NoError(t, err)
	assert.InDelta(t, 0.4+0.175, got, 1e-9)

	_, err = ICPTotal(ICPSubScores{Fit: -0.1}, DefaultICPWeights())
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = ICPTotal(ICPSubScores{}, ICPWeights{Fit: 0.5, Urgency: 0.5, Accessibility: 0.5})
	assert.Error(t, err)
}

func TestScoring_Idempotent(t *testing.T) {
	in := ResearchInputs{EvidenceNodeCount: 7, SOSTACFieldsFilled: 3, CompetitorsFound: 2}
	a, _ := ResearchCompleteness(in, DefaultResearchConfig())
	b, _ := ResearchCompleteness(in, DefaultResearchConfig())
	assert.Equal(t, a, b)

	s := ICPSubScores{Fit: 0.3, Urgency: 0.9, Accessibility: 0.6}
	x, _ := ICPTotal(s, DefaultICPWeights())
	y, _ := ICPTotal(s, DefaultICPWeights())
	assert.Equal(t, x, y)
}

func TestRankDescending(t *testing.T) {
	assert.Equal(t, []int{1, 0, 3, 2}, RankDescending([]float64{0.5, 0.9, 0.1, 0.5}))
	assert.Empty(t, RankDescending(nil))
}

func TestMeanAndClamp(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 0.5, Mean([]float64{0.25, 0.75}), 1e-12)
	assert.Equal(t, 1.0, Clamp01(1.0000001))
	assert.Equal(t, 0.0, Clamp01(-3))
}
