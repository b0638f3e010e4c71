// Package scoring holds the pure composite-score formulas used to gate stage
// output. Every function is deterministic and side-effect free: the same
// inputs always yield the same score.
//
// Sub-scores must already lie in [0,1]; a value outside that range (or NaN)
// is a contract violation reported as core.ErrValidation rather than clamped.
// Composite results are clamped to [0,1] to absorb floating-point drift.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
)

const (
	// DefaultTargetEvidenceCount is the evidence node count at which evidenceScore saturates.
	DefaultTargetEvidenceCount = 12
	// DefaultTargetCompetitorCount is the competitor count at which coverage saturates.
	DefaultTargetCompetitorCount = 5
	// SOSTACFieldCount is the number of modelled SOSTAC fields.
	SOSTACFieldCount = 5
)

// CheckUnit fails when v is not a number within [0,1].
func CheckUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return core.Validationf("%s score %v outside [0,1]", name, v)
	}
	return nil
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// ResearchConfig holds the saturation targets for research completeness.
type ResearchConfig struct {
	TargetEvidenceCount   int
	TargetCompetitorCount int
}

// DefaultResearchConfig returns the reference targets (12 evidence nodes, 5 competitors).
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		TargetEvidenceCount:   DefaultTargetEvidenceCount,
		TargetCompetitorCount: DefaultTargetCompetitorCount,
	}
}

// ResearchInputs are the raw counts the completeness score is computed from.
type ResearchInputs struct {
	EvidenceNodeCount  int `json:"evidence_node_count"`
	SOSTACFieldsFilled int `json:"sostac_fields_filled"`
	CompetitorsFound   int `json:"competitors_found"`
}

// ResearchBreakdown exposes each normalized sub-score next to the composite so
// the completeness value can be recomputed by consumers.
type ResearchBreakdown struct {
	EvidenceScore           float64 `json:"evidence_score"`
	SOSTACScore             float64 `json:"sostac_score"`
	CompetitorCoverageScore float64 `json:"competitor_coverage_score"`
	Completeness            float64 `json:"completeness"`
}

// Research completeness weights.
const (
	WeightEvidence   = 0.3
	WeightSOSTAC     = 0.4
	WeightCompetitor = 0.3
)

// ResearchCompleteness = 0.3·evidence + 0.4·sostac + 0.3·competitorCoverage.
func ResearchCompleteness(in ResearchInputs, cfg ResearchConfig) (ResearchBreakdown, error) {
	if cfg.TargetEvidenceCount <= 0 || cfg.TargetCompetitorCount <= 0 {
		return ResearchBreakdown{}, fmt.Errorf("scoring: research targets must be positive (evidence=%d, competitors=%d)",
			cfg.TargetEvidenceCount, cfg.TargetCompetitorCount)
	}
	if in.EvidenceNodeCount < 0 || in.CompetitorsFound < 0 || in.SOSTACFieldsFilled < 0 || in.SOSTACFieldsFilled > SOSTACFieldCount {
		return ResearchBreakdown{}, core.Validationf("research inputs out of range: %+v", in)
	}
	b := ResearchBreakdown{
		EvidenceScore:           math.Min(1, float64(in.EvidenceNodeCount)/float64(cfg.TargetEvidenceCount)),
		SOSTACScore:             float64(in.SOSTACFieldsFilled) / SOSTACFieldCount,
		CompetitorCoverageScore: math.Min(1, float64(in.CompetitorsFound)/float64(cfg.TargetCompetitorCount)),
	}
	b.Completeness = Clamp01(WeightEvidence*b.EvidenceScore + WeightSOSTAC*b.SOSTACScore + WeightCompetitor*b.CompetitorCoverageScore)
	return b, nil
}

// PositioningSubScores are the five per-option judgments.
type PositioningSubScores struct {
	Clarity       float64 `json:"clarity" validate:"gte=0,lte=1"`
	Uniqueness    float64 `json:"uniqueness" validate:"gte=0,lte=1"`
	Ownable       float64 `json:"ownable" validate:"gte=0,lte=1"`
	Resonance     float64 `json:"resonance" validate:"gte=0,lte=1"`
	Defensibility float64 `json:"defensibility" validate:"gte=0,lte=1"`
}

// PositioningOverall is the unweighted mean of the five sub-scores.
func PositioningOverall(s PositioningSubScores) (float64, error) {
	parts := []struct {
		name string
		v    float64
	}{
		{"clarity", s.Clarity},
		{"uniqueness", s.Uniqueness},
		{"ownable", s.Ownable},
		{"resonance", s.Resonance},
		{"defensibility", s.Defensibility},
	}
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		if err := CheckUnit(p.name, p.v); err != nil {
			return 0, err
		}
		vals = append(vals, p.v)
	}
	return Clamp01(Mean(vals)), nil
}

// ICPSubScores are the three per-segment judgments.
type ICPSubScores struct {
	Fit           float64 `json:"fit" validate:"gte=0,lte=1"`
	Urgency       float64 `json:"urgency" validate:"gte=0,lte=1"`
	Accessibility float64 `json:"accessibility" validate:"gte=0,lte=1"`
}

// ICPWeights weight the ICP sub-scores; they must sum to 1.
type ICPWeights struct {
	Fit           float64 `json:"fit"`
	Urgency       float64 `json:"urgency"`
	Accessibility float64 `json:"accessibility"`
}

// DefaultICPWeights returns the reference weights 0.4 / 0.35 / 0.25.
func DefaultICPWeights() ICPWeights {
	return ICPWeights{Fit: 0.4, Urgency: 0.35, Accessibility: 0.25}
}

// Validate checks each weight is in [0,1] and that they sum to 1.
func (w ICPWeights) Validate() error {
	for _, v := range []float64{w.Fit, w.Urgency, w.Accessibility} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("scoring: icp weight %v outside [0,1]", v)
		}
	}
	if sum := w.Fit + w.Urgency + w.Accessibility; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("scoring: icp weights sum to %v, want 1", sum)
	}
	return nil
}

// ICPTotal = fit·w.Fit + urgency·w.Urgency + accessibility·w.Accessibility.
func ICPTotal(s ICPSubScores, w ICPWeights) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if err := CheckUnit("fit", s.Fit); err != nil {
		return 0, err
	}
	if err := CheckUnit("urgency", s.Urgency); err != nil {
		return 0, err
	}
	if err := CheckUnit("accessibility", s.Accessibility); err != nil {
		return 0, err
	}
	return Clamp01(w.Fit*s.Fit + w.Urgency*s.Urgency + w.Accessibility*s.Accessibility), nil
}

// RankDescending returns the indexes of scores ordered by score descending;
// equal scores keep their original (lower index first) order.
func RankDescending(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx
}
