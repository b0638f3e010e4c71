package icp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
)

// StageName identifies the stage in states, records and errors.
const StageName = "icp"

// Step names.
const (
	StepGeneratingHypotheses = "generating-hypotheses"
	StepGeneratingPersonas   = "generating-personas"
	StepMappingJTBD          = "mapping-jtbd"
	StepDefiningValueProps   = "defining-value-props"
	StepScoringSegments      = "scoring-segments"
	StepGeneratingEmbeddings = "generating-embeddings"
	StepExtractingTags       = "extracting-tags"
)

// Stage limits.
const (
	DefaultMaxICPs    = 3
	DefaultDimensions = 768
	MinHypotheses     = 5
	MaxHypotheses     = 7
	MinTags           = 8
	MaxTags           = 10
)

// Hypothesis is a candidate customer segment.
type Hypothesis struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rationale   string `json:"rationale,omitempty"`
}

// JTBD is the jobs-to-be-done triple.
type JTBD struct {
	Functional string `json:"functional" validate:"required"`
	Emotional  string `json:"emotional" validate:"required"`
	Social     string `json:"social" validate:"required"`
}

// ValueProp is a persona's value proposition.
type ValueProp struct {
	Transformation  string   `json:"transformation" validate:"required"`
	Benefits        []string `json:"benefits"`
	ReasonToBelieve string   `json:"reason_to_believe" validate:"required"`
	Differentiators []string `json:"differentiators"`
}

// Persona is a customer segment. Immutable once the stage completes.
type Persona struct {
	Name            string               `json:"name" validate:"required"`
	Archetype       string               `json:"archetype,omitempty"`
	Demographics    map[string]any       `json:"demographics" validate:"min=1"`
	Psychographics  map[string]any       `json:"psychographics"`
	Behavior        map[string]any       `json:"behavior"`
	Quote           string               `json:"quote" validate:"required"`
	JTBD            JTBD                 `json:"jtbd"`
	ValueProp       ValueProp            `json:"value_proposition"`
	Scores          scoring.ICPSubScores `json:"scores"`
	TotalScore      float64              `json:"total_score" validate:"gte=0,lte=1"`
	Embedding       []float32            `json:"embedding" validate:"min=1"`
	Tags            []string             `json:"monitoring_tags" validate:"min=8,max=10"`
	HypothesisIndex int                  `json:"hypothesis_index"`
}

// Profile flattens the persona into text for embedding and keyword extraction.
func (p Persona) Profile() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Archetype != "" {
		b.WriteString(" (" + p.Archetype + ")")
	}
	b.WriteString(". " + p.Quote)
	for _, m := range []map[string]any{p.Demographics, p.Psychographics, p.Behavior} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s: %v.", k, m[k])
		}
	}
	for _, s := range []string{p.JTBD.Functional, p.JTBD.Emotional, p.JTBD.Social, p.ValueProp.Transformation} {
		if s != "" {
			b.WriteString(" " + s)
		}
	}
	return b.String()
}

// Result is the typed output of the stage.
type Result struct {
	Hypotheses    []Hypothesis   `json:"hypotheses"`
	Personas      []Persona      `json:"personas" validate:"min=1,dive"`
	TotalFitScore float64        `json:"total_fit_score" validate:"gte=0,lte=1"`
	Warnings      []core.Warning `json:"warnings,omitempty"`
}

// Result keys written into StageState.Results.
const (
	KeyHypotheses    = "hypotheses"
	KeyPersonas      = "personas"
	KeyTotalFitScore = "total_fit_score"
)

// Fields implements stage.Output.
func (r Result) Fields() map[string]any {
	return map[string]any{
		KeyHypotheses:    r.Hypotheses,
		KeyPersonas:      r.Personas,
		KeyTotalFitScore: r.TotalFitScore,
	}
}
