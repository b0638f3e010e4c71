package research

import (
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
)

// StageName identifies the stage in states, records and errors.
const StageName = "research"

// Step names, which double as the machine's phase names.
const (
	StepAnalyzingSituation     = "analyzing-situation"
	StepResearchingCompetitors = "researching-competitors"
	StepBuildingLadder         = "building-ladder"
	StepGatheringEvidence      = "gathering-evidence"
	StepLinkingEvidence        = "linking-evidence"
	StepValidatingCompleteness = "validating-completeness"
)

// SOSTAC is the situation analysis record.
type SOSTAC struct {
	Situation   string `json:"situation" description:"current market situation of the business"`
	Objectives  string `json:"objectives" description:"business objectives"`
	MarketSize  string `json:"market_size" description:"market size estimate"`
	Positioning string `json:"positioning" description:"current positioning"`
	Challenges  string `json:"challenges" description:"main challenges"`
}

// Filled returns how many of the five fields are non-empty.
func (s SOSTAC) Filled() int {
	n := 0
	for _, f := range []string{s.Situation, s.Objectives, s.MarketSize, s.Positioning, s.Challenges} {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n
}

// Competitor is a competitor as reported by the generation capability.
type Competitor struct {
	Name         string  `json:"name"`
	Positioning  string  `json:"positioning,omitempty"`
	Pricing      string  `json:"pricing,omitempty"`
	TargetMarket string  `json:"target_market,omitempty"`
	WordOwned    string  `json:"word_owned" description:"the single positioning word this competitor owns"`
	Strength     float64 `json:"strength" description:"market strength between 0 and 1"`
	Notes        string  `json:"notes,omitempty"`
}

// LadderEntry is one rung of the competitor ladder.
type LadderEntry struct {
	Competitor string  `json:"competitor" validate:"required"`
	WordOwned  string  `json:"word_owned"`
	Strength   float64 `json:"strength" validate:"gte=0,lte=1"`
	Notes      string  `json:"notes,omitempty"`
}

// Result is the typed output of the stage.
type Result struct {
	Business          Business                  `json:"business"`
	SOSTAC            SOSTAC                    `json:"sostac"`
	Competitors       []Competitor              `json:"competitors"`
	Ladder            []LadderEntry             `json:"competitor_ladder" validate:"dive"`
	EvidenceNodeIDs   []string                  `json:"evidence_node_ids"`
	Claims            []evidence.LinkOutcome    `json:"claims"`
	Completeness      scoring.ResearchBreakdown `json:"completeness"`
	CompletenessScore float64                   `json:"completeness_score" validate:"gte=0,lte=1"`
	Warnings          []core.Warning            `json:"warnings,omitempty"`
}

// Result keys written into StageState.Results.
const (
	KeyBusiness          = "business"
	KeySOSTAC            = "sostac"
	KeyCompetitors       = "competitors"
	KeyLadder            = "competitor_ladder"
	KeyEvidenceNodeIDs   = "evidence_node_ids"
	KeyClaims            = "claims"
	KeyCompleteness      = "completeness"
	KeyCompletenessScore = "completeness_score"
)

// Fields implements stage.Output.
func (r Result) Fields() map[string]any {
	return map[string]any{
		KeyBusiness:          r.Business,
		KeySOSTAC:            r.SOSTAC,
		KeyCompetitors:       r.Competitors,
		KeyLadder:            r.Ladder,
		KeyEvidenceNodeIDs:   r.EvidenceNodeIDs,
		KeyClaims:            r.Claims,
		KeyCompleteness:      r.Completeness,
		KeyCompletenessScore: r.CompletenessScore,
	}
}

// WordsOwned returns the ladder's owned words in ladder order.
func (r Result) WordsOwned() []string {
	out := make([]string, 0, len(r.Ladder))
	for _, e := range r.Ladder {
		if e.WordOwned != "" {
			out = append(out, e.WordOwned)
		}
	}
	return out
}
