package positioning

import (
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
)

// StageName identifies the stage in states, records and errors.
const StageName = "positioning"

// Step names.
const (
	StepIdentifyingDrama          = "identifying-drama"
	StepGeneratingOptions         = "generating-options"
	StepValidatingDifferentiation = "validating-differentiation"
	StepScoringOptions            = "scoring-options"
	StepFinalizing                = "finalizing"
)

// OptionCount is the number of options every run produces.
const OptionCount = 3

// OptionStatus is the lifecycle of a positioning option.
type OptionStatus string

const (
	StatusDraft             OptionStatus = "draft"
	StatusScored            OptionStatus = "scored"
	StatusReadyForSelection OptionStatus = "ready_for_selection"
	StatusFinalized         OptionStatus = "finalized"
)

// ConflictSource names the option field that collides with a competitor.
type ConflictSource string

const (
	ConflictWordToOwn       ConflictSource = "word_to_own"
	ConflictDifferentiation ConflictSource = "differentiation"
)

// Conflict records an option whose word-to-own or differentiation text
// collides with a word a competitor already owns.
type Conflict struct {
	Competitor string         `json:"competitor"`
	WordOwned  string         `json:"word_owned"`
	Strength   float64        `json:"strength"`
	Similarity float64        `json:"similarity"`
	Source     ConflictSource `json:"source"`
}

// Option is one positioning candidate.
type Option struct {
	OptionNumber      int                          `json:"option_number" validate:"gte=1"`
	WordToOwn         string                       `json:"word_to_own" validate:"required"`
	Rationale         string                       `json:"rationale" validate:"required"`
	Category          string                       `json:"category" validate:"required"`
	Differentiation   string                       `json:"differentiation" validate:"required"`
	Sacrifices        []string                     `json:"sacrifices" validate:"min=1"`
	RemarkableElement string                       `json:"remarkable_element" validate:"required"`
	CoreCreativeIdea  string                       `json:"core_creative_idea" validate:"required"`
	CustomerPromise   string                       `json:"customer_promise" validate:"required"`
	ReasonsToBelieve  []string                     `json:"reasons_to_believe"`
	Scores            scoring.PositioningSubScores `json:"scores"`
	OverallScore      float64                      `json:"overall_score" validate:"gte=0,lte=1"`
	Status            OptionStatus                 `json:"status" validate:"required"`
	Conflicts         []Conflict                   `json:"conflicts,omitempty"`
	Claims            []evidence.LinkOutcome       `json:"claims"`
}

// HasConflict reports whether differentiation validation flagged the option.
func (o Option) HasConflict() bool { return len(o.Conflicts) > 0 }

// Result is the typed output of the stage.
type Result struct {
	InherentDrama   string         `json:"inherent_drama" validate:"required"`
	Options         []Option       `json:"options" validate:"len=3,dive"`
	ValidationScore float64        `json:"validation_score" validate:"gte=0,lte=1"`
	Warnings        []core.Warning `json:"warnings,omitempty"`
}

// Result keys written into StageState.Results.
const (
	KeyInherentDrama   = "inherent_drama"
	KeyOptions         = "options"
	KeyValidationScore = "validation_score"
)

// Fields implements stage.Output.
func (r Result) Fields() map[string]any {
	return map[string]any{
		KeyInherentDrama:   r.InherentDrama,
		KeyOptions:         r.Options,
		KeyValidationScore: r.ValidationScore,
	}
}

// Option returns the option with the given number.
func (r Result) Option(number int) (Option, bool) {
	for _, o := range r.Options {
		if o.OptionNumber == number {
			return o, true
		}
	}
	return Option{}, false
}

// Select marks the chosen option finalized and returns it. An option
// finalized by an earlier selection goes back to ready_for_selection.
func (r *Result) Select(number int) (Option, error) {
	idx := -1
	for i := range r.Options {
		if r.Options[i].OptionNumber == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Option{}, core.Validationf("no positioning option %d", number)
	}
	for i := range r.Options {
		switch {
		case i == idx:
			r.Options[i].Status = StatusFinalized
		case r.Options[i].Status == StatusFinalized:
			r.Options[i].Status = StatusReadyForSelection
		}
	}
	return r.Options[idx], nil
}
