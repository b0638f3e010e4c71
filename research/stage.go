package research

import (
	"context"
	"errors"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/stage"
)

// Options configure the stage.
type Options struct {
	// MaxIterations bounds attempts of steps that call a provider.
	MaxIterations int
	// ResultsPerQuery caps the evidence nodes kept per search query.
	ResultsPerQuery int
	Scoring         scoring.ResearchConfig
	Linker          evidence.Linker
	Logger          logging.Logger
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		MaxIterations:   3,
		ResultsPerQuery: 5,
		Scoring:         scoring.DefaultResearchConfig(),
		Linker:          evidence.DefaultLinker(),
		Logger:          logging.NoOpLogger{},
	}
}

// Stage runs the research steps against a capability set.
type Stage struct {
	caps core.Capabilities
	opts Options
}

// New creates the stage.
func New(caps core.Capabilities, optFns ...func(o *Options)) *Stage {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Stage{caps: caps, opts: opts}
}

// NewState creates the pending state for a run of this stage.
func (st *Stage) NewState(subjectID, description string) *core.StageState {
	s := core.NewStageState(subjectID, StageName, st.opts.MaxIterations)
	s.SetContext("business_description", description)
	return s
}

func (st *Stage) definition() stage.Definition[state, Result] {
	return stage.Definition[state, Result]{
		Name: StageName,
		Steps: []stage.Step[state]{
			stage.NewStep(StepAnalyzingSituation, st.analyzeSituation, stage.AsRetryable[state]()),
			stage.NewStep(StepResearchingCompetitors, st.researchCompetitors, stage.AsRetryable[state]()),
			stage.NewStep(StepBuildingLadder, st.buildLadder),
			stage.NewStep(StepGatheringEvidence, st.gatherEvidence, stage.AsRetryable[state]()),
			stage.NewStep(StepLinkingEvidence, st.linkEvidence),
			stage.NewStep(StepValidatingCompleteness, st.validateCompleteness),
		},
		Output: func(d *state) (Result, error) {
			return Result{
				Business:          d.business,
				SOSTAC:            d.sostac,
				Competitors:       nonNil(d.competitors),
				Ladder:            nonNil(d.ladder),
				EvidenceNodeIDs:   nonNil(d.evidenceIDs),
				Claims:            nonNil(d.links),
				Completeness:      d.breakdown,
				CompletenessScore: d.breakdown.Completeness,
				Warnings:          d.warnings,
			}, nil
		},
	}
}

// Run executes the stage for description, writing evidence into graph. The
// graph must belong to st's subject.
func (st *Stage) Run(ctx context.Context, s *core.StageState, graph *evidence.Graph, description string) (Result, error) {
	if graph == nil {
		return Result{}, errors.New("research: evidence graph is required")
	}
	d := &state{
		subjectID: s.SubjectID,
		business:  ParseBusiness(description),
		graph:     graph,
	}
	res, err := stage.Run(ctx, s, d, st.definition(), func(o *stage.Options) {
		o.Logger = st.opts.Logger
	})
	if err != nil {
		// Partial output stays inspectable on failure.
		res = Result{Business: d.business, SOSTAC: d.sostac, Ladder: d.ladder, Warnings: d.warnings}
	}
	return res, err
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
