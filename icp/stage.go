package icp

import (
	"context"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/stage"
)

// Options configure the stage.
type Options struct {
	MaxIterations int
	// Dimensions is the required embedding length.
	Dimensions int
	Weights    scoring.ICPWeights
	// Concurrency bounds per-persona calls in flight within a step.
	Concurrency int
	Logger      logging.Logger
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 3,
		Dimensions:    DefaultDimensions,
		Weights:       scoring.DefaultICPWeights(),
		Concurrency:   4,
		Logger:        logging.NoOpLogger{},
	}
}

// Stage runs the ICP steps.
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

// NewState creates the pending state with the selected option and research
// results as context.
func (st *Stage) NewState(subjectID string, option positioning.Option, in research.Result) *core.StageState {
	s := core.NewStageState(subjectID, StageName, st.opts.MaxIterations)
	s.SetContext("selected_option", option)
	for k, v := range in.Fields() {
		s.SetContext(k, v)
	}
	return s
}

func (st *Stage) definition() stage.Definition[state, Result] {
	return stage.Definition[state, Result]{
		Name: StageName,
		Steps: []stage.Step[state]{
			stage.NewStep(StepGeneratingHypotheses, st.generateHypotheses, stage.AsRetryable[state]()),
			stage.NewStep(StepGeneratingPersonas, st.generatePersonas, stage.AsRetryable[state]()),
			stage.NewStep(StepMappingJTBD, st.mapJTBD, stage.AsRetryable[state]()),
			stage.NewStep(StepDefiningValueProps, st.defineValueProps, stage.AsRetryable[state]()),
			stage.NewStep(StepScoringSegments, st.scoreSegments, stage.AsRetryable[state]()),
			stage.NewStep(StepGeneratingEmbeddings, st.generateEmbeddings, stage.AsRetryable[state]()),
			stage.NewStep(StepExtractingTags, st.extractTags, stage.AsRetryable[state]()),
		},
		Output: func(d *state) (Result, error) {
			fits := make([]float64, len(d.personas))
			for i, p := range d.personas {
				fits[i] = p.Scores.Fit
			}
			return Result{
				Hypotheses:    d.hypotheses,
				Personas:      d.personas,
				TotalFitScore: scoring.Mean(fits),
				Warnings:      d.warnings,
			}, nil
		},
	}
}

// Run executes the stage for the selected option. maxICPs <= 0 uses
// DefaultMaxICPs.
func (st *Stage) Run(ctx context.Context, s *core.StageState, option positioning.Option, in research.Result, maxICPs int) (Result, error) {
	if maxICPs <= 0 {
		maxICPs = DefaultMaxICPs
	}
	s.SetContext("max_icps", maxICPs)
	d := &state{option: option, research: in, maxICPs: maxICPs}
	res, err := stage.Run(ctx, s, d, st.definition(), func(o *stage.Options) {
		o.Logger = st.opts.Logger
	})
	if err != nil {
		res = Result{Hypotheses: d.hypotheses, Personas: d.personas, Warnings: d.warnings}
	}
	return res, err
}
