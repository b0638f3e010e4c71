package positioning

import (
	"context"
	"errors"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/stage"
)

// Options configure the stage.
type Options struct {
	MaxIterations     int
	ConflictThreshold float64
	Linker            evidence.Linker
	Logger            logging.Logger
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		MaxIterations:     3,
		ConflictThreshold: DefaultConflictThreshold,
		Linker:            evidence.DefaultLinker(),
		Logger:            logging.NoOpLogger{},
	}
}

// Stage runs the positioning steps.
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

// NewState creates the pending state, carrying the research results as context.
func (st *Stage) NewState(subjectID string, in research.Result) *core.StageState {
	s := core.NewStageState(subjectID, StageName, st.opts.MaxIterations)
	for k, v := range in.Fields() {
		s.SetContext(k, v)
	}
	return s
}

func (st *Stage) definition() stage.Definition[state, Result] {
	return stage.Definition[state, Result]{
		Name: StageName,
		Steps: []stage.Step[state]{
			stage.NewStep(StepIdentifyingDrama, st.identifyDrama, stage.AsRetryable[state]()),
			stage.NewStep(StepGeneratingOptions, st.generateOptions, stage.AsRetryable[state]()),
			stage.NewStep(StepValidatingDifferentiation, st.validateDifferentiation),
			stage.NewStep(StepScoringOptions, st.scoreOptions, stage.AsRetryable[state]()),
			stage.NewStep(StepFinalizing, st.finalize),
		},
		Output: func(d *state) (Result, error) {
			scores := make([]float64, len(d.options))
			for i, o := range d.options {
				scores[i] = o.OverallScore
			}
			return Result{
				InherentDrama:   d.drama,
				Options:         d.options,
				ValidationScore: scoring.Mean(scores),
				Warnings:        d.warnings,
			}, nil
		},
	}
}

// Run executes the stage. graph is the run's evidence graph; the stage only
// adds edges to it.
func (st *Stage) Run(ctx context.Context, s *core.StageState, in research.Result, graph evidence.EdgeWriter) (Result, error) {
	if graph == nil {
		return Result{}, errors.New("positioning: evidence graph is required")
	}
	d := &state{subjectID: s.SubjectID, research: in, graph: graph}
	res, err := stage.Run(ctx, s, d, st.definition(), func(o *stage.Options) {
		o.Logger = st.opts.Logger
	})
	if err != nil {
		res = Result{InherentDrama: d.drama, Options: d.options, Warnings: d.warnings}
	}
	return res, err
}
