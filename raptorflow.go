// Package raptorflow provides a high-level façade over the pipeline
// Orchestrator, turning an unstructured business description into scored
// strategy artifacts: market research with a competitor ladder, three
// positioning options and the ideal customer profiles for the option an
// external actor selects. Most applications interact with this package by:
//  1. Creating a Raptorflow via New() with a capability set (model, search,
//     embeddings), usually a provider.Provider
//  2. Running the whole pipeline (Execute), running it in the background and
//     supplying the selection later (Start), or driving it stage by stage
//
// All defaults are in-memory and safe for local development and testing;
// production deployments typically supply the SQLite recorder and a
// structured logger.
package raptorflow

import (
	"context"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/engine"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/icp"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store"
)

// Options configures the Raptorflow instance.
type Options struct {
	// Engine configuration (concurrency, personas kept)
	EngineConfig engine.Config

	// Recorder persists stage states and evidence (defaults to in-memory)
	Recorder store.Recorder

	// Stage tuning (defaults to each stage's DefaultOptions)
	Research    research.Options
	Positioning positioning.Options
	ICP         icp.Options

	// Callbacks registered on the orchestrator in order
	Callbacks []engine.Callback

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Raptorflow is the high-level façade over the orchestrator.
type Raptorflow struct {
	opts         Options
	orchestrator *engine.Orchestrator
}

// New creates a Raptorflow running against caps. Any unset option keeps its
// default.
func New(caps core.Capabilities, optFns ...func(o *Options)) *Raptorflow {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Recorder:     store.NewMemoryRecorder(),
		Research:     research.DefaultOptions(),
		Positioning:  positioning.DefaultOptions(),
		ICP:          icp.DefaultOptions(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	o := engine.New(caps, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Recorder = opts.Recorder
		o.Logger = opts.Logger
		o.Research = opts.Research
		o.Positioning = opts.Positioning
		o.ICP = opts.ICP
	})
	for _, cb := range opts.Callbacks {
		o.RegisterCallback(cb)
	}

	return &Raptorflow{opts: opts, orchestrator: o}
}

// Orchestrator exposes the underlying orchestrator.
func (r *Raptorflow) Orchestrator() *engine.Orchestrator { return r.orchestrator }

// RunResearch starts a new pipeline for subjectID and runs its Research stage.
// The returned pipeline feeds RunPositioning and RunICP.
func (r *Raptorflow) RunResearch(ctx context.Context, subjectID, description string) (*engine.Pipeline, research.Result, error) {
	p, err := r.orchestrator.NewPipeline(ctx, subjectID)
	if err != nil {
		return nil, research.Result{}, err
	}
	res, err := r.orchestrator.RunResearch(ctx, p, description)
	return p, res, err
}

// RunPositioning runs the Positioning stage of p.
func (r *Raptorflow) RunPositioning(ctx context.Context, p *engine.Pipeline) (positioning.Result, error) {
	return r.orchestrator.RunPositioning(ctx, p)
}

// RunICP selects optionNumber and runs the ICP stage of p, keeping at most
// maxICPs profiles (<= 0 uses EngineConfig.MaxICPs).
func (r *Raptorflow) RunICP(ctx context.Context, p *engine.Pipeline, optionNumber, maxICPs int) (icp.Result, error) {
	return r.orchestrator.RunICP(ctx, p, optionNumber, maxICPs)
}

// Execute runs the whole pipeline; sel picks the option (nil picks the
// top-ranked one).
func (r *Raptorflow) Execute(ctx context.Context, subjectID, description string, sel engine.Selector, optFns ...func(o *engine.RunOptions)) (*engine.Pipeline, error) {
	return r.orchestrator.Execute(ctx, subjectID, description, sel, optFns...)
}

// Start runs the pipeline in the background. ICP waits for Run.Select.
func (r *Raptorflow) Start(ctx context.Context, subjectID, description string, optFns ...func(o *engine.RunOptions)) (*engine.Run, error) {
	return r.orchestrator.Start(ctx, subjectID, description, optFns...)
}
