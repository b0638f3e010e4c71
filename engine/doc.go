// Package engine implements the Pipeline Orchestrator.
//
// The Orchestrator runs the three strategy stages for one subject in a fixed
// order, passing each completed stage's results to the next:
//
//	┌──────────┐    ┌─────────────┐    ┌───────────┐    ┌─────┐
//	│ Research │ ─▶ │ Positioning │ ─▶ │ Selection │ ─▶ │ ICP │
//	└──────────┘    └─────────────┘    └───────────┘    └─────┘
//	      │                │                                │
//	      └──────── one evidence graph per pipeline run ────┘
//
// # Entry Points
//
// Stage by stage, synchronously:
//
//	p, _ := o.NewPipeline(ctx, "joes-restaurant")
//	_, err := o.RunResearch(ctx, p, description)
//	opts, err := o.RunPositioning(ctx, p)
//	personas, err := o.RunICP(ctx, p, opts.Options[0].OptionNumber, 0)
//
// The whole pipeline with a Selector deciding between Positioning and ICP:
//
//	p, err := o.Execute(ctx, "joes-restaurant", description, engine.TopOption)
//
// In the background, with the selection supplied by an external actor:
//
//	run, _ := o.Start(ctx, "joes-restaurant", description)
//	opts, _ := run.Options(ctx)
//	_ = run.Select(opts.Options[0].OptionNumber)
//	p, err := run.Wait(ctx)
//
// The wait for a selection blocks on a channel and the run's context; it
// never polls.
//
// # Failure
//
// Stages retry their own steps. A failed stage halts the pipeline and the
// returned error is the stage's *core.StageError, naming the stage, step,
// error kind and attempts. Partial results stay in the stage's state.
//
// # Persistence
//
// Pipeline run ids and per-stage run ids come from the store.Recorder and
// increase per subject. Every stage state and the run's evidence graph are
// written when the stage finishes, including failed and cancelled stages.
//
// # Callbacks
//
// CallbackManager runs registered callbacks before and after each stage, on
// stage failure and on option selection. ScoreThresholdCallback turns a low
// stage score into a halt.
package engine
