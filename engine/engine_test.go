package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/icp"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/scenario"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/testutil"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restaurant(t *testing.T) (*testutil.Fixture, *Orchestrator) {
	t.Helper()
	f := testutil.NewFixture(t)
	f.ScriptRestaurant()
	return f, New(f.Provider)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOrchestrator_ExecuteRestaurant(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	p, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, TopOption)
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.RunID)
	for _, name := range []string{research.StageName, positioning.StageName, icp.StageName} {
		assert.True(t, p.Completed(name), name)
	}
	require.Len(t, p.Stages, 3)

	require.NotNil(t, p.Selected)
	assert.Equal(t, "Family", p.Selected.WordToOwn)
	assert.Equal(t, positioning.StatusFinalized, p.Selected.Status)
	assert.Equal(t, positioning.StatusFinalized, p.Positioning.Options[0].Status)

	require.Len(t, p.ICP.Personas, 3)
	assert.Equal(t, "Busy Parents", p.ICP.Personas[0].Name)
	assert.Equal(t, 15, p.Graph.NodeCount())
	assert.NotEmpty(t, p.Warnings())

	// Everything was recorded.
	for _, name := range []string{research.StageName, positioning.StageName, icp.StageName} {
		st, err := o.LoadStage(ctx, scenario.RestaurantSubject, name, 0)
		require.NoError(t, err, name)
		assert.Equal(t, core.StatusCompleted, st.Status, name)
		assert.Equal(t, int64(1), st.RunID, name)
	}
	pos, err := o.LoadStage(ctx, scenario.RestaurantSubject, positioning.StageName, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(1), pos.Results["selected_option"])

	snap, err := o.LoadEvidence(ctx, scenario.RestaurantSubject, p.RunID)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 15)
	assert.Len(t, snap.Edges, len(p.Graph.Edges()))
}

func TestOrchestrator_RunIDsIncrease(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	first, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.NoError(t, err)
	second, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.RunID)
	assert.Equal(t, int64(2), second.RunID)
	st, _ := second.State(research.StageName)
	assert.Equal(t, int64(2), st.RunID)

	// Each run has its own graph.
	assert.Equal(t, 15, second.Graph.NodeCount())
}

func TestOrchestrator_ResearchFailureHalts(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Model.AddError("research.sostac", core.Unavailablef("quota exhausted"))
	o := New(f.Provider)
	ctx := testContext(t)

	p, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, TopOption)
	require.Error(t, err)

	var se *core.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, research.StageName, se.Stage)
	assert.Equal(t, research.StepAnalyzingSituation, se.Step)
	assert.Equal(t, core.KindProviderUnavailable, se.Kind)
	assert.Equal(t, 1, se.Attempts)

	require.Len(t, p.Stages, 1)
	assert.Equal(t, core.StatusFailed, p.Stages[0].Status)
	assert.Zero(t, f.Model.Calls("positioning.drama"))

	st, err := o.LoadStage(ctx, scenario.RestaurantSubject, research.StageName, 0)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, st.Status)
	assert.True(t, errors.Is(st.Error, core.ErrProviderUnavailable))

	_, err = o.LoadStage(ctx, scenario.RestaurantSubject, positioning.StageName, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOrchestrator_ICPFailureKeepsEarlierStages(t *testing.T) {
	f, o := restaurant(t)
	f.Embedder.SetError(errors.New("embedding backend down"))
	ctx := testContext(t)

	p, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, TopOption)
	require.Error(t, err)

	var se *core.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, icp.StageName, se.Stage)
	assert.Equal(t, icp.StepGeneratingEmbeddings, se.Step)
	assert.Equal(t, core.KindProviderTimeout, se.Kind)
	assert.Equal(t, 3, se.Attempts)

	assert.True(t, p.Completed(research.StageName))
	assert.True(t, p.Completed(positioning.StageName))
	assert.False(t, p.Completed(icp.StageName))
	require.NotNil(t, p.Selected)

	// Partial output stays inspectable.
	st, ok := p.State(icp.StageName)
	require.True(t, ok)
	assert.Contains(t, st.Results, "trace."+icp.StepScoringSegments)
}

func TestOrchestrator_StageByStage(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	p, err := o.NewPipeline(ctx, scenario.RestaurantSubject)
	require.NoError(t, err)

	_, err = o.RunPositioning(ctx, p)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = o.RunICP(ctx, p, 1, 0)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = o.RunResearch(ctx, p, scenario.RestaurantDescription)
	require.NoError(t, err)
	pos, err := o.RunPositioning(ctx, p)
	require.NoError(t, err)
	require.Len(t, pos.Options, 3)

	_, err = o.RunICP(ctx, p, 7, 0)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Nil(t, p.Selected)

	res, err := o.RunICP(ctx, p, 2, 0)
	require.NoError(t, err)
	assert.Len(t, res.Personas, 3)
	assert.Equal(t, "Homemade", p.Selected.WordToOwn)
}

func TestOrchestrator_RunICPMaxPerCall(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	run := func(maxICPs int) icp.Result {
		p, err := o.NewPipeline(ctx, scenario.RestaurantSubject)
		require.NoError(t, err)
		_, err = o.RunResearch(ctx, p, scenario.RestaurantDescription)
		require.NoError(t, err)
		_, err = o.RunPositioning(ctx, p)
		require.NoError(t, err)
		res, err := o.RunICP(ctx, p, 1, maxICPs)
		require.NoError(t, err)
		return res
	}

	assert.Len(t, run(1).Personas, 1)
	assert.Len(t, run(2).Personas, 2)
	assert.Len(t, run(0).Personas, DefaultConfig.MaxICPs)
}

func TestOrchestrator_ExecuteWithMaxICPs(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	p, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, nil, WithMaxICPs(2))
	require.NoError(t, err)
	assert.Len(t, p.ICP.Personas, 2)

	p, err = o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.NoError(t, err)
	assert.Len(t, p.ICP.Personas, DefaultConfig.MaxICPs)
}

func TestOrchestrator_ReselectKeepsOneFinalized(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	p, err := o.NewPipeline(ctx, scenario.RestaurantSubject)
	require.NoError(t, err)
	_, err = o.RunResearch(ctx, p, scenario.RestaurantDescription)
	require.NoError(t, err)
	_, err = o.RunPositioning(ctx, p)
	require.NoError(t, err)

	_, err = o.Select(ctx, p, 2)
	require.NoError(t, err)
	opt, err := o.Select(ctx, p, 1)
	require.NoError(t, err)
	assert.Equal(t, "Family", opt.WordToOwn)
	assert.Equal(t, 1, p.Selected.OptionNumber)

	var finalized []int
	for _, o := range p.Positioning.Options {
		if o.Status == positioning.StatusFinalized {
			finalized = append(finalized, o.OptionNumber)
		}
	}
	assert.Equal(t, []int{1}, finalized)
}

func TestOrchestrator_EmptySubject(t *testing.T) {
	_, o := restaurant(t)
	_, err := o.Execute(context.Background(), "", scenario.RestaurantDescription, nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRun_SelectThenWait(t *testing.T) {
	f, o := restaurant(t)
	ctx := testContext(t)

	run, err := o.Start(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.RunID)

	opts, err := run.Options(ctx)
	require.NoError(t, err)
	require.Len(t, opts.Options, 3)
	assert.Equal(t, scenario.RestaurantWords, []string{opts.Options[0].WordToOwn, opts.Options[1].WordToOwn, opts.Options[2].WordToOwn})
	assert.Zero(t, f.Model.Calls("icp.hypotheses"))

	assert.ErrorIs(t, run.Select(9), core.ErrValidation)
	require.NoError(t, run.Select(2))
	assert.ErrorIs(t, run.Select(1), core.ErrValidation)

	p, err := run.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Homemade", p.Selected.WordToOwn)
	assert.True(t, p.Completed(icp.StageName))
	// The options handed out are not mutated by the selection.
	assert.Equal(t, positioning.StatusReadyForSelection, opts.Options[1].Status)
}

func TestRun_CancelWhileAwaitingSelection(t *testing.T) {
	f, o := restaurant(t)
	ctx := testContext(t)

	run, err := o.Start(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription)
	require.NoError(t, err)
	_, err = run.Options(ctx)
	require.NoError(t, err)

	run.Cancel()
	p, err := run.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCancelled))
	assert.True(t, p.Completed(positioning.StageName))
	assert.Nil(t, p.Selected)
	assert.Zero(t, f.Model.Calls("icp.hypotheses"))

	assert.ErrorIs(t, run.Select(1), ErrRunFinished)
}

func TestRun_OptionsReturnsHaltError(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Model.AddError("research.sostac", core.Unavailablef("quota exhausted"))
	o := New(f.Provider)
	ctx := testContext(t)

	run, err := o.Start(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription)
	require.NoError(t, err)
	_, err = run.Options(ctx)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	<-run.Done()
	assert.ErrorIs(t, run.Select(1), core.ErrValidation)
}

func TestOrchestrator_Stop(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	assert.Error(t, o.Stop(scenario.RestaurantSubject, 1))

	run, err := o.Start(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription)
	require.NoError(t, err)
	_, err = run.Options(ctx)
	require.NoError(t, err)

	require.NoError(t, o.Stop(scenario.RestaurantSubject, run.RunID))
	_, err = run.Wait(ctx)
	assert.True(t, errors.Is(err, core.ErrCancelled))
}

func TestOrchestrator_Callbacks(t *testing.T) {
	_, o := restaurant(t)
	ctx := testContext(t)

	var events []string
	for _, typ := range []CallbackType{CallbackBeforeStage, CallbackAfterStage, CallbackOnError, CallbackOnSelection} {
		o.RegisterCallback(NewFunctionCallback(typ, func(_ context.Context, c *CallbackContext) error {
			if c.Option != nil {
				events = append(events, string(c.CallbackType)+":"+c.Option.WordToOwn)
				return nil
			}
			events = append(events, string(c.CallbackType)+":"+c.Stage)
			return nil
		}))
	}

	_, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, FixedOption(3))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"before_stage:research", "after_stage:research",
		"before_stage:positioning", "after_stage:positioning",
		"on_selection:Neighborhood",
		"before_stage:icp", "after_stage:icp",
	}, events)
}

func TestOrchestrator_BeforeStageAborts(t *testing.T) {
	f, o := restaurant(t)
	o.RegisterCallback(NewFunctionCallback(CallbackBeforeStage, func(context.Context, *CallbackContext) error {
		return errors.New("maintenance window")
	}))

	ctx := testContext(t)
	_, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before research")
	assert.Zero(t, f.Model.Calls("research.sostac"))

	var se *core.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, research.StageName, se.Stage)
	assert.Equal(t, StepBeforeStage, se.Step)
	assert.Equal(t, core.KindInternal, se.Kind)

	st, err := o.LoadStage(ctx, scenario.RestaurantSubject, research.StageName, 0)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, st.Status)
	require.NotNil(t, st.Error)
	assert.Equal(t, StepBeforeStage, st.Error.Step)
}

func TestScoreThresholdCallback_HaltsLowCompleteness(t *testing.T) {
	f, o := restaurant(t)
	o.RegisterCallback(NewScoreThresholdCallback(research.StageName, research.KeyCompletenessScore, 0.95))

	ctx := testContext(t)
	p, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Zero(t, f.Model.Calls("positioning.drama"))

	var se *core.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, research.StageName, se.Stage)
	assert.Equal(t, StepAfterStage, se.Step)
	assert.Equal(t, core.KindValidation, se.Kind)

	assert.False(t, p.Completed(research.StageName))
	r, ok := p.Stage(research.StageName)
	require.True(t, ok)
	assert.Equal(t, core.StatusFailed, r.Status)
	assert.Contains(t, r.Results, research.KeyCompletenessScore)
	assert.Len(t, p.Stages, 1)

	st, err := o.LoadStage(ctx, scenario.RestaurantSubject, research.StageName, 0)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, st.Status)
	require.NotNil(t, st.Error)
	assert.Equal(t, StepAfterStage, st.Error.Step)
	assert.Equal(t, core.KindValidation, st.Error.Kind)
}

func TestScoreThresholdCallback_PassesOtherStages(t *testing.T) {
	_, o := restaurant(t)
	o.RegisterCallback(NewScoreThresholdCallback(research.StageName, research.KeyCompletenessScore, 0.5))

	_, err := o.Execute(testContext(t), scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.NoError(t, err)
}

func TestOrchestrator_SQLiteRecorder(t *testing.T) {
	f := testutil.NewFixture(t)
	f.ScriptRestaurant()
	rec, err := sqlite.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	o := New(f.Provider, func(o *Options) { o.Recorder = rec })
	ctx := testContext(t)

	p, err := o.Execute(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription, nil)
	require.NoError(t, err)

	st, err := o.LoadStage(ctx, scenario.RestaurantSubject, icp.StageName, 0)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, st.Status)
	assert.Contains(t, st.Results, icp.KeyPersonas)

	snap, err := o.LoadEvidence(ctx, scenario.RestaurantSubject, p.RunID)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, p.Graph.NodeCount())
}
