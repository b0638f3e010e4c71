package raptorflow

import (
	"context"
	"testing"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/engine"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/icp"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/scenario"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/testutil"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaptorflow_StageByStage(t *testing.T) {
	f := testutil.NewFixture(t)
	f.ScriptRestaurant()
	rec := store.NewMemoryRecorder()
	r := New(f.Provider, func(o *Options) { o.Recorder = rec })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, res, err := r.RunResearch(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription)
	require.NoError(t, err)
	assert.InDelta(t, 0.88, res.CompletenessScore, 1e-9)

	pos, err := r.RunPositioning(ctx, p)
	require.NoError(t, err)
	require.Len(t, pos.Options, 3)

	personas, err := r.RunICP(ctx, p, pos.Options[0].OptionNumber, 0)
	require.NoError(t, err)
	assert.Len(t, personas.Personas, 3)

	assert.Equal(t, []int64{1}, rec.Runs(scenario.RestaurantSubject, icp.StageName))
	nodes, _, err := rec.LoadEvidence(ctx, scenario.RestaurantSubject, p.RunID)
	require.NoError(t, err)
	assert.Len(t, nodes, p.Graph.NodeCount())
}

func TestRaptorflow_StartWithCallbacks(t *testing.T) {
	f := testutil.NewFixture(t)
	f.ScriptRestaurant()
	var completed []string
	r := New(f.Provider, func(o *Options) {
		o.EngineConfig.MaxICPs = 2
		o.Callbacks = []engine.Callback{
			engine.NewFunctionCallback(engine.CallbackAfterStage, func(_ context.Context, c *engine.CallbackContext) error {
				completed = append(completed, c.Stage)
				return nil
			}),
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run, err := r.Start(ctx, scenario.RestaurantSubject, scenario.RestaurantDescription)
	require.NoError(t, err)
	opts, err := run.Options(ctx)
	require.NoError(t, err)
	require.NoError(t, run.Select(opts.Options[0].OptionNumber))

	p, err := run.Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, p.ICP.Personas, 2)
	assert.Len(t, completed, 3)
}

func TestRaptorflow_ExecuteEmptyDescription(t *testing.T) {
	f := testutil.NewFixture(t)
	r := New(f.Provider)

	p, err := r.Execute(context.Background(), scenario.RestaurantSubject, "  ", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.False(t, p.Completed(research.StageName))
}
