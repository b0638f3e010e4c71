package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "raptorflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecorder_NextRunID(t *testing.T) {
	r := tempRecorder(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		id, err := r.NextRunID(ctx, "subject-1", "research")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	id, err := r.NextRunID(ctx, "subject-2", "research")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestRecorder_StageRoundTrip(t *testing.T) {
	r := tempRecorder(t)
	ctx := context.Background()

	_, err := r.LoadStage(ctx, "subject-1", "research", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)

	s := core.NewStageState("subject-1", "research", 3)
	s.RunID = 1
	s.Status = core.StatusFailed
	s.Phase = "failed"
	s.SetContext("business_description", "Acme")
	s.IterationCount = 2
	s.StartedAt = time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	s.CompletedAt = s.StartedAt.Add(2 * time.Second)
	s.Error = core.NewStageError("research", "analyzing-situation", 1, core.Validationf("SOSTAC incomplete"))
	rec, err := store.NewStageRecord(s)
	require.NoError(t, err)
	require.NoError(t, r.SaveStage(ctx, rec))

	s.RunID = 2
	s.Status = core.StatusCompleted
	s.Error = nil
	s.SetResult("completeness_score", 0.88)
	rec2, err := store.NewStageRecord(s)
	require.NoError(t, err)
	require.NoError(t, r.SaveStage(ctx, rec2))

	got, err := r.LoadStage(ctx, "subject-1", "research", 1)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	restored, err := got.StageState()
	require.NoError(t, err)
	assert.True(t, errors.Is(restored.Error, core.ErrValidation))

	latest, err := r.LoadStage(ctx, "subject-1", "research", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.RunID)
	assert.Empty(t, latest.Error)
	assert.JSONEq(t, `{"completeness_score":0.88}`, latest.Results)

	rec2.Phase = "completed"
	require.NoError(t, r.SaveStage(ctx, rec2))
	latest, err = r.LoadStage(ctx, "subject-1", "research", 2)
	require.NoError(t, err)
	assert.Equal(t, "completed", latest.Phase)
}

func TestRecorder_EvidenceRoundTrip(t *testing.T) {
	r := tempRecorder(t)
	ctx := context.Background()

	g := evidence.NewGraph("subject-1")
	var ids []string
	for _, c := range []string{"Austin dining market grows", "Diners want homemade pasta"} {
		n, err := g.AddNode(evidence.Node{SourceType: evidence.SourceTrendData, Content: c, SourceReference: "https://example.com", Confidence: 0.7, CreatedByStage: "research"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	_, err := g.Link("", "Homemade pasta in Austin", ids, 0.5, "positioning")
	require.NoError(t, err)

	nodes, edges, err := store.EvidenceRecords(1, g.Snapshot())
	require.NoError(t, err)
	require.NoError(t, r.SaveEvidence(ctx, "subject-1", 1, nodes, edges))
	// Saving again replaces rather than duplicates.
	require.NoError(t, r.SaveEvidence(ctx, "subject-1", 1, nodes, edges))

	gotNodes, gotEdges, err := r.LoadEvidence(ctx, "subject-1", 1)
	require.NoError(t, err)
	require.Len(t, gotNodes, 2)
	require.Len(t, gotEdges, 1)
	assert.Equal(t, nodes[0].ID, gotNodes[0].ID)
	assert.Equal(t, "Diners want homemade pasta", gotNodes[1].Content)
	assert.True(t, nodes[0].CreatedAt.Equal(gotNodes[0].CreatedAt))

	snap, err := store.Snapshot("subject-1", gotNodes, gotEdges)
	require.NoError(t, err)
	assert.Equal(t, ids, snap.Edges[0].NodeIDs)
	assert.Empty(t, snap.Edges[0].ClaimID)

	_, _, err = r.LoadEvidence(ctx, "subject-1", 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
