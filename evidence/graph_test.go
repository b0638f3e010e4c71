package evidence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph("joes")
	for _, n := range []Node{
		{SourceType: SourceMarketReport, Content: "Singapore Italian restaurant market grew 8% as diners seek authentic cuisine", SourceReference: "https://example.com/report", Confidence: 0.8},
		{SourceType: SourceCustomerQuote, Content: "Customers complain about long waiting times at popular restaurants", Confidence: 0.6},
		{SourceType: SourceTrendData, Content: "Delivery apps dominate weekday lunch orders", Confidence: 0.7},
	} {
		_, err := g.AddNode(n)
		require.NoError(t, err)
	}
	return g
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph("joes")
	n, err := g.AddNode(Node{Content: "  fact  ", Confidence: 0.5, CreatedByStage: "research"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "fact", n.Content)
	assert.False(t, n.CreatedAt.IsZero())

	got, ok := g.Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, n, got)

	_, err = g.AddNode(Node{Content: "", Confidence: 0.5})
	assert.Error(t, err)
	_, err = g.AddNode(Node{Content: "x", Confidence: 1.5})
	assert.Error(t, err)
	_, err = g.AddNode(Node{ID: n.ID, Content: "dup", Confidence: 0.5})
	assert.Error(t, err)
	assert.Equal(t, 1, g.NodeCount())
}

func TestGraph_NodesAreCopies(t *testing.T) {
	g := seedGraph(t)
	nodes := g.Nodes()
	nodes[0].Content = "mutated"
	assert.NotEqual(t, "mutated", g.Nodes()[0].Content)
}

func TestGraph_Link(t *testing.T) {
	g := seedGraph(t)
	id := g.Nodes()[0].ID

	e, err := g.Link("c1", "Authentic Italian demand", []string{id}, 0.5, "research")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, e.NodeIDs)
	assert.True(t, g.Supported("c1", "ignored when id set"))
	assert.Len(t, g.EdgesFor("c1", ""), 1)

	_, err = g.Link("", "claim", []string{"missing"}, 0, "research")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, err = g.Link("", "claim", nil, 0, "research")
	assert.Error(t, err)
	_, err = g.Link("", "  ", []string{id}, 0, "research")
	assert.Error(t, err)

	assert.Len(t, g.Edges(), 1)
}

func TestGraph_Search(t *testing.T) {
	g := seedGraph(t)

	res := g.Search("authentic Italian restaurants", 5)
	require.NotEmpty(t, res)
	assert.Contains(t, res[0].Node.Content, "Italian")
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)

	assert.Empty(t, g.Search("quantum computing", 5))
	assert.Empty(t, g.Search("the and of", 5))
	assert.Len(t, g.Search("restaurants delivery", 1), 1)
}

func TestGraph_CheckSubject(t *testing.T) {
	g := NewGraph("a")
	assert.NoError(t, g.CheckSubject("a"))
	assert.ErrorIs(t, g.CheckSubject("b"), ErrSubjectMismatch)
}

func TestGraph_Snapshot(t *testing.T) {
	g := seedGraph(t)
	_, err := g.Link("", "waiting times", []string{g.Nodes()[1].ID}, 1, "research")
	require.NoError(t, err)

	snap := g.Snapshot()
	assert.Equal(t, "joes", snap.SubjectID)
	assert.Len(t, snap.Nodes, 3)
	assert.Len(t, snap.Edges, 1)
}

func TestGraph_ConcurrentAccess(t *testing.T) {
	g := NewGraph("s")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := g.AddNode(Node{Content: "market signal", Confidence: 0.5}); err != nil {
				t.Errorf("add: %v", err)
			}
			_ = g.Search("market", 3)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, g.NodeCount())
}
