package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, optFns ...func(o *Options)) (*Provider, *model.MockModel, *model.MockEmbedder, *model.MockSearcher) {
	t.Helper()
	m := model.NewMockModel("mock-model", "mock")
	e := model.NewMockEmbedder(8)
	s := model.NewMockSearcher()
	p, err := New(m, e, s, optFns...)
	require.NoError(t, err)
	return p, m, e, s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, model.NewMockEmbedder(8), nil)
	assert.Error(t, err)

	_, err = New(model.NewMockModel("m", "p"), nil, nil)
	assert.Error(t, err)

	_, err = New(model.NewMockModel("m", "p"), model.NewMockEmbedder(8), nil, func(o *Options) { o.CallTimeout = 0 })
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	var (
		mu     sync.Mutex
		usages []core.Usage
	)
	p, m, _, _ := newTestProvider(t, func(o *Options) {
		o.OnUsage = func(u core.Usage) {
			mu.Lock()
			defer mu.Unlock()
			usages = append(usages, u)
		}
	})
	m.AddResponse("research.sostac", `{"situation":"growing"}`)

	gen, err := p.Generate(context.Background(), core.GenerateRequest{
		Task:    "research.sostac",
		Prompt:  "Analyze",
		Context: map[string]any{"business": "Joe's Restaurant"},
		JSON:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"situation":"growing"}`, gen.Text)
	assert.Equal(t, "mock-model", gen.Usage.Model)
	assert.Equal(t, "research.sostac", gen.Usage.Task)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "Joe's Restaurant")
	assert.True(t, reqs[0].JSON)

	mu.Lock()
	assert.Len(t, usages, 1)
	mu.Unlock()
	assert.Equal(t, 1, p.Usage().Calls[OpGenerate])
}

func TestGenerate_TimeoutAbandonsCall(t *testing.T) {
	p, m, _, _ := newTestProvider(t, func(o *Options) { o.CallTimeout = 20 * time.Millisecond })
	m.AddResponse("slow", "late")
	m.SetDelay(time.Second)

	start := time.Now()
	_, err := p.Generate(context.Background(), core.GenerateRequest{Task: "slow", Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderTimeout)
	assert.True(t, core.IsRetryable(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGenerate_CallerCancel(t *testing.T) {
	p, m, _, _ := newTestProvider(t)
	m.AddResponse("slow", "late")
	m.SetDelay(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := p.Generate(ctx, core.GenerateRequest{Task: "slow", Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.False(t, core.IsRetryable(err))
}

func TestGenerate_AlreadyCancelled(t *testing.T) {
	p, m, _, _ := newTestProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, core.GenerateRequest{Task: "any"})
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.Equal(t, 0, m.Calls("any"))
}

func TestGenerate_ErrorClassification(t *testing.T) {
	p, m, _, _ := newTestProvider(t)
	m.AddError("plain", errors.New("connection reset"))
	m.AddError("down", core.Unavailablef("no credentials"))

	_, err := p.Generate(context.Background(), core.GenerateRequest{Task: "plain"})
	assert.ErrorIs(t, err, core.ErrProviderTimeout)

	_, err = p.Generate(context.Background(), core.GenerateRequest{Task: "down"})
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.False(t, core.IsRetryable(err))
}

func TestGenerate_EmptyText(t *testing.T) {
	p, m, _, _ := newTestProvider(t)
	m.AddResponse("blank", "   ")

	_, err := p.Generate(context.Background(), core.GenerateRequest{Task: "blank"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.True(t, core.IsRetryable(err))
}

func TestSearch_CachesResults(t *testing.T) {
	p, _, _, s := newTestProvider(t)
	s.AddResults("italian", core.SearchResult{Title: "A", Snippet: "a"})

	first, err := p.Search(context.Background(), "italian")
	require.NoError(t, err)
	second, err := p.Search(context.Background(), "italian")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, s.Queries(), 1)

	empty, err := p.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSearch_NoCache(t *testing.T) {
	p, _, _, s := newTestProvider(t, func(o *Options) { o.CacheTTL = -1 })

	_, err := p.Search(context.Background(), "q")
	require.NoError(t, err)
	_, err = p.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, s.Queries(), 2)
}

func TestEmbed(t *testing.T) {
	p, _, e, _ := newTestProvider(t)

	v1, err := p.Embed(context.Background(), "persona")
	require.NoError(t, err)
	v1[0] = 42

	v2, err := p.Embed(context.Background(), "persona")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), v2[0])
	assert.Len(t, v2, 8)
	assert.Equal(t, 8, p.Dimensions())
	assert.Equal(t, 1, e.Calls())
}

func TestMaxCalls(t *testing.T) {
	p, m, _, _ := newTestProvider(t, func(o *Options) { o.MaxCalls = 1 })
	m.AddResponse("t", "ok")

	_, err := p.Generate(context.Background(), core.GenerateRequest{Task: "t"})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), core.GenerateRequest{Task: "t"})
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestUsageTracker(t *testing.T) {
	tr := NewUsageTracker(0)
	assert.Equal(t, -1, tr.Remaining())
	require.NoError(t, tr.Reserve(OpGenerate))
	tr.Record(core.Usage{Operation: OpGenerate, PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})

	s := tr.Summary()
	assert.Equal(t, 1, s.Calls[OpGenerate])
	assert.Equal(t, 5, s.TotalTokens)
	assert.Equal(t, 1, tr.Count())

	limited := NewUsageTracker(2)
	require.NoError(t, limited.Reserve(OpSearch))
	assert.Equal(t, 1, limited.Remaining())
}
