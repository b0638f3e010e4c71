package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_ScriptedSequence(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("task.a", "first")
	m.AddResponse("task.a", "second")

	ctx := context.Background()
	get := func() string {
		resp, err := Complete(ctx, m, Request{Task: "task.a", Prompt: "hello"})
		require.NoError(t, err)
		return resp.Text
	}

	assert.Equal(t, "first", get())
	assert.Equal(t, "second", get())
	assert.Equal(t, "second", get())
	assert.Equal(t, 3, m.Calls("task.a"))
	assert.Len(t, m.Requests(), 3)
}

func TestMockModel_Unscripted(t *testing.T) {
	m := NewMockModel("mock", "test")
	ctx := context.Background()
	resp, err := Complete(ctx, m, Request{Task: "other", Prompt: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: ping", resp.Text)
	require.NotNil(t, resp.Usage)
}

func TestMockModel_Error(t *testing.T) {
	m := NewMockModel("mock", "test")
	boom := errors.New("boom")
	m.AddError("task.a", boom)
	m.AddResponse("task.a", "ok")

	ctx := context.Background()
	_, err := Complete(ctx, m, Request{Task: "task.a"})
	assert.ErrorIs(t, err, boom)

	resp, err := Complete(ctx, m, Request{Task: "task.a"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("task.a", "abc")

	respCh, errCh := m.Generate(context.Background(), Request{Task: "task.a", Stream: true})
	var partials []string
	var final Response
	for r := range respCh {
		if r.Partial {
			partials = append(partials, r.Text)
			continue
		}
		final = r
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"a", "b", "c"}, partials)
	assert.Equal(t, "abc", final.Text)
}

func TestMockModel_DelayHonoursContext(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("task.a", "late")
	m.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Complete(ctx, m, Request{Task: "task.a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCollect_PartialOnly(t *testing.T) {
	respCh := make(chan Response, 2)
	errCh := make(chan error)
	respCh <- Response{Partial: true, Text: "he"}
	respCh <- Response{Partial: true, Text: "llo"}
	close(respCh)
	close(errCh)

	resp, err := Collect(context.Background(), respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
}

func TestCollect_Empty(t *testing.T) {
	respCh := make(chan Response)
	errCh := make(chan error)
	close(respCh)
	close(errCh)

	_, err := Collect(context.Background(), respCh, errCh)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(768)
	ctx := context.Background()

	a1, err := e.Embed(ctx, "Italian food lovers")
	require.NoError(t, err)
	a2, err := e.Embed(ctx, "Italian food lovers")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Busy professionals")
	require.NoError(t, err)

	assert.Len(t, a1, 768)
	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.Equal(t, 768, e.Dimensions())
	assert.Equal(t, 3, e.Calls())

	e.SetError(errors.New("down"))
	_, err = e.Embed(ctx, "x")
	assert.Error(t, err)
}

func TestMockSearcher(t *testing.T) {
	s := NewMockSearcher()
	hit := core.SearchResult{Title: "Report", Snippet: "Italian dining grows", URL: "https://example.com/r"}
	s.AddResults("italian restaurants", hit)
	s.SetError("broken", errors.New("search down"))
	ctx := context.Background()

	res, err := s.Search(ctx, "italian restaurants")
	require.NoError(t, err)
	assert.Equal(t, []core.SearchResult{hit}, res)

	res, err = s.Search(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = s.Search(ctx, "broken")
	assert.Error(t, err)

	assert.Equal(t, []string{"italian restaurants", "unknown", "broken"}, s.Queries())
}

func TestMockModel_Handler(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("task.a", "scripted")
	m.AddHandler("task.a", func(req Request) (string, error) {
		return "handled " + req.Prompt, nil
	})

	resp, err := Complete(context.Background(), m, Request{Task: "task.a", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "handled x", resp.Text)
}

func TestMockSearcher_Rules(t *testing.T) {
	s := NewMockSearcher()
	s.AddMatch("Pain Points", core.SearchResult{Title: "Complaints"})
	s.FailMatch("trends", errors.New("rate limited"))
	s.SetFallback(core.SearchResult{Title: "Generic"})
	ctx := context.Background()

	res, err := s.Search(ctx, "italian customer pain points in singapore")
	require.NoError(t, err)
	assert.Equal(t, "Complaints", res[0].Title)

	_, err = s.Search(ctx, "consumer trends")
	assert.Error(t, err)

	res, err = s.Search(ctx, "something else")
	require.NoError(t, err)
	assert.Equal(t, "Generic", res[0].Title)
}
