package model

import (
	"context"
	"testing"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearcher(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse(SearchTask, `{"results":[
		{"title":"Dining report","snippet":"Italian dining grows","url":"https://example.com/a"},
		{"title":"","snippet":"","url":"https://example.com/empty"},
		{"title":"Trends","snippet":"Delivery rises","url":"https://example.com/b"},
		{"title":"Extra","snippet":"Over the limit","url":"https://example.com/c"}
	]}`)

	s := NewSearcher(m, 2)
	res, err := s.Search(context.Background(), "italian restaurants singapore")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Dining report", res[0].Title)
	assert.Equal(t, "Trends", res[1].Title)
	for _, r := range res {
		assert.Equal(t, "mock", r.GeneratedBy)
	}

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].JSON)
	assert.Contains(t, reqs[0].Prompt, "italian restaurants singapore")
}

func TestSearcher_InvalidJSON(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse(SearchTask, "not json")

	_, err := NewSearcher(m, 0).Search(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderTimeout)
}
