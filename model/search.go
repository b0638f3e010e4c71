package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
)

// SearchTask is the task name used for model-backed search requests.
const SearchTask = "search"

const searchSystem = `You are a market research assistant. Answer with a JSON object of the form
{"results":[{"title":"...","snippet":"...","url":"..."}]} listing the most relevant
published sources for the query. Use an empty list when you know of none.`

// Searcher implements core.Searcher by asking a model for sources. It is the
// fallback when no dedicated search backend is configured. Every hit carries
// the model name in GeneratedBy; titles and URLs are not verified.
type Searcher struct {
	model      Model
	maxResults int
}

var _ core.Searcher = (*Searcher)(nil)

// NewSearcher creates a model-backed searcher returning at most maxResults
// hits (5 when maxResults <= 0).
func NewSearcher(m Model, maxResults int) *Searcher {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Searcher{model: m, maxResults: maxResults}
}

// Search implements core.Searcher.
func (s *Searcher) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	resp, err := Complete(ctx, s.model, Request{
		Task:   SearchTask,
		System: searchSystem,
		Prompt: fmt.Sprintf("Query: %s\nReturn up to %d results.", query, s.maxResults),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Results []core.SearchResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Text)), &payload); err != nil {
		return nil, core.Timeoutf("search response is not valid JSON: %v", err)
	}
	name := s.model.Info().Name
	out := make([]core.SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		r.GeneratedBy = name
		if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Snippet) == "" {
			continue
		}
		out = append(out, r)
		if len(out) == s.maxResults {
			break
		}
	}
	return out, nil
}
