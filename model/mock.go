package model

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
)

type scripted struct {
	text string
	err  error
}

// MockModel is an in-memory Model scripted per task. Each task holds a
// sequence of replies; the n-th call gets the n-th reply and the last reply
// repeats once the sequence is exhausted.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	scripts  map[string][]scripted
	handlers map[string]func(Request) (string, error)
	calls    map[string]int
	requests []Request
	delay    time.Duration
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:         name,
			Provider:     provider,
			SupportsJSON: true,
		},
		scripts:  make(map[string][]scripted),
		handlers: make(map[string]func(Request) (string, error)),
		calls:    make(map[string]int),
	}
}

// AddHandler answers every request for task with fn, taking precedence over
// scripted replies. Useful when concurrent calls must be told apart by prompt.
func (m *MockModel) AddHandler(task string, fn func(Request) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[task] = fn
}

// AddResponse appends a canned completion for a task.
func (m *MockModel) AddResponse(task, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[task] = append(m.scripts[task], scripted{text: response})
}

// AddError appends a failing reply for a task.
func (m *MockModel) AddError(task string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[task] = append(m.scripts[task], scripted{err: err})
}

// SetDelay makes every call wait d (or until its context ends) before replying.
func (m *MockModel) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times task was requested.
func (m *MockModel) Calls(task string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[task]
}

// Requests returns every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockModel) next(req Request) (scripted, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.calls[req.Task]
	m.calls[req.Task] = n + 1
	m.requests = append(m.requests, req)
	if h, ok := m.handlers[req.Task]; ok {
		text, err := h(req)
		return scripted{text: text, err: err}, m.delay
	}
	script := m.scripts[req.Task]
	if len(script) == 0 {
		return scripted{text: fmt.Sprintf("Mock response to: %s", req.Prompt)}, m.delay
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n], m.delay
}

// Generate implements Model; emits optional streaming char chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		reply, delay := m.next(req)
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-t.C:
			}
		}
		if reply.err != nil {
			errCh <- reply.err
			return
		}
		if req.Stream {
			for _, r := range reply.text {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		tokens := len(reply.text) / 4
		respCh <- Response{
			Text:         reply.text,
			FinishReason: "stop",
			Usage: &TokenUsage{
				PromptTokens:     len(req.Prompt) / 4,
				CompletionTokens: tokens,
				TotalTokens:      len(req.Prompt)/4 + tokens,
			},
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// MockEmbedder returns deterministic unit vectors derived from the text hash.
type MockEmbedder struct {
	mu    sync.Mutex
	dims  int
	err   error
	calls int
}

// NewMockEmbedder creates an embedder of the given dimension.
func NewMockEmbedder(dims int) *MockEmbedder {
	return &MockEmbedder{dims: dims}
}

// SetError makes every following call fail with err (nil clears it).
func (e *MockEmbedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns the number of Embed calls.
func (e *MockEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Dimensions implements core.Embedder.
func (e *MockEmbedder) Dimensions() int { return e.dims }

// Embed implements core.Embedder.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vec := make([]float32, e.dims)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	}
	return vec, nil
}

type searchRule struct {
	substr  string
	results []core.SearchResult
	err     error
}

// MockSearcher returns canned results keyed by exact query, then by the
// first substring rule matching the query, then the fallback.
type MockSearcher struct {
	mu       sync.Mutex
	results  map[string][]core.SearchResult
	errs     map[string]error
	rules    []searchRule
	fallback []core.SearchResult
	queries  []string
}

// NewMockSearcher creates an empty searcher; unknown queries return no results.
func NewMockSearcher() *MockSearcher {
	return &MockSearcher{
		results: make(map[string][]core.SearchResult),
		errs:    make(map[string]error),
	}
}

// AddResults registers results for a query.
func (s *MockSearcher) AddResults(query string, results ...core.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[query] = append(s.results[query], results...)
}

// SetError makes a query fail.
func (s *MockSearcher) SetError(query string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[query] = err
}

// AddMatch registers results for any query containing substr
// (case-insensitive). Rules are tried in registration order.
func (s *MockSearcher) AddMatch(substr string, results ...core.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, searchRule{substr: strings.ToLower(substr), results: results})
}

// FailMatch makes any query containing substr fail with err.
func (s *MockSearcher) FailMatch(substr string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, searchRule{substr: strings.ToLower(substr), err: err})
}

// SetFallback sets results for queries with nothing registered.
func (s *MockSearcher) SetFallback(results ...core.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = results
}

// Queries returns the queries received, in call order.
func (s *MockSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}

// Search implements core.Searcher.
func (s *MockSearcher) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	err := s.errs[query]
	res, ok := s.results[query]
	if !ok {
		res = s.fallback
		lq := strings.ToLower(query)
		for _, r := range s.rules {
			if strings.Contains(lq, r.substr) {
				res = r.results
				if err == nil {
					err = r.err
				}
				break
			}
		}
	}
	out := make([]core.SearchResult, len(res))
	copy(out, res)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
