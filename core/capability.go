package core

import (
	"context"
	"time"
)

// SearchResult is a single hit returned by a search capability.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	// GeneratedBy names the model that produced the hit when no search index
	// was consulted. Empty for real search results.
	GeneratedBy string `json:"generated_by,omitempty"`
}

// GenerateRequest is the input to a generation call. Task names the calling
// step (e.g. "research.sostac") so providers and fixtures can route and
// report usage; Context carries structured inputs rendered into the prompt.
type GenerateRequest struct {
	Task    string         `json:"task"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Context map[string]any `json:"context,omitempty"`
	// JSON asks the provider for a single JSON object as output.
	JSON bool `json:"json,omitempty"`
}

// Generation is the text produced by a generation call.
type Generation struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Usage reports the cost of one capability call upward. Budget enforcement
// belongs to the caller.
type Usage struct {
	Operation        string        `json:"operation"`
	Task             string        `json:"task,omitempty"`
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	Duration         time.Duration `json:"duration"`
}

// Generator produces text.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Generation, error)
}

// Searcher looks up external material. An empty slice with a nil error is a
// successful empty result, distinct from a failure.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Embedder maps text to a fixed-length vector of Dimensions() floats.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Capabilities is the full capability set consumed by stages.
type Capabilities interface {
	Generator
	Searcher
	Embedder
}
