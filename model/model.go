package model

import (
	"context"
	"errors"
	"strings"
)

// ErrNoResponse is returned by Collect when a model closes without output.
var ErrNoResponse = errors.New("model produced no response")

// Request captures the normalized model input.
type Request struct {
	// Task names the calling step, e.g. "positioning.options".
	Task   string `json:"task"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	// JSON asks for a single JSON object as output.
	JSON   bool `json:"json,omitempty"`
	Stream bool `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name         string `json:"name"`
	Provider     string `json:"provider"`
	SupportsJSON bool   `json:"supports_json"`
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a Generate call into its final response. When the model
// only streamed partial chunks their text is concatenated.
func Collect(ctx context.Context, respCh <-chan Response, errCh <-chan error) (Response, error) {
	var (
		final   Response
		partial strings.Builder
		got     bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				partial.WriteString(r.Text)
				continue
			}
			final, got = r, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}
	if got {
		return final, nil
	}
	if partial.Len() == 0 {
		return Response{}, ErrNoResponse
	}
	return Response{Text: partial.String(), FinishReason: "stop"}, nil
}

// Complete runs req on m and waits for the final response.
func Complete(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)
	return Collect(ctx, respCh, errCh)
}
