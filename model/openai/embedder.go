package openai

import (
	"context"
	"fmt"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/openai/openai-go"
)

// DefaultDimensions matches the persona embedding width stored downstream.
const DefaultDimensions = 768

// EmbedderOptions configure the embeddings adapter.
type EmbedderOptions struct {
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
}

// Embedder implements core.Embedder with the OpenAI embeddings endpoint.
type Embedder struct {
	client *openai.Client
	opts   EmbedderOptions
}

var _ core.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder. The model must support the dimensions
// parameter (text-embedding-3 family).
func NewEmbedder(optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{
		Model:      string(openai.EmbeddingModelTextEmbedding3Small),
		Dimensions: DefaultDimensions,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: NewClient(opts.APIKey, opts.BaseURL), opts: opts}
}

// NewEmbedderFromClient creates an embedder from an existing client.
func NewEmbedderFromClient(client *openai.Client, optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{
		Model:      string(openai.EmbeddingModelTextEmbedding3Small),
		Dimensions: DefaultDimensions,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Dimensions implements core.Embedder.
func (e *Embedder) Dimensions() int { return e.opts.Dimensions }

// Embed implements core.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(e.opts.Model),
		Dimensions: openai.Int(int64(e.opts.Dimensions)),
	})
	if err != nil {
		return nil, Classify(fmt.Errorf("openai embeddings error: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, core.Timeoutf("openai returned no embedding")
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
