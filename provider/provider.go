package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/model"
	"github.com/patrickmn/go-cache"
)

// Operation names reported in usage records.
const (
	OpGenerate = "generate"
	OpSearch   = "search"
	OpEmbed    = "embed"
)

// Options configure a Provider.
type Options struct {
	// CallTimeout bounds every capability call.
	CallTimeout time.Duration
	// CacheTTL keeps embeddings and search results. Zero keeps them for the
	// provider's lifetime; negative disables caching.
	CacheTTL time.Duration
	// MaxCalls caps the number of capability calls; 0 is unlimited.
	MaxCalls int
	Logger   logging.Logger
	// OnUsage receives every call's usage record.
	OnUsage func(core.Usage)
}

// DefaultOptions returns the provider defaults.
func DefaultOptions() Options {
	return Options{
		CallTimeout: 30 * time.Second,
		CacheTTL:    10 * time.Minute,
		Logger:      logging.NoOpLogger{},
	}
}

// Provider implements core.Capabilities.
type Provider struct {
	model    model.Model
	embedder core.Embedder
	searcher core.Searcher
	opts     Options
	cache    *cache.Cache
	usage    *UsageTracker
}

var _ core.Capabilities = (*Provider)(nil)

// New builds a provider. A nil searcher falls back to model-backed search.
func New(m model.Model, embedder core.Embedder, searcher core.Searcher, optFns ...func(o *Options)) (*Provider, error) {
	if m == nil {
		return nil, errors.New("provider: model is required")
	}
	if embedder == nil {
		return nil, errors.New("provider: embedder is required")
	}
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.CallTimeout <= 0 {
		return nil, fmt.Errorf("provider: call timeout must be positive, got %s", opts.CallTimeout)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if searcher == nil {
		searcher = model.NewSearcher(m, 5)
	}
	p := &Provider{
		model:    m,
		embedder: embedder,
		searcher: searcher,
		opts:     opts,
		usage:    NewUsageTracker(opts.MaxCalls),
	}
	if opts.CacheTTL >= 0 {
		p.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL+time.Minute)
	}
	return p, nil
}

// Usage returns aggregated usage so far.
func (p *Provider) Usage() UsageSummary { return p.usage.Summary() }

// Dimensions implements core.Embedder.
func (p *Provider) Dimensions() int { return p.embedder.Dimensions() }

// Generate implements core.Generator.
func (p *Provider) Generate(ctx context.Context, req core.GenerateRequest) (core.Generation, error) {
	info := p.model.Info()
	mreq := model.Request{
		Task:   req.Task,
		System: req.System,
		Prompt: renderPrompt(req),
		JSON:   req.JSON,
	}
	start := time.Now()
	resp, err := guard(ctx, p, OpGenerate, func(callCtx context.Context) (model.Response, error) {
		return model.Complete(callCtx, p.model, mreq)
	})
	u := core.Usage{
		Operation: OpGenerate,
		Task:      req.Task,
		Provider:  info.Provider,
		Model:     info.Name,
		Duration:  time.Since(start),
	}
	if resp.Usage != nil {
		u.PromptTokens = resp.Usage.PromptTokens
		u.CompletionTokens = resp.Usage.CompletionTokens
		u.TotalTokens = resp.Usage.TotalTokens
	}
	p.report(u, err)
	if err != nil {
		return core.Generation{}, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return core.Generation{}, core.Retryable(core.Validationf("%s: empty generation", req.Task))
	}
	return core.Generation{Text: resp.Text, Usage: u}, nil
}

// Search implements core.Searcher.
func (p *Provider) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	key := OpSearch + ":" + query
	if v, ok := p.cached(key); ok {
		return append([]core.SearchResult(nil), v.([]core.SearchResult)...), nil
	}
	start := time.Now()
	res, err := guard(ctx, p, OpSearch, func(callCtx context.Context) ([]core.SearchResult, error) {
		return p.searcher.Search(callCtx, query)
	})
	p.report(core.Usage{Operation: OpSearch, Task: query, Duration: time.Since(start)}, err)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []core.SearchResult{}
	}
	p.store(key, res)
	return append([]core.SearchResult(nil), res...), nil
}

// Embed implements core.Embedder.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := OpEmbed + ":" + text
	if v, ok := p.cached(key); ok {
		return append([]float32(nil), v.([]float32)...), nil
	}
	start := time.Now()
	vec, err := guard(ctx, p, OpEmbed, func(callCtx context.Context) ([]float32, error) {
		return p.embedder.Embed(callCtx, text)
	})
	p.report(core.Usage{Operation: OpEmbed, Duration: time.Since(start)}, err)
	if err != nil {
		return nil, err
	}
	p.store(key, vec)
	return append([]float32(nil), vec...), nil
}

func (p *Provider) cached(key string) (any, bool) {
	if p.cache == nil {
		return nil, false
	}
	return p.cache.Get(key)
}

func (p *Provider) store(key string, v any) {
	if p.cache == nil {
		return
	}
	p.cache.SetDefault(key, v)
}

func (p *Provider) report(u core.Usage, err error) {
	p.usage.Record(u)
	logging.ProviderCall(p.opts.Logger, u.Operation, u.Model, u.TotalTokens, u.Duration, err)
	if p.opts.OnUsage != nil {
		p.opts.OnUsage(u)
	}
}

// guard runs fn under the call deadline. The call is abandoned as soon as
// the deadline passes or ctx ends; a late result is dropped.
func guard[T any](ctx context.Context, p *Provider, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", core.ErrCancelled, op, err)
	}
	if err := p.usage.Reserve(op); err != nil {
		return zero, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return zero, classify(ctx, op, r.err)
		}
		return r.v, nil
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", core.ErrCancelled, op, err)
		}
		return zero, core.Timeoutf("%s exceeded %s", op, p.opts.CallTimeout)
	}
}

func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrCancelled, op, err)
	}
	switch core.KindOf(err) {
	case core.KindValidation, core.KindProviderUnavailable:
		return fmt.Errorf("%s: %w", op, err)
	}
	// Unknown failures and cancellation not caused by the caller are transient.
	if errors.Is(err, core.ErrProviderTimeout) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", core.ErrProviderTimeout, op, err)
}

func renderPrompt(req core.GenerateRequest) string {
	if len(req.Context) == 0 {
		return req.Prompt
	}
	raw, err := json.MarshalIndent(req.Context, "", "  ")
	if err != nil {
		return req.Prompt
	}
	return req.Prompt + "\n\nContext:\n" + string(raw)
}
