package main

import (
	"fmt"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/config"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/scenario"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/model"
	anthropicmodel "github.com/RHUDHRESH/Raptorflow-v1-sub003/model/anthropic"
	openaimodel "github.com/RHUDHRESH/Raptorflow-v1-sub003/model/openai"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/provider"
	"github.com/anthropics/anthropic-sdk-go"
)

// capabilities builds the provider for cfg and returns it with the
// embedding length it produces.
func capabilities(cfg *config.Config, logger logging.Logger) (core.Capabilities, int, error) {
	if cfg.Provider == config.ProviderMock {
		f, err := scenario.New(cfg.ProviderOptions(logger))
		if err != nil {
			return nil, 0, err
		}
		f.ScriptRestaurant()
		return f.Provider, scenario.Dimensions, nil
	}

	embedder := openaimodel.NewEmbedder(func(o *openaimodel.EmbedderOptions) {
		o.Model = cfg.OpenAI.EmbeddingModel
		o.Dimensions = cfg.EmbeddingDimensions
		o.APIKey = cfg.OpenAI.APIKey
		o.BaseURL = cfg.OpenAI.BaseURL
	})

	var m model.Model
	switch cfg.Provider {
	case config.ProviderOpenAI:
		m = openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = cfg.OpenAI.Model
			o.Temperature = cfg.OpenAI.Temperature
			o.APIKey = cfg.OpenAI.APIKey
			o.BaseURL = cfg.OpenAI.BaseURL
		})
	case config.ProviderAnthropic:
		m = anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(cfg.Anthropic.Model)
			o.Temperature = cfg.Anthropic.Temperature
			o.APIKey = cfg.Anthropic.APIKey
			o.BaseURL = cfg.Anthropic.BaseURL
		})
	default:
		return nil, 0, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	// No dedicated search backend: the provider falls back to model-backed search.
	p, err := provider.New(m, embedder, nil, cfg.ProviderOptions(logger))
	if err != nil {
		return nil, 0, err
	}
	return p, cfg.EmbeddingDimensions, nil
}
