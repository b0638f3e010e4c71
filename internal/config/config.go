// Package config loads process configuration from the environment, after
// exporting an optional .env file into it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/engine"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/provider"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Prefix is the environment variable prefix.
const Prefix = "RAPTORFLOW"

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

type OpenAIConfig struct {
	APIKey         string  `envconfig:"API_KEY"`
	BaseURL        string  `envconfig:"BASE_URL"`
	Model          string  `envconfig:"MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Temperature    float64 `envconfig:"TEMPERATURE" default:"0.7" validate:"gte=0,lte=2"`
}

type AnthropicConfig struct {
	APIKey      string  `envconfig:"API_KEY"`
	BaseURL     string  `envconfig:"BASE_URL"`
	Model       string  `envconfig:"MODEL" default:"claude-3-5-sonnet-20241022"`
	Temperature float64 `envconfig:"TEMPERATURE" default:"0.7" validate:"gte=0,lte=1"`
}

type PipelineConfig struct {
	MaxIterations       int     `envconfig:"MAX_ITERATIONS" default:"3" validate:"gte=1"`
	TargetEvidence      int     `envconfig:"TARGET_EVIDENCE" default:"12" validate:"gte=1"`
	TargetCompetitors   int     `envconfig:"TARGET_COMPETITORS" default:"5" validate:"gte=1"`
	ConflictThreshold   float64 `envconfig:"CONFLICT_THRESHOLD" default:"0.8" validate:"gt=0,lte=1"`
	MaxICPs             int     `envconfig:"MAX_ICPS" default:"3" validate:"gte=1"`
	FitWeight           float64 `envconfig:"FIT_WEIGHT" default:"0.4"`
	UrgencyWeight       float64 `envconfig:"URGENCY_WEIGHT" default:"0.35"`
	AccessibilityWeight float64 `envconfig:"ACCESSIBILITY_WEIGHT" default:"0.25"`
	MaxConcurrentRuns   int     `envconfig:"MAX_CONCURRENT_RUNS" default:"10" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
	File   string `envconfig:"FILE"`
}

// Config is the complete process configuration.
type Config struct {
	Provider  string          `envconfig:"PROVIDER" default:"openai" validate:"oneof=openai anthropic mock"`
	OpenAI    OpenAIConfig    `envconfig:"OPENAI"`
	Anthropic AnthropicConfig `envconfig:"ANTHROPIC"`

	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"768" validate:"gte=1"`
	CallTimeout         time.Duration `envconfig:"CALL_TIMEOUT" default:"30s" validate:"gt=0"`
	CacheTTL            time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	MaxCalls            int           `envconfig:"MAX_CALLS" default:"0" validate:"gte=0"`

	Pipeline PipelineConfig `envconfig:"PIPELINE"`

	// SQLitePath selects the SQLite recorder; empty keeps records in memory.
	SQLitePath string `envconfig:"SQLITE_PATH"`

	Log LogConfig `envconfig:"LOG"`
}

// Load exports envFile (or ./.env when envFile is empty and it exists) into
// the environment and decodes the configuration.
func Load(envFile string) (*Config, error) {
	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if err := exportEnvironment(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var conf Config
	if err := envconfig.Process(Prefix, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate checks field ranges and provider credentials.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	if err := c.ICPWeights().Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	switch c.Provider {
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAI.APIKey) == "" {
			return core.Validationf("openai api key is required")
		}
	case ProviderAnthropic:
		if strings.TrimSpace(c.Anthropic.APIKey) == "" {
			return core.Validationf("anthropic api key is required")
		}
		// Embeddings always come from OpenAI.
		if strings.TrimSpace(c.OpenAI.APIKey) == "" {
			return core.Validationf("openai api key is required for embeddings")
		}
	}
	return nil
}

// ICPWeights returns the configured ICP score weights.
func (c Config) ICPWeights() scoring.ICPWeights {
	return scoring.ICPWeights{
		Fit:           c.Pipeline.FitWeight,
		Urgency:       c.Pipeline.UrgencyWeight,
		Accessibility: c.Pipeline.AccessibilityWeight,
	}
}

// LoggerConfig maps the log settings onto the logging package.
func (c Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultLoggerConfig()
	lc.Level = logging.ParseLevel(c.Log.Level)
	lc.Format = c.Log.Format
	lc.FilePath = c.Log.File
	lc.AddSource = false
	lc.Output = os.Stderr
	return lc
}

// ProviderOptions applies the call settings to provider options.
func (c Config) ProviderOptions(logger logging.Logger) func(o *provider.Options) {
	return func(o *provider.Options) {
		o.CallTimeout = c.CallTimeout
		o.CacheTTL = c.CacheTTL
		o.MaxCalls = c.MaxCalls
		o.Logger = logger
	}
}

// EngineOptions applies the pipeline settings to orchestrator options.
func (c Config) EngineOptions(logger logging.Logger) func(o *engine.Options) {
	return func(o *engine.Options) {
		o.Logger = logger
		o.Config.MaxConcurrentRuns = c.Pipeline.MaxConcurrentRuns
		o.Config.MaxICPs = c.Pipeline.MaxICPs

		o.Research.MaxIterations = c.Pipeline.MaxIterations
		o.Research.Scoring = scoring.ResearchConfig{
			TargetEvidenceCount:   c.Pipeline.TargetEvidence,
			TargetCompetitorCount: c.Pipeline.TargetCompetitors,
		}
		o.Positioning.MaxIterations = c.Pipeline.MaxIterations
		o.Positioning.ConflictThreshold = c.Pipeline.ConflictThreshold
		o.ICP.MaxIterations = c.Pipeline.MaxIterations
		o.ICP.Dimensions = c.EmbeddingDimensions
		o.ICP.Weights = c.ICPWeights()
	}
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

// exportEnvironment copies the file's keys into the process environment.
// Variables already set in the environment win over the file.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
