// Package logging provides a minimal logging interface and adapters for the
// strategy pipeline.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the stage machine, providers and orchestrator use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - PipelineLogger with subject/stage context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	orch := engine.New(caps, engine.WithLogger(logger))
//
// Arguments after the message are slog-style key/value pairs.
package logging
