// Package model defines the provider-agnostic generation interface used by
// the capability provider, plus deterministic mocks for tests.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Keep request and response shapes minimal and transport independent
//   - Let tests script responses per task (MockModel) and produce
//     deterministic embeddings and search hits (MockEmbedder, MockSearcher)
//
// Vendor adapters (openai, anthropic) live in sub-packages so higher layers
// stay decoupled from SDKs.
package model
