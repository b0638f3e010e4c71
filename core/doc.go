// Package core provides the foundational domain types and interfaces shared
// by every stage of the strategy pipeline. It defines the core abstractions for:
//
//   - StageState (the per-stage state machine record: status, context, results)
//   - The error taxonomy (validation, provider timeout, provider unavailable)
//     and the StageError that carries stage + step + kind upward
//   - Warnings (flagged conditions that do not fail a stage)
//   - Capability interfaces (Generator, Searcher, Embedder) consumed by stages
//
// The package intentionally keeps implementation concerns (providers, scoring,
// stage logic, persistence) out of scope, exposing small interfaces so stages
// and providers can be swapped independently.
package core
