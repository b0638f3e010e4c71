// Package provider turns a model.Model, an embedder and a searcher into the
// core.Capabilities consumed by stages.
//
// Every call runs under its own deadline (Options.CallTimeout). When the
// deadline passes, or the caller's context ends, the in-flight call is
// abandoned and its eventual result discarded. Failures are classified onto
// the core error taxonomy so the stage machine can decide on retries.
// Embedding and search results are cached for Options.CacheTTL.
package provider
