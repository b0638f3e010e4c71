// Package evidence implements the claim/evidence graph: a directed bipartite
// graph from claims (strings produced by stages) to evidence nodes (research
// material with provenance).
//
// Storage is arena style: flat append-only node and edge slices plus id to
// index maps. Nothing points at anything else, so a Snapshot is trivially
// serializable and there are no cyclic references. Nodes are immutable once
// added; edges can only be appended.
//
// A Graph belongs to exactly one subject. Concurrent pipeline runs each own
// their own Graph.
package evidence
