// Package research implements the Research stage: it turns a raw business
// description into a SOSTAC situation analysis, a competitor ladder and an
// evidence graph, and scores how complete that picture is.
//
// Steps, in order:
//
//	analyzing-situation      SOSTAC record from the description (>= 3 of 5 fields)
//	researching-competitors  search for market leaders, pricing and target markets
//	building-ladder          dedupe competitors and rank them by strength
//	gathering-evidence       four concurrent research queries into the graph
//	linking-evidence         attach claims to supporting nodes
//	validating-completeness  research completeness score
//
// A low completeness score is a signal for the caller, not a failure.
package research
