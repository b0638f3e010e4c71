// Package icp implements the ICP (customer segment) stage. From the selected
// positioning option it generates segment hypotheses, expands them into
// personas with jobs-to-be-done and value propositions, scores and ranks
// them, keeps the best maxIcps, and gives each retained persona an embedding
// and monitoring tags.
//
// Per-persona work within a step fans out concurrently; every persona must
// succeed for the step to succeed.
package icp
