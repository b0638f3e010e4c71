package core

// WarningKind names a flagged, non-fatal condition.
type WarningKind string

const (
	// WarningUnsupportedClaim flags a claim with no supporting evidence edge.
	WarningUnsupportedClaim WarningKind = "unsupported_claim"
	// WarningDifferentiationConflict flags a positioning word already owned by a competitor.
	WarningDifferentiationConflict WarningKind = "differentiation_conflict"
	// WarningNoCompetitors flags a research run that found no competitors.
	WarningNoCompetitors WarningKind = "no_competitors"
	// WarningPartialEvidence flags an evidence fan-out where some queries failed.
	WarningPartialEvidence WarningKind = "partial_evidence"
	// WarningGeneratedEvidence flags evidence answered by a model instead of a search index.
	WarningGeneratedEvidence WarningKind = "generated_evidence"
	// WarningHypothesisShortfall flags fewer segment hypotheses than requested.
	WarningHypothesisShortfall WarningKind = "hypothesis_shortfall"
	// WarningTagBackfill flags monitoring tags completed from persona keywords.
	WarningTagBackfill WarningKind = "tag_backfill"
)

// Warning is attached to stage results; the pipeline continues.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Stage   string      `json:"stage"`
	Subject string      `json:"subject,omitempty"`
	Message string      `json:"message"`
}
