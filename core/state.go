package core

import (
	"maps"
	"time"
)

// Status is the externally visible lifecycle state of a stage.
type Status string

const (
	// StatusPending means the stage has been created but not started.
	StatusPending Status = "pending"
	// StatusRunning means steps are executing.
	StatusRunning Status = "running"
	// StatusCompleted means every step succeeded and results were validated.
	StatusCompleted Status = "completed"
	// StatusFailed means a step failed; Error is set and Results may be partial.
	StatusFailed Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StageState is the record a stage owns while it executes.
//
// Contract:
//   - Status completed implies Results is non-empty and passed the stage's
//     schema validation
//   - Status failed implies Error is set; Results may hold partial output
//     (step traces and any fields already produced)
//   - Context holds prior-stage outputs consumed as input and is treated as
//     read-only by the stage
type StageState struct {
	SubjectID      string         `json:"subject_id"`
	StageName      string         `json:"stage_name"`
	RunID          int64          `json:"run_id"`
	Status         Status         `json:"status"`
	Phase          string         `json:"phase"`
	Error          *StageError    `json:"error,omitempty"`
	Context        map[string]any `json:"context"`
	Results        map[string]any `json:"results"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    time.Time      `json:"completed_at"`
	IterationCount int            `json:"iteration_count"`
	MaxIterations  int            `json:"max_iterations"`
}

// NewStageState creates a pending state. maxIterations below 1 is raised to 1.
func NewStageState(subjectID, stageName string, maxIterations int) *StageState {
	if maxIterations < 1 {
		maxIterations = 1
	}
	return &StageState{
		SubjectID:     subjectID,
		StageName:     stageName,
		Status:        StatusPending,
		Phase:         string(StatusPending),
		Context:       map[string]any{},
		Results:       map[string]any{},
		MaxIterations: maxIterations,
	}
}

// SetResult stores a produced field.
func (s *StageState) SetResult(key string, value any) {
	if s.Results == nil {
		s.Results = map[string]any{}
	}
	s.Results[key] = value
}

// Result returns a produced field and whether it exists.
func (s *StageState) Result(key string) (any, bool) {
	v, ok := s.Results[key]
	return v, ok
}

// SetContext stores an input value taken from a prior stage.
func (s *StageState) SetContext(key string, value any) {
	if s.Context == nil {
		s.Context = map[string]any{}
	}
	s.Context[key] = value
}

// Duration returns the wall time between start and completion (zero while running).
func (s *StageState) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// Clone returns a copy whose maps can be mutated independently. Values held
// in the maps are shared.
func (s *StageState) Clone() *StageState {
	c := *s
	c.Context = maps.Clone(s.Context)
	c.Results = maps.Clone(s.Results)
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	return &c
}

// StageResult is the shape returned to external callers: the stage's results
// plus status and error.
type StageResult struct {
	SubjectID string         `json:"subject_id"`
	StageName string         `json:"stage_name"`
	RunID     int64          `json:"run_id"`
	Status    Status         `json:"status"`
	Error     *StageError    `json:"error,omitempty"`
	Results   map[string]any `json:"results"`
	Warnings  []Warning      `json:"warnings,omitempty"`
}

// ResultOf builds the external view of a state.
func ResultOf(s *StageState, warnings []Warning) StageResult {
	return StageResult{
		SubjectID: s.SubjectID,
		StageName: s.StageName,
		RunID:     s.RunID,
		Status:    s.Status,
		Error:     s.Error,
		Results:   maps.Clone(s.Results),
		Warnings:  warnings,
	}
}
