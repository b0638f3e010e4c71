package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// PipelineStage is the stage name under which pipeline run ids are issued.
// Evidence records are keyed by the pipeline run.
const PipelineStage = "pipeline"

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("record not found")

// Recorder persists stage and evidence records.
type Recorder interface {
	// NextRunID returns the next run id for subjectID and stage, starting at 1.
	NextRunID(ctx context.Context, subjectID, stage string) (int64, error)
	// SaveStage inserts or replaces the record of a stage run.
	SaveStage(ctx context.Context, rec StageRecord) error
	// LoadStage returns a stage run; runID 0 selects the latest.
	LoadStage(ctx context.Context, subjectID, stage string, runID int64) (StageRecord, error)
	// SaveEvidence replaces the evidence records of a pipeline run.
	SaveEvidence(ctx context.Context, subjectID string, runID int64, nodes []EvidenceNodeRecord, edges []EvidenceEdgeRecord) error
	// LoadEvidence returns the evidence records of a pipeline run.
	LoadEvidence(ctx context.Context, subjectID string, runID int64) ([]EvidenceNodeRecord, []EvidenceEdgeRecord, error)
}

type stageKey struct {
	subjectID string
	stage     string
}

type runKey struct {
	subjectID string
	runID     int64
}

type evidenceSet struct {
	nodes []EvidenceNodeRecord
	edges []EvidenceEdgeRecord
}

// MemoryRecorder is a volatile Recorder storing records in process local
// maps. It is safe for concurrent access and best suited for tests and
// single-process runs. Returned slices are copies.
type MemoryRecorder struct {
	mu       sync.RWMutex
	counters map[stageKey]int64
	stages   map[stageKey]map[int64]StageRecord
	evidence map[runKey]evidenceSet
}

var _ Recorder = (*MemoryRecorder)(nil)

// NewMemoryRecorder constructs an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		counters: make(map[stageKey]int64),
		stages:   make(map[stageKey]map[int64]StageRecord),
		evidence: make(map[runKey]evidenceSet),
	}
}

// NextRunID implements Recorder.
func (r *MemoryRecorder) NextRunID(_ context.Context, subjectID, stage string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := stageKey{subjectID, stage}
	r.counters[k]++
	return r.counters[k], nil
}

// SaveStage implements Recorder.
func (r *MemoryRecorder) SaveStage(_ context.Context, rec StageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := stageKey{rec.SubjectID, rec.StageName}
	runs, ok := r.stages[k]
	if !ok {
		runs = make(map[int64]StageRecord)
		r.stages[k] = runs
	}
	runs[rec.RunID] = rec
	return nil
}

// LoadStage implements Recorder.
func (r *MemoryRecorder) LoadStage(_ context.Context, subjectID, stage string, runID int64) (StageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := r.stages[stageKey{subjectID, stage}]
	if runID == 0 {
		for id := range runs {
			if id > runID {
				runID = id
			}
		}
	}
	rec, ok := runs[runID]
	if !ok {
		return StageRecord{}, ErrNotFound
	}
	return rec, nil
}

// Runs returns the recorded run ids of subjectID and stage in ascending order.
func (r *MemoryRecorder) Runs(subjectID, stage string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := r.stages[stageKey{subjectID, stage}]
	ids := make([]int64, 0, len(runs))
	for id := range runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SaveEvidence implements Recorder.
func (r *MemoryRecorder) SaveEvidence(_ context.Context, subjectID string, runID int64, nodes []EvidenceNodeRecord, edges []EvidenceEdgeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evidence[runKey{subjectID, runID}] = evidenceSet{
		nodes: append([]EvidenceNodeRecord(nil), nodes...),
		edges: append([]EvidenceEdgeRecord(nil), edges...),
	}
	return nil
}

// LoadEvidence implements Recorder.
func (r *MemoryRecorder) LoadEvidence(_ context.Context, subjectID string, runID int64) ([]EvidenceNodeRecord, []EvidenceEdgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.evidence[runKey{subjectID, runID}]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return append([]EvidenceNodeRecord(nil), set.nodes...), append([]EvidenceEdgeRecord(nil), set.edges...), nil
}
