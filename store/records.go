package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
)

// StageRecord is the persisted form of a core.StageState.
type StageRecord struct {
	SubjectID      string    `json:"subject_id"`
	StageName      string    `json:"stage_name"`
	RunID          int64     `json:"run_id"`
	Status         string    `json:"status"`
	Phase          string    `json:"phase"`
	Context        string    `json:"context"`
	Results        string    `json:"results"`
	Error          string    `json:"error,omitempty"`
	IterationCount int       `json:"iteration_count"`
	MaxIterations  int       `json:"max_iterations"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// NewStageRecord encodes s.
func NewStageRecord(s *core.StageState) (StageRecord, error) {
	ctxJSON, err := encodeMap(s.Context)
	if err != nil {
		return StageRecord{}, fmt.Errorf("encode context of %s: %w", s.StageName, err)
	}
	resJSON, err := encodeMap(s.Results)
	if err != nil {
		return StageRecord{}, fmt.Errorf("encode results of %s: %w", s.StageName, err)
	}
	rec := StageRecord{
		SubjectID:      s.SubjectID,
		StageName:      s.StageName,
		RunID:          s.RunID,
		Status:         string(s.Status),
		Phase:          s.Phase,
		Context:        ctxJSON,
		Results:        resJSON,
		IterationCount: s.IterationCount,
		MaxIterations:  s.MaxIterations,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
	if s.Error != nil {
		b, err := json.Marshal(s.Error)
		if err != nil {
			return StageRecord{}, fmt.Errorf("encode error of %s: %w", s.StageName, err)
		}
		rec.Error = string(b)
	}
	return rec, nil
}

// StageState decodes the record. Context and result values come back as
// generic JSON values; a restored StageError still matches its kind's
// sentinel with errors.Is.
func (r StageRecord) StageState() (*core.StageState, error) {
	s := &core.StageState{
		SubjectID:      r.SubjectID,
		StageName:      r.StageName,
		RunID:          r.RunID,
		Status:         core.Status(r.Status),
		Phase:          r.Phase,
		IterationCount: r.IterationCount,
		MaxIterations:  r.MaxIterations,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
	var err error
	if s.Context, err = decodeMap(r.Context); err != nil {
		return nil, fmt.Errorf("decode context of %s: %w", r.StageName, err)
	}
	if s.Results, err = decodeMap(r.Results); err != nil {
		return nil, fmt.Errorf("decode results of %s: %w", r.StageName, err)
	}
	if r.Error != "" {
		var se core.StageError
		if err := json.Unmarshal([]byte(r.Error), &se); err != nil {
			return nil, fmt.Errorf("decode error of %s: %w", r.StageName, err)
		}
		s.Error = &se
	}
	return s, nil
}

// EvidenceNodeRecord is the persisted form of an evidence node.
type EvidenceNodeRecord struct {
	SubjectID       string    `json:"subject_id"`
	RunID           int64     `json:"run_id"`
	ID              string    `json:"id"`
	SourceType      string    `json:"source_type"`
	Content         string    `json:"content"`
	SourceReference string    `json:"source_reference"`
	Confidence      float64   `json:"confidence"`
	CreatedByStage  string    `json:"created_by_stage"`
	CreatedAt       time.Time `json:"created_at"`
}

// EvidenceEdgeRecord is the persisted form of an evidence edge. NodeIDs is a
// JSON array.
type EvidenceEdgeRecord struct {
	SubjectID      string    `json:"subject_id"`
	RunID          int64     `json:"run_id"`
	ID             string    `json:"id"`
	ClaimID        string    `json:"claim_id,omitempty"`
	Claim          string    `json:"claim"`
	NodeIDs        string    `json:"node_ids"`
	Score          float64   `json:"score"`
	CreatedByStage string    `json:"created_by_stage"`
	CreatedAt      time.Time `json:"created_at"`
}

// EvidenceRecords flattens a graph snapshot for the pipeline run runID.
func EvidenceRecords(runID int64, snap evidence.Snapshot) ([]EvidenceNodeRecord, []EvidenceEdgeRecord, error) {
	nodes := make([]EvidenceNodeRecord, len(snap.Nodes))
	for i, n := range snap.Nodes {
		nodes[i] = EvidenceNodeRecord{
			SubjectID:       snap.SubjectID,
			RunID:           runID,
			ID:              n.ID,
			SourceType:      string(n.SourceType),
			Content:         n.Content,
			SourceReference: n.SourceReference,
			Confidence:      n.Confidence,
			CreatedByStage:  n.CreatedByStage,
			CreatedAt:       n.CreatedAt,
		}
	}
	edges := make([]EvidenceEdgeRecord, len(snap.Edges))
	for i, e := range snap.Edges {
		ids, err := json.Marshal(e.NodeIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("encode node ids of edge %s: %w", e.ID, err)
		}
		edges[i] = EvidenceEdgeRecord{
			SubjectID:      snap.SubjectID,
			RunID:          runID,
			ID:             e.ID,
			ClaimID:        e.ClaimID,
			Claim:          e.Claim,
			NodeIDs:        string(ids),
			Score:          e.Score,
			CreatedByStage: e.CreatedByStage,
			CreatedAt:      e.CreatedAt,
		}
	}
	return nodes, edges, nil
}

// Snapshot rebuilds a graph snapshot from records.
func Snapshot(subjectID string, nodes []EvidenceNodeRecord, edges []EvidenceEdgeRecord) (evidence.Snapshot, error) {
	snap := evidence.Snapshot{
		SubjectID: subjectID,
		Nodes:     make([]evidence.Node, len(nodes)),
		Edges:     make([]evidence.Edge, len(edges)),
	}
	for i, n := range nodes {
		snap.Nodes[i] = evidence.Node{
			ID:              n.ID,
			SourceType:      evidence.SourceType(n.SourceType),
			Content:         n.Content,
			SourceReference: n.SourceReference,
			Confidence:      n.Confidence,
			CreatedByStage:  n.CreatedByStage,
			CreatedAt:       n.CreatedAt,
		}
	}
	for i, e := range edges {
		var ids []string
		if err := json.Unmarshal([]byte(e.NodeIDs), &ids); err != nil {
			return evidence.Snapshot{}, fmt.Errorf("decode node ids of edge %s: %w", e.ID, err)
		}
		snap.Edges[i] = evidence.Edge{
			ID:             e.ID,
			ClaimID:        e.ClaimID,
			Claim:          e.Claim,
			NodeIDs:        ids,
			Score:          e.Score,
			CreatedByStage: e.CreatedByStage,
			CreatedAt:      e.CreatedAt,
		}
	}
	return snap, nil
}

func encodeMap(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
