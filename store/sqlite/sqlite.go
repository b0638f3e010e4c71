// Package sqlite implements store.Recorder on a SQLite database file using
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_counters (
	subject_id   TEXT NOT NULL,
	stage_name   TEXT NOT NULL,
	last_run_id  INTEGER NOT NULL,
	PRIMARY KEY (subject_id, stage_name)
);

CREATE TABLE IF NOT EXISTS stage_states (
	subject_id       TEXT NOT NULL,
	stage_name       TEXT NOT NULL,
	run_id           INTEGER NOT NULL,
	status           TEXT NOT NULL,
	phase            TEXT NOT NULL,
	context_json     TEXT NOT NULL,
	results_json     TEXT NOT NULL,
	error_json       TEXT,
	iteration_count  INTEGER NOT NULL,
	max_iterations   INTEGER NOT NULL,
	started_at       TEXT,
	completed_at     TEXT,
	PRIMARY KEY (subject_id, stage_name, run_id)
);

CREATE TABLE IF NOT EXISTS evidence_nodes (
	subject_id        TEXT NOT NULL,
	run_id            INTEGER NOT NULL,
	node_id           TEXT NOT NULL,
	seq               INTEGER NOT NULL,
	source_type       TEXT NOT NULL,
	content           TEXT NOT NULL,
	source_reference  TEXT,
	confidence        REAL NOT NULL,
	created_by_stage  TEXT NOT NULL,
	created_at        TEXT,
	PRIMARY KEY (subject_id, run_id, node_id)
);

CREATE TABLE IF NOT EXISTS evidence_edges (
	subject_id        TEXT NOT NULL,
	run_id            INTEGER NOT NULL,
	edge_id           TEXT NOT NULL,
	seq               INTEGER NOT NULL,
	claim_id          TEXT,
	claim             TEXT NOT NULL,
	node_ids_json     TEXT NOT NULL,
	score             REAL NOT NULL,
	created_by_stage  TEXT NOT NULL,
	created_at        TEXT,
	PRIMARY KEY (subject_id, run_id, edge_id)
);
`

// Recorder stores records in SQLite.
type Recorder struct {
	db *sql.DB
}

var _ store.Recorder = (*Recorder)(nil)

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Single connection: RETURNING counters and transactions share it.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// NextRunID implements store.Recorder.
func (r *Recorder) NextRunID(ctx context.Context, subjectID, stage string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO run_counters (subject_id, stage_name, last_run_id) VALUES (?, ?, 1)
		 ON CONFLICT(subject_id, stage_name) DO UPDATE SET last_run_id = last_run_id + 1
		 RETURNING last_run_id`,
		subjectID, stage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next run id: %w", err)
	}
	return id, nil
}

// SaveStage implements store.Recorder.
func (r *Recorder) SaveStage(ctx context.Context, rec store.StageRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stage_states (subject_id, stage_name, run_id, status, phase, context_json, results_json,
			error_json, iteration_count, max_iterations, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject_id, stage_name, run_id) DO UPDATE SET
			status = excluded.status, phase = excluded.phase, context_json = excluded.context_json,
			results_json = excluded.results_json, error_json = excluded.error_json,
			iteration_count = excluded.iteration_count, max_iterations = excluded.max_iterations,
			started_at = excluded.started_at, completed_at = excluded.completed_at`,
		rec.SubjectID, rec.StageName, rec.RunID, rec.Status, rec.Phase, rec.Context, rec.Results,
		nullable(rec.Error), rec.IterationCount, rec.MaxIterations,
		formatTime(rec.StartedAt), formatTime(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save stage %s/%s/%d: %w", rec.SubjectID, rec.StageName, rec.RunID, err)
	}
	return nil
}

// LoadStage implements store.Recorder.
func (r *Recorder) LoadStage(ctx context.Context, subjectID, stage string, runID int64) (store.StageRecord, error) {
	query := `SELECT run_id, status, phase, context_json, results_json, error_json, iteration_count,
		max_iterations, started_at, completed_at
		FROM stage_states WHERE subject_id = ? AND stage_name = ?`
	args := []any{subjectID, stage}
	if runID == 0 {
		query += ` ORDER BY run_id DESC LIMIT 1`
	} else {
		query += ` AND run_id = ?`
		args = append(args, runID)
	}

	rec := store.StageRecord{SubjectID: subjectID, StageName: stage}
	var errJSON, started, completed sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.RunID, &rec.Status, &rec.Phase, &rec.Context, &rec.Results, &errJSON,
		&rec.IterationCount, &rec.MaxIterations, &started, &completed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.StageRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.StageRecord{}, fmt.Errorf("load stage %s/%s/%d: %w", subjectID, stage, runID, err)
	}
	rec.Error = errJSON.String
	if rec.StartedAt, err = parseTime(started); err != nil {
		return store.StageRecord{}, err
	}
	if rec.CompletedAt, err = parseTime(completed); err != nil {
		return store.StageRecord{}, err
	}
	return rec, nil
}

// SaveEvidence implements store.Recorder.
func (r *Recorder) SaveEvidence(ctx context.Context, subjectID string, runID int64, nodes []store.EvidenceNodeRecord, edges []store.EvidenceEdgeRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"evidence_edges", "evidence_nodes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE subject_id = ? AND run_id = ?`, subjectID, runID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, n := range nodes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evidence_nodes (subject_id, run_id, node_id, seq, source_type, content, source_reference,
				confidence, created_by_stage, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			subjectID, runID, n.ID, i, n.SourceType, n.Content, n.SourceReference,
			n.Confidence, n.CreatedByStage, formatTime(n.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	for i, e := range edges {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evidence_edges (subject_id, run_id, edge_id, seq, claim_id, claim, node_ids_json,
				score, created_by_stage, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			subjectID, runID, e.ID, i, e.ClaimID, e.Claim, e.NodeIDs,
			e.Score, e.CreatedByStage, formatTime(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadEvidence implements store.Recorder.
func (r *Recorder) LoadEvidence(ctx context.Context, subjectID string, runID int64) ([]store.EvidenceNodeRecord, []store.EvidenceEdgeRecord, error) {
	nodes, err := r.loadNodes(ctx, subjectID, runID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := r.loadEdges(ctx, subjectID, runID)
	if err != nil {
		return nil, nil, err
	}
	if len(nodes) == 0 && len(edges) == 0 {
		return nil, nil, store.ErrNotFound
	}
	return nodes, edges, nil
}

func (r *Recorder) loadNodes(ctx context.Context, subjectID string, runID int64) ([]store.EvidenceNodeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT node_id, source_type, content, source_reference, confidence, created_by_stage, created_at
		 FROM evidence_nodes WHERE subject_id = ? AND run_id = ? ORDER BY seq`,
		subjectID, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []store.EvidenceNodeRecord
	for rows.Next() {
		n := store.EvidenceNodeRecord{SubjectID: subjectID, RunID: runID}
		var ref, created sql.NullString
		if err := rows.Scan(&n.ID, &n.SourceType, &n.Content, &ref, &n.Confidence, &n.CreatedByStage, &created); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.SourceReference = ref.String
		if n.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Recorder) loadEdges(ctx context.Context, subjectID string, runID int64) ([]store.EvidenceEdgeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT edge_id, claim_id, claim, node_ids_json, score, created_by_stage, created_at
		 FROM evidence_edges WHERE subject_id = ? AND run_id = ? ORDER BY seq`,
		subjectID, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []store.EvidenceEdgeRecord
	for rows.Next() {
		e := store.EvidenceEdgeRecord{SubjectID: subjectID, RunID: runID}
		var claimID, created sql.NullString
		if err := rows.Scan(&e.ID, &claimID, &e.Claim, &e.NodeIDs, &e.Score, &e.CreatedByStage, &created); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.ClaimID = claimID.String
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s.String, err)
	}
	return t, nil
}
