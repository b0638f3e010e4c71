// Package store persists pipeline runs as flat records: one StageRecord per
// stage run and the evidence graph of a pipeline run as node and edge
// records. Maps (context, results, node ids) are stored JSON encoded so any
// backend with string columns can hold them.
//
// Recorder is the contract the engine writes through. MemoryRecorder keeps
// records in process; the sqlite sub-package stores them in a SQLite file.
// Every stage run gets a run id from NextRunID that increases monotonically
// per subject and stage, so earlier runs stay available for replay and audit.
package store
