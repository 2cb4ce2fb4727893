// Package journal keeps a local history of batch runs so past downloads
// can be inspected after the fact. Recording is best effort: the download
// pipeline never fails because the journal does.
package journal

import (
	"context"
	"time"
)

// FileName is the journal database file kept next to the downloaded assets.
const FileName = ".assetcache.db"

// Status is the lifecycle state of a recorded batch.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// FileRecord is the outcome of a single file within a batch.
type FileRecord struct {
	Filename    string
	Disposition string
	Digest      string
	Bytes       int64
	Duration    time.Duration
}

// BatchRecord summarizes one recorded batch run.
type BatchRecord struct {
	ID         string
	Manifest   string
	Dir        string
	Status     Status
	Error      string
	Total      int
	Fetched    int
	Cached     int
	Mismatched int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists batch runs for later inspection.
type Recorder interface {
	// Begin registers a new batch in the running state.
	Begin(ctx context.Context, id, manifest, dir string, total int) error

	// File appends one file outcome to a batch.
	File(ctx context.Context, batchID string, rec FileRecord) error

	// End closes a batch with its final status. errMsg is empty on success.
	End(ctx context.Context, batchID string, status Status, errMsg string) error

	// Recent returns the most recently started batches, newest first.
	Recent(ctx context.Context, limit int) ([]BatchRecord, error)

	// Close releases the underlying store.
	Close() error
}

// NoopRecorder discards everything. It stands in when journaling is
// disabled or the database cannot be opened.
type NoopRecorder struct{}

func (NoopRecorder) Begin(context.Context, string, string, string, int) error { return nil }

func (NoopRecorder) File(context.Context, string, FileRecord) error { return nil }

func (NoopRecorder) End(context.Context, string, Status, string) error { return nil }

func (NoopRecorder) Recent(context.Context, int) ([]BatchRecord, error) { return nil, nil }

func (NoopRecorder) Close() error { return nil }

var _ Recorder = NoopRecorder{}
