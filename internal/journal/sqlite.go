package journal

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	apperrors "assetcache/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	manifest    TEXT NOT NULL,
	dir         TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	total       INTEGER NOT NULL,
	started_ms  INTEGER NOT NULL,
	finished_ms INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS fetches (
	batch_id    TEXT NOT NULL REFERENCES batches(id),
	filename    TEXT NOT NULL,
	disposition TEXT NOT NULL,
	digest      TEXT NOT NULL,
	bytes       INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetches_batch ON fetches(batch_id);
`

// SQLiteRecorder persists batch runs in a SQLite database file.
type SQLiteRecorder struct {
	db *sql.DB
}

// Open opens the journal database at path, creating it and its schema
// when absent. The handle is limited to a single connection because the
// journal lives on local disk and sees no concurrent writers.
func Open(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to open journal database", err).
			WithModule("journal").
			WithField("path", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to prepare journal schema", err).
			WithModule("journal").
			WithField("path", path)
	}

	return &SQLiteRecorder{db: db}, nil
}

// Begin registers a new batch in the running state.
func (r *SQLiteRecorder) Begin(ctx context.Context, id, manifest, dir string, total int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO batches (id, manifest, dir, status, total, started_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		id, manifest, dir, string(StatusRunning), total, time.Now().UnixMilli())
	if err != nil {
		return apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to record batch start", err).
			WithModule("journal").
			WithOperation("Begin").
			WithField("batch_id", id)
	}
	return nil
}

// File appends one file outcome to a batch.
func (r *SQLiteRecorder) File(ctx context.Context, batchID string, rec FileRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fetches (batch_id, filename, disposition, digest, bytes, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		batchID, rec.Filename, rec.Disposition, rec.Digest, rec.Bytes, rec.Duration.Milliseconds())
	if err != nil {
		return apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to record file outcome", err).
			WithModule("journal").
			WithOperation("File").
			WithFields(apperrors.Metadata{"batch_id": batchID, "filename": rec.Filename})
	}
	return nil
}

// End closes a batch with its final status.
func (r *SQLiteRecorder) End(ctx context.Context, batchID string, status Status, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, error = ?, finished_ms = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UnixMilli(), batchID)
	if err != nil {
		return apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to record batch end", err).
			WithModule("journal").
			WithOperation("End").
			WithField("batch_id", batchID)
	}
	return nil
}

// Recent returns the most recently started batches, newest first, with
// per-disposition counts aggregated from their file rows.
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.manifest, b.dir, b.status, b.error, b.total, b.started_ms, b.finished_ms,
		       COALESCE(SUM(CASE WHEN f.disposition = 'fetched' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN f.disposition = 'cached' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN f.disposition = 'mismatch' THEN 1 ELSE 0 END), 0)
		FROM batches b
		LEFT JOIN fetches f ON f.batch_id = b.id
		GROUP BY b.id
		ORDER BY b.started_ms DESC, b.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to query batch history", err).
			WithModule("journal").
			WithOperation("Recent")
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		var rec BatchRecord
		var status string
		var startedMs, finishedMs int64
		if err := rows.Scan(&rec.ID, &rec.Manifest, &rec.Dir, &status, &rec.Error, &rec.Total,
			&startedMs, &finishedMs, &rec.Fetched, &rec.Cached, &rec.Mismatched); err != nil {
			return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to scan batch row", err).
				WithModule("journal").
				WithOperation("Recent")
		}
		rec.Status = Status(status)
		rec.StartedAt = time.UnixMilli(startedMs)
		if finishedMs > 0 {
			rec.FinishedAt = time.UnixMilli(finishedMs)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to read batch history", err).
			WithModule("journal").
			WithOperation("Recent")
	}

	return records, nil
}

// Close releases the database handle.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

var _ Recorder = (*SQLiteRecorder)(nil)
