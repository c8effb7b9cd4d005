// Package offline is the device-side reconciliation queue: scans made while
// the validation service is unreachable are buffered durably and replayed as
// a batch once connectivity returns.
package offline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
)

// Entry is one buffered scan. ScanID doubles as the server-side idempotency
// key, so a batch delivered twice cannot double-apply.
type Entry struct {
	ScanID     string    `json:"scan_id"`
	Credential string    `json:"credential"`
	Direction  string    `json:"direction"`
	TripID     int64     `json:"trip_id"`
	ScannedAt  time.Time `json:"timestamp"`
}

// Submitter delivers one batch of entries to the validation service.
type Submitter interface {
	Submit(ctx context.Context, entries []Entry) error
}

type Queue struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS offline_scans (
	scan_id     TEXT PRIMARY KEY,
	credential  TEXT NOT NULL,
	direction   TEXT NOT NULL,
	trip_id     INTEGER NOT NULL,
	scanned_at  TEXT NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS idx_offline_scans_status ON offline_scans(sync_status, scanned_at);
`

// Open opens (and if needed creates) the queue database at path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open offline queue: %w", err)
	}
	// One writer at a time keeps modernc/sqlite happy on concurrent scans.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init offline queue schema: %w", err)
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue buffers a scan with sync_status=pending. A missing scan id gets a
// fresh UUID; the id never changes afterwards so retried flushes stay
// idempotent server-side.
func (q *Queue) Enqueue(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ScanID == "" {
		entry.ScanID = uuid.NewString()
	}
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now().UTC()
	}

	_, err := q.db.ExecContext(ctx, `INSERT INTO offline_scans (scan_id, credential, direction, trip_id, scanned_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ScanID, entry.Credential, entry.Direction, entry.TripID,
		entry.ScannedAt.UTC().Format(time.RFC3339Nano), SyncStatusPending)
	if err != nil {
		return Entry{}, fmt.Errorf("enqueue offline scan: %w", err)
	}
	return entry, nil
}

// Pending returns buffered entries not yet flushed, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]Entry, error) {
	return q.listByStatus(ctx, SyncStatusPending)
}

// Flush marks every pending entry syncing, submits them as one batch and on
// success removes them. On submit failure every syncing entry rolls back to
// pending so the next flush retries the same batch (same scan ids).
func (q *Queue) Flush(ctx context.Context, submitter Submitter) (int, error) {
	if err := q.setStatus(ctx, SyncStatusPending, SyncStatusSyncing); err != nil {
		return 0, err
	}

	entries, err := q.listByStatus(ctx, SyncStatusSyncing)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := submitter.Submit(ctx, entries); err != nil {
		if rbErr := q.setStatus(ctx, SyncStatusSyncing, SyncStatusPending); rbErr != nil {
			return 0, fmt.Errorf("submit failed (%w), rollback failed: %v", err, rbErr)
		}
		return 0, fmt.Errorf("submit offline batch: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM offline_scans WHERE sync_status=?`, SyncStatusSyncing); err != nil {
		return 0, fmt.Errorf("clear flushed entries: %w", err)
	}
	return len(entries), nil
}

func (q *Queue) setStatus(ctx context.Context, from, to SyncStatus) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE offline_scans SET sync_status=? WHERE sync_status=?`, to, from); err != nil {
		return fmt.Errorf("update offline scan status: %w", err)
	}
	return nil
}

func (q *Queue) listByStatus(ctx context.Context, status SyncStatus) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT scan_id, credential, direction, trip_id, scanned_at
		FROM offline_scans WHERE sync_status=? ORDER BY scanned_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var scannedAt string
		if err := rows.Scan(&e.ScanID, &e.Credential, &e.Direction, &e.TripID, &scannedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, scannedAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt scanned_at %q: %w", scannedAt, err)
		}
		e.ScannedAt = t
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
