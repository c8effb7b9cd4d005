package offline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	batches [][]Entry
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, entries []Entry) error {
	f.batches = append(f.batches, entries)
	return f.err
}

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueAssignsScanID(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	stored, err := q.Enqueue(ctx, Entry{Credential: "RFID-1", Direction: "ENTRY"})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ScanID)
	assert.False(t, stored.ScannedAt.IsZero())

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, stored.ScanID, pending[0].ScanID)
}

func TestEnqueueKeepsProvidedScanID(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	at := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	stored, err := q.Enqueue(ctx, Entry{ScanID: "scan-a", Credential: "RFID-1", Direction: "ENTRY", ScannedAt: at})
	require.NoError(t, err)
	assert.Equal(t, "scan-a", stored.ScanID)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].ScannedAt.Equal(at))
}

func TestPendingOldestFirst(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	_, err := q.Enqueue(ctx, Entry{ScanID: "scan-late", Credential: "RFID-1", Direction: "ENTRY", ScannedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, Entry{ScanID: "scan-early", Credential: "RFID-1", Direction: "ENTRY", ScannedAt: base})
	require.NoError(t, err)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "scan-early", pending[0].ScanID)
	assert.Equal(t, "scan-late", pending[1].ScanID)
}

func TestFlushRemovesSubmittedEntries(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Entry{ScanID: "scan-a", Credential: "RFID-1", Direction: "ENTRY"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, Entry{ScanID: "scan-b", Credential: "RFID-2", Direction: "ENTRY"})
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	n, err := q.Flush(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, sub.batches, 1)
	assert.Len(t, sub.batches[0], 2)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFlushEmptyQueue(t *testing.T) {
	q := openTestQueue(t)

	sub := &fakeSubmitter{}
	n, err := q.Flush(context.Background(), sub)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sub.batches)
}

// A failed submit must leave the batch pending with the same scan ids, so the
// next flush is a server-side no-op for anything that did get applied.
func TestFlushRollsBackOnSubmitFailure(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Entry{ScanID: "scan-a", Credential: "RFID-1", Direction: "ENTRY"})
	require.NoError(t, err)

	failing := &fakeSubmitter{err: errors.New("service unreachable")}
	_, err = q.Flush(ctx, failing)
	require.Error(t, err)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "scan-a", pending[0].ScanID)

	ok := &fakeSubmitter{}
	n, err := q.Flush(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, ok.batches, 1)
	assert.Equal(t, "scan-a", ok.batches[0][0].ScanID)
}
