package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ostrichlabs/duraq/internal/logging"
	"github.com/ostrichlabs/duraq/internal/segment"
	"github.com/ostrichlabs/duraq/internal/wire"
	"github.com/stretchr/testify/require"
)

func writeSegmentStartingAt(t *testing.T, dir, queueName string, baseTS int64, firstID uint64, count int) {
	t.Helper()
	path := filepath.Join(dir, segment.FormatName(queueName, baseTS))
	w, err := segment.OpenForAppend(path, segment.DefaultWriterOptions())
	require.NoError(t, err)
	for i := 0; i < count; i++ {
		id := firstID + uint64(i)
		require.NoError(t, w.AppendPut(&wire.Put{ID: id, AddTime: int64(id), Data: []byte("x")}))
	}
	require.NoError(t, w.Close())
}

func TestBuildAndFileForID(t *testing.T) {
	dir := t.TempDir()
	writeSegmentStartingAt(t, dir, "orders", 100, 1, 5)
	writeSegmentStartingAt(t, dir, "orders", 200, 6, 5)
	writeSegmentStartingAt(t, dir, "orders", 300, 11, 5)

	snap, err := Build(dir, "orders", logging.NoopLogger{})
	require.NoError(t, err)
	require.Len(t, snap.Entries(), 3)

	path, ok := snap.FileForID(1)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "orders.100"), path)

	path, ok = snap.FileForID(9)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "orders.200"), path)

	path, ok = snap.FileForID(15)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "orders.300"), path)

	_, ok = snap.FileForID(0)
	require.False(t, ok)
}

func TestBuildSkipsCorruptSegmentsWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	writeSegmentStartingAt(t, dir, "orders", 100, 1, 3)

	badPath := filepath.Join(dir, "orders.999")
	require.NoError(t, os.WriteFile(badPath, []byte("garbage, not a header"), 0o644))

	snap, err := Build(dir, "orders", logging.NoopLogger{})
	require.NoError(t, err)
	require.Len(t, snap.Entries(), 1)
	require.Equal(t, uint64(1), snap.Entries()[0].FirstID)
}

func TestBuildEmptyDirYieldsEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	snap, err := Build(dir, "orders", logging.NoopLogger{})
	require.NoError(t, err)
	require.True(t, snap.Empty())
	_, ok := snap.FileForID(1)
	require.False(t, ok)
}

func TestWithInsertedAndWithRemovedAreImmutable(t *testing.T) {
	dir := t.TempDir()
	writeSegmentStartingAt(t, dir, "orders", 100, 1, 3)

	snap, err := Build(dir, "orders", logging.NoopLogger{})
	require.NoError(t, err)

	next := snap.WithInserted(Entry{FirstID: 10, Path: filepath.Join(dir, "orders.200")})
	require.Len(t, snap.Entries(), 1)
	require.Len(t, next.Entries(), 2)

	removed := next.WithRemoved(filepath.Join(dir, "orders.100"))
	require.Len(t, next.Entries(), 2)
	require.Len(t, removed.Entries(), 1)
}
