package segment

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ostrichlabs/duraq/internal/wire"
	"github.com/stretchr/testify/require"
)

func writeSegment(t *testing.T, path string, ids ...uint64) {
	t.Helper()
	w, err := OpenForAppend(path, DefaultWriterOptions())
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, w.AppendPut(&wire.Put{ID: id, AddTime: int64(id), Data: []byte("payload")}))
	}
	require.NoError(t, w.Close())
}

func TestReaderDecodesSequentially(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	writeSegment(t, path, 1, 2, 3)

	r, err := OpenForRead(path)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range []uint64{1, 2, 3} {
		rec, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, want, rec.Put.ID)
	}
	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	require.NoError(t, os.WriteFile(path, []byte("not a segment header"), 0o644))

	_, err := OpenForRead(path)
	require.Error(t, err)
	var corrupt *wire.CorruptionError
	require.ErrorAs(t, err, &corrupt)
}

func TestReaderTruncatedTailIsUnexpectedEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	writeSegment(t, path, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-2], 0o644))

	r, err := OpenForRead(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderSeekResumesAtOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	writeSegment(t, path, 1, 2, 3)

	r, err := OpenForRead(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)
	mid := r.Offset()

	_, err = r.Next()
	require.NoError(t, err)

	require.NoError(t, r.Seek(mid))
	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(2), rec.Put.ID)
}
