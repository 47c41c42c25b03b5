package segment

import (
	"path/filepath"
	"testing"

	"github.com/ostrichlabs/duraq/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestOpenForAppendWritesHeaderOnNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	w, err := OpenForAppend(path, DefaultWriterOptions())
	require.NoError(t, err)
	require.Equal(t, int64(wire.HeaderSize), w.Len())
	require.NoError(t, w.Close())
}

func TestOpenForAppendResumesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	opts := DefaultWriterOptions()

	w, err := OpenForAppend(path, opts)
	require.NoError(t, err)
	require.NoError(t, w.AppendPut(&wire.Put{ID: 1, AddTime: 1, Data: []byte("a")}))
	require.NoError(t, w.Close())

	w2, err := OpenForAppend(path, opts)
	require.NoError(t, err)
	require.NoError(t, w2.AppendPut(&wire.Put{ID: 2, AddTime: 2, Data: []byte("b")}))
	require.NoError(t, w2.Close())

	r, err := OpenForRead(path)
	require.NoError(t, err)
	defer r.Close()

	rec1, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec1.Put.ID)

	rec2, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(2), rec2.Put.ID)
}

func TestAppendAfterCloseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	w, err := OpenForAppend(path, DefaultWriterOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.AppendPut(&wire.Put{ID: 1, AddTime: 1})
	require.Error(t, err)
}

func TestSyncImmediateFlushesEveryAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.100")
	opts := WriterOptions{SyncPolicy: SyncImmediate, BufferSize: 4096}
	w, err := OpenForAppend(path, opts)
	require.NoError(t, err)
	require.NoError(t, w.AppendPut(&wire.Put{ID: 1, AddTime: 1, Data: []byte("x")}))

	r, err := OpenForRead(path)
	require.NoError(t, err)
	defer r.Close()
	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.Put.ID)
	require.NoError(t, w.Close())
}
