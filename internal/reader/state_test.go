package reader

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitInOrderAdvancesHeadDirectly(t *testing.T) {
	s := NewState("c1", filepath.Join(t.TempDir(), "orders.read.c1"), 0)
	require.NoError(t, s.Commit(1))
	require.NoError(t, s.Commit(2))
	require.NoError(t, s.Commit(3))
	require.Equal(t, uint64(3), s.Head())
	require.Empty(t, s.DoneSet())
}

func TestCommitOutOfOrderCoalescesOnceGapCloses(t *testing.T) {
	s := NewState("c1", filepath.Join(t.TempDir(), "orders.read.c1"), 0)
	require.NoError(t, s.Commit(3))
	require.NoError(t, s.Commit(5))
	require.NoError(t, s.Commit(4))
	require.NoError(t, s.Commit(2))
	require.Equal(t, uint64(0), s.Head())
	require.Equal(t, []uint64{2, 3, 4, 5}, s.DoneSet())

	require.NoError(t, s.Commit(1))
	require.Equal(t, uint64(5), s.Head())
	require.Empty(t, s.DoneSet())
}

func TestCommitCoalescingIsOrderIndependent(t *testing.T) {
	ids := []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	shuffled := append([]uint64(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	s := NewState("c1", filepath.Join(t.TempDir(), "orders.read.c1"), 0)
	for _, id := range shuffled {
		require.NoError(t, s.Commit(id))
	}
	require.Equal(t, uint64(10), s.Head())
	require.Empty(t, s.DoneSet())
}

func TestCommitRejectsAlreadyCommittedID(t *testing.T) {
	s := NewState("c1", filepath.Join(t.TempDir(), "orders.read.c1"), 0)
	require.NoError(t, s.Commit(1))
	err := s.Commit(1)
	require.ErrorIs(t, err, ErrProtocolMisuse)
}

func TestCommitRejectsDuplicateInDoneSet(t *testing.T) {
	s := NewState("c1", filepath.Join(t.TempDir(), "orders.read.c1"), 0)
	require.NoError(t, s.Commit(5))
	err := s.Commit(5)
	require.ErrorIs(t, err, ErrProtocolMisuse)
}

func TestSetHeadDropsStaleDoneEntries(t *testing.T) {
	s := NewState("c1", filepath.Join(t.TempDir(), "orders.read.c1"), 0)
	require.NoError(t, s.Commit(5))
	require.NoError(t, s.Commit(8))
	s.SetHead(6)
	require.Equal(t, uint64(6), s.Head())
	require.Equal(t, []uint64{8}, s.DoneSet())
}

func TestSetHeadCoalescesContiguousDoneEntries(t *testing.T) {
	s := NewState("c1", filepath.Join(t.TempDir(), "orders.read.c1"), 0)
	require.NoError(t, s.Commit(5))
	require.NoError(t, s.Commit(7))
	s.SetHead(6)
	require.Equal(t, uint64(7), s.Head())
	require.Empty(t, s.DoneSet())
}

func TestCheckpointAndLoadStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.read.c1")
	s := NewState("c1", path, 0)
	require.NoError(t, s.Commit(1))
	require.NoError(t, s.Commit(2))
	require.NoError(t, s.Commit(5))
	require.NoError(t, s.Checkpoint())

	loaded, err := LoadState("c1", path)
	require.NoError(t, err)
	require.Equal(t, uint64(2), loaded.Head())
	require.Equal(t, []uint64{5}, loaded.DoneSet())
}

func TestLoadStateOfMissingFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.read.c1")
	s, err := LoadState("c1", path)
	require.NoError(t, err)
	require.Equal(t, uint64(0), s.Head())
	require.Empty(t, s.DoneSet())
}

func TestCheckpointLeavesNoTransientFileBehind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.read.c1")
	s := NewState("c1", path, 3)
	require.NoError(t, s.Checkpoint())

	_, err := LoadState("c1", path+TransientSuffix)
	require.NoError(t, err) // missing file loads as fresh state, proving it doesn't exist
	loaded, err := LoadState("c1", path)
	require.NoError(t, err)
	require.Equal(t, uint64(3), loaded.Head())
}
