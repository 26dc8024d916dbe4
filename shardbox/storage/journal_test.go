package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalPendingEmpty(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	pending, err := j.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJournalPendingMatchesPhases(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Copied("k1", "A", "B"))
	require.NoError(t, j.Copied("k2", "A", "B"))
	require.NoError(t, j.Cleaned("k1", "A", "B"))

	pending, err := j.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "k2", pending[0].RecordID)
	assert.Equal(t, "A", pending[0].FromNode)
	assert.Equal(t, "B", pending[0].ToNode)
	assert.Equal(t, Copied, pending[0].Phase)
}

func TestJournalReplayDeletesSourceCopy(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	store := NewMemStore()
	require.NoError(t, store.CreateContainer("A"))
	require.NoError(t, store.CreateContainer("B"))

	// interrupted migration: the copy landed on B, the delete on A did not
	rec := Record{ID: "k1", Data: "v", CreatedAt: "2024-01-01"}
	require.NoError(t, store.Insert(rec, "A"))
	require.NoError(t, store.Insert(rec, "B"))
	require.NoError(t, j.Copied("k1", "A", "B"))

	n, err := j.Replay(store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	onA, err := store.GetByID("k1", "A")
	require.NoError(t, err)
	assert.Empty(t, onA, "source copy must be removed")

	onB, err := store.GetByID("k1", "B")
	require.NoError(t, err)
	assert.Len(t, onB, 1, "target copy must survive")

	pending, err := j.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending, "replay leaves an empty journal")
}

func TestJournalReplayIsIdempotent(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	store := NewMemStore()
	require.NoError(t, store.CreateContainer("A"))
	require.NoError(t, j.Copied("gone", "A", "B"))

	// the source row was already deleted before the crash
	n, err := j.Replay(store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = j.Replay(store)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestJournalReplayOnBadgerAfterRestart(t *testing.T) {
	dir := t.TempDir()

	// crash mid-migration: the copy reached B, the delete on A never ran
	store := NewBadgerStore(dir)
	require.NoError(t, store.CreateContainer("A"))
	require.NoError(t, store.CreateContainer("B"))
	rec := Record{ID: "k1", Data: "v", CreatedAt: "2024-01-01"}
	require.NoError(t, store.Insert(rec, "A"))
	require.NoError(t, store.Insert(rec, "B"))

	j, err := OpenJournal(dir)
	require.NoError(t, err)
	require.NoError(t, j.Copied("k1", "A", "B"))
	require.NoError(t, j.Close())
	store.Close()

	// restart: replay runs before any container has been opened
	store = NewBadgerStore(dir)
	defer store.Close()
	j, err = OpenJournal(dir)
	require.NoError(t, err)
	defer j.Close()

	n, err := j.Replay(store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	onA, err := store.GetByID("k1", "A")
	require.NoError(t, err)
	assert.Empty(t, onA, "replay must reach the rows on disk, not soft-miss")

	require.NoError(t, store.CreateContainer("B"))
	onB, err := store.GetByID("k1", "B")
	require.NoError(t, err)
	assert.Len(t, onB, 1)

	pending, err := j.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJournalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	j, err := OpenJournal(dir)
	require.NoError(t, err)
	require.NoError(t, j.Copied("k1", "A", "B"))
	require.NoError(t, j.Close())

	j, err = OpenJournal(dir)
	require.NoError(t, err)
	defer j.Close()

	pending, err := j.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "k1", pending[0].RecordID)
}
