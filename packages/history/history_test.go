package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)

	first, err := store.Record(Entry{
		RepoID:     "user/ds",
		ConfigName: "default",
		Split:      "train",
		Revision:   "main",
		Rows:       100,
		Bytes:      2048,
		CommitOID:  "abc123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = store.Record(Entry{
		RepoID:     "user/ds",
		ConfigName: "default",
		Split:      "test",
		Revision:   "main",
		Rows:       10,
		Bytes:      256,
		CommitOID:  "def456",
	})
	require.NoError(t, err)

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "test", entries[0].Split)
	assert.Equal(t, "train", entries[1].Split)
	assert.Equal(t, 100, entries[1].Rows)
	assert.Equal(t, "abc123", entries[1].CommitOID)
}

func TestRecent_Empty(t *testing.T) {
	store := openStore(t)

	entries, err := store.Recent(5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecent_DefaultLimit(t *testing.T) {
	store := openStore(t)

	_, err := store.Record(Entry{RepoID: "a/b", ConfigName: "default", Split: "train", Revision: "main"})
	require.NoError(t, err)

	entries, err := store.Recent(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
