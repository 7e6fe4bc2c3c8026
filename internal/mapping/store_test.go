package mapping_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wimvanhooff/google-tasks-tools/internal/mapping"
)

func newStore(t *testing.T) (*mapping.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mappings.json")
	return mapping.NewStore(path, zerolog.Nop()), path
}

func TestStore_MissingFileStartsEmpty(t *testing.T) {
	s, _ := newStore(t)
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s, path := newStore(t)
	s.Load()
	s.Insert("src-1", "mir-1")
	s.Insert("src-2", "mir-2")
	s.MapCollection("proj-1", "list-1")
	require.NoError(t, s.Save())

	reloaded := mapping.NewStore(path, zerolog.Nop())
	reloaded.Load()
	assert.Equal(t, 2, reloaded.Len())

	m, ok := reloaded.LookupBySource("src-1")
	assert.True(t, ok)
	assert.Equal(t, "mir-1", m)

	src, ok := reloaded.LookupByMirror("mir-2")
	assert.True(t, ok)
	assert.Equal(t, "src-2", src)

	coll, ok := reloaded.CollectionFor("proj-1")
	assert.True(t, ok)
	assert.Equal(t, "list-1", coll)
}

func TestStore_InsertRepairsStaleEntries(t *testing.T) {
	s, _ := newStore(t)
	s.Load()

	s.Insert("src-1", "mir-1")

	// Re-pairing src-1 must drop the stale reverse entry for mir-1.
	s.Insert("src-1", "mir-2")
	_, ok := s.LookupByMirror("mir-1")
	assert.False(t, ok)

	// Re-pairing mir-2 to another source must drop src-1's forward entry.
	s.Insert("src-9", "mir-2")
	_, ok = s.LookupBySource("src-1")
	assert.False(t, ok)

	src, ok := s.LookupByMirror("mir-2")
	assert.True(t, ok)
	assert.Equal(t, "src-9", src)
	assert.Equal(t, 1, s.Len())
}

func TestStore_RemoveDropsBothDirections(t *testing.T) {
	s, _ := newStore(t)
	s.Load()
	s.Insert("src-1", "mir-1")
	s.Insert("src-2", "mir-2")

	s.RemoveBySource("src-1")
	_, ok := s.LookupByMirror("mir-1")
	assert.False(t, ok)

	s.RemoveByMirror("mir-2")
	_, ok = s.LookupBySource("src-2")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	s, path := newStore(t)
	s.Load()
	s.Insert("src-1", "mir-1")
	require.NoError(t, s.Save())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestStore_PairsReturnsCopy(t *testing.T) {
	s, _ := newStore(t)
	s.Load()
	s.Insert("src-1", "mir-1")

	pairs := s.Pairs()
	delete(pairs, "src-1")

	_, ok := s.LookupBySource("src-1")
	assert.True(t, ok)
}
