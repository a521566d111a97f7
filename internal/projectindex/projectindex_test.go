package projectindex

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndList(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	id := uuid.New()
	require.NoError(t, idx.Upsert(Entry{ID: id, Name: "My Edit", UpdatedAt: time.Now()}))

	entries, err := idx.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "My Edit", entries[0].Name)
}

func TestUpsertOverwritesByID(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	id := uuid.New()
	require.NoError(t, idx.Upsert(Entry{ID: id, Name: "v1", UpdatedAt: time.Now()}))
	require.NoError(t, idx.Upsert(Entry{ID: id, Name: "v2", UpdatedAt: time.Now()}))

	entries, err := idx.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "v2", entries[0].Name)
}

func TestRemove(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	id := uuid.New()
	require.NoError(t, idx.Upsert(Entry{ID: id, Name: "gone soon", UpdatedAt: time.Now()}))
	require.NoError(t, idx.Remove(id))

	entries, err := idx.List()
	require.NoError(t, err)
	require.Empty(t, entries)
}
