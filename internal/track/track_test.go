package track

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/models"
)

func TestCannotRemoveLastTrack(t *testing.T) {
	r := NewEmptyRegistry()
	r.Add(&models.Track{Type: models.TrackTypeVideo, Name: "Video 1"})

	tracks := r.List()
	require.Len(t, tracks, 1)

	err := r.Remove(tracks[0].ID, nil)
	require.Error(t, err)
	require.Len(t, r.List(), 1)
}

func TestRemoveCascades(t *testing.T) {
	r := NewRegistry()
	tracks := r.List()
	require.Len(t, tracks, 3)

	var cascaded bool
	require.NoError(t, r.Remove(tracks[0].ID, func(id uuid.UUID) { cascaded = true }))
	require.True(t, cascaded)
	require.Len(t, r.List(), 2)
}

func TestRenameRejectsEmpty(t *testing.T) {
	r := NewRegistry()
	tracks := r.List()
	require.Error(t, r.Rename(tracks[0].ID, ""))
}
