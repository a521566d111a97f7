package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/media"
	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/timeline"
	"github.com/novaforge/reelcore/internal/track"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), nil, zerolog.Nop())
}

func TestCreateWritesConfigAndMediaDir(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Create("My Edit")
	require.NoError(t, err)
	require.Equal(t, "My Edit", cfg.Name)

	_, err = os.Stat(m.configPath(cfg.ID))
	require.NoError(t, err)
	_, err = os.Stat(m.MediaDir(cfg.ID))
	require.NoError(t, err)
}

func TestSaveThenPreloadRoundTrips(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Create("Round Trip")
	require.NoError(t, err)

	trackID := uuid.New()
	err = m.Save(context.Background(), SaveInputs{
		Base: cfg,
		Tracks: []*models.Track{
			{ID: trackID, Name: "Video 1", Type: models.TrackTypeVideo, IsVisible: true, HeightPx: 80},
		},
	})
	require.NoError(t, err)

	reloaded, err := m.PreloadProjectSettings(cfg.ID)
	require.NoError(t, err)
	require.Equal(t, "Round Trip", reloaded.Name)
	require.Len(t, reloaded.Timeline.Tracks, 1)
	require.Equal(t, trackID, reloaded.Timeline.Tracks[0].ID)
}

func TestLoadProjectContentMarksMissingMediaAsMissing(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Create("Missing Media")
	require.NoError(t, err)

	mediaID := uuid.New()
	err = m.Save(context.Background(), SaveInputs{
		Base: cfg,
		MediaItems: []*models.MediaItem{
			{
				ID:        mediaID,
				Name:      "gone.mp4",
				MediaType: models.MediaTypeVideo,
				Status:    models.MediaStatusReady,
				Source:    models.DataSource{Type: models.SourceUserSelected, MediaReferenceID: "deadbeef"},
			},
		},
	})
	require.NoError(t, err)

	tracks := track.NewEmptyRegistry()
	tl := timeline.New(engine.NewNullEngine(), tracks, zerolog.Nop(), 1920, 1080)
	lib := media.NewLibrary(media.NewDecoder(engine.NewNullEngine(), nil, nil, m.MediaDir(cfg.ID), 30), zerolog.Nop(), nil)

	var stages []ProgressStage
	err = m.LoadProjectContent(context.Background(), cfg.ID, LoadContentInputs{
		Tracks:   tracks,
		Timeline: tl,
		Media:    lib,
		OnProgress: func(stage ProgressStage, pct int, details string) {
			stages = append(stages, stage)
		},
	})
	require.NoError(t, err)
	require.Contains(t, stages, StageDone)

	item, ok := lib.Get(mediaID)
	require.True(t, ok)
	require.Equal(t, models.MediaStatusMissing, item.Status)
}

func TestLoadProjectContentRestoresTracksAndTimelineItems(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Create("Full Restore")
	require.NoError(t, err)

	trackID := uuid.New()
	itemID := uuid.New()
	err = m.Save(context.Background(), SaveInputs{
		Base: cfg,
		Tracks: []*models.Track{
			{ID: trackID, Name: "Video 1", Type: models.TrackTypeVideo, IsVisible: true, HeightPx: 80},
		},
		Timeline: []*models.TimelineItem{
			{
				ID:        itemID,
				TrackID:   trackID,
				MediaType: models.MediaTypeText,
				Status:    models.TimelineStatusReady,
				TimeRange: models.TimeRange{TimelineStartTime: 0, TimelineEndTime: 90},
				Config:    models.ItemConfig{Text: &models.TextStyle{Content: "Title"}},
			},
		},
	})
	require.NoError(t, err)

	tracks := track.NewEmptyRegistry()
	tl := timeline.New(engine.NewNullEngine(), tracks, zerolog.Nop(), 1920, 1080)
	lib := media.NewLibrary(media.NewDecoder(engine.NewNullEngine(), nil, nil, m.MediaDir(cfg.ID), 30), zerolog.Nop(), nil)

	err = m.LoadProjectContent(context.Background(), cfg.ID, LoadContentInputs{Tracks: tracks, Timeline: tl, Media: lib})
	require.NoError(t, err)

	_, ok := tracks.Get(trackID)
	require.True(t, ok)

	item, ok := tl.Get(itemID)
	require.True(t, ok)
	require.Equal(t, models.TimelineStatusReady, item.Status)
}

func TestOrphanSweepRemovesUnreferencedDirs(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Create("Sweep Me")
	require.NoError(t, err)

	live := filepath.Join(m.MediaDir(cfg.ID), "livehash")
	orphan := filepath.Join(m.MediaDir(cfg.ID), "deadhash")
	require.NoError(t, os.MkdirAll(live, 0o755))
	require.NoError(t, os.MkdirAll(orphan, 0o755))

	removed, err := m.OrphanSweep(context.Background(), cfg.ID, map[string]struct{}{"livehash": {}})
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(live)
	require.NoError(t, err)
	_, err = os.Stat(orphan)
	require.True(t, os.IsNotExist(err))
}

func TestSavedTrackRoundTripsByteForByte(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Create("Track Round Trip")
	require.NoError(t, err)

	want := &models.Track{ID: uuid.New(), Name: "Audio 1", Type: models.TrackTypeAudio, IsVisible: true, IsMuted: true, HeightPx: 48}
	require.NoError(t, m.Save(context.Background(), SaveInputs{
		Base:   cfg,
		Tracks: []*models.Track{want},
	}))

	reloaded, err := m.PreloadProjectSettings(cfg.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Timeline.Tracks, 1)

	if diff := cmp.Diff(want, reloaded.Timeline.Tracks[0]); diff != "" {
		t.Errorf("track did not round-trip through project.json (-want +got):\n%s", diff)
	}
}
