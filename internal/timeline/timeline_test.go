package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/track"
)

func newTestTimeline(t *testing.T) (*Timeline, *track.Registry) {
	t.Helper()
	tr := track.NewRegistry()
	tl := New(engine.NewNullEngine(), tr, zerolog.Nop(), 1920, 1080)
	return tl, tr
}

func readyItem(trackID uuid.UUID) *models.TimelineItem {
	return &models.TimelineItem{
		MediaType: models.MediaTypeVideo,
		Status:    models.TimelineStatusReady,
		TrackID:   trackID,
		TimeRange: models.TimeRange{TimelineStartTime: 0, TimelineEndTime: 90},
		Config:    models.ItemConfig{Visual: &models.VisualConfig{Width: 200, Height: 100, Opacity: 1}},
	}
}

func TestAddWiresSpriteForReadyItem(t *testing.T) {
	tl, tr := newTestTimeline(t)
	tracks := tr.List()

	item := readyItem(tracks[0].ID)
	require.NoError(t, tl.Add(item))

	got, ok := tl.GetReady(item.ID)
	require.True(t, ok)
	require.True(t, got.HasSprite())
}

func TestUpdateRangeReplacesClipBoundsAndRate(t *testing.T) {
	tl, tr := newTestTimeline(t)
	tracks := tr.List()
	item := readyItem(tracks[0].ID)
	item.TimeRange = models.TimeRange{TimelineStartTime: 0, TimelineEndTime: 90, ClipStartTime: 0, ClipEndTime: 90, PlaybackRate: 1}
	require.NoError(t, tl.Add(item))

	newRange := models.TimeRange{TimelineStartTime: 10, TimelineEndTime: 55, ClipStartTime: 20, ClipEndTime: 65, PlaybackRate: 1}
	require.NoError(t, tl.UpdateRange(item.ID, newRange))

	got, _ := tl.Get(item.ID)
	require.Equal(t, newRange, got.TimeRange)
}

func TestRescaleForPlaybackRateMatchesWorkedExample(t *testing.T) {
	before := models.TimeRange{TimelineStartTime: 0, TimelineEndTime: 90, ClipStartTime: 0, ClipEndTime: 90, PlaybackRate: 1}
	animation := []models.Keyframe{
		{RelativeFrame: 0},
		{RelativeFrame: 45},
		{RelativeFrame: 89},
	}

	after, scaled := RescaleForPlaybackRate(before, animation, 2)

	require.Equal(t, int64(45), after.Duration())
	require.Equal(t, int64(0), scaled[0].RelativeFrame)
	require.Equal(t, int64(22), scaled[1].RelativeFrame)
	require.Equal(t, int64(44), scaled[2].RelativeFrame)
}

func TestPromoteToReadyWiresSpriteForLoadingItem(t *testing.T) {
	tl, tr := newTestTimeline(t)
	tracks := tr.List()
	mediaID := uuid.New()

	item := readyItem(tracks[0].ID)
	item.Status = models.TimelineStatusLoading
	item.MediaItemID = mediaID
	require.NoError(t, tl.Add(item))

	got, _ := tl.Get(item.ID)
	require.False(t, got.HasSprite())

	tl.PromoteToReady(mediaID)

	got, ok := tl.GetReady(item.ID)
	require.True(t, ok)
	require.True(t, got.HasSprite())
}

func TestUpdateTransformRoundTripsThroughPropsChange(t *testing.T) {
	tl, tr := newTestTimeline(t)
	tracks := tr.List()

	item := readyItem(tracks[0].ID)
	require.NoError(t, tl.Add(item))

	newWidth := 400.0
	require.NoError(t, tl.UpdateTransform(item.ID, PartialTransform{Width: &newWidth}))

	// the NullEngine emits propsChange synchronously but on the consumer
	// goroutine; give it a moment to land.
	require.Eventually(t, func() bool {
		got, _ := tl.Get(item.ID)
		return got.Config.Visual.Width == newWidth
	}, time.Second, 5*time.Millisecond)
}

func TestUpdatePositionClampsNegativeAndPreservesDuration(t *testing.T) {
	tl, tr := newTestTimeline(t)
	tracks := tr.List()
	item := readyItem(tracks[0].ID)
	require.NoError(t, tl.Add(item))

	require.NoError(t, tl.UpdatePosition(item.ID, -50, nil))
	got, _ := tl.Get(item.ID)
	require.Equal(t, int64(0), got.TimeRange.TimelineStartTime)
	require.Equal(t, int64(90), got.TimeRange.TimelineEndTime)
}

func TestRemoveDetachesSprite(t *testing.T) {
	tl, tr := newTestTimeline(t)
	tracks := tr.List()
	item := readyItem(tracks[0].ID)
	require.NoError(t, tl.Add(item))

	tl.Remove(item.ID)
	_, ok := tl.Get(item.ID)
	require.False(t, ok)
}

func TestAudioConfigBypassesSpriteLoop(t *testing.T) {
	tl, tr := newTestTimeline(t)
	tracks := tr.List()
	item := readyItem(tracks[0].ID)
	require.NoError(t, tl.Add(item))

	vol := 0.5
	require.NoError(t, tl.UpdateAudioConfig(item.ID, &vol, nil, nil))
	got, _ := tl.Get(item.ID)
	require.Equal(t, 0.5, got.Config.Audio.Volume)
}
