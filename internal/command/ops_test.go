package command

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/timeline"
	"github.com/novaforge/reelcore/internal/track"
)

func newTestTimeline(t *testing.T) (*timeline.Timeline, *track.Registry) {
	t.Helper()
	tr := track.NewRegistry()
	tl := timeline.New(engine.NewNullEngine(), tr, zerolog.Nop(), 1920, 1080)
	return tl, tr
}

func addTestItem(t *testing.T, tl *timeline.Timeline, tracks *track.Registry) *models.TimelineItem {
	t.Helper()
	item := &models.TimelineItem{
		MediaType: models.MediaTypeVideo,
		Status:    models.TimelineStatusReady,
		TrackID:   tracks.List()[0].ID,
		TimeRange: models.TimeRange{TimelineStartTime: 0, TimelineEndTime: 90, ClipStartTime: 0, ClipEndTime: 90, PlaybackRate: 1},
		Config:    models.ItemConfig{Visual: &models.VisualConfig{Width: 200, Height: 100, Opacity: 1}},
	}
	require.NoError(t, tl.Add(item))
	return item
}

func TestResizeWithHistoryReplacesFullRangeAndUndoes(t *testing.T) {
	tl, tracks := newTestTimeline(t)
	item := addTestItem(t, tl, tracks)
	originalRange := item.TimeRange
	h := NewHistoryStack(noopLogger(), nil)

	newRange := models.TimeRange{TimelineStartTime: 10, TimelineEndTime: 55, ClipStartTime: 20, ClipEndTime: 65, PlaybackRate: 1}
	require.NoError(t, ResizeTimelineItemWithHistory(h, tl, item.ID, newRange))

	got, _ := tl.Get(item.ID)
	require.Equal(t, newRange, got.TimeRange)

	require.NoError(t, h.Undo())
	got, _ = tl.Get(item.ID)
	require.Equal(t, originalRange, got.TimeRange)
}

func TestResizeWithHistoryNoOpBelowTolerance(t *testing.T) {
	tl, tracks := newTestTimeline(t)
	item := addTestItem(t, tl, tracks)
	h := NewHistoryStack(noopLogger(), nil)

	require.NoError(t, ResizeTimelineItemWithHistory(h, tl, item.ID, item.TimeRange))
	require.False(t, h.CanUndo())
}

func TestSetClipPlaybackRateWithHistoryRescalesAndUndoes(t *testing.T) {
	tl, tracks := newTestTimeline(t)
	item := addTestItem(t, tl, tracks)
	item.Animation = []models.Keyframe{{RelativeFrame: 0}, {RelativeFrame: 45}, {RelativeFrame: 89}}

	h := NewHistoryStack(noopLogger(), nil)
	require.NoError(t, SetClipPlaybackRateWithHistory(h, tl, item.ID, 2))

	got, _ := tl.Get(item.ID)
	require.InDelta(t, 2, got.TimeRange.PlaybackRate, RateTolerance)
	require.Equal(t, int64(45), got.TimeRange.Duration())
	require.Equal(t, int64(44), got.Animation[2].RelativeFrame)

	require.NoError(t, h.Undo())
	got, _ = tl.Get(item.ID)
	require.InDelta(t, 1, got.TimeRange.PlaybackRate, RateTolerance)
	require.Equal(t, int64(89), got.Animation[2].RelativeFrame)
}

func TestSetClipPlaybackRateWithHistoryNoOpBelowTolerance(t *testing.T) {
	tl, tracks := newTestTimeline(t)
	item := addTestItem(t, tl, tracks)
	h := NewHistoryStack(noopLogger(), nil)

	require.NoError(t, SetClipPlaybackRateWithHistory(h, tl, item.ID, 1.0001))
	require.False(t, h.CanUndo())
}
