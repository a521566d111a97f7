package snap

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/models"
)

func TestNoSnapWithoutBeginDrag(t *testing.T) {
	m := New()
	_, ok := m.CalculateSnapPosition(100)
	require.False(t, ok)
}

func TestSnapsToNearestClipEdgeWithinThreshold(t *testing.T) {
	m := New()
	m.SetThreshold(5)
	items := []*models.TimelineItem{
		{ID: uuid.New(), TimeRange: models.TimeRange{TimelineStartTime: 100, TimelineEndTime: 200}},
	}
	m.BeginDrag(items, "", 0)

	frame, ok := m.CalculateSnapPosition(103)
	require.True(t, ok)
	require.Equal(t, int64(100), frame)
}

func TestNoSnapBeyondThreshold(t *testing.T) {
	m := New()
	m.SetThreshold(5)
	items := []*models.TimelineItem{
		{ID: uuid.New(), TimeRange: models.TimeRange{TimelineStartTime: 100, TimelineEndTime: 200}},
	}
	m.BeginDrag(items, "", 0)

	_, ok := m.CalculateSnapPosition(150)
	require.False(t, ok)
}

func TestEndDragInvalidatesCache(t *testing.T) {
	m := New()
	m.BeginDrag(nil, "", 0)
	m.EndDrag()
	_, ok := m.CalculateSnapPosition(0)
	require.False(t, ok)
}

func TestDisabledNeverSnaps(t *testing.T) {
	m := New()
	m.BeginDrag(nil, "", 10)
	m.SetEnabled(false)
	_, ok := m.CalculateSnapPosition(0) // frame 0 candidate always present
	require.False(t, ok)
}
