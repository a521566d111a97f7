package viewport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZoomClampsToMinAndMax(t *testing.T) {
	m := New(30)
	m.SetContentBounds(300, 1000) // 10s of content, 1000px track width

	m.SetZoomLevel(1000)
	require.Equal(t, MaxZoomLevel, m.ZoomLevel)

	m.SetZoomLevel(0.0001)
	require.InDelta(t, m.MinZoomLevel(), m.ZoomLevel, 0.0001)
}

func TestScrollOffsetClampsToContentEnd(t *testing.T) {
	m := New(30)
	m.SetContentBounds(300, 100)
	m.SetZoomLevel(50)

	m.SetScrollOffset(1_000_000)
	require.Equal(t, m.MaxScrollOffset(), m.ScrollOffset)

	m.SetScrollOffset(-10)
	require.Equal(t, 0.0, m.ScrollOffset)
}

func TestMaxScrollOffsetZeroWhenContentFits(t *testing.T) {
	m := New(30)
	m.SetContentBounds(30, 10000)
	require.Equal(t, 0.0, m.MaxScrollOffset())
}
