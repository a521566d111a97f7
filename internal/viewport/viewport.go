// Package viewport tracks the timeline's zoom/scroll state (spec.md
// §4.7). Both derived bounds depend on the current timeline content
// length and the track area's pixel width, so the model is re-derived
// from those rather than cached independently.
package viewport

const MaxZoomLevel = 100.0

type Model struct {
	ZoomLevel    float64
	ScrollOffset float64

	// contentEndFrames and trackWidthPx are the inputs the derived bounds
	// are computed from; callers update them as the timeline/viewport
	// resize.
	contentEndFrames int64
	frameRate        float64
	trackWidthPx     float64
}

func New(frameRate float64) *Model {
	return &Model{ZoomLevel: 1.0, frameRate: frameRate}
}

// SetContentBounds is called whenever the timeline's total duration or the
// visible track area's width changes.
func (m *Model) SetContentBounds(contentEndFrames int64, trackWidthPx float64) {
	m.contentEndFrames = contentEndFrames
	m.trackWidthPx = trackWidthPx
	m.ZoomLevel = clamp(m.ZoomLevel, m.MinZoomLevel(), MaxZoomLevel)
	m.ScrollOffset = clamp(m.ScrollOffset, 0, m.MaxScrollOffset())
}

// MinZoomLevel is the zoom at which the whole timeline fits the track
// area's width — pixels-per-second such that contentWidth == trackWidth.
func (m *Model) MinZoomLevel() float64 {
	if m.contentEndFrames <= 0 || m.frameRate <= 0 {
		return 1.0
	}
	contentSeconds := float64(m.contentEndFrames) / m.frameRate
	if contentSeconds <= 0 {
		return 1.0
	}
	return m.trackWidthPx / contentSeconds
}

func (m *Model) SetZoomLevel(zoom float64) {
	m.ZoomLevel = clamp(zoom, m.MinZoomLevel(), MaxZoomLevel)
	m.ScrollOffset = clamp(m.ScrollOffset, 0, m.MaxScrollOffset())
}

// MaxScrollOffset is how far the viewport can scroll before the content's
// trailing edge would be visible with room to spare.
func (m *Model) MaxScrollOffset() float64 {
	contentWidthPx := (float64(m.contentEndFrames) / maxFloat(m.frameRate, 1)) * m.ZoomLevel
	if contentWidthPx <= m.trackWidthPx {
		return 0
	}
	return contentWidthPx - m.trackWidthPx
}

func (m *Model) SetScrollOffset(offset float64) {
	m.ScrollOffset = clamp(offset, 0, m.MaxScrollOffset())
}

func clamp(v, min, max float64) float64 {
	if max < min {
		max = min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
