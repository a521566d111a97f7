// Package playback holds the frame-based playback currency described in
// spec.md §4.7: current frame, rate, and play/pause state, all clamped at
// the boundary so callers never have to re-validate.
package playback

import "math"

const (
	MinRate = 0.1
	MaxRate = 10.0

	// rateTextTolerance avoids the "1.00x fast" glitch where a rate that
	// is numerically 1 but not exactly so (floating point drift) renders
	// as sped-up in the UI.
	rateTextTolerance = 0.001
)

type Model struct {
	CurrentFrame int64
	PlaybackRate float64
	IsPlaying    bool
}

func New() *Model {
	return &Model{PlaybackRate: 1.0}
}

// SetCurrentFrame aligns to an integer frame and clamps to >=0.
func (m *Model) SetCurrentFrame(frame float64) {
	f := int64(math.Round(frame))
	if f < 0 {
		f = 0
	}
	m.CurrentFrame = f
}

func (m *Model) SetPlaybackRate(rate float64) {
	if rate < MinRate {
		rate = MinRate
	}
	if rate > MaxRate {
		rate = MaxRate
	}
	m.PlaybackRate = rate
}

// IsNormalSpeed reports whether the rate should render as plain "1x"
// rather than "1.00x fast"/"slow", using the tolerance from spec.md §4.7.
func (m *Model) IsNormalSpeed() bool {
	return math.Abs(m.PlaybackRate-1.0) <= rateTextTolerance
}

func (m *Model) Play() {
	m.IsPlaying = true
}

func (m *Model) Pause() {
	m.IsPlaying = false
}

// Stop is pause + seek to 0, per spec.md §4.7.
func (m *Model) Stop() {
	m.Pause()
	m.SetCurrentFrame(0)
}
