// Package snap implements the drag-time snapping model from spec.md
// §4.7: candidates are collected once at drag start into a cache, not
// recomputed per frame, and a position query returns the nearest
// candidate within threshold, preferring lower-numbered priority on ties.
package snap

import (
	"math"

	"github.com/novaforge/reelcore/internal/models"
)

// Priority follows spec.md §4.7: lower value wins a tie.
const (
	PriorityClipEdge     = 1
	PriorityPlayhead      = 1
	PriorityKeyframe      = 2
	PriorityTimelineStart = 3
)

type Candidate struct {
	Frame    int64
	Priority int
}

type Config struct {
	Enabled           bool
	Threshold         float64 // frames
	TemporarilyDisabled bool
}

type Model struct {
	cfg   Config
	cache []Candidate
	valid bool
}

func New() *Model {
	return &Model{cfg: Config{Enabled: true, Threshold: 10}}
}

func (m *Model) SetEnabled(enabled bool) {
	m.cfg.Enabled = enabled
	m.invalidate()
}

func (m *Model) SetThreshold(threshold float64) {
	m.cfg.Threshold = threshold
	m.invalidate()
}

func (m *Model) SetTemporarilyDisabled(disabled bool) {
	m.cfg.TemporarilyDisabled = disabled
}

func (m *Model) invalidate() {
	m.valid = false
	m.cache = nil
}

// BeginDrag collects every candidate once, per spec.md §4.7: clip
// start/end for every other item, each keyframe offset from its item's
// clip start, the playhead (only if currentFrame>0), and frame 0 for the
// timeline start.
func (m *Model) BeginDrag(items []*models.TimelineItem, excludeID string, currentFrame int64) {
	var candidates []Candidate
	for _, item := range items {
		if item.ID.String() == excludeID {
			continue
		}
		candidates = append(candidates,
			Candidate{Frame: item.TimeRange.TimelineStartTime, Priority: PriorityClipEdge},
			Candidate{Frame: item.TimeRange.TimelineEndTime, Priority: PriorityClipEdge},
		)
		for _, kf := range item.Animation {
			candidates = append(candidates, Candidate{
				Frame:    item.TimeRange.TimelineStartTime + kf.RelativeFrame,
				Priority: PriorityKeyframe,
			})
		}
	}
	if currentFrame > 0 {
		candidates = append(candidates, Candidate{Frame: currentFrame, Priority: PriorityPlayhead})
	}
	candidates = append(candidates, Candidate{Frame: 0, Priority: PriorityTimelineStart})

	m.cache = candidates
	m.valid = true
}

func (m *Model) EndDrag() {
	m.invalidate()
}

// CalculateSnapPosition returns the nearest candidate to frame within
// threshold, or (0, false) if disabled, temporarily disabled, or the
// cache is invalid (no BeginDrag since the last invalidation).
func (m *Model) CalculateSnapPosition(frame int64) (int64, bool) {
	if !m.cfg.Enabled || m.cfg.TemporarilyDisabled || !m.valid {
		return 0, false
	}

	var best *Candidate
	bestDist := math.MaxFloat64
	for i := range m.cache {
		c := m.cache[i]
		dist := math.Abs(float64(c.Frame - frame))
		if dist > m.cfg.Threshold {
			continue
		}
		if dist < bestDist || (dist == bestDist && best != nil && c.Priority < best.Priority) {
			bestDist = dist
			candidate := c
			best = &candidate
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Frame, true
}
