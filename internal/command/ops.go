package command

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/timeline"
	"github.com/novaforge/reelcore/internal/track"
)

// Tolerance thresholds from spec.md §4.3: below these, a "with history"
// wrapper treats the request as a no-op rather than recording a command.
const (
	PositionToleranceFrames = 1.0
	GeometryTolerancePx     = 0.1
	AngleTolerance          = 0.001 // opacity and rotation radians
	VolumeTolerance         = 0.01
	GainToleranceDB         = 0.1
	RateTolerance           = 0.001
)

func changed(before, after, tolerance float64) bool {
	return math.Abs(after-before) >= tolerance
}

// moveCommand undoes/redoes a timeline item reposition.
type moveCommand struct {
	BaseCommand
	tl                   *timeline.Timeline
	itemID               uuid.UUID
	beforeFrame, afterFrame int64
	beforeTrack, afterTrack *uuid.UUID
}

func (c *moveCommand) Description() string { return "Move clip" }

func (c *moveCommand) Execute() error {
	return c.tl.UpdatePosition(c.itemID, c.afterFrame, c.afterTrack)
}

func (c *moveCommand) Undo() error {
	return c.tl.UpdatePosition(c.itemID, c.beforeFrame, c.beforeTrack)
}

// MoveTimelineItemWithHistory reads the item's current position, and if it
// moved by at least one frame, records and executes a moveCommand.
func MoveTimelineItemWithHistory(h *HistoryStack, tl *timeline.Timeline, itemID uuid.UUID, newFrame int64, newTrackID *uuid.UUID) error {
	item, ok := tl.Get(itemID)
	if !ok {
		return nil
	}
	if !changed(float64(item.TimeRange.TimelineStartTime), float64(newFrame), PositionToleranceFrames) && newTrackID == nil {
		return nil
	}
	cmd := &moveCommand{
		tl:            tl,
		itemID:        itemID,
		beforeFrame:   item.TimeRange.TimelineStartTime,
		afterFrame:    newFrame,
		beforeTrack:   &item.TrackID,
		afterTrack:    newTrackID,
	}
	return h.Execute(cmd)
}

// transformCommand undoes/redoes a partial sprite transform.
type transformCommand struct {
	BaseCommand
	tl             *timeline.Timeline
	itemID         uuid.UUID
	before, after  timeline.PartialTransform
}

func (c *transformCommand) Description() string { return "Adjust transform" }

func (c *transformCommand) Execute() error {
	return c.tl.UpdateTransform(c.itemID, c.after)
}

func (c *transformCommand) Undo() error {
	return c.tl.UpdateTransform(c.itemID, c.before)
}

// UpdateTimelineItemTransformWithHistory checks each provided field against
// its tolerance threshold; if nothing changed meaningfully, it is a no-op.
func UpdateTimelineItemTransformWithHistory(h *HistoryStack, tl *timeline.Timeline, itemID uuid.UUID, partial timeline.PartialTransform) error {
	item, ok := tl.Get(itemID)
	if !ok || item.Config.Visual == nil {
		return nil
	}
	v := item.Config.Visual

	before := timeline.PartialTransform{}
	meaningful := false

	if partial.X != nil && changed(v.X, *partial.X, GeometryTolerancePx) {
		x := v.X
		before.X = &x
		meaningful = true
	}
	if partial.Y != nil && changed(v.Y, *partial.Y, GeometryTolerancePx) {
		y := v.Y
		before.Y = &y
		meaningful = true
	}
	if partial.Width != nil && changed(v.Width, *partial.Width, GeometryTolerancePx) {
		w := v.Width
		before.Width = &w
		meaningful = true
	}
	if partial.Height != nil && changed(v.Height, *partial.Height, GeometryTolerancePx) {
		ht := v.Height
		before.Height = &ht
		meaningful = true
	}
	if partial.Rotation != nil && changed(v.Rotation, *partial.Rotation, AngleTolerance) {
		r := v.Rotation
		before.Rotation = &r
		meaningful = true
	}
	if partial.Opacity != nil && changed(v.Opacity, *partial.Opacity, AngleTolerance) {
		o := v.Opacity
		before.Opacity = &o
		meaningful = true
	}
	if partial.ZIndex != nil && *partial.ZIndex != v.ZIndex {
		z := v.ZIndex
		before.ZIndex = &z
		meaningful = true
	}

	if !meaningful {
		return nil
	}

	cmd := &transformCommand{tl: tl, itemID: itemID, before: before, after: partial}
	return h.Execute(cmd)
}

// trackCommand undoes/redoes a track field mutation (name, height, mute).
type trackCommand struct {
	BaseCommand
	description  string
	tracks       *track.Registry
	trackID      uuid.UUID
	applyAfter   func(*track.Registry, uuid.UUID) error
	applyBefore  func(*track.Registry, uuid.UUID) error
}

func (c *trackCommand) Description() string { return c.description }
func (c *trackCommand) Execute() error       { return c.applyAfter(c.tracks, c.trackID) }
func (c *trackCommand) Undo() error          { return c.applyBefore(c.tracks, c.trackID) }

// RenameTrackWithHistory validates then records a rename, rejecting empty
// names at the wrapper with no state mutation and no history entry
// (spec.md §7's validation-error kind).
func RenameTrackWithHistory(h *HistoryStack, tracks *track.Registry, trackID uuid.UUID, newName string) error {
	if newName == "" {
		return nil
	}
	current, ok := tracks.Get(trackID)
	if !ok || current.Name == newName {
		return nil
	}
	oldName := current.Name
	cmd := &trackCommand{
		description: "Rename track",
		tracks:      tracks,
		trackID:     trackID,
		applyAfter:  func(r *track.Registry, id uuid.UUID) error { return r.Rename(id, newName) },
		applyBefore: func(r *track.Registry, id uuid.UUID) error { return r.Rename(id, oldName) },
	}
	return h.Execute(cmd)
}

// SetTrackMutedWithHistory records any change in mute state — spec.md
// §4.3 treats mute as "any change" rather than a tolerance threshold.
func SetTrackMutedWithHistory(h *HistoryStack, tracks *track.Registry, trackID uuid.UUID, muted bool) error {
	current, ok := tracks.Get(trackID)
	if !ok || current.IsMuted == muted {
		return nil
	}
	cmd := &trackCommand{
		description: "Toggle track mute",
		tracks:      tracks,
		trackID:     trackID,
		applyAfter:  func(r *track.Registry, id uuid.UUID) error { return r.SetMuted(id, muted) },
		applyBefore: func(r *track.Registry, id uuid.UUID) error { return r.SetMuted(id, !muted) },
	}
	return h.Execute(cmd)
}

// addTimelineItemCommand undoes/redoes inserting a brand-new item.
type addTimelineItemCommand struct {
	BaseCommand
	tl   *timeline.Timeline
	item *models.TimelineItem
}

func (c *addTimelineItemCommand) Description() string { return "Add clip to timeline" }
func (c *addTimelineItemCommand) Execute() error       { return c.tl.Add(c.item) }
func (c *addTimelineItemCommand) Undo() error {
	c.tl.Remove(c.item.ID)
	return nil
}

func AddTimelineItemWithHistory(h *HistoryStack, tl *timeline.Timeline, item *models.TimelineItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cmd := &addTimelineItemCommand{tl: tl, item: item}
	return h.Execute(cmd)
}

// resizeCommand undoes/redoes a clip's trim or speed edit, replacing the
// item's entire TimeRange (clip bounds, playback rate and timeline bounds
// together) rather than just its start frame.
type resizeCommand struct {
	BaseCommand
	tl          *timeline.Timeline
	itemID      uuid.UUID
	beforeRange models.TimeRange
	afterRange  models.TimeRange
}

func (c *resizeCommand) Description() string { return "Resize clip" }

func (c *resizeCommand) Execute() error {
	return c.tl.UpdateRange(c.itemID, c.afterRange)
}

func (c *resizeCommand) Undo() error {
	return c.tl.UpdateRange(c.itemID, c.beforeRange)
}

// ResizeTimelineItemWithHistory checks the new range against the
// position tolerance before recording a command.
func ResizeTimelineItemWithHistory(h *HistoryStack, tl *timeline.Timeline, itemID uuid.UUID, newRange models.TimeRange) error {
	item, ok := tl.Get(itemID)
	if !ok {
		return nil
	}
	if !changed(float64(item.TimeRange.TimelineStartTime), float64(newRange.TimelineStartTime), PositionToleranceFrames) &&
		!changed(float64(item.TimeRange.TimelineEndTime), float64(newRange.TimelineEndTime), PositionToleranceFrames) &&
		!changed(float64(item.TimeRange.ClipStartTime), float64(newRange.ClipStartTime), PositionToleranceFrames) &&
		!changed(float64(item.TimeRange.ClipEndTime), float64(newRange.ClipEndTime), PositionToleranceFrames) &&
		!changed(item.TimeRange.PlaybackRate, newRange.PlaybackRate, RateTolerance) {
		return nil
	}
	cmd := &resizeCommand{tl: tl, itemID: itemID, beforeRange: item.TimeRange, afterRange: newRange}
	return h.Execute(cmd)
}

// rateCommand undoes/redoes a clip playback-rate change, which rescales
// both the timeline duration and the clip's keyframes (spec.md §8
// Scenario S3).
type rateCommand struct {
	BaseCommand
	tl          *timeline.Timeline
	itemID      uuid.UUID
	beforeRange models.TimeRange
	afterRange  models.TimeRange
	beforeAnim  []models.Keyframe
	afterAnim   []models.Keyframe
}

func (c *rateCommand) Description() string { return "Change clip speed" }

func (c *rateCommand) Execute() error {
	return c.tl.ApplyRangeAndAnimation(c.itemID, c.afterRange, c.afterAnim)
}

func (c *rateCommand) Undo() error {
	return c.tl.ApplyRangeAndAnimation(c.itemID, c.beforeRange, c.beforeAnim)
}

// SetClipPlaybackRateWithHistory rescales a clip's duration and keyframes
// for a new playback rate and records the edit as a single undoable step.
func SetClipPlaybackRateWithHistory(h *HistoryStack, tl *timeline.Timeline, itemID uuid.UUID, newRate float64) error {
	item, ok := tl.Get(itemID)
	if !ok {
		return nil
	}
	if !changed(item.TimeRange.PlaybackRate, newRate, RateTolerance) {
		return nil
	}
	afterRange, afterAnim := timeline.RescaleForPlaybackRate(item.TimeRange, item.Animation, newRate)
	cmd := &rateCommand{
		tl:          tl,
		itemID:      itemID,
		beforeRange: item.TimeRange,
		afterRange:  afterRange,
		beforeAnim:  item.Animation,
		afterAnim:   afterAnim,
	}
	return h.Execute(cmd)
}

// SelectionDebouncer suppresses repeat selection commands within a 100 ms
// window, per spec.md §4.3.
type SelectionDebouncer struct {
	lastFire time.Time
	window   time.Duration
}

func NewSelectionDebouncer() *SelectionDebouncer {
	return &SelectionDebouncer{window: 100 * time.Millisecond}
}

// Allow reports whether a selection command fired at now should proceed,
// recording now as the new baseline if so.
func (d *SelectionDebouncer) Allow(now time.Time) bool {
	if now.Sub(d.lastFire) < d.window {
		return false
	}
	d.lastFire = now
	return true
}
