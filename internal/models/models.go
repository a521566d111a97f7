// Package models holds the reactive entities shared across the editor core:
// media items, tracks, timeline items and the project they compose into.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Media ────────────────────

type MediaType string

const (
	MediaTypeVideo   MediaType = "video"
	MediaTypeImage   MediaType = "image"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeText    MediaType = "text"
	MediaTypeUnknown MediaType = "unknown"
)

type MediaStatus string

const (
	MediaStatusPending         MediaStatus = "pending"
	MediaStatusAsyncProcessing MediaStatus = "asyncprocessing"
	MediaStatusWebAVDecoding   MediaStatus = "webavdecoding"
	MediaStatusReady           MediaStatus = "ready"
	MediaStatusError           MediaStatus = "error"
	MediaStatusCancelled       MediaStatus = "cancelled"
	MediaStatusMissing         MediaStatus = "missing"
)

// SourceType identifies a DataSource variant.
type SourceType string

const (
	SourceUserSelected     SourceType = "user-selected"
	SourceRemote           SourceType = "remote"
	SourceProjectReference SourceType = "project-reference"
)

type SourceStatus string

const (
	SourceStatusPending   SourceStatus = "pending"
	SourceStatusAcquiring SourceStatus = "acquiring"
	SourceStatusAcquired  SourceStatus = "acquired"
	SourceStatusError     SourceStatus = "error"
	SourceStatusCancelled SourceStatus = "cancelled"
	SourceStatusMissing   SourceStatus = "missing"
)

// DataSource describes how a MediaItem's bytes were (or will be) obtained.
// Only the fields tagged for persistence survive a save/load round trip;
// acquired file handles and object URLs are session-local.
type DataSource struct {
	Type              SourceType   `json:"type"`
	Status            SourceStatus `json:"status"`
	Progress          int          `json:"-"`
	LocalPath         string       `json:"-"`
	RemoteURL         string       `json:"remoteUrl,omitempty"`
	MediaReferenceID  string       `json:"mediaReferenceId,omitempty"`
	acquiredPath      string
}

// PersistentCopy returns the subset of a DataSource that survives
// serialisation: type and, when present, the remote URL and the stable
// reference id.
func (d DataSource) PersistentCopy() DataSource {
	return DataSource{
		Type:             d.Type,
		MediaReferenceID: d.MediaReferenceID,
		RemoteURL:        d.RemoteURL,
	}
}

// WebAVHandles holds the decoded-clip handle for a ready MediaItem plus the
// metadata extracted at decode time. Named after the browser-side decoding
// library this core's sibling frontend uses.
type WebAVHandles struct {
	ClipHandle   string `json:"-"` // opaque handle id into the canvas engine
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// MediaItem is a source asset in the project's media library.
type MediaItem struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
	MediaType MediaType     `json:"mediaType"`
	Status    MediaStatus   `json:"mediaStatus"`
	Duration  int64         `json:"duration"` // frames at project FPS
	Source    DataSource    `json:"source"`
	WebAV     *WebAVHandles `json:"webav,omitempty"`
}

// Clone returns a deep copy safe to mutate independently of the original.
func (m *MediaItem) Clone() *MediaItem {
	c := *m
	if m.WebAV != nil {
		webav := *m.WebAV
		c.WebAV = &webav
	}
	return &c
}

// PersistentCopy strips transient/runtime fields for serialisation.
func (m *MediaItem) PersistentCopy() *MediaItem {
	c := &MediaItem{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		MediaType: m.MediaType,
		Status:    m.Status,
		Duration:  m.Duration,
		Source:    m.Source.PersistentCopy(),
	}
	return c
}

// ──────────────────── Track ────────────────────

type TrackType string

const (
	TrackTypeVideo    TrackType = "video"
	TrackTypeAudio    TrackType = "audio"
	TrackTypeText     TrackType = "text"
	TrackTypeSubtitle TrackType = "subtitle"
	TrackTypeEffect   TrackType = "effect"
)

type Track struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Type       TrackType `json:"type"`
	IsVisible  bool      `json:"isVisible"`
	IsMuted    bool      `json:"isMuted"`
	HeightPx   int       `json:"heightPx"`
}

func (t *Track) Clone() *Track {
	c := *t
	return &c
}

// ──────────────────── TimeRange ────────────────────

// TimeRange is expressed in frame units. For image/text items only
// TimelineStartTime/TimelineEndTime are meaningful; ClipStartTime,
// ClipEndTime and PlaybackRate are zero-valued and ignored.
type TimeRange struct {
	TimelineStartTime int64   `json:"timelineStartTime"`
	TimelineEndTime   int64   `json:"timelineEndTime"`
	ClipStartTime     int64   `json:"clipStartTime,omitempty"`
	ClipEndTime       int64   `json:"clipEndTime,omitempty"`
	PlaybackRate      float64 `json:"playbackRate,omitempty"`
}

func (r TimeRange) Duration() int64 {
	return r.TimelineEndTime - r.TimelineStartTime
}

// Valid reports whether the range satisfies the core invariants from
// Testable Property 3/4: non-negative, non-shrinking, and (for clip-backed
// ranges) duration consistent with playback rate within +/-1 frame.
func (r TimeRange) Valid(hasClip bool) bool {
	if r.TimelineStartTime < 0 || r.TimelineEndTime < r.TimelineStartTime {
		return false
	}
	if !hasClip {
		return true
	}
	if r.PlaybackRate <= 0 {
		return false
	}
	expected := float64(r.ClipEndTime-r.ClipStartTime) / r.PlaybackRate
	actual := float64(r.Duration())
	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1.0001
}

// ──────────────────── TimelineItem ────────────────────

type TimelineStatus string

const (
	TimelineStatusLoading TimelineStatus = "loading"
	TimelineStatusReady   TimelineStatus = "ready"
	TimelineStatusError   TimelineStatus = "error"
)

// VisualConfig carries the project-coordinate-space transform animatable
// properties flow through (see timeline package for the sync contract).
type VisualConfig struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	ZIndex   int     `json:"zIndex"`
}

// AudioConfig properties are non-animatable: they bypass the sprite event
// loop and are written to the item directly.
type AudioConfig struct {
	Volume  float64 `json:"volume"`
	IsMuted bool    `json:"isMuted"`
	GainDB  float64 `json:"gain"`
}

type TextStyle struct {
	Content  string  `json:"content"`
	FontFamily string `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Color      string  `json:"color,omitempty"`
}

// ItemConfig is type-specific: visual items carry Visual, audio items carry
// Audio, video carries both, text carries Visual+Text.
type ItemConfig struct {
	Visual *VisualConfig `json:"visual,omitempty"`
	Audio  *AudioConfig  `json:"audio,omitempty"`
	Text   *TextStyle    `json:"text,omitempty"`
}

// Keyframe is a single animatable-property sample at a frame relative to
// the clip's own start (not the timeline's).
type Keyframe struct {
	RelativeFrame int64              `json:"relativeFrame"`
	Properties    map[string]float64 `json:"properties"`
}

// Runtime holds the sprite handle owned by a ready timeline item. It never
// survives serialisation.
type Runtime struct {
	SpriteID string
}

type TimelineItem struct {
	ID             uuid.UUID      `json:"id"`
	MediaItemID    uuid.UUID      `json:"mediaItemId,omitempty"`
	TrackID        uuid.UUID      `json:"trackId"`
	MediaType      MediaType      `json:"mediaType"`
	Status         TimelineStatus `json:"timelineStatus"`
	TimeRange      TimeRange      `json:"timeRange"`
	Config         ItemConfig     `json:"config"`
	Animation      []Keyframe     `json:"animation,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	Runtime        *Runtime       `json:"-"`
}

func (t *TimelineItem) HasSprite() bool {
	return t.Runtime != nil && t.Runtime.SpriteID != ""
}

// Clone deep-copies a TimelineItem, including config/animation, but never
// the runtime sprite handle — used both for undo snapshots and for
// persistence.
func (t *TimelineItem) Clone() *TimelineItem {
	c := *t
	c.Runtime = nil
	if t.Config.Visual != nil {
		v := *t.Config.Visual
		c.Config.Visual = &v
	}
	if t.Config.Audio != nil {
		a := *t.Config.Audio
		c.Config.Audio = &a
	}
	if t.Config.Text != nil {
		txt := *t.Config.Text
		c.Config.Text = &txt
	}
	if t.Animation != nil {
		c.Animation = make([]Keyframe, len(t.Animation))
		for i, kf := range t.Animation {
			c.Animation[i] = Keyframe{RelativeFrame: kf.RelativeFrame, Properties: cloneFloatMap(kf.Properties)}
		}
	}
	return &c
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// PersistentCopy returns a clone with Runtime cleared for disk storage. It
// is identical to Clone() today but kept distinct because the persistence
// shape and the undo-snapshot shape are conceptually different contracts
// and have diverged before.
func (t *TimelineItem) PersistentCopy() *TimelineItem {
	return t.Clone()
}

// ──────────────────── Project ────────────────────

type VideoResolution struct {
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspectRatio"`
}

type ProjectSettings struct {
	VideoResolution        VideoResolution `json:"videoResolution"`
	FrameRate              float64         `json:"frameRate"`
	TimelineDurationFrames int64           `json:"timelineDurationFrames"`
}

type ProjectTimeline struct {
	Tracks        []*Track        `json:"tracks"`
	TimelineItems []*TimelineItem `json:"timelineItems"`
	MediaItems    []*MediaItem    `json:"mediaItems"`
}

// UnifiedProjectConfig is the root persistence unit written to
// <projectDir>/project.json.
type UnifiedProjectConfig struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Version     int             `json:"version"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Duration    int64           `json:"duration"`
	Settings    ProjectSettings `json:"settings"`
	Timeline    ProjectTimeline `json:"timeline"`
}

// DefaultVideoResolution matches the teacher's "1080p" default library
// preset, reused here as the default project canvas size.
func DefaultVideoResolution() VideoResolution {
	return VideoResolution{Name: "1080p", Width: 1920, Height: 1080, AspectRatio: "16:9"}
}

// MediaSidecar is written alongside every file in the project media
// directory (spec.md §6): the scan index a project-media manager uses to
// rebuild its reference index without re-probing every file.
type MediaSidecar struct {
	OriginalFilename string    `json:"originalFilename"`
	MediaType        MediaType `json:"mediaType"`
	SizeBytes        int64     `json:"sizeBytes"`
	CreatedAt        time.Time `json:"createdAt"`
}
