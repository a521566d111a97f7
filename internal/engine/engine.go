// Package engine defines the boundary between the editor core and the
// canvas/compositor that actually decodes and draws frames. spec.md §0
// and §4.4 put the canvas engine out of scope for the core; this package
// is the interface the core consumes plus two implementations: an
// in-memory NullEngine that draws nothing, and a WebSocket bridge that
// proxies canvas calls to a connected browser tab running the real
// WebAV/Fabric canvas. Server-side metadata and thumbnail work goes
// through the ffmpeg-backed FFProber and FFThumbnailer instead.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ClipKind mirrors the sprite flavours the canvas engine can host.
type ClipKind string

const (
	ClipMP4   ClipKind = "mp4"
	ClipImage ClipKind = "img"
	ClipAudio ClipKind = "audio"
)

// ClipHandle is an opaque reference to a decoded clip living inside the
// canvas engine. The core never inspects it, only threads it through
// AddSprite/RemoveSprite/CloneClip.
type ClipHandle string

// SpriteID is an opaque reference to a sprite placed on the canvas.
type SpriteID string

// SpriteTransform carries the subset of sprite geometry the core
// synchronizes bidirectionally per spec.md §4.2.
type SpriteTransform struct {
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64
	ZIndex   int
	Opacity  float64
}

// PlaybackEvent is pushed by the engine on its event stream.
type PlaybackEvent struct {
	Kind         PlaybackEventKind
	TimeSeconds  float64
	Sprite       SpriteID
	Transform    *SpriteTransform
}

type PlaybackEventKind string

const (
	EventPlaying      PlaybackEventKind = "playing"
	EventPaused       PlaybackEventKind = "paused"
	EventTimeUpdate   PlaybackEventKind = "timeupdate"
	EventPropsChange  PlaybackEventKind = "propsChange"
)

// CanvasEngine is implemented by whatever actually owns pixels: a browser
// tab running WebAV/Fabric (via the WS bridge) in production, or the
// in-memory NullEngine when no browser is attached.
//
// A seek can come back from the engine as a timeupdate event. The core
// does not rely on the engine to hold that echo back: playback.Adapter
// drops timeupdate events for a short window after each seek it issues
// (spec.md §4.4), a lock rather than a value diff, since two distinct
// seeks can legitimately land on the same frame.
type CanvasEngine interface {
	CreateCanvasContainer(ctx context.Context, widthPx, heightPx int) error
	InitializeCanvas(ctx context.Context) error
	DestroyCanvas(ctx context.Context) error
	RecreateCanvas(ctx context.Context, widthPx, heightPx int) error

	CreateMP4Clip(ctx context.Context, sourcePath string) (ClipHandle, error)
	CreateImgClip(ctx context.Context, sourcePath string) (ClipHandle, error)
	CreateAudioClip(ctx context.Context, sourcePath string) (ClipHandle, error)
	CloneClip(ctx context.Context, handle ClipHandle) (ClipHandle, error)

	AddSprite(ctx context.Context, clip ClipHandle, kind ClipKind, transform SpriteTransform) (SpriteID, error)
	RemoveSprite(ctx context.Context, sprite SpriteID) error
	UpdateSprite(ctx context.Context, sprite SpriteID, transform SpriteTransform) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// SeekTo moves the playhead. With sourceInitiated true the engine echoes
	// the seek back as a timeupdate event; with it false it does not.
	// playback.Adapter passes true and drops the echo itself; see spec.md §4.4.
	SeekTo(ctx context.Context, seconds float64, sourceInitiated bool) error

	Events() <-chan PlaybackEvent
}

// ProbeResult is what the core needs out of a media file to populate a
// MediaItem: just enough to drive the ingestion state machine and seed
// timeline defaults, not the full container/stream dump a media server
// would want.
type ProbeResult struct {
	DurationSeconds float64
	Width           int
	Height          int
	HasVideo        bool
	HasAudio        bool
	VideoCodec      string
	FrameRate       float64
}

// Prober extracts metadata from a file on disk without decoding it on the
// canvas, used during ingestion (spec.md §4.1) before a sprite exists.
type Prober interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// ThumbnailGenerator produces the single poster-frame JPEG spec.md §4.1
// stores against a MediaItem's WebAV handles.
type ThumbnailGenerator interface {
	GenerateThumbnail(ctx context.Context, mediaID uuid.UUID, sourcePath string, duration time.Duration) (string, error)
}
