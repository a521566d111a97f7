package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// NullEngine is an in-memory CanvasEngine with no pixels behind it, used
// in tests and whenever no browser session is attached. It tracks enough
// bookkeeping (sprite existence, current transform) to let the timeline
// and command packages exercise the full contract.
type NullEngine struct {
	mu      sync.Mutex
	sprites map[SpriteID]SpriteTransform
	events  chan PlaybackEvent
	playing bool
	seeking bool
}

func NewNullEngine() *NullEngine {
	return &NullEngine{
		sprites: make(map[SpriteID]SpriteTransform),
		events:  make(chan PlaybackEvent, 64),
	}
}

func (e *NullEngine) CreateCanvasContainer(ctx context.Context, widthPx, heightPx int) error { return nil }
func (e *NullEngine) InitializeCanvas(ctx context.Context) error                             { return nil }

func (e *NullEngine) DestroyCanvas(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sprites = make(map[SpriteID]SpriteTransform)
	return nil
}

func (e *NullEngine) RecreateCanvas(ctx context.Context, widthPx, heightPx int) error {
	return e.DestroyCanvas(ctx)
}

func (e *NullEngine) CreateMP4Clip(ctx context.Context, sourcePath string) (ClipHandle, error) {
	return ClipHandle("mp4:" + sourcePath), nil
}

func (e *NullEngine) CreateImgClip(ctx context.Context, sourcePath string) (ClipHandle, error) {
	return ClipHandle("img:" + sourcePath), nil
}

func (e *NullEngine) CreateAudioClip(ctx context.Context, sourcePath string) (ClipHandle, error) {
	return ClipHandle("audio:" + sourcePath), nil
}

func (e *NullEngine) CloneClip(ctx context.Context, handle ClipHandle) (ClipHandle, error) {
	return handle, nil
}

func (e *NullEngine) AddSprite(ctx context.Context, clip ClipHandle, kind ClipKind, transform SpriteTransform) (SpriteID, error) {
	id := SpriteID(uuid.New().String())
	e.mu.Lock()
	e.sprites[id] = transform
	e.mu.Unlock()
	return id, nil
}

func (e *NullEngine) RemoveSprite(ctx context.Context, sprite SpriteID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sprites[sprite]; !ok {
		return fmt.Errorf("engine: unknown sprite %s", sprite)
	}
	delete(e.sprites, sprite)
	return nil
}

func (e *NullEngine) UpdateSprite(ctx context.Context, sprite SpriteID, transform SpriteTransform) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sprites[sprite]; !ok {
		return fmt.Errorf("engine: unknown sprite %s", sprite)
	}
	e.sprites[sprite] = transform
	e.emit(PlaybackEvent{Kind: EventPropsChange, Sprite: sprite, Transform: &transform})
	return nil
}

func (e *NullEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()
	e.emit(PlaybackEvent{Kind: EventPlaying})
	return nil
}

func (e *NullEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	e.emit(PlaybackEvent{Kind: EventPaused})
	return nil
}

// SeekTo echoes a timeupdate only when sourceInitiated is true. The
// playback.Adapter passes true and drops that echo within its suppression
// window, which is what breaks the UI -> model -> engine -> timeupdate ->
// model feedback cycle described in spec.md §4.4.
func (e *NullEngine) SeekTo(ctx context.Context, seconds float64, sourceInitiated bool) error {
	e.mu.Lock()
	if e.seeking {
		e.mu.Unlock()
		return nil
	}
	e.seeking = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.seeking = false
		e.mu.Unlock()
	}()

	if sourceInitiated {
		e.emit(PlaybackEvent{Kind: EventTimeUpdate, TimeSeconds: seconds})
	}
	return nil
}

func (e *NullEngine) Events() <-chan PlaybackEvent { return e.events }

func (e *NullEngine) emit(ev PlaybackEvent) {
	select {
	case e.events <- ev:
	default:
	}
}
