package playback

import (
	"context"
	"sync"
	"time"

	"github.com/novaforge/reelcore/internal/engine"
)

// echoSuppressWindow is how long a core-initiated seek's engine echo is
// held back after the call returns, per spec.md §4.4. The lock lives here
// rather than inside a single engine implementation, since SeekTo is the
// only path by which UI code is allowed to move the playhead and every
// engine (NullEngine, WSBridge) must honour that the same way.
const echoSuppressWindow = 10 * time.Millisecond

// Adapter is the sole writer of Playback.Model once a project is open,
// translating HTTP-driven intent (seek/play/pause/stop) into engine calls
// and engine events back into Model updates. It exists because spec.md
// §4.4 singles this path out as the most subtle contract in the system:
// without it, a handler that wrote Model directly and an engine echo that
// wrote it again could race and leave the playhead authority ambiguous.
type Adapter struct {
	mu        sync.Mutex
	model     *Model
	eng       engine.CanvasEngine
	frameRate float64

	seeking bool
}

// NewAdapter wires model to eng at frameRate frames per second. frameRate
// is read at construction only; a project's frame rate does not change
// after creation.
func NewAdapter(model *Model, eng engine.CanvasEngine, frameRate float64) *Adapter {
	return &Adapter{model: model, eng: eng, frameRate: frameRate}
}

// SetEngine swaps the engine the adapter drives, mirroring
// registry.Registry.AttachBrowser swapping the canvas engine out from
// under an already-open project.
func (a *Adapter) SetEngine(eng engine.CanvasEngine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eng = eng
}

func (a *Adapter) frameToSeconds(frame int64) float64 {
	if a.frameRate <= 0 {
		return 0
	}
	return float64(frame) / a.frameRate
}

func (a *Adapter) secondsToFrame(seconds float64) float64 {
	return seconds * a.frameRate
}

// SeekTo is the only path by which UI code changes the playhead (spec.md
// §4.4). It updates Model immediately so the HTTP response reflects the
// new frame, then calls through to the engine with sourceInitiated=true
// and holds a short lock so the engine's own timeupdate echo for that seek
// is dropped instead of double-applying the move.
func (a *Adapter) SeekTo(ctx context.Context, frame float64) error {
	a.mu.Lock()
	a.model.SetCurrentFrame(frame)
	a.seeking = true
	eng := a.eng
	seconds := a.frameToSeconds(a.model.CurrentFrame)
	a.mu.Unlock()

	defer time.AfterFunc(echoSuppressWindow, func() {
		a.mu.Lock()
		a.seeking = false
		a.mu.Unlock()
	})

	if eng == nil {
		return nil
	}
	return eng.SeekTo(ctx, seconds, true)
}

func (a *Adapter) Play(ctx context.Context) error {
	a.mu.Lock()
	a.model.Play()
	eng := a.eng
	a.mu.Unlock()
	if eng == nil {
		return nil
	}
	return eng.Play(ctx)
}

func (a *Adapter) Pause(ctx context.Context) error {
	a.mu.Lock()
	a.model.Pause()
	eng := a.eng
	a.mu.Unlock()
	if eng == nil {
		return nil
	}
	return eng.Pause(ctx)
}

// Stop is pause plus seek-to-zero, routed through the same engine calls
// Pause and SeekTo use so the echo-suppression contract still applies.
func (a *Adapter) Stop(ctx context.Context) error {
	if err := a.Pause(ctx); err != nil {
		return err
	}
	return a.SeekTo(ctx, 0)
}

// SetPlaybackRate is not gated by the seek lock: a rate change is not a
// playhead move and the engine has no echo to suppress for it.
func (a *Adapter) SetPlaybackRate(rate float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model.SetPlaybackRate(rate)
}

// HandleEngineEvent is the playback side of timeline.PlaybackListener: it
// folds playing/paused/timeupdate events back into Model, dropping a
// timeupdate that arrives while a source-initiated seek's echo window is
// still open.
func (a *Adapter) HandleEngineEvent(ev engine.PlaybackEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Kind {
	case engine.EventTimeUpdate:
		if a.seeking {
			return
		}
		a.model.SetCurrentFrame(a.secondsToFrame(ev.TimeSeconds))
	case engine.EventPlaying:
		a.model.IsPlaying = true
	case engine.EventPaused:
		a.model.IsPlaying = false
	}
}
