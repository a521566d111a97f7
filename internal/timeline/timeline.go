// Package timeline owns the ordered set of TimelineItems and the
// bidirectional synchronisation contract between each ready item and its
// canvas sprite (spec.md §4.2) — the most subtle part of the editor core.
//
// Animatable visual properties flow UI -> sprite -> item: the UI mutates
// the sprite directly, the engine emits a propsChange event, and a
// listener here translates canvas coordinates into project coordinates and
// writes them into item.Config. The inverse path, for programmatic edits,
// is UpdateTransform, which writes to the sprite and lets the same
// propsChange listener update the item — so there is exactly one place
// that ever mutates item.Config.Visual.
package timeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/track"
)

// Listener is notified whenever a TimelineItem changes, whether from a
// direct API call or from the sprite sync loop.
type Listener func(item *models.TimelineItem)

type Timeline struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.TimelineItem
	order []uuid.UUID

	eng    engine.CanvasEngine
	tracks *track.Registry
	log    zerolog.Logger

	listenMu  sync.Mutex
	listeners []Listener

	playbackListenMu  sync.Mutex
	playbackListeners []PlaybackListener

	// canvasWidth/Height are needed to translate the engine's top-left
	// canvas coordinates into project coordinates, whose origin is the
	// canvas centre.
	canvasWidth, canvasHeight float64
}

func New(eng engine.CanvasEngine, tracks *track.Registry, log zerolog.Logger, canvasWidth, canvasHeight float64) *Timeline {
	tl := &Timeline{
		items:        make(map[uuid.UUID]*models.TimelineItem),
		eng:          eng,
		tracks:       tracks,
		log:          log,
		canvasWidth:  canvasWidth,
		canvasHeight: canvasHeight,
	}
	go tl.consumeEngineEvents()
	return tl
}

// SetEngine swaps the canvas engine a running timeline drives, used when a
// browser tab attaches after the project was already opened against the
// headless NullEngine. Existing sprite handles are left in place; the new
// engine is expected to have rebuilt sprites for every ready item already
// (e.g. via a RecreateCanvas-driven reload) before AttachBrowser is
// called.
func (tl *Timeline) SetEngine(eng engine.CanvasEngine) {
	tl.mu.Lock()
	tl.eng = eng
	tl.mu.Unlock()
	go tl.consumeEngineEvents()
}

func (tl *Timeline) Subscribe(l Listener) {
	tl.listenMu.Lock()
	defer tl.listenMu.Unlock()
	tl.listeners = append(tl.listeners, l)
}

func (tl *Timeline) notify(item *models.TimelineItem) {
	tl.listenMu.Lock()
	listeners := append([]Listener(nil), tl.listeners...)
	tl.listenMu.Unlock()
	snapshot := item.Clone()
	for _, l := range listeners {
		l(snapshot)
	}
}

// PlaybackListener is notified of every engine playback event that is not a
// sprite propsChange, the raw feed a playback.Adapter consumes to update
// Playback.Model and echo-suppress source-initiated seeks (spec.md §4.4).
type PlaybackListener func(ev engine.PlaybackEvent)

// SubscribePlayback registers l to receive playing/paused/timeupdate
// events from the engine this timeline drives. Timeline stays the sole
// reader of the engine's event channel; this is the side-channel that
// lets the playback adapter piggyback on that single consumer instead of
// racing it for events.
func (tl *Timeline) SubscribePlayback(l PlaybackListener) {
	tl.playbackListenMu.Lock()
	defer tl.playbackListenMu.Unlock()
	tl.playbackListeners = append(tl.playbackListeners, l)
}

func (tl *Timeline) notifyPlayback(ev engine.PlaybackEvent) {
	tl.playbackListenMu.Lock()
	listeners := append([]PlaybackListener(nil), tl.playbackListeners...)
	tl.playbackListenMu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

// Add inserts an item, wiring a sprite if it is already ready. If the item
// lacks a track, it is assigned the first track (spec.md §4.2).
func (tl *Timeline) Add(item *models.TimelineItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.TrackID == uuid.Nil {
		first, ok := tl.tracks.First()
		if !ok {
			return fmt.Errorf("timeline: no track available to assign")
		}
		item.TrackID = first.ID
	}

	tl.mu.Lock()
	tl.items[item.ID] = item
	tl.order = append(tl.order, item.ID)
	tl.mu.Unlock()

	if item.Status == models.TimelineStatusReady {
		tl.wireSprite(item)
	}

	tl.notify(item)
	return nil
}

// wireSprite creates a sprite for a ready item. Its track's visibility and
// mute state are not applied to the sprite. Sprite failures are
// best-effort: logged, never surfaced as an Add failure.
func (tl *Timeline) wireSprite(item *models.TimelineItem) {
	ctx := context.Background()
	kind := clipKindFor(item.MediaType)
	transform := transformFor(item, tl.canvasWidth, tl.canvasHeight)

	sprite, err := tl.eng.AddSprite(ctx, engine.ClipHandle(item.ID.String()), kind, transform)
	if err != nil {
		tl.log.Warn().Str("item", item.ID.String()).Err(err).Msg("timeline: failed to wire sprite")
		return
	}

	// Track visibility/mute is not applied here or by any caller: the
	// engine interface has no visibility or mute verb, and SpriteTransform
	// carries neither. A freshly wired sprite starts from the item's
	// last-known config.

	tl.mu.Lock()
	item.Runtime = &models.Runtime{SpriteID: string(sprite)}
	tl.mu.Unlock()
}

func (tl *Timeline) Get(id uuid.UUID) (*models.TimelineItem, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	item, ok := tl.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// GetReady returns the item only if it is in the ready state, per spec.md
// §4.2's getReady operation.
func (tl *Timeline) GetReady(id uuid.UUID) (*models.TimelineItem, bool) {
	item, ok := tl.Get(id)
	if !ok || item.Status != models.TimelineStatusReady {
		return nil, false
	}
	return item, true
}

func (tl *Timeline) List() []*models.TimelineItem {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	out := make([]*models.TimelineItem, 0, len(tl.order))
	for _, id := range tl.order {
		out = append(out, tl.items[id].Clone())
	}
	return out
}

// UpdateRange replaces an item's full TimeRange, clip in/out, playback
// rate and timeline bounds together, rather than just repositioning it.
// Used for trims and speed changes, where the caller has already computed
// a self-consistent range (Testable Property 4) and a mere reposition
// would silently drop the clip-bounds/rate half of the edit.
func (tl *Timeline) UpdateRange(id uuid.UUID, newRange models.TimeRange) error {
	return tl.ApplyRangeAndAnimation(id, newRange, nil)
}

// ApplyRangeAndAnimation replaces an item's TimeRange and, if non-nil, its
// keyframe set in one step, keeping the two in lockstep for undo/redo of a
// playback-rate change (spec.md §8 Scenario S3). A nil animation leaves
// the item's existing keyframes untouched.
func (tl *Timeline) ApplyRangeAndAnimation(id uuid.UUID, newRange models.TimeRange, animation []models.Keyframe) error {
	if newRange.TimelineStartTime < 0 {
		newRange.TimelineEndTime -= newRange.TimelineStartTime
		newRange.TimelineStartTime = 0
	}

	tl.mu.Lock()
	item, ok := tl.items[id]
	if !ok {
		tl.mu.Unlock()
		return fmt.Errorf("timeline: unknown item %s", id)
	}
	item.TimeRange = newRange
	if animation != nil {
		item.Animation = animation
	}
	snapshot := item.Clone()
	tl.mu.Unlock()

	tl.syncTimeRange(snapshot)
	tl.notify(snapshot)
	return nil
}

// RescaleForPlaybackRate computes the TimeRange and keyframe set that
// result from changing a clip's playback rate: clip in/out stay fixed,
// the displayed duration scales inversely with the rate, and every
// keyframe's relative frame scales by the same ratio so its position
// within the clip is preserved (spec.md §8 Scenario S3).
func RescaleForPlaybackRate(before models.TimeRange, animation []models.Keyframe, newRate float64) (models.TimeRange, []models.Keyframe) {
	after := before
	after.PlaybackRate = newRate

	clipDuration := before.ClipEndTime - before.ClipStartTime
	newDuration := int64(float64(clipDuration) / newRate)
	after.TimelineEndTime = after.TimelineStartTime + newDuration

	if len(animation) == 0 {
		return after, animation
	}
	oldDuration := before.Duration()
	ratio := 1.0
	if oldDuration > 0 {
		ratio = float64(newDuration) / float64(oldDuration)
	}
	scaled := make([]models.Keyframe, len(animation))
	for i, kf := range animation {
		scaled[i] = models.Keyframe{
			RelativeFrame: int64(float64(kf.RelativeFrame) * ratio),
			Properties:    kf.Properties,
		}
	}
	return after, scaled
}

// UpdatePosition moves an item to a new start frame (and optionally a new
// track), clamping negative starts to zero and preserving duration.
func (tl *Timeline) UpdatePosition(id uuid.UUID, newFrame int64, newTrackID *uuid.UUID) error {
	if newFrame < 0 {
		newFrame = 0
	}

	tl.mu.Lock()
	item, ok := tl.items[id]
	if !ok {
		tl.mu.Unlock()
		return fmt.Errorf("timeline: unknown item %s", id)
	}
	duration := item.TimeRange.Duration()
	item.TimeRange.TimelineStartTime = newFrame
	item.TimeRange.TimelineEndTime = newFrame + duration
	if newTrackID != nil {
		item.TrackID = *newTrackID
	}
	snapshot := item.Clone()
	tl.mu.Unlock()

	tl.syncTimeRange(snapshot)
	tl.notify(snapshot)
	return nil
}

// syncTimeRange writes the item's time range to its sprite, best-effort.
func (tl *Timeline) syncTimeRange(item *models.TimelineItem) {
	if !item.HasSprite() {
		return
	}
	transform := transformFor(item, tl.canvasWidth, tl.canvasHeight)
	if err := tl.eng.UpdateSprite(context.Background(), engine.SpriteID(item.Runtime.SpriteID), transform); err != nil {
		tl.log.Warn().Str("item", item.ID.String()).Err(err).Msg("timeline: syncTimeRange failed")
	}
}

// UpdateSprite records a new sprite handle against an item, used when the
// canvas rebuilds sprites after a destroy/recreate cycle (spec.md §4.4).
func (tl *Timeline) UpdateSprite(id uuid.UUID, spriteID engine.SpriteID) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	item, ok := tl.items[id]
	if !ok {
		return fmt.Errorf("timeline: unknown item %s", id)
	}
	item.Runtime = &models.Runtime{SpriteID: string(spriteID)}
	return nil
}

// UpdateTransform is the programmatic path into the bidirectional sync
// contract: it writes straight to the sprite (applying centre-preserving
// resize when width/height change), and relies on the propsChange event
// loop below to mirror the result back into item.Config, exactly as a
// UI-driven drag would.
func (tl *Timeline) UpdateTransform(id uuid.UUID, partial PartialTransform) error {
	tl.mu.RLock()
	item, ok := tl.items[id]
	tl.mu.RUnlock()
	if !ok {
		return fmt.Errorf("timeline: unknown item %s", id)
	}
	if !item.HasSprite() || item.Config.Visual == nil {
		return fmt.Errorf("timeline: item %s has no sprite to transform", id)
	}

	current := transformFor(item, tl.canvasWidth, tl.canvasHeight)
	next := partial.apply(current)

	if partial.Width != nil || partial.Height != nil {
		next = centrePreservingResize(current, next)
	}

	if err := tl.eng.UpdateSprite(context.Background(), engine.SpriteID(item.Runtime.SpriteID), next); err != nil {
		tl.log.Warn().Str("item", id.String()).Err(err).Msg("timeline: updateTransform failed")
		return err
	}
	return nil
}

// PartialTransform carries only the animatable fields a caller wants to
// change; nil fields are left untouched.
type PartialTransform struct {
	X, Y, Width, Height, Rotation, Opacity *float64
	ZIndex                                 *int
}

func (p PartialTransform) apply(base engine.SpriteTransform) engine.SpriteTransform {
	if p.X != nil {
		base.X = *p.X
	}
	if p.Y != nil {
		base.Y = *p.Y
	}
	if p.Width != nil {
		base.Width = *p.Width
	}
	if p.Height != nil {
		base.Height = *p.Height
	}
	if p.Rotation != nil {
		base.Rotation = *p.Rotation
	}
	if p.Opacity != nil {
		base.Opacity = *p.Opacity
	}
	if p.ZIndex != nil {
		base.ZIndex = *p.ZIndex
	}
	return base
}

// centrePreservingResize keeps the shape's centre fixed when width/height
// change, shifting X/Y by half the delta in each axis.
func centrePreservingResize(before, after engine.SpriteTransform) engine.SpriteTransform {
	dw := after.Width - before.Width
	dh := after.Height - before.Height
	after.X = before.X - dw/2
	after.Y = before.Y - dh/2
	return after
}

// Remove detaches and destroys the sprite (defensively, even for
// loading/error items that happen to carry one), then splices the item
// out. Sprite teardown failures are logged but never block removal.
func (tl *Timeline) Remove(id uuid.UUID) {
	tl.mu.Lock()
	item, ok := tl.items[id]
	if !ok {
		tl.mu.Unlock()
		return
	}
	delete(tl.items, id)
	for i, oid := range tl.order {
		if oid == id {
			tl.order = append(tl.order[:i], tl.order[i+1:]...)
			break
		}
	}
	tl.mu.Unlock()

	if item.HasSprite() {
		if err := tl.eng.RemoveSprite(context.Background(), engine.SpriteID(item.Runtime.SpriteID)); err != nil {
			tl.log.Warn().Str("item", id.String()).Err(err).Msg("timeline: sprite removal failed")
		}
	}
}

// RemoveByMediaItem is the cascade hook media.Library.Remove invokes: every
// timeline item referencing the removed media id is torn down.
func (tl *Timeline) RemoveByMediaItem(mediaID uuid.UUID) {
	tl.mu.RLock()
	var toRemove []uuid.UUID
	for _, item := range tl.items {
		if item.MediaItemID == mediaID {
			toRemove = append(toRemove, item.ID)
		}
	}
	tl.mu.RUnlock()

	for _, id := range toRemove {
		tl.Remove(id)
	}
}

// PromoteToReady upgrades every loading timeline item referencing mediaID
// to ready and wires its sprite, the live counterpart of the loading ->
// ready reconciliation project.LoadProjectContent performs at load time
// (spec.md §4.5 step 5). Called from the media library's ready
// notification, after the backing MediaItem itself has already become
// ready.
func (tl *Timeline) PromoteToReady(mediaID uuid.UUID) {
	tl.mu.Lock()
	var toWire []*models.TimelineItem
	for _, item := range tl.items {
		if item.MediaItemID == mediaID && item.Status == models.TimelineStatusLoading {
			item.Status = models.TimelineStatusReady
			toWire = append(toWire, item)
		}
	}
	tl.mu.Unlock()

	for _, item := range toWire {
		tl.wireSprite(item)
		tl.notify(item)
	}
}

func clipKindFor(t models.MediaType) engine.ClipKind {
	switch t {
	case models.MediaTypeVideo:
		return engine.ClipMP4
	case models.MediaTypeImage:
		return engine.ClipImage
	case models.MediaTypeAudio:
		return engine.ClipAudio
	default:
		return engine.ClipImage
	}
}

// transformFor converts an item's project-coordinate config (origin at
// canvas centre) into the engine's sprite transform (origin top-left),
// the inverse of what the propsChange listener below does.
func transformFor(item *models.TimelineItem, canvasWidth, canvasHeight float64) engine.SpriteTransform {
	if item.Config.Visual == nil {
		return engine.SpriteTransform{}
	}
	v := item.Config.Visual
	return engine.SpriteTransform{
		X:        v.X + canvasWidth/2,
		Y:        v.Y + canvasHeight/2,
		Width:    v.Width,
		Height:   v.Height,
		Rotation: v.Rotation,
		ZIndex:   v.ZIndex,
		Opacity:  v.Opacity,
	}
}

// consumeEngineEvents is the single listener for the engine's event
// stream. propsChange drives the UI -> sprite -> item half of the
// bidirectional contract described in spec.md §4.2; every other event
// kind (playing/paused/timeupdate) is handed to the playback side-channel
// instead of being discarded, since Timeline is the only safe reader of
// eng.Events().
func (tl *Timeline) consumeEngineEvents() {
	for ev := range tl.eng.Events() {
		if ev.Kind == engine.EventPropsChange {
			if ev.Transform != nil {
				tl.applyPropsChange(ev.Sprite, *ev.Transform)
			}
			continue
		}
		tl.notifyPlayback(ev)
	}
}

func (tl *Timeline) applyPropsChange(sprite engine.SpriteID, transform engine.SpriteTransform) {
	tl.mu.Lock()
	var item *models.TimelineItem
	for _, candidate := range tl.items {
		if candidate.HasSprite() && candidate.Runtime.SpriteID == string(sprite) {
			item = candidate
			break
		}
	}
	if item == nil || item.Config.Visual == nil {
		tl.mu.Unlock()
		return
	}
	item.Config.Visual.X = transform.X - tl.canvasWidth/2
	item.Config.Visual.Y = transform.Y - tl.canvasHeight/2
	item.Config.Visual.Width = transform.Width
	item.Config.Visual.Height = transform.Height
	item.Config.Visual.Rotation = transform.Rotation
	item.Config.Visual.ZIndex = transform.ZIndex
	// Opacity is animatable but historically did not fire its own engine
	// event, so it is mirrored here unconditionally alongside everything
	// else rather than only on a dedicated opacity event (spec.md §4.2).
	item.Config.Visual.Opacity = transform.Opacity
	snapshot := item.Clone()
	tl.mu.Unlock()

	tl.notify(snapshot)
}

// UpdateAudioConfig writes non-animatable audio properties directly to the
// item, bypassing the sprite event loop entirely (spec.md §4.2).
func (tl *Timeline) UpdateAudioConfig(id uuid.UUID, volume *float64, muted *bool, gainDB *float64) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	item, ok := tl.items[id]
	if !ok {
		return fmt.Errorf("timeline: unknown item %s", id)
	}
	if item.Config.Audio == nil {
		item.Config.Audio = &models.AudioConfig{}
	}
	if volume != nil {
		item.Config.Audio.Volume = *volume
	}
	if muted != nil {
		item.Config.Audio.IsMuted = *muted
	}
	if gainDB != nil {
		item.Config.Audio.GainDB = *gainDB
	}
	return nil
}
