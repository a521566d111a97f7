package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// wsCall is one request sent to the browser's canvas runtime, mirroring
// the request/response envelope the teacher's WSHub uses for broadcast
// messages, but correlated by id since canvas calls need a reply.
type wsCall struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type wsReply struct {
	ID     uint64          `json:"id"`
	Event  string          `json:"event,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WSBridge proxies CanvasEngine calls to a single connected browser tab
// over a WebSocket, since the real decoder/compositor (WebAV/Fabric) only
// exists client-side; see spec.md §0 and §4.4. Exactly one browser session
// owns the canvas at a time, matching the editor's single-user model.
type WSBridge struct {
	conn   *websocket.Conn
	log    zerolog.Logger
	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan wsReply

	events chan PlaybackEvent
}

func NewWSBridge(conn *websocket.Conn, log zerolog.Logger) *WSBridge {
	b := &WSBridge{
		conn:    conn,
		log:     log,
		pending: make(map[uint64]chan wsReply),
		events:  make(chan PlaybackEvent, 64),
	}
	go b.readLoop()
	return b
}

func (b *WSBridge) readLoop() {
	ctx := context.Background()
	for {
		var reply wsReply
		if err := wsjson.Read(ctx, b.conn, &reply); err != nil {
			b.log.Warn().Err(err).Msg("canvas bridge connection closed")
			b.mu.Lock()
			for _, ch := range b.pending {
				close(ch)
			}
			b.pending = make(map[uint64]chan wsReply)
			b.mu.Unlock()
			close(b.events)
			return
		}

		if reply.Event != "" {
			b.dispatchEvent(reply)
			continue
		}

		b.mu.Lock()
		ch, ok := b.pending[reply.ID]
		if ok {
			delete(b.pending, reply.ID)
		}
		b.mu.Unlock()
		if ok {
			ch <- reply
			close(ch)
		}
	}
}

func (b *WSBridge) dispatchEvent(reply wsReply) {
	var payload struct {
		TimeSeconds float64          `json:"timeSeconds"`
		Sprite      string           `json:"sprite"`
		Transform   *SpriteTransform `json:"transform"`
	}
	_ = json.Unmarshal(reply.Result, &payload)
	ev := PlaybackEvent{
		Kind:        PlaybackEventKind(reply.Event),
		TimeSeconds: payload.TimeSeconds,
		Sprite:      SpriteID(payload.Sprite),
		Transform:   payload.Transform,
	}
	select {
	case b.events <- ev:
	default:
		b.log.Warn().Str("event", reply.Event).Msg("canvas event channel full, dropping")
	}
}

func (b *WSBridge) call(ctx context.Context, method string, params any, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("engine: marshal %s params: %w", method, err)
	}
	id := b.nextID.Add(1)
	ch := make(chan wsReply, 1)
	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()

	if err := wsjson.Write(ctx, b.conn, wsCall{ID: id, Method: method, Params: raw}); err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return fmt.Errorf("engine: send %s: %w", method, err)
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return fmt.Errorf("engine: connection closed awaiting %s", method)
		}
		if reply.Error != "" {
			return fmt.Errorf("engine: %s: %s", method, reply.Error)
		}
		if out != nil {
			return json.Unmarshal(reply.Result, out)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *WSBridge) CreateCanvasContainer(ctx context.Context, widthPx, heightPx int) error {
	return b.call(ctx, "createCanvasContainer", map[string]int{"width": widthPx, "height": heightPx}, nil)
}

func (b *WSBridge) InitializeCanvas(ctx context.Context) error {
	return b.call(ctx, "initializeCanvas", nil, nil)
}

func (b *WSBridge) DestroyCanvas(ctx context.Context) error {
	return b.call(ctx, "destroyCanvas", nil, nil)
}

func (b *WSBridge) RecreateCanvas(ctx context.Context, widthPx, heightPx int) error {
	return b.call(ctx, "recreateCanvas", map[string]int{"width": widthPx, "height": heightPx}, nil)
}

func (b *WSBridge) createClip(ctx context.Context, method, sourcePath string) (ClipHandle, error) {
	var out struct {
		Handle string `json:"handle"`
	}
	if err := b.call(ctx, method, map[string]string{"sourcePath": sourcePath}, &out); err != nil {
		return "", err
	}
	return ClipHandle(out.Handle), nil
}

func (b *WSBridge) CreateMP4Clip(ctx context.Context, sourcePath string) (ClipHandle, error) {
	return b.createClip(ctx, "createMP4Clip", sourcePath)
}

func (b *WSBridge) CreateImgClip(ctx context.Context, sourcePath string) (ClipHandle, error) {
	return b.createClip(ctx, "createImgClip", sourcePath)
}

func (b *WSBridge) CreateAudioClip(ctx context.Context, sourcePath string) (ClipHandle, error) {
	return b.createClip(ctx, "createAudioClip", sourcePath)
}

func (b *WSBridge) CloneClip(ctx context.Context, handle ClipHandle) (ClipHandle, error) {
	var out struct {
		Handle string `json:"handle"`
	}
	if err := b.call(ctx, "cloneClip", map[string]string{"handle": string(handle)}, &out); err != nil {
		return "", err
	}
	return ClipHandle(out.Handle), nil
}

func (b *WSBridge) AddSprite(ctx context.Context, clip ClipHandle, kind ClipKind, transform SpriteTransform) (SpriteID, error) {
	var out struct {
		Sprite string `json:"sprite"`
	}
	params := map[string]any{"clip": string(clip), "kind": string(kind), "transform": transform}
	if err := b.call(ctx, "addSprite", params, &out); err != nil {
		return "", err
	}
	return SpriteID(out.Sprite), nil
}

func (b *WSBridge) RemoveSprite(ctx context.Context, sprite SpriteID) error {
	return b.call(ctx, "removeSprite", map[string]string{"sprite": string(sprite)}, nil)
}

func (b *WSBridge) UpdateSprite(ctx context.Context, sprite SpriteID, transform SpriteTransform) error {
	params := map[string]any{"sprite": string(sprite), "transform": transform}
	return b.call(ctx, "updateSprite", params, nil)
}

func (b *WSBridge) Play(ctx context.Context) error  { return b.call(ctx, "play", nil, nil) }
func (b *WSBridge) Pause(ctx context.Context) error { return b.call(ctx, "pause", nil, nil) }

func (b *WSBridge) SeekTo(ctx context.Context, seconds float64, sourceInitiated bool) error {
	params := map[string]any{"seconds": seconds, "sourceInitiated": sourceInitiated}
	return b.call(ctx, "seekTo", params, nil)
}

func (b *WSBridge) Events() <-chan PlaybackEvent { return b.events }
