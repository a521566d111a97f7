package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullEngineSpriteLifecycle(t *testing.T) {
	ctx := context.Background()
	e := NewNullEngine()

	clip, err := e.CreateMP4Clip(ctx, "/tmp/clip.mp4")
	require.NoError(t, err)

	sprite, err := e.AddSprite(ctx, clip, ClipMP4, SpriteTransform{Width: 100, Height: 50})
	require.NoError(t, err)

	require.NoError(t, e.UpdateSprite(ctx, sprite, SpriteTransform{Width: 200, Height: 50}))
	ev := <-e.Events()
	require.Equal(t, EventPropsChange, ev.Kind)
	require.Equal(t, sprite, ev.Sprite)

	require.NoError(t, e.RemoveSprite(ctx, sprite))
	require.Error(t, e.RemoveSprite(ctx, sprite))
}

func TestNullEngineSeekOnlyEchoesSourceInitiated(t *testing.T) {
	ctx := context.Background()
	e := NewNullEngine()

	require.NoError(t, e.SeekTo(ctx, 5, false))
	select {
	case ev := <-e.Events():
		t.Fatalf("unexpected event for seek with sourceInitiated=false: %+v", ev)
	default:
	}

	require.NoError(t, e.SeekTo(ctx, 5, true))
	ev := <-e.Events()
	require.Equal(t, EventTimeUpdate, ev.Kind)
	require.Equal(t, 5.0, ev.TimeSeconds)
}
