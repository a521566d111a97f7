package playback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/engine"
)

func TestAdapterSeekToUpdatesModelAndSuppressesEcho(t *testing.T) {
	model := New()
	eng := engine.NewNullEngine()
	a := NewAdapter(model, eng, 30)
	go func() {
		for ev := range eng.Events() {
			a.HandleEngineEvent(ev)
		}
	}()

	require.NoError(t, a.SeekTo(context.Background(), 60))
	require.Equal(t, int64(60), model.CurrentFrame)

	// The engine's own timeupdate echo for this seek must not move the
	// frame again once it lands, confirming the suppression window held.
	require.Never(t, func() bool {
		return model.CurrentFrame != 60
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestAdapterPlayPauseUpdateModel(t *testing.T) {
	model := New()
	eng := engine.NewNullEngine()
	a := NewAdapter(model, eng, 30)

	require.NoError(t, a.Play(context.Background()))
	require.True(t, model.IsPlaying)

	require.NoError(t, a.Pause(context.Background()))
	require.False(t, model.IsPlaying)
}

func TestAdapterStopPausesAndSeeksZero(t *testing.T) {
	model := New()
	eng := engine.NewNullEngine()
	a := NewAdapter(model, eng, 30)

	require.NoError(t, a.Play(context.Background()))
	require.NoError(t, a.SeekTo(context.Background(), 90))
	require.NoError(t, a.Stop(context.Background()))

	require.False(t, model.IsPlaying)
	require.Equal(t, int64(0), model.CurrentFrame)
}

func TestAdapterHandleEngineEventIgnoresTimeUpdateDuringSeek(t *testing.T) {
	model := New()
	a := NewAdapter(model, nil, 30)

	a.mu.Lock()
	a.seeking = true
	a.mu.Unlock()

	a.HandleEngineEvent(engine.PlaybackEvent{Kind: engine.EventTimeUpdate, TimeSeconds: 5})
	require.Equal(t, int64(0), model.CurrentFrame)

	a.mu.Lock()
	a.seeking = false
	a.mu.Unlock()

	a.HandleEngineEvent(engine.PlaybackEvent{Kind: engine.EventTimeUpdate, TimeSeconds: 5})
	require.Equal(t, int64(150), model.CurrentFrame)
}
