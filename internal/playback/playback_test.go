package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetCurrentFrameClampsAndRounds(t *testing.T) {
	m := New()
	m.SetCurrentFrame(-5)
	require.Equal(t, int64(0), m.CurrentFrame)

	m.SetCurrentFrame(10.6)
	require.Equal(t, int64(11), m.CurrentFrame)
}

func TestSetPlaybackRateClamps(t *testing.T) {
	m := New()
	m.SetPlaybackRate(20)
	require.Equal(t, MaxRate, m.PlaybackRate)

	m.SetPlaybackRate(0.01)
	require.Equal(t, MinRate, m.PlaybackRate)
}

func TestIsNormalSpeedToleratesFloatDrift(t *testing.T) {
	m := New()
	m.SetPlaybackRate(1.0 + 0.0005)
	require.True(t, m.IsNormalSpeed())

	m.SetPlaybackRate(1.1)
	require.False(t, m.IsNormalSpeed())
}

func TestStopPausesAndSeeksZero(t *testing.T) {
	m := New()
	m.Play()
	m.SetCurrentFrame(100)
	m.Stop()
	require.False(t, m.IsPlaying)
	require.Equal(t, int64(0), m.CurrentFrame)
}
