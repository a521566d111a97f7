package notify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingCapsAtFive(t *testing.T) {
	r := NewRing()
	for i := 0; i < 8; i++ {
		r.Push(LevelInfo, uniqueMsg(i))
	}
	require.Len(t, r.Items(), ringCapacity)
}

func TestRingDeduplicatesNonErrors(t *testing.T) {
	r := NewRing()
	r.Success("saved")
	r.Success("saved")
	r.Success("saved")
	require.Len(t, r.Items(), 1)
}

func TestRingNeverDeduplicatesErrors(t *testing.T) {
	r := NewRing()
	r.Error("decode failed")
	r.Error("decode failed")
	require.Len(t, r.Items(), 2)
}

func TestRingNotifiesListeners(t *testing.T) {
	r := NewRing()
	var gotLen int
	r.Subscribe(func(items []Notification) { gotLen = len(items) })
	r.Info("hello")
	require.Equal(t, 1, gotLen)
}

func uniqueMsg(i int) string {
	return string(rune('a' + i))
}
