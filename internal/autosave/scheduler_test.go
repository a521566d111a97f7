package autosave

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDebouncedSaveFiresOnceAfterQuiet(t *testing.T) {
	var saveCount atomic.Int32
	cfg := Config{DebounceTime: 30 * time.Millisecond, ThrottleTime: time.Hour, MaxRetries: 3, Enabled: true}
	s := New(cfg, func(ctx context.Context) error {
		saveCount.Add(1)
		return nil
	}, nil, zerolog.Nop())

	s.Start(nil)
	defer s.Stop()

	for i := 0; i < 5; i++ {
		s.NotifyChange()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return saveCount.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestThrottleLeadingEdgeSuppressed(t *testing.T) {
	var saveCount atomic.Int32
	cfg := Config{DebounceTime: 200 * time.Millisecond, ThrottleTime: 50 * time.Millisecond, MaxRetries: 3, Enabled: true}
	s := New(cfg, func(ctx context.Context) error {
		saveCount.Add(1)
		return nil
	}, nil, zerolog.Nop())

	s.Start(nil)
	defer s.Stop()

	// A single change should not fire a save on the throttle gate's leading
	// edge; only the debounce timer's trailing fire should save, once.
	s.NotifyChange()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), saveCount.Load())

	require.Eventually(t, func() bool { return saveCount.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSaveNoOpWhileAlreadySaving(t *testing.T) {
	var saveCount atomic.Int32
	block := make(chan struct{})
	cfg := Config{DebounceTime: time.Millisecond, ThrottleTime: time.Hour, MaxRetries: 3, Enabled: true}
	s := New(cfg, func(ctx context.Context) error {
		saveCount.Add(1)
		<-block
		return nil
	}, nil, zerolog.Nop())

	s.Start(nil)
	defer func() {
		close(block)
		s.Stop()
	}()

	s.NotifyChange()
	time.Sleep(20 * time.Millisecond)
	s.triggerSave(context.Background()) // should be a no-op, save already in flight

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), saveCount.Load())
}

func TestFailedSaveGivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	cfg := Config{DebounceTime: time.Millisecond, ThrottleTime: time.Hour, MaxRetries: 1, Enabled: true}
	s := New(cfg, func(ctx context.Context) error {
		attempts.Add(1)
		return context.DeadlineExceeded
	}, nil, zerolog.Nop())

	s.Start(nil)
	defer s.Stop()

	s.NotifyChange()
	require.Eventually(t, func() bool { return attempts.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, s.State().ErrorCount)
}
