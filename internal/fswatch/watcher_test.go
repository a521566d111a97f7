package fswatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnRemoveAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(target, []byte("bytes"), 0o644))

	removed := make(chan string, 1)
	w, err := New(dir, func(path string) { removed <- path }, nil, zerolog.Nop())
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.Remove(target))

	select {
	case path := <-removed:
		require.Equal(t, target, path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal callback")
	}
}

func TestWatcherFiresOnCreate(t *testing.T) {
	dir := t.TempDir()

	created := make(chan string, 1)
	w, err := New(dir, func(string) {}, func(path string) { created <- path }, zerolog.Nop())
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	target := filepath.Join(dir, "new.mp4")
	require.NoError(t, os.WriteFile(target, []byte("bytes"), 0o644))

	select {
	case path := <-created:
		require.Equal(t, target, path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for create callback")
	}
}

func TestWatcherStopReturnsAfterStart(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, func(string) {}, nil, zerolog.Nop())
	require.NoError(t, err)
	w.Start()
	w.Stop()
}
