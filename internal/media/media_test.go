package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/models"
)

type fakeProber struct {
	result engine.ProbeResult
	err    error
}

func (f fakeProber) Probe(ctx context.Context, path string) (engine.ProbeResult, error) {
	return f.result, f.err
}

type fakeThumbnailer struct{}

func (fakeThumbnailer) GenerateThumbnail(ctx context.Context, id uuid.UUID, path string, d time.Duration) (string, error) {
	return "thumb.jpg", nil
}

func newTestLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	dir := t.TempDir()
	d := NewDecoder(engine.NewNullEngine(), fakeProber{result: engine.ProbeResult{DurationSeconds: 10, Width: 1920, Height: 1080}}, fakeThumbnailer{}, dir, 30)
	lib := NewLibrary(d, zerolog.Nop(), nil)
	return lib, dir
}

func waitForStatus(t *testing.T, lib *Library, id uuid.UUID, want models.MediaStatus) *models.MediaItem {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		item, ok := lib.Get(id)
		require.True(t, ok)
		if item.Status == want {
			return item
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s", want)
	return nil
}

func TestIngestPendingToReady(t *testing.T) {
	lib, dir := newTestLibrary(t)

	srcPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(srcPath, []byte("fake video bytes"), 0o644))

	id := uuid.New()
	item := &models.MediaItem{
		ID:        id,
		Name:      "clip.mp4",
		CreatedAt: time.Now(),
		MediaType: models.MediaTypeVideo,
		Source:    models.DataSource{Type: models.SourceUserSelected, Status: models.SourceStatusPending, LocalPath: srcPath},
	}
	lib.Add(item)

	got, _ := lib.Get(id)
	require.Equal(t, models.MediaStatusPending, got.Status)

	lib.SetSourceStatus(id, models.SourceStatusAcquired, srcPath)

	ready := waitForStatus(t, lib, id, models.MediaStatusReady)
	require.Equal(t, int64(300), ready.Duration) // 10s * 30fps
	require.NotNil(t, ready.WebAV)
	require.Equal(t, 1920, ready.WebAV.Width)
}

func TestIngestDecodeFailureTransitionsToError(t *testing.T) {
	dir := t.TempDir()
	d := NewDecoder(engine.NewNullEngine(), fakeProber{err: context.DeadlineExceeded}, fakeThumbnailer{}, dir, 30)
	lib := NewLibrary(d, zerolog.Nop(), nil)

	srcPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(srcPath, []byte("bytes"), 0o644))

	id := uuid.New()
	lib.Add(&models.MediaItem{
		ID:        id,
		MediaType: models.MediaTypeVideo,
		Source:    models.DataSource{Status: models.SourceStatusPending, LocalPath: srcPath},
	})
	lib.SetSourceStatus(id, models.SourceStatusAcquired, srcPath)

	waitForStatus(t, lib, id, models.MediaStatusError)
}

func TestImageDurationIsFixedFiveSeconds(t *testing.T) {
	lib, dir := newTestLibrary(t)
	srcPath := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("pixels"), 0o644))

	id := uuid.New()
	lib.Add(&models.MediaItem{
		ID:        id,
		MediaType: models.MediaTypeImage,
		Source:    models.DataSource{Status: models.SourceStatusPending, LocalPath: srcPath},
	})
	lib.SetSourceStatus(id, models.SourceStatusAcquired, srcPath)

	ready := waitForStatus(t, lib, id, models.MediaStatusReady)
	require.Equal(t, int64(150), ready.Duration) // 5s * 30fps
}

func TestAudioItemGetsStaticThumbnailIcon(t *testing.T) {
	lib, dir := newTestLibrary(t)
	srcPath := filepath.Join(dir, "track.mp3")
	require.NoError(t, os.WriteFile(srcPath, []byte("audio bytes"), 0o644))

	id := uuid.New()
	lib.Add(&models.MediaItem{
		ID:        id,
		MediaType: models.MediaTypeAudio,
		Source:    models.DataSource{Status: models.SourceStatusPending, LocalPath: srcPath},
	})
	lib.SetSourceStatus(id, models.SourceStatusAcquired, srcPath)

	ready := waitForStatus(t, lib, id, models.MediaStatusReady)
	require.Equal(t, audioThumbnailIconURL, ready.WebAV.ThumbnailURL)
}

func TestRemoveCascadesCleanup(t *testing.T) {
	lib, _ := newTestLibrary(t)
	id := uuid.New()
	lib.Add(&models.MediaItem{ID: id, Source: models.DataSource{Status: models.SourceStatusPending}})

	var cleaned uuid.UUID
	lib.Remove(id, func(mediaID uuid.UUID) { cleaned = mediaID })

	require.Equal(t, id, cleaned)
	_, ok := lib.Get(id)
	require.False(t, ok)
}
