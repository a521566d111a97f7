package registry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/novaforge/reelcore/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Paths: config.PathsConfig{
			ProjectsDir: t.TempDir(),
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Server: config.ServerConfig{Port: 8787},
		Autosave: config.AutosaveConfig{
			DebounceTime:    0,
			ThrottleTime:    0,
			MaxRetries:      1,
			Enabled:         false,
			OrphanSweepCron: "",
		},
		Engine: config.EngineConfig{DefaultFrameRate: 30},
		Queue:  config.QueueConfig{RedisAddr: "", Concurrency: 1},
	}
}

func TestNewWiresPhaseOneModules(t *testing.T) {
	cfg := newTestConfig(t)
	r, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	require.NotNil(t, r.Playback)
	require.NotNil(t, r.Notify)
	require.NotNil(t, r.Tracks)
	require.NotNil(t, r.Engine)
	require.NotNil(t, r.Queue)
	require.NotNil(t, r.Index)
}

func TestCreateProjectWiresPhaseTwoModules(t *testing.T) {
	cfg := newTestConfig(t)
	r, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	created, err := r.CreateProject(context.Background(), "Test Project")
	require.NoError(t, err)
	require.Equal(t, "Test Project", created.Name)

	require.NotNil(t, r.Timeline)
	require.NotNil(t, r.Media)
	require.NotNil(t, r.Viewport)
	require.NotNil(t, r.History)
	require.NotNil(t, r.Autosave)
	require.Len(t, r.Tracks.List(), 3) // default video/audio/text track layout seeded on create
}

func TestSaveCurrentProjectRoundTrips(t *testing.T) {
	cfg := newTestConfig(t)
	r, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	created, err := r.CreateProject(context.Background(), "Saveable")
	require.NoError(t, err)

	require.NoError(t, r.saveCurrentProject(context.Background()))

	reloaded, err := r.Project.PreloadProjectSettings(created.ID)
	require.NoError(t, err)
	require.Equal(t, "Saveable", reloaded.Name)
}
