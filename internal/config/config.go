// Package config loads the editor core's configuration from the
// environment, with local-first defaults — there is no remote config
// service, just a handful of env vars and an optional settings.json
// override written by the project itself.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

type PathsConfig struct {
	ProjectsDir string // root directory holding one subdirectory per project
	FFmpegPath  string
	FFprobePath string
}

type ServerConfig struct {
	Port         int
	PairingToken string // shared secret checked on the local HTTP/WS surface; see DESIGN.md
}

func (s ServerConfig) Address() string {
	return "127.0.0.1:" + strconv.Itoa(s.Port)
}

type AutosaveConfig struct {
	DebounceTime    time.Duration
	ThrottleTime    time.Duration
	MaxRetries      int
	Enabled         bool
	OrphanSweepCron string // cron expression for the independent sweep, see SPEC_FULL §4
}

type EngineConfig struct {
	DefaultFrameRate float64
	ThumbnailAtSec   float64 // not read by FFThumbnailer, which seeks to 10% of the clip, at least 1s
}

type QueueConfig struct {
	RedisAddr   string // "" selects the embedded miniredis backend
	Concurrency int
}

type Config struct {
	Paths    PathsConfig
	Server   ServerConfig
	Autosave AutosaveConfig
	Engine   EngineConfig
	Queue    QueueConfig
}

// Load builds the default configuration from the environment, then merges
// any persisted settings.json inside Paths.ProjectsDir (mirrors the
// teacher's Config.MergeFromDB, retargeted at a local file since there is
// no database).
func Load() (*Config, error) {
	cfg := &Config{
		Paths: PathsConfig{
			ProjectsDir: env("REELCORE_PROJECTS_DIR", defaultProjectsDir()),
			FFmpegPath:  env("REELCORE_FFMPEG_PATH", "ffmpeg"),
			FFprobePath: env("REELCORE_FFPROBE_PATH", "ffprobe"),
		},
		Server: ServerConfig{
			Port:         envInt("REELCORE_PORT", 8787),
			PairingToken: env("REELCORE_PAIRING_TOKEN", ""),
		},
		Autosave: AutosaveConfig{
			DebounceTime:    envDuration("REELCORE_AUTOSAVE_DEBOUNCE", 2*time.Second),
			ThrottleTime:    envDuration("REELCORE_AUTOSAVE_THROTTLE", 30*time.Second),
			MaxRetries:      envInt("REELCORE_AUTOSAVE_MAX_RETRIES", 3),
			Enabled:         envBool("REELCORE_AUTOSAVE_ENABLED", true),
			OrphanSweepCron: env("REELCORE_ORPHAN_SWEEP_CRON", "*/15 * * * *"),
		},
		Engine: EngineConfig{
			DefaultFrameRate: 30,
			ThumbnailAtSec:   1.0,
		},
		Queue: QueueConfig{
			RedisAddr:   env("REELCORE_REDIS_ADDR", ""),
			Concurrency: envInt("REELCORE_QUEUE_CONCURRENCY", 4),
		},
	}
	cfg.mergeFromSettingsFile()
	return cfg, nil
}

// settingsOverride is the shape of the optional <projectsDir>/settings.json
// file a running editor may have written from the system-settings UI.
type settingsOverride struct {
	AutosaveDebounceMS int         `json:"autosaveDebounceMs,omitempty"`
	AutosaveThrottleMS int         `json:"autosaveThrottleMs,omitempty"`
	AutosaveEnabled    interface{} `json:"autosaveEnabled,omitempty"`
	FFmpegPath         string      `json:"ffmpegPath,omitempty"`
}

func (c *Config) mergeFromSettingsFile() {
	path := filepath.Join(c.Paths.ProjectsDir, "settings.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var override settingsOverride
	if err := json.Unmarshal(data, &override); err != nil {
		return
	}
	if override.AutosaveDebounceMS > 0 {
		c.Autosave.DebounceTime = time.Duration(override.AutosaveDebounceMS) * time.Millisecond
	}
	if override.AutosaveThrottleMS > 0 {
		c.Autosave.ThrottleTime = time.Duration(override.AutosaveThrottleMS) * time.Millisecond
	}
	if override.AutosaveEnabled != nil {
		if b, err := cast.ToBoolE(override.AutosaveEnabled); err == nil {
			c.Autosave.Enabled = b
		}
	}
	if override.FFmpegPath != "" {
		c.Paths.FFmpegPath = override.FFmpegPath
	}
}

func defaultProjectsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./reelcore-projects"
	}
	return filepath.Join(home, "reelcore", "projects")
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
