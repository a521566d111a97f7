// Package project orchestrates save/load of a UnifiedProjectConfig
// against the local filesystem (spec.md §4.5/§6): JSON config plus a media
// subdirectory, written atomically, loaded in two phases so the UI can
// render a settings shell before the (potentially slow) media rebuild
// completes.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/novaforge/reelcore/internal/media"
	"github.com/novaforge/reelcore/internal/metrics"
	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/projectindex"
	"github.com/novaforge/reelcore/internal/timeline"
	"github.com/novaforge/reelcore/internal/track"
)

const configFileName = "project.json"

// ProgressStage names a loadProjectContent phase for updateLoadingProgress
// (spec.md §4.5).
type ProgressStage string

const (
	StageConfig   ProgressStage = "config"
	StageMedia    ProgressStage = "media"
	StageTracks   ProgressStage = "tracks"
	StageTimeline ProgressStage = "timeline"
	StageDone     ProgressStage = "done"
)

// ProgressFunc reports load progress; pct is 0-100.
type ProgressFunc func(stage ProgressStage, pct int, details string)

// finalResetDelay matches spec.md §4.5's "the final reset is delayed
// 300ms so the 100% state is visible".
const finalResetDelay = 300 * time.Millisecond

type Manager struct {
	projectsDir string
	log         zerolog.Logger
	index       *projectindex.Index

	saving bool
}

func NewManager(projectsDir string, index *projectindex.Index, log zerolog.Logger) *Manager {
	return &Manager{projectsDir: projectsDir, log: log, index: index}
}

func (m *Manager) dir(id uuid.UUID) string {
	return filepath.Join(m.projectsDir, id.String())
}

func (m *Manager) MediaDir(id uuid.UUID) string {
	return filepath.Join(m.dir(id), "media")
}

func (m *Manager) configPath(id uuid.UUID) string {
	return filepath.Join(m.dir(id), configFileName)
}

// Create initializes a brand-new project directory with default settings
// and no tracks, returning the seed config for the caller to hand to the
// track/timeline/media registries; the registry seeds the default tracks.
func (m *Manager) Create(name string) (*models.UnifiedProjectConfig, error) {
	id := uuid.New()
	now := time.Now()
	cfg := &models.UnifiedProjectConfig{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		Settings: models.ProjectSettings{
			VideoResolution: models.DefaultVideoResolution(),
			FrameRate:       30,
		},
	}
	if err := os.MkdirAll(m.MediaDir(id), 0o755); err != nil {
		return nil, fmt.Errorf("project: create: %w", err)
	}
	if err := m.writeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveInputs is everything a save assembles into a UnifiedProjectConfig;
// the caller (registry/api layer) supplies live snapshots from each
// module's own state.
type SaveInputs struct {
	Base       *models.UnifiedProjectConfig // id/name/description/settings carried forward
	Tracks     []*models.Track
	Timeline   []*models.TimelineItem
	MediaItems []*models.MediaItem
}

// Save assembles and atomically writes project.json. Media files
// themselves are already on disk from decode time (spec.md §4.1); save
// never re-copies bytes, only metadata.
func (m *Manager) Save(ctx context.Context, in SaveInputs) (err error) {
	if m.saving {
		return nil
	}
	m.saving = true
	started := time.Now()
	defer func() {
		m.saving = false
		metrics.ProjectSaveDuration.Observe(time.Since(started).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ProjectSavesTotal.WithLabelValues(outcome).Inc()
	}()

	cfg := *in.Base
	cfg.UpdatedAt = time.Now()

	cfg.Timeline.Tracks = make([]*models.Track, len(in.Tracks))
	for i, t := range in.Tracks {
		cfg.Timeline.Tracks[i] = t.Clone()
	}

	cfg.Timeline.TimelineItems = make([]*models.TimelineItem, len(in.Timeline))
	for i, item := range in.Timeline {
		cfg.Timeline.TimelineItems[i] = item.PersistentCopy()
	}

	cfg.Timeline.MediaItems = make([]*models.MediaItem, len(in.MediaItems))
	for i, item := range in.MediaItems {
		cfg.Timeline.MediaItems[i] = item.PersistentCopy()
	}

	if err := m.writeConfig(&cfg); err != nil {
		return err
	}

	if m.index != nil {
		if err := m.index.Upsert(projectindex.Entry{ID: cfg.ID, Name: cfg.Name, Thumbnail: cfg.Thumbnail, UpdatedAt: cfg.UpdatedAt}); err != nil {
			m.log.Warn().Err(err).Msg("project: catalogue upsert failed, save itself still succeeded")
		}
	}
	return nil
}

func (m *Manager) writeConfig(cfg *models.UnifiedProjectConfig) error {
	if err := os.MkdirAll(m.dir(cfg.ID), 0o755); err != nil {
		return fmt.Errorf("project: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("project: marshal: %w", err)
	}
	if err := renameio.WriteFile(m.configPath(cfg.ID), data, 0o644); err != nil {
		return fmt.Errorf("project: write: %w", err)
	}
	return nil
}

// PreloadProjectSettings reads and deserialises project.json and fills in
// id/name/timestamps/resolution/frame-rate, letting the UI render a
// settings shell immediately. It installs no tracks: saved tracks arrive
// later via LoadProjectContent, and a config without tracks gets no
// default set here.
func (m *Manager) PreloadProjectSettings(id uuid.UUID) (*models.UnifiedProjectConfig, error) {
	data, err := os.ReadFile(m.configPath(id))
	if err != nil {
		return nil, fmt.Errorf("project: preload: %w", err)
	}
	var cfg models.UnifiedProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("project: preload: parse: %w", err)
	}
	return &cfg, nil
}

// LoadContentInputs wires the registries LoadProjectContent populates.
type LoadContentInputs struct {
	Tracks   *track.Registry
	Timeline *timeline.Timeline
	Media    *media.Library
	OnProgress ProgressFunc
}

// LoadProjectContent is the progressive load described in spec.md §4.5:
// reload the authoritative config, rebuild media items (missing files
// become "missing"-status items instead of being dropped), restore
// tracks, then restore timeline items, validating each against its
// referenced track/media.
func (m *Manager) LoadProjectContent(ctx context.Context, id uuid.UUID, in LoadContentInputs) error {
	report := func(stage ProgressStage, pct int, details string) {
		if in.OnProgress != nil {
			in.OnProgress(stage, pct, details)
		}
	}

	report(StageConfig, 0, "reading project.json")
	cfg, err := m.PreloadProjectSettings(id)
	if err != nil {
		return err
	}

	report(StageMedia, 20, "rebuilding media items")
	mediaByID := make(map[uuid.UUID]*models.MediaItem, len(cfg.Timeline.MediaItems))
	for _, saved := range cfg.Timeline.MediaItems {
		item := saved.Clone()
		mediaByID[item.ID] = item

		localPath, ok := m.resolveMediaReference(id, saved.Source.MediaReferenceID)
		if !ok {
			item.Status = models.MediaStatusMissing
			item.Source.Status = models.SourceStatusMissing
			in.Media.Add(item)
			continue
		}
		item.Source.LocalPath = localPath
		item.Source.Status = models.SourceStatusPending
		in.Media.Add(item)
		in.Media.SetSourceStatus(item.ID, models.SourceStatusAcquired, localPath)
	}

	report(StageTracks, 50, "restoring tracks")
	for _, saved := range cfg.Timeline.Tracks {
		in.Tracks.Add(saved.Clone())
	}

	report(StageTimeline, 70, "restoring timeline items")
	for _, saved := range cfg.Timeline.TimelineItems {
		item := saved.Clone()

		if _, ok := in.Tracks.Get(item.TrackID); !ok {
			m.log.Warn().Str("item", item.ID.String()).Msg("project: timeline item references missing track, dropping")
			continue
		}
		if item.MediaType != models.MediaTypeText {
			mediaItem, ok := mediaByID[item.MediaItemID]
			if !ok {
				m.log.Warn().Str("item", item.ID.String()).Msg("project: timeline item references missing media, dropping")
				continue
			}
			if mediaItem.Status == models.MediaStatusMissing {
				item.Status = models.TimelineStatusError
				item.ErrorMessage = "referenced media is missing"
			} else if mediaItem.Status != models.MediaStatusReady {
				item.Status = models.TimelineStatusLoading
			}
		}

		if err := in.Timeline.Add(item); err != nil {
			m.log.Warn().Str("item", item.ID.String()).Err(err).Msg("project: failed to restore timeline item")
		}
	}

	report(StageDone, 100, "load complete")
	time.AfterFunc(finalResetDelay, func() { report(StageDone, 100, "") })
	return nil
}

// resolveMediaReference maps a persisted mediaReferenceId to the
// still-on-disk file, if any.
func (m *Manager) resolveMediaReference(projectID uuid.UUID, referenceID string) (string, bool) {
	if referenceID == "" {
		return "", false
	}
	refDir := filepath.Join(m.MediaDir(projectID), referenceID)
	entries, err := os.ReadDir(refDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".json" {
			continue
		}
		return filepath.Join(refDir, e.Name()), true
	}
	return "", false
}

// Delete removes a project's entire directory tree and its catalogue
// entry. It is irreversible; callers are expected to confirm with the
// user before calling it.
func (m *Manager) Delete(id uuid.UUID) error {
	if err := os.RemoveAll(m.dir(id)); err != nil {
		return fmt.Errorf("project: delete: %w", err)
	}
	if m.index != nil {
		if err := m.index.Remove(id); err != nil {
			m.log.Warn().Err(err).Msg("project: catalogue remove failed, directory still deleted")
		}
	}
	return nil
}

// OrphanSweep removes media reference directories no longer referenced by
// any MediaItem, run after every successful autosave (spec.md §4.6) and
// independently on a cron schedule (SPEC_FULL §4).
func (m *Manager) OrphanSweep(ctx context.Context, projectID uuid.UUID, liveReferenceIDs map[string]struct{}) (int, error) {
	mediaDir := m.MediaDir(projectID)
	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		return 0, fmt.Errorf("project: orphan sweep: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, live := liveReferenceIDs[e.Name()]; live {
			continue
		}
		if err := os.RemoveAll(filepath.Join(mediaDir, e.Name())); err != nil {
			m.log.Warn().Str("ref", e.Name()).Err(err).Msg("project: orphan sweep failed to remove")
			continue
		}
		removed++
	}
	metrics.OrphanSweepRemovedTotal.Add(float64(removed))
	return removed, nil
}
