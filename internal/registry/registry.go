// Package registry wires every module into a two-phase bring-up. Phase
// one (New) brings up the modules that do not depend on an open project:
// config, playback, notifications, the canvas engine, prober and
// thumbnailer, the project manager and catalogue, the job queue,
// selection and snap. Phase two (OpenProject) brings up the modules that
// do: a fresh track registry, the media library, timeline, viewport,
// history, the playback adapter, auto-save and the media-directory
// watcher. The media library and tracks are therefore built per project
// in phase two, not in phase one.
package registry

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/novaforge/reelcore/internal/autosave"
	"github.com/novaforge/reelcore/internal/command"
	"github.com/novaforge/reelcore/internal/config"
	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/fswatch"
	"github.com/novaforge/reelcore/internal/jobsqueue"
	"github.com/novaforge/reelcore/internal/logging"
	"github.com/novaforge/reelcore/internal/media"
	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/notify"
	"github.com/novaforge/reelcore/internal/playback"
	"github.com/novaforge/reelcore/internal/project"
	"github.com/novaforge/reelcore/internal/projectindex"
	"github.com/novaforge/reelcore/internal/selection"
	"github.com/novaforge/reelcore/internal/snap"
	"github.com/novaforge/reelcore/internal/timeline"
	"github.com/novaforge/reelcore/internal/track"
	"github.com/novaforge/reelcore/internal/viewport"
)

// Registry holds one of every module, live for exactly one open project
// at a time — mirroring the editor's single-document model (spec.md §2).
type Registry struct {
	Config *config.Config
	Log    zerolog.Logger

	// Built by New, except PlaybackAdapter, Media and the per-project
	// Tracks, which OpenProject builds.
	Playback        *playback.Model
	PlaybackAdapter *playback.Adapter
	Notify          *notify.Ring
	Media    *media.Library
	Tracks   *track.Registry
	Engine   engine.CanvasEngine
	Prober   engine.Prober
	Thumbs   engine.ThumbnailGenerator

	// Built by OpenProject, except Project, Index, Selection, Snap and
	// Queue, which New builds.
	Timeline *timeline.Timeline
	Project  *project.Manager
	Index    *projectindex.Index
	Viewport *viewport.Model
	History  *command.HistoryStack
	Selection *selection.Model
	Snap     *snap.Model
	Autosave *autosave.Scheduler
	Queue    *jobsqueue.Queue
	Watcher  *fswatch.Watcher

	projectID uuid.UUID
}

// New runs phase one: the modules with no dependency on a loaded project.
// The canvas engine starts as a NullEngine; AttachBrowser swaps in a
// WSBridge once the frontend opens its WebSocket connection.
func New(cfg *config.Config, log zerolog.Logger) (*Registry, error) {
	idx, err := projectindex.Open(filepath.Join(cfg.Paths.ProjectsDir, "catalogue.db"))
	if err != nil {
		return nil, fmt.Errorf("registry: open catalogue: %w", err)
	}

	queue, err := jobsqueue.New(cfg.Queue.RedisAddr, cfg.Queue.Concurrency, logging.Component(log, "jobsqueue"))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("registry: start job queue: %w", err)
	}

	r := &Registry{
		Config:   cfg,
		Log:      log,
		Playback: playback.New(),
		Notify:   notify.NewRing(),
		Tracks:   track.NewRegistry(),
		Engine:   engine.NewNullEngine(),
		Prober:   engine.NewFFProber(cfg.Paths.FFprobePath),
		Thumbs:   engine.NewFFThumbnailer(cfg.Paths.FFmpegPath, cfg.Paths.ProjectsDir),
		Index:    idx,
		Queue:    queue,
		Selection: selection.New(),
		Snap:      snap.New(),
	}

	r.Project = project.NewManager(cfg.Paths.ProjectsDir, idx, logging.Component(log, "project"))

	return r, nil
}

// AttachBrowser swaps the canvas engine for a WebSocket bridge to a
// connected frontend tab, used once the editor UI opens its control
// channel (spec.md §4.4 treats the browser as the only real compositor).
func (r *Registry) AttachBrowser(eng engine.CanvasEngine) {
	r.Engine = eng
	if r.Timeline != nil {
		r.Timeline.SetEngine(eng)
	}
	if r.PlaybackAdapter != nil {
		r.PlaybackAdapter.SetEngine(eng)
	}
}

// OpenProject runs phase two against a freshly created or reloaded
// project: it replaces the track registry with an empty one, builds the
// media library and everything else that needs the open project, on top
// of the canvas engine already running from phase one.
func (r *Registry) OpenProject(ctx context.Context, id uuid.UUID) (*models.UnifiedProjectConfig, error) {
	cfg, err := r.Project.PreloadProjectSettings(id)
	if err != nil {
		return nil, err
	}
	r.projectID = id

	r.Tracks = track.NewEmptyRegistry()
	decoder := media.NewDecoder(r.Engine, r.Prober, r.Thumbs, r.Project.MediaDir(id), cfg.Settings.FrameRate)
	r.Media = media.NewLibrary(decoder, logging.Component(r.Log, "media"), r.Notify)
	r.Timeline = timeline.New(r.Engine, r.Tracks, logging.Component(r.Log, "timeline"), float64(cfg.Settings.VideoResolution.Width), float64(cfg.Settings.VideoResolution.Height))
	r.Viewport = viewport.New(cfg.Settings.FrameRate)
	r.History = command.NewHistoryStack(logging.Component(r.Log, "history"), r.Notify)

	r.PlaybackAdapter = playback.NewAdapter(r.Playback, r.Engine, cfg.Settings.FrameRate)
	r.Timeline.SubscribePlayback(r.PlaybackAdapter.HandleEngineEvent)

	r.Media.Subscribe(func(item *models.MediaItem) {
		if item.Status == models.MediaStatusReady {
			r.Timeline.PromoteToReady(item.ID)
		}
		if r.Autosave != nil {
			r.Autosave.NotifyChange()
		}
	})
	r.Timeline.Subscribe(func(item *models.TimelineItem) {
		if r.Autosave != nil {
			r.Autosave.NotifyChange()
		}
	})

	if err := r.Project.LoadProjectContent(ctx, id, project.LoadContentInputs{
		Tracks:   r.Tracks,
		Timeline: r.Timeline,
		Media:    r.Media,
	}); err != nil {
		return nil, err
	}

	r.Autosave = autosave.New(autosave.Config{
		DebounceTime:    r.Config.Autosave.DebounceTime,
		ThrottleTime:    r.Config.Autosave.ThrottleTime,
		MaxRetries:      r.Config.Autosave.MaxRetries,
		Enabled:         r.Config.Autosave.Enabled,
		OrphanSweepCron: r.Config.Autosave.OrphanSweepCron,
	}, r.saveCurrentProject, r.sweepCurrentProject, logging.Component(r.Log, "autosave"))
	if r.Config.Autosave.Enabled {
		r.Autosave.Start(func(ctx context.Context) {
			if _, err := r.sweepProject(ctx, id); err != nil {
				r.Log.Warn().Err(err).Msg("registry: scheduled orphan sweep failed")
			}
		})
	}

	watcher, err := fswatch.New(r.Project.MediaDir(id), r.onMediaFileRemoved, r.onMediaFileRestored, logging.Component(r.Log, "fswatch"))
	if err != nil {
		r.Log.Warn().Err(err).Msg("registry: media directory watch disabled")
	} else {
		r.Watcher = watcher
		watcher.Start()
	}

	r.Queue.RegisterHandler(jobsqueue.TaskGenerateThumbnail, &jobsqueue.ThumbnailHandler{Thumbnailer: r.Thumbs, Log: logging.Component(r.Log, "jobsqueue")})
	r.Queue.RegisterHandler(jobsqueue.TaskOrphanSweep, &jobsqueue.OrphanSweepHandler{Sweep: r.sweepProject, Log: logging.Component(r.Log, "jobsqueue")})

	return cfg, nil
}

// CreateProject runs Create then OpenProject so a brand-new project comes
// up through the exact same phase-two path a reload takes, then seeds the
// default one-video/one-audio/one-text track layout and immediately saves it so a
// reload finds the same tracks rather than an empty registry.
func (r *Registry) CreateProject(ctx context.Context, name string) (*models.UnifiedProjectConfig, error) {
	cfg, err := r.Project.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := r.OpenProject(ctx, cfg.ID); err != nil {
		return nil, err
	}

	for _, t := range track.NewRegistry().List() {
		r.Tracks.Add(t)
	}
	if err := r.saveCurrentProject(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectID returns the id of the currently open project, or uuid.Nil if
// none is open.
func (r *Registry) ProjectID() uuid.UUID {
	return r.projectID
}

// SaveProject persists the currently open project, exported for the API
// layer's explicit save endpoint (autosave calls the unexported path
// directly since it already runs inside this package).
func (r *Registry) SaveProject(ctx context.Context) error {
	return r.saveCurrentProject(ctx)
}

// ListProjects returns every catalogued project, most recently updated
// first, for a project picker UI.
func (r *Registry) ListProjects() ([]projectindex.Entry, error) {
	return r.Index.List()
}

// DeleteProject removes a project from disk and the catalogue. If it is
// the currently open project, the registry's project-scoped state is torn
// down first.
func (r *Registry) DeleteProject(id uuid.UUID) error {
	if r.projectID == id {
		if r.Watcher != nil {
			r.Watcher.Stop()
			r.Watcher = nil
		}
		if r.Autosave != nil {
			r.Autosave.Stop()
			r.Autosave = nil
		}
		r.projectID = uuid.Nil
	}
	return r.Project.Delete(id)
}

func (r *Registry) saveCurrentProject(ctx context.Context) error {
	base, err := r.Project.PreloadProjectSettings(r.projectID)
	if err != nil {
		return err
	}
	in := project.SaveInputs{
		Base:       base,
		Tracks:     r.Tracks.List(),
		Timeline:   r.Timeline.List(),
		MediaItems: mediaItemsOf(r.Media),
	}
	return r.Project.Save(ctx, in)
}

func (r *Registry) sweepCurrentProject(ctx context.Context) {
	if _, err := r.sweepProject(ctx, r.projectID); err != nil {
		r.Log.Warn().Err(err).Msg("registry: post-save orphan sweep failed")
	}
}

func (r *Registry) sweepProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	live := make(map[string]struct{})
	for _, item := range mediaItemsOf(r.Media) {
		if item.Source.MediaReferenceID != "" {
			live[item.Source.MediaReferenceID] = struct{}{}
		}
	}
	return r.Project.OrphanSweep(ctx, projectID, live)
}

func (r *Registry) onMediaFileRemoved(path string) {
	for _, item := range mediaItemsOf(r.Media) {
		if item.Source.LocalPath == path {
			r.Media.SetSourceStatus(item.ID, models.SourceStatusMissing, "")
			r.Notify.Warning(fmt.Sprintf("%s is missing from disk", item.Name))
		}
	}
}

func (r *Registry) onMediaFileRestored(path string) {
	for _, item := range mediaItemsOf(r.Media) {
		if item.Status == models.MediaStatusMissing && filepath.Base(item.Source.LocalPath) == filepath.Base(path) {
			r.Media.SetSourceStatus(item.ID, models.SourceStatusAcquired, path)
		}
	}
}

func mediaItemsOf(lib *media.Library) []*models.MediaItem {
	if lib == nil {
		return nil
	}
	var out []*models.MediaItem
	for _, status := range []models.MediaStatus{
		models.MediaStatusPending, models.MediaStatusAsyncProcessing, models.MediaStatusWebAVDecoding,
		models.MediaStatusReady, models.MediaStatusError, models.MediaStatusCancelled, models.MediaStatusMissing,
	} {
		out = append(out, lib.ByStatus(status)...)
	}
	return out
}

// Close tears down phase-two then phase-one resources in reverse bring-up
// order.
func (r *Registry) Close() {
	if r.Watcher != nil {
		r.Watcher.Stop()
	}
	if r.Autosave != nil {
		r.Autosave.Stop()
	}
	if r.Queue != nil {
		r.Queue.Stop()
	}
	if r.Index != nil {
		r.Index.Close()
	}
}
