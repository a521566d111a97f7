// Package api exposes the editor core over a local HTTP+WebSocket surface:
// a small REST API for project/track/media/timeline/history/playback
// mutations, a WebSocket channel that pushes reactive state (notifications,
// media and timeline changes) to every connected UI tab, and a second
// WebSocket endpoint the browser's canvas runtime attaches to so the
// registry can swap its CanvasEngine from the headless NullEngine to a
// live WSBridge (spec.md §0/§4.4).
package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/novaforge/reelcore/internal/command"
	"github.com/novaforge/reelcore/internal/config"
	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/httputil"
	"github.com/novaforge/reelcore/internal/logging"
	"github.com/novaforge/reelcore/internal/media"
	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/notify"
	"github.com/novaforge/reelcore/internal/registry"
	"github.com/novaforge/reelcore/internal/selection"
	"github.com/novaforge/reelcore/internal/timeline"
)

// Server holds the single registry instance every handler operates
// against — this editor core manages exactly one open project at a time,
// unlike the teacher's multi-user, multi-library media server.
type Server struct {
	config *config.Config
	reg    *registry.Registry
	log    zerolog.Logger
	hub    *Hub
	router *http.ServeMux
	http   *http.Server
}

func NewServer(cfg *config.Config, reg *registry.Registry, log zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		reg:    reg,
		log:    log,
		hub:    NewHub(),
		router: http.NewServeMux(),
	}
	s.reg.Notify.Subscribe(func(items []notify.Notification) {
		s.hub.Broadcast("notify:update", items)
	})
	s.setupRoutes()
	return s
}

// AttachProjectPush wires the hub to the freshly opened project's Media
// and Timeline listeners. The registry builds new Media/Timeline instances
// on every OpenProject/CreateProject call, so this must be called again
// each time a project is (re)opened.
func (s *Server) AttachProjectPush() {
	s.reg.Media.Subscribe(func(item *models.MediaItem) {
		s.hub.Broadcast("media:update", item)
	})
	s.reg.Timeline.Subscribe(func(item *models.TimelineItem) {
		s.hub.Broadcast("timeline:update", item)
	})
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.Handler())

	s.router.HandleFunc("GET /api/v1/projects", s.guard(s.handleListProjects))
	s.router.HandleFunc("POST /api/v1/projects", s.guard(s.handleCreateProject))
	s.router.HandleFunc("GET /api/v1/projects/{id}", s.guard(s.handleOpenProject))
	s.router.HandleFunc("DELETE /api/v1/projects/{id}", s.guard(s.handleDeleteProject))
	s.router.HandleFunc("POST /api/v1/projects/{id}/save", s.guard(s.handleSaveProject))

	s.router.HandleFunc("GET /api/v1/tracks", s.guard(s.handleListTracks))
	s.router.HandleFunc("POST /api/v1/tracks", s.guard(s.handleAddTrack))
	s.router.HandleFunc("PATCH /api/v1/tracks/{id}", s.guard(s.handleUpdateTrack))
	s.router.HandleFunc("DELETE /api/v1/tracks/{id}", s.guard(s.handleRemoveTrack))

	s.router.HandleFunc("GET /api/v1/media", s.guard(s.handleListMedia))
	s.router.HandleFunc("POST /api/v1/media", s.guard(s.handleAddMedia))
	s.router.HandleFunc("POST /api/v1/media/batch", s.guard(s.handleAddMediaBatch))
	s.router.HandleFunc("POST /api/v1/media/{id}/retry", s.guard(s.handleRetryMedia))
	s.router.HandleFunc("POST /api/v1/media/{id}/cancel", s.guard(s.handleCancelMedia))
	s.router.HandleFunc("DELETE /api/v1/media/{id}", s.guard(s.handleRemoveMedia))

	s.router.HandleFunc("GET /api/v1/timeline-items", s.guard(s.handleListTimelineItems))
	s.router.HandleFunc("POST /api/v1/timeline-items", s.guard(s.handleAddTimelineItem))
	s.router.HandleFunc("PATCH /api/v1/timeline-items/{id}/move", s.guard(s.handleMoveTimelineItem))
	s.router.HandleFunc("PATCH /api/v1/timeline-items/{id}/resize", s.guard(s.handleResizeTimelineItem))
	s.router.HandleFunc("PATCH /api/v1/timeline-items/{id}/playback-rate", s.guard(s.handleSetClipPlaybackRate))
	s.router.HandleFunc("PATCH /api/v1/timeline-items/{id}/transform", s.guard(s.handleTransformTimelineItem))
	s.router.HandleFunc("PATCH /api/v1/timeline-items/{id}/audio", s.guard(s.handleAudioTimelineItem))
	s.router.HandleFunc("DELETE /api/v1/timeline-items/{id}", s.guard(s.handleRemoveTimelineItem))

	s.router.HandleFunc("GET /api/v1/history", s.guard(s.handleHistoryState))
	s.router.HandleFunc("POST /api/v1/history/undo", s.guard(s.handleUndo))
	s.router.HandleFunc("POST /api/v1/history/redo", s.guard(s.handleRedo))

	s.router.HandleFunc("GET /api/v1/playback", s.guard(s.handleGetPlayback))
	s.router.HandleFunc("PATCH /api/v1/playback", s.guard(s.handleUpdatePlayback))
	s.router.HandleFunc("POST /api/v1/playback/play", s.guard(s.handlePlay))
	s.router.HandleFunc("POST /api/v1/playback/pause", s.guard(s.handlePause))
	s.router.HandleFunc("POST /api/v1/playback/stop", s.guard(s.handleStop))

	s.router.HandleFunc("GET /api/v1/viewport", s.guard(s.handleGetViewport))
	s.router.HandleFunc("PATCH /api/v1/viewport", s.guard(s.handleUpdateViewport))

	s.router.HandleFunc("GET /api/v1/selection", s.guard(s.handleGetSelection))
	s.router.HandleFunc("PATCH /api/v1/selection", s.guard(s.handleUpdateSelection))

	s.router.HandleFunc("POST /api/v1/snap/begin-drag", s.guard(s.handleSnapBeginDrag))
	s.router.HandleFunc("POST /api/v1/snap/end-drag", s.guard(s.handleSnapEndDrag))
	s.router.HandleFunc("GET /api/v1/snap/position", s.guard(s.handleSnapPosition))

	s.router.HandleFunc("GET /api/v1/notifications", s.guard(s.handleListNotifications))
	s.router.HandleFunc("POST /api/v1/notifications/{id}/dismiss", s.guard(s.handleDismissNotification))

	s.router.HandleFunc("GET /api/v1/ws", s.guard(s.handlePushSocket))
	s.router.HandleFunc("GET /api/v1/canvas", s.guard(s.handleCanvasSocket))
}

// Start wraps the router with security-headers -> CORS -> handler and
// blocks serving the local HTTP+WS surface, matching the teacher's
// middleware ordering.
func (s *Server) Start() error {
	handler := s.securityHeadersMiddleware(s.corsMiddleware(s.router))
	s.http = &http.Server{Addr: s.config.Server.Address(), Handler: handler}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server, letting in-flight requests
// and WebSocket handlers finish within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// securityHeadersMiddleware adds standard security headers to all
// responses, unchanged from the teacher's media-server surface even
// though this one only ever serves localhost.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		w.Header().Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware reflects the request origin so a locally-served editor
// frontend on a different port can reach this API.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Pairing-Token")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// guard checks the pairing token against config.ServerConfig.PairingToken.
// An empty configured token disables the check entirely, for local
// development with no pairing set up yet. The comparison is
// constant-time so a timing side channel can't leak the token byte by
// byte.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := s.config.Server.PairingToken
		if want == "" {
			next(w, r)
			return
		}
		got := r.Header.Get("X-Pairing-Token")
		if got == "" {
			got = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			s.respondError(w, http.StatusUnauthorized, "invalid pairing token")
			return
		}
		next(w, r)
	}
}

func (s *Server) respondOK(w http.ResponseWriter, data interface{}) {
	httputil.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	httputil.WriteError(w, statusCode, http.StatusText(statusCode), message)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := httputil.ReadJSON(r, out); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

// requireProject guards every project-scoped handler: nothing in the
// registry's Tracks/Media/Timeline/History/Viewport/Selection fields is
// meaningful until a project has been opened.
func (s *Server) requireProject(w http.ResponseWriter) bool {
	if s.reg.ProjectID() == uuid.Nil {
		s.respondError(w, http.StatusConflict, "no project is open")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, map[string]string{"status": "ok"})
}

// ──────────────────── Projects ────────────────────

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	entries, err := s.reg.ListProjects()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, entries)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	cfg, err := s.reg.CreateProject(r.Context(), body.Name)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.AttachProjectPush()
	s.respondOK(w, cfg)
}

func (s *Server) handleOpenProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	cfg, err := s.reg.OpenProject(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.AttachProjectPush()
	s.respondOK(w, cfg)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if err := s.reg.DeleteProject(id); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, nil)
}

func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil || id != s.reg.ProjectID() {
		s.respondError(w, http.StatusBadRequest, "id does not match the open project")
		return
	}
	if !s.requireProject(w) {
		return
	}
	if err := s.reg.SaveProject(r.Context()); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, nil)
}

// ──────────────────── Tracks ────────────────────

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	s.respondOK(w, s.reg.Tracks.List())
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var body struct {
		Name string            `json:"name"`
		Type models.TrackType  `json:"type"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	t := &models.Track{Name: body.Name, Type: body.Type, IsVisible: true, HeightPx: 60}
	s.reg.Tracks.Add(t)
	s.respondOK(w, t)
}

func (s *Server) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	var body struct {
		Name     *string `json:"name"`
		Muted    *bool   `json:"muted"`
		Visible  *bool   `json:"visible"`
		HeightPx *int    `json:"heightPx"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.Name != nil {
		if err := command.RenameTrackWithHistory(s.reg.History, s.reg.Tracks, id, *body.Name); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.Muted != nil {
		if err := command.SetTrackMutedWithHistory(s.reg.History, s.reg.Tracks, id, *body.Muted); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.Visible != nil {
		if err := s.reg.Tracks.SetVisible(id, *body.Visible); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.HeightPx != nil {
		if err := s.reg.Tracks.SetHeight(id, *body.HeightPx); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	t, _ := s.reg.Tracks.Get(id)
	s.reg.Autosave.NotifyChange()
	s.respondOK(w, t)
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	cascade := func(trackID uuid.UUID) {
		for _, item := range s.reg.Timeline.List() {
			if item.TrackID == trackID {
				s.reg.Timeline.Remove(item.ID)
			}
		}
	}
	if err := s.reg.Tracks.Remove(id, cascade); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.reg.Autosave.NotifyChange()
	s.respondOK(w, nil)
}

// ──────────────────── Media ────────────────────

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var out []*models.MediaItem
	for _, st := range []models.MediaStatus{
		models.MediaStatusPending, models.MediaStatusAsyncProcessing, models.MediaStatusWebAVDecoding,
		models.MediaStatusReady, models.MediaStatusError, models.MediaStatusCancelled, models.MediaStatusMissing,
	} {
		out = append(out, s.reg.Media.ByStatus(st)...)
	}
	s.respondOK(w, out)
}

// handleAddMedia registers a MediaItem backed by a file already present on
// the local filesystem (the browser-side source-acquisition layer that
// copies an upload into a temp path is out of scope; see spec.md §0).
func (s *Server) handleAddMedia(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var body struct {
		Name      string           `json:"name"`
		MediaType models.MediaType `json:"mediaType"`
		LocalPath string           `json:"localPath"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.LocalPath == "" {
		s.respondError(w, http.StatusBadRequest, "localPath is required")
		return
	}
	item := &models.MediaItem{
		ID:        uuid.New(),
		Name:      body.Name,
		CreatedAt: time.Now(),
		MediaType: body.MediaType,
		Source:    models.DataSource{Type: models.SourceUserSelected, Status: models.SourceStatusPending, LocalPath: body.LocalPath},
	}
	s.reg.Media.Add(item)
	s.reg.Media.SetSourceStatus(item.ID, models.SourceStatusAcquired, body.LocalPath)
	s.respondOK(w, item)
}

// handleAddMediaBatch registers several already-acquired files at once
// (e.g. a multi-file drag-and-drop drop), decoding them concurrently
// instead of one request per file.
func (s *Server) handleAddMediaBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var body struct {
		Items []struct {
			Name      string           `json:"name"`
			MediaType models.MediaType `json:"mediaType"`
			LocalPath string           `json:"localPath"`
		} `json:"items"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	inputs := make([]media.BatchInput, 0, len(body.Items))
	items := make([]*models.MediaItem, 0, len(body.Items))
	for _, in := range body.Items {
		item := &models.MediaItem{
			ID:        uuid.New(),
			Name:      in.Name,
			CreatedAt: time.Now(),
			MediaType: in.MediaType,
			Source:    models.DataSource{Type: models.SourceUserSelected, Status: models.SourceStatusPending, LocalPath: in.LocalPath},
		}
		items = append(items, item)
		inputs = append(inputs, media.BatchInput{Item: item, LocalPath: in.LocalPath})
	}
	if err := s.reg.Media.AddBatch(r.Context(), inputs); err != nil {
		s.log.Warn().Err(err).Msg("api: one or more batch media items failed to start")
	}
	s.respondOK(w, items)
}

func (s *Server) handleRetryMedia(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid media id")
		return
	}
	if err := s.reg.Media.Retry(id); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondOK(w, nil)
}

func (s *Server) handleCancelMedia(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid media id")
		return
	}
	s.reg.Media.Cancel(id)
	s.respondOK(w, nil)
}

func (s *Server) handleRemoveMedia(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid media id")
		return
	}
	s.reg.Media.Remove(id, media.CleanupFunc(s.reg.Timeline.RemoveByMediaItem))
	s.reg.Autosave.NotifyChange()
	s.respondOK(w, nil)
}

// ──────────────────── Timeline items ────────────────────

func (s *Server) handleListTimelineItems(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	s.respondOK(w, s.reg.Timeline.List())
}

func (s *Server) handleAddTimelineItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var item models.TimelineItem
	if !s.decodeJSON(w, r, &item) {
		return
	}
	if err := command.AddTimelineItemWithHistory(s.reg.History, s.reg.Timeline, &item); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondOK(w, item)
}

func (s *Server) handleMoveTimelineItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body struct {
		Frame   int64      `json:"frame"`
		TrackID *uuid.UUID `json:"trackId"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if err := command.MoveTimelineItemWithHistory(s.reg.History, s.reg.Timeline, id, body.Frame, body.TrackID); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, _ := s.reg.Timeline.Get(id)
	s.respondOK(w, item)
}

func (s *Server) handleResizeTimelineItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body models.TimeRange
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if err := command.ResizeTimelineItemWithHistory(s.reg.History, s.reg.Timeline, id, body); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, _ := s.reg.Timeline.Get(id)
	s.respondOK(w, item)
}

func (s *Server) handleTransformTimelineItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body timeline.PartialTransform
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if err := command.UpdateTimelineItemTransformWithHistory(s.reg.History, s.reg.Timeline, id, body); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, _ := s.reg.Timeline.Get(id)
	s.respondOK(w, item)
}

func (s *Server) handleAudioTimelineItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body struct {
		Volume *float64 `json:"volume"`
		Muted  *bool    `json:"muted"`
		GainDB *float64 `json:"gain"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if err := s.reg.Timeline.UpdateAudioConfig(id, body.Volume, body.Muted, body.GainDB); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.reg.Autosave.NotifyChange()
	item, _ := s.reg.Timeline.Get(id)
	s.respondOK(w, item)
}

func (s *Server) handleRemoveTimelineItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	s.reg.Timeline.Remove(id)
	s.reg.Autosave.NotifyChange()
	s.respondOK(w, nil)
}

// ──────────────────── History ────────────────────

func (s *Server) handleHistoryState(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	s.respondOK(w, map[string]interface{}{
		"canUndo": s.reg.History.CanUndo(),
		"canRedo": s.reg.History.CanRedo(),
		"length":  s.reg.History.Len(),
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	if err := s.reg.History.Undo(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, nil)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	if err := s.reg.History.Redo(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, nil)
}

// ──────────────────── Playback ────────────────────

func (s *Server) handleGetPlayback(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, s.reg.Playback)
}

// handleUpdatePlayback routes a frame change through the playback adapter's
// SeekTo rather than writing Playback.Model directly, since seekTo is the
// only path by which UI code is allowed to move the playhead (spec.md
// §4.4).
func (s *Server) handleUpdatePlayback(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var body struct {
		Frame *float64 `json:"frame"`
		Rate  *float64 `json:"rate"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.Frame != nil {
		if err := s.reg.PlaybackAdapter.SeekTo(r.Context(), *body.Frame); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if body.Rate != nil {
		s.reg.PlaybackAdapter.SetPlaybackRate(*body.Rate)
	}
	s.respondOK(w, s.reg.Playback)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	if err := s.reg.PlaybackAdapter.Play(r.Context()); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, s.reg.Playback)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	if err := s.reg.PlaybackAdapter.Pause(r.Context()); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, s.reg.Playback)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	if err := s.reg.PlaybackAdapter.Stop(r.Context()); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondOK(w, s.reg.Playback)
}

// handleSetClipPlaybackRate changes one clip's playback speed, rescaling
// its timeline duration and keyframes to match (spec.md §8 Scenario S3).
func (s *Server) handleSetClipPlaybackRate(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var body struct {
		Rate float64 `json:"rate"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if err := command.SetClipPlaybackRateWithHistory(s.reg.History, s.reg.Timeline, id, body.Rate); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, _ := s.reg.Timeline.Get(id)
	s.respondOK(w, item)
}

// ──────────────────── Viewport ────────────────────

func (s *Server) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	s.respondOK(w, s.reg.Viewport)
}

func (s *Server) handleUpdateViewport(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var body struct {
		ContentEndFrames *int64   `json:"contentEndFrames"`
		TrackWidthPx     *float64 `json:"trackWidthPx"`
		ZoomLevel        *float64 `json:"zoomLevel"`
		ScrollOffset     *float64 `json:"scrollOffset"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.ContentEndFrames != nil && body.TrackWidthPx != nil {
		s.reg.Viewport.SetContentBounds(*body.ContentEndFrames, *body.TrackWidthPx)
	}
	if body.ZoomLevel != nil {
		s.reg.Viewport.SetZoomLevel(*body.ZoomLevel)
	}
	if body.ScrollOffset != nil {
		s.reg.Viewport.SetScrollOffset(*body.ScrollOffset)
	}
	s.respondOK(w, s.reg.Viewport)
}

// ──────────────────── Selection ────────────────────

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	s.respondOK(w, map[string]interface{}{
		"ids":           s.reg.Selection.All(),
		"hasSelection":  s.reg.Selection.HasSelection(),
		"isMultiSelect": s.reg.Selection.IsMultiSelectMode(),
	})
}

func (s *Server) handleUpdateSelection(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var body struct {
		Mode selection.Mode `json:"mode"`
		IDs  []uuid.UUID    `json:"ids"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	s.reg.Selection.Apply(body.Mode, body.IDs...)
	s.respondOK(w, nil)
}

// ──────────────────── Snap ────────────────────

func (s *Server) handleSnapBeginDrag(w http.ResponseWriter, r *http.Request) {
	if !s.requireProject(w) {
		return
	}
	var body struct {
		ExcludeID    string `json:"excludeId"`
		CurrentFrame int64  `json:"currentFrame"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}
	s.reg.Snap.BeginDrag(s.reg.Timeline.List(), body.ExcludeID, body.CurrentFrame)
	s.respondOK(w, nil)
}

func (s *Server) handleSnapEndDrag(w http.ResponseWriter, r *http.Request) {
	s.reg.Snap.EndDrag()
	s.respondOK(w, nil)
}

func (s *Server) handleSnapPosition(w http.ResponseWriter, r *http.Request) {
	var frame int64
	if _, err := fmt.Sscanf(r.URL.Query().Get("frame"), "%d", &frame); err != nil {
		s.respondError(w, http.StatusBadRequest, "frame query param required")
		return
	}
	snapped, ok := s.reg.Snap.CalculateSnapPosition(frame)
	s.respondOK(w, map[string]interface{}{"frame": snapped, "snapped": ok})
}

// ──────────────────── Notifications ────────────────────

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, s.reg.Notify.Items())
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	s.reg.Notify.Dismiss(id)
	s.respondOK(w, nil)
}

// ──────────────────── WebSockets ────────────────────

// handlePushSocket upgrades to the reactive push channel a UI tab
// subscribes to for notifications/media/timeline updates.
func (s *Server) handlePushSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.log.Warn().Err(err).Msg("api: push socket accept failed")
		return
	}
	client := s.hub.addClient(conn)
	defer s.hub.removeClient(client)

	ctx := r.Context()
	go client.writeLoop(ctx)

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
}

// handleCanvasSocket upgrades to the canvas control channel: the browser
// tab running the real WebAV/Fabric compositor attaches here, and the
// registry's CanvasEngine is swapped from the NullEngine to a WSBridge
// driving this connection (spec.md §4.4).
func (s *Server) handleCanvasSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.log.Warn().Err(err).Msg("api: canvas socket accept failed")
		return
	}
	bridge := engine.NewWSBridge(conn, logging.Component(s.log, "canvas"))
	s.reg.AttachBrowser(bridge)
	s.log.Info().Msg("api: browser canvas attached")

	<-r.Context().Done()
}
