package jobsqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/novaforge/reelcore/internal/engine"
)

// ThumbnailPayload is the job body for a deferred thumbnail regeneration,
// used when a synchronous decode-time generation (media.decoder) fails
// and the UI requests a retry without re-running the whole ingestion
// pipeline.
type ThumbnailPayload struct {
	MediaID    uuid.UUID `json:"mediaId"`
	SourcePath string    `json:"sourcePath"`
	DurationMS int64     `json:"durationMs"`
}

// ThumbnailHandler regenerates a single media item's poster frame.
type ThumbnailHandler struct {
	Thumbnailer engine.ThumbnailGenerator
	Log         zerolog.Logger
}

func (h *ThumbnailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ThumbnailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("thumbnail task: unmarshal: %w", err)
	}
	path, err := h.Thumbnailer.GenerateThumbnail(ctx, payload.MediaID, payload.SourcePath, time.Duration(payload.DurationMS)*time.Millisecond)
	if err != nil {
		h.Log.Error().Str("media_id", payload.MediaID.String()).Err(err).Msg("jobsqueue: thumbnail regeneration failed")
		return err
	}
	h.Log.Info().Str("media_id", payload.MediaID.String()).Str("path", path).Msg("jobsqueue: thumbnail regenerated")
	return nil
}

// OrphanSweepPayload names the project to sweep; the handler passes its
// ProjectID to the registered Sweep function, the same sweep the autosave
// engine runs after a save.
type OrphanSweepPayload struct {
	ProjectID uuid.UUID `json:"projectId"`
}

type OrphanSweepFunc func(ctx context.Context, projectID uuid.UUID) (removed int, err error)

type OrphanSweepHandler struct {
	Sweep OrphanSweepFunc
	Log   zerolog.Logger
}

func (h *OrphanSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload OrphanSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("orphan sweep task: unmarshal: %w", err)
	}
	removed, err := h.Sweep(ctx, payload.ProjectID)
	if err != nil {
		h.Log.Error().Str("project_id", payload.ProjectID.String()).Err(err).Msg("jobsqueue: orphan sweep failed")
		return err
	}
	h.Log.Info().Str("project_id", payload.ProjectID.String()).Int("removed", removed).Msg("jobsqueue: orphan sweep complete")
	return nil
}
