package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/novaforge/reelcore/internal/engine"
	"github.com/novaforge/reelcore/internal/ids"
	"github.com/novaforge/reelcore/internal/metrics"
	"github.com/novaforge/reelcore/internal/models"
)

const imageFixedDurationSeconds = 5

// audioThumbnailIconURL is the static icon the frontend shows in place of
// a generated preview frame, since an audio-only source has no visual to
// thumbnail (spec.md §4.1 step 2).
const audioThumbnailIconURL = "/static/icons/audio-waveform.svg"

// decoder performs the "enter webavdecoding" pipeline: create a clip on
// the canvas engine, probe its metadata, generate a thumbnail, persist the
// source bytes into the project media directory, and compute a frame-unit
// duration.
type decoder struct {
	engine    engine.CanvasEngine
	prober    engine.Prober
	thumbs    engine.ThumbnailGenerator
	mediaDir  string
	frameRate float64

	// thumbGroup collapses concurrent GenerateThumbnail calls for the same
	// media item made through this decoder. The jobsqueue thumbnail handler
	// calls the thumbnailer directly and does not go through this group.
	thumbGroup singleflight.Group
}

func NewDecoder(eng engine.CanvasEngine, prober engine.Prober, thumbs engine.ThumbnailGenerator, mediaDir string, frameRate float64) *decoder {
	return &decoder{engine: eng, prober: prober, thumbs: thumbs, mediaDir: mediaDir, frameRate: frameRate}
}

func (d *decoder) generateThumbnail(ctx context.Context, id uuid.UUID, sourcePath string, clipDuration time.Duration) (string, error) {
	v, err, _ := d.thumbGroup.Do(id.String(), func() (interface{}, error) {
		return d.thumbs.GenerateThumbnail(ctx, id, sourcePath, clipDuration)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SetSourceStatus is called by the (out-of-scope) source-acquisition layer
// as a DataSource progresses. It recomputes the mapped MediaStatus and, on
// reaching "acquired", starts decoding. On a terminal status the item's
// subscription is considered released per spec.md §4.1.
func (l *Library) SetSourceStatus(id uuid.UUID, status models.SourceStatus, localPath string) {
	l.mu.Lock()
	item, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	item.Source.Status = status
	if localPath != "" {
		item.Source.LocalPath = localPath
	}
	item.Status = statusForSource(status)
	l.mu.Unlock()

	l.notify(item)

	if status == models.SourceStatusAcquired {
		l.beginDecode(id)
	}
}

// Retry returns a failed item to pending and re-invokes acquisition by
// flipping its source status back to pending; the acquisition layer is
// expected to observe this and restart. The item itself is left intact so
// the user's prior configuration of it survives.
func (l *Library) Retry(id uuid.UUID) error {
	l.mu.Lock()
	item, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("media: unknown item %s", id)
	}
	item.Status = models.MediaStatusPending
	item.Source.Status = models.SourceStatusPending
	l.subs[id] = make(chan struct{})
	l.mu.Unlock()

	l.notify(item)
	return nil
}

// Cancel moves an in-flight item to cancelled and signals beginDecode's
// goroutine (if any) to abandon its work; a decode that completes after
// the cancel leaves the item cancelled. A clip handle the engine already
// created for the item is not released.
func (l *Library) Cancel(id uuid.UUID) {
	l.mu.Lock()
	item, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	if cancel, ok := l.subs[id]; ok {
		close(cancel)
		delete(l.subs, id)
	}
	item.Status = models.MediaStatusCancelled
	item.Source.Status = models.SourceStatusCancelled
	l.mu.Unlock()

	l.notify(item)
}

func (l *Library) beginDecode(id uuid.UUID) {
	l.mu.RLock()
	item, ok := l.items[id]
	cancel := l.subs[id]
	l.mu.RUnlock()
	if !ok {
		return
	}

	go func() {
		started := time.Now()
		ctx := context.Background()
		result, err := l.decoder.decode(ctx, item, cancel)
		l.mu.Lock()
		current, stillTracked := l.items[id]
		l.mu.Unlock()
		if !stillTracked {
			return // removed mid-decode
		}

		if err != nil {
			select {
			case <-cancel:
				metrics.MediaIngestedTotal.WithLabelValues("cancelled").Inc()
				return // Cancel() already applied the cancelled transition
			default:
			}
			l.log.Error().
				Str("media_type", string(current.MediaType)).
				Str("source_type", string(current.Source.Type)).
				Str("source_status", string(current.Source.Status)).
				Str("message", err.Error()).
				Msg("media decode failed")

			l.mu.Lock()
			current.Status = models.MediaStatusError
			l.mu.Unlock()
			l.notify(current)
			metrics.MediaIngestedTotal.WithLabelValues("error").Inc()
			if l.notifier != nil {
				l.notifier.Error(fmt.Sprintf("%s failed to import: %v", current.Name, err))
			}
			return
		}

		if result.persistErr != nil {
			l.log.Warn().Str("media_id", id.String()).Err(result.persistErr).Msg("media: persisting source to project media directory failed")
		}

		l.mu.Lock()
		if isCancelled(cancel) {
			l.mu.Unlock()
			metrics.MediaIngestedTotal.WithLabelValues("cancelled").Inc()
			return // Cancel() already applied the cancelled transition
		}
		current.WebAV = result.webav
		current.Duration = result.durationFrames
		current.Source.MediaReferenceID = result.mediaReferenceID
		current.Status = models.MediaStatusReady
		l.mu.Unlock()
		l.notify(current)
		metrics.MediaIngestedTotal.WithLabelValues("ready").Inc()
		metrics.MediaDecodeDuration.Observe(time.Since(started).Seconds())
	}()
}

type decodeResult struct {
	webav             *models.WebAVHandles
	durationFrames    int64
	mediaReferenceID  string
	persistErr        error
}

func (d *decoder) decode(ctx context.Context, item *models.MediaItem, cancel <-chan struct{}) (decodeResult, error) {
	if isCancelled(cancel) {
		return decodeResult{}, fmt.Errorf("decode cancelled before start")
	}

	clipKind := kindFor(item.MediaType)
	var clip engine.ClipHandle
	var err error
	switch clipKind {
	case engine.ClipMP4:
		clip, err = d.engine.CreateMP4Clip(ctx, item.Source.LocalPath)
	case engine.ClipImage:
		clip, err = d.engine.CreateImgClip(ctx, item.Source.LocalPath)
	case engine.ClipAudio:
		clip, err = d.engine.CreateAudioClip(ctx, item.Source.LocalPath)
	default:
		return decodeResult{}, fmt.Errorf("unsupported media type %s", item.MediaType)
	}
	if err != nil {
		return decodeResult{}, fmt.Errorf("createClip: %w", err)
	}

	webav := &models.WebAVHandles{ClipHandle: string(clip)}
	var durationSeconds float64 = imageFixedDurationSeconds

	if item.MediaType != models.MediaTypeImage {
		probe, err := d.prober.Probe(ctx, item.Source.LocalPath)
		if err != nil {
			return decodeResult{}, fmt.Errorf("probe: %w", err)
		}
		webav.Width = probe.Width
		webav.Height = probe.Height
		durationSeconds = probe.DurationSeconds
	}

	if isCancelled(cancel) {
		return decodeResult{}, fmt.Errorf("decode cancelled mid-flight")
	}

	if item.MediaType == models.MediaTypeVideo {
		thumbPath, err := d.generateThumbnail(ctx, item.ID, item.Source.LocalPath, time.Duration(durationSeconds*float64(time.Second)))
		if err != nil {
			// Thumbnail failure does not fail the whole decode; the item
			// is still usable, just without a preview image.
			webav.ThumbnailURL = ""
		} else {
			webav.ThumbnailURL = thumbPath
		}
	} else if item.MediaType == models.MediaTypeImage {
		webav.ThumbnailURL = item.Source.LocalPath
	} else if item.MediaType == models.MediaTypeAudio {
		webav.ThumbnailURL = audioThumbnailIconURL
	}

	refID, persistErr := d.persist(item)
	if persistErr != nil {
		// Persistence failure is logged by beginDecode but does not block
		// the decoded clip from becoming usable this session (spec.md §7).
		refID = ""
	}

	frames := int64(durationSeconds * d.frameRate)

	return decodeResult{webav: webav, durationFrames: frames, mediaReferenceID: refID, persistErr: persistErr}, nil
}

// persist copies the source file into the project media directory under a
// content-derived id so concurrent writes of the same bytes are
// idempotent, writing atomically so a crash mid-copy never leaves a
// partial file behind (spec.md §5's shared-filesystem policy).
func (d *decoder) persist(item *models.MediaItem) (string, error) {
	if item.Source.LocalPath == "" {
		return "", fmt.Errorf("no local path to persist")
	}
	src, err := os.Open(item.Source.LocalPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	hash, err := ids.ContentHash(src)
	if err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	destDir := filepath.Join(d.mediaDir, hash)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, filepath.Base(item.Source.LocalPath))

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	if err := renameio.WriteFile(destPath, data, 0o644); err != nil {
		return "", err
	}

	sidecar := models.MediaSidecar{
		OriginalFilename: filepath.Base(item.Source.LocalPath),
		MediaType:        item.MediaType,
		SizeBytes:        int64(len(data)),
		CreatedAt:        item.CreatedAt,
	}
	sidecarData, err := json.Marshal(sidecar)
	if err != nil {
		return "", err
	}
	if err := renameio.WriteFile(destPath+".meta.json", sidecarData, 0o644); err != nil {
		return "", err
	}

	return hash, nil
}

func kindFor(t models.MediaType) engine.ClipKind {
	switch t {
	case models.MediaTypeVideo:
		return engine.ClipMP4
	case models.MediaTypeImage:
		return engine.ClipImage
	case models.MediaTypeAudio:
		return engine.ClipAudio
	default:
		return ""
	}
}

func isCancelled(cancel <-chan struct{}) bool {
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}
