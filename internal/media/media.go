// Package media implements the media-ingestion state machine from
// spec.md §4.1: it watches a MediaItem's DataSource as it is acquired by
// an external source layer and drives the item through
// pending -> asyncprocessing -> webavdecoding -> ready (or error/cancelled/
// missing), invoking the canvas engine to decode and persisting the result
// to the project media directory.
package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/novaforge/reelcore/internal/models"
	"github.com/novaforge/reelcore/internal/notify"
)

// Listener is notified on every status transition of a tracked MediaItem.
type Listener func(item *models.MediaItem)

// CleanupFunc runs as part of Remove's cascade, letting a caller (the
// timeline package) release anything keyed by the removed media id before
// it is spliced out of the library.
type CleanupFunc func(mediaID uuid.UUID)

// Library owns the set of MediaItems for a project and the state machine
// that advances each from pending source to a decoded, ready asset.
type Library struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.MediaItem

	decoder   *decoder
	log       zerolog.Logger
	notifier  *notify.Ring
	listeners []Listener
	listenMu  sync.Mutex

	subs map[uuid.UUID]chan struct{} // per-item cancel signal for in-flight decodes
}

// NewLibrary wires a Library to the canvas engine used for decoding and
// the notification ring used to surface ingestion failures to the UI.
func NewLibrary(d *decoder, log zerolog.Logger, notifier *notify.Ring) *Library {
	return &Library{
		items:    make(map[uuid.UUID]*models.MediaItem),
		decoder:  d,
		log:      log,
		notifier: notifier,
		subs:     make(map[uuid.UUID]chan struct{}),
	}
}

func (l *Library) Subscribe(listener Listener) {
	l.listenMu.Lock()
	defer l.listenMu.Unlock()
	l.listeners = append(l.listeners, listener)
}

func (l *Library) notify(item *models.MediaItem) {
	l.listenMu.Lock()
	listeners := append([]Listener(nil), l.listeners...)
	l.listenMu.Unlock()
	snapshot := item.Clone()
	for _, listener := range listeners {
		listener(snapshot)
	}
}

// Add registers a new MediaItem. Its initial MediaStatus is derived from
// its DataSource's current SourceStatus (spec.md §4.1's mapping table); if
// the source is already acquired, decoding starts immediately.
func (l *Library) Add(item *models.MediaItem) {
	item.Status = statusForSource(item.Source.Status)

	l.mu.Lock()
	l.items[item.ID] = item
	l.subs[item.ID] = make(chan struct{})
	l.mu.Unlock()

	l.notify(item)

	if item.Source.Status == models.SourceStatusAcquired {
		l.beginDecode(item.ID)
	}
}

// BatchInput pairs a MediaItem with the local path its source has already
// been acquired to, for a multi-file drag-and-drop import.
type BatchInput struct {
	Item      *models.MediaItem
	LocalPath string
}

// AddBatch registers and begins decoding every item concurrently, fanning
// out across as many goroutines as items so a multi-file drop doesn't
// serialize one slow probe behind another. It returns the first error
// encountered (an empty LocalPath) without aborting the other items in
// the batch — each is independent, so one bad entry shouldn't block the
// rest.
func (l *Library) AddBatch(ctx context.Context, inputs []BatchInput) error {
	g, _ := errgroup.WithContext(ctx)
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			if in.LocalPath == "" {
				return fmt.Errorf("media: batch item %s has no local path", in.Item.ID)
			}
			l.Add(in.Item)
			l.SetSourceStatus(in.Item.ID, models.SourceStatusAcquired, in.LocalPath)
			return nil
		})
	}
	return g.Wait()
}

func (l *Library) Get(id uuid.UUID) (*models.MediaItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	item, ok := l.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// Remove cascades per spec.md §4.1: it is the caller's responsibility to
// remove dependent TimelineItems (cleanup handles that); Remove itself
// cancels any in-flight decode and splices the item out.
func (l *Library) Remove(id uuid.UUID, cleanup CleanupFunc) {
	l.mu.Lock()
	if cancel, ok := l.subs[id]; ok {
		close(cancel)
		delete(l.subs, id)
	}
	delete(l.items, id)
	l.mu.Unlock()

	if cleanup != nil {
		cleanup(id)
	}
}

func (l *Library) ByID(id uuid.UUID) (*models.MediaItem, bool) { return l.Get(id) }

func (l *Library) BySourceID(sourceID string) []*models.MediaItem {
	return l.filter(func(m *models.MediaItem) bool { return m.Source.MediaReferenceID == sourceID })
}

func (l *Library) ByType(t models.MediaType) []*models.MediaItem {
	return l.filter(func(m *models.MediaItem) bool { return m.MediaType == t })
}

func (l *Library) BySourceType(t models.SourceType) []*models.MediaItem {
	return l.filter(func(m *models.MediaItem) bool { return m.Source.Type == t })
}

func (l *Library) ByStatus(s models.MediaStatus) []*models.MediaItem {
	return l.filter(func(m *models.MediaItem) bool { return m.Status == s })
}

func (l *Library) filter(pred func(*models.MediaItem) bool) []*models.MediaItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*models.MediaItem
	for _, item := range l.items {
		if pred(item) {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Stats aggregates item counts per status, the "aggregate stats" query
// spec.md §4.1 asks for.
type Stats struct {
	Total      int
	Ready      int
	Processing int
	Error      int
	Pending    int
}

func (l *Library) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var s Stats
	s.Total = len(l.items)
	for _, item := range l.items {
		switch item.Status {
		case models.MediaStatusReady:
			s.Ready++
		case models.MediaStatusAsyncProcessing, models.MediaStatusWebAVDecoding:
			s.Processing++
		case models.MediaStatusError:
			s.Error++
		case models.MediaStatusPending:
			s.Pending++
		}
	}
	return s
}

// statusForSource implements the source-status -> media-status mapping
// table from spec.md §4.1.
func statusForSource(s models.SourceStatus) models.MediaStatus {
	switch s {
	case models.SourceStatusPending:
		return models.MediaStatusPending
	case models.SourceStatusAcquiring:
		return models.MediaStatusAsyncProcessing
	case models.SourceStatusAcquired:
		return models.MediaStatusWebAVDecoding
	case models.SourceStatusError:
		return models.MediaStatusError
	case models.SourceStatusCancelled:
		return models.MediaStatusCancelled
	case models.SourceStatusMissing:
		return models.MediaStatusMissing
	default:
		return models.MediaStatusPending
	}
}
