// Package track owns the ordered set of timeline tracks. A project always
// has at least one track; the registry seeds a default set on creation and
// this package refuses to let the last one be removed.
package track

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/novaforge/reelcore/internal/models"
)

// RemoveCascade is invoked with the id of a track being removed so the
// timeline package can splice out every TimelineItem that referenced it.
type RemoveCascade func(trackID uuid.UUID)

type Registry struct {
	mu     sync.RWMutex
	tracks []*models.Track
}

// NewRegistry seeds one video, one audio and one text track, mirroring the
// default layout a fresh project starts with (spec.md §3).
func NewRegistry() *Registry {
	return &Registry{
		tracks: []*models.Track{
			{ID: uuid.New(), Name: "Video 1", Type: models.TrackTypeVideo, IsVisible: true, HeightPx: 80},
			{ID: uuid.New(), Name: "Audio 1", Type: models.TrackTypeAudio, IsVisible: true, HeightPx: 60},
			{ID: uuid.New(), Name: "Text 1", Type: models.TrackTypeText, IsVisible: true, HeightPx: 40},
		},
	}
}

// NewEmptyRegistry is used by project load, which restores the saved track
// set from scratch rather than starting from the default layout.
func NewEmptyRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(t *models.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.tracks = append(r.tracks, t)
}

func (r *Registry) Get(id uuid.UUID) (*models.Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tracks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return nil, false
}

func (r *Registry) List() []*models.Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Track, len(r.tracks))
	for i, t := range r.tracks {
		out[i] = t.Clone()
	}
	return out
}

func (r *Registry) First() (*models.Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.tracks) == 0 {
		return nil, false
	}
	return r.tracks[0].Clone(), true
}

// Remove deletes a track, cascading to dependent timeline items via
// cascade, unless it is the project's last remaining track.
func (r *Registry) Remove(id uuid.UUID, cascade RemoveCascade) error {
	r.mu.Lock()
	if len(r.tracks) <= 1 {
		r.mu.Unlock()
		return fmt.Errorf("track: cannot remove the last track in a project")
	}
	idx := -1
	for i, t := range r.tracks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return fmt.Errorf("track: unknown track %s", id)
	}
	r.tracks = append(r.tracks[:idx], r.tracks[idx+1:]...)
	r.mu.Unlock()

	if cascade != nil {
		cascade(id)
	}
	return nil
}

func (r *Registry) SetVisible(id uuid.UUID, visible bool) error {
	return r.mutate(id, func(t *models.Track) { t.IsVisible = visible })
}

func (r *Registry) SetMuted(id uuid.UUID, muted bool) error {
	return r.mutate(id, func(t *models.Track) { t.IsMuted = muted })
}

func (r *Registry) Rename(id uuid.UUID, name string) error {
	if name == "" {
		return fmt.Errorf("track: name must not be empty")
	}
	return r.mutate(id, func(t *models.Track) { t.Name = name })
}

func (r *Registry) SetHeight(id uuid.UUID, heightPx int) error {
	if heightPx <= 0 {
		return fmt.Errorf("track: height must be positive")
	}
	return r.mutate(id, func(t *models.Track) { t.HeightPx = heightPx })
}

func (r *Registry) mutate(id uuid.UUID, fn func(*models.Track)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tracks {
		if t.ID == id {
			fn(t)
			return nil
		}
	}
	return fmt.Errorf("track: unknown track %s", id)
}
