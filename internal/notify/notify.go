// Package notify implements the user-facing notification ring described in
// spec.md §4.7: a small, non-persistent set of toasts the UI subscribes to,
// capped so a burst of async errors can't flood the screen.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novaforge/reelcore/internal/metrics"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

const ringCapacity = 5

var defaultDuration = map[Level]time.Duration{
	LevelSuccess: 3 * time.Second,
	LevelInfo:    5 * time.Second,
	LevelWarning: 6 * time.Second,
	LevelError:   8 * time.Second,
}

type Notification struct {
	ID        uuid.UUID
	Level     Level
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// Listener receives every ring mutation (push or evict) so the API layer
// can mirror it to the WebSocket channel.
type Listener func(items []Notification)

// Ring is the bounded, de-duplicating notification store. Success/warning/
// info de-duplicate on message so a flurry of identical autosave warnings
// collapses to one; errors never de-duplicate because each one may carry
// distinct diagnostic context the user needs to see.
type Ring struct {
	mu        sync.Mutex
	items     []Notification
	listeners []Listener
}

func NewRing() *Ring {
	return &Ring{}
}

func (r *Ring) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Push adds a notification, evicting the oldest if the ring is full.
func (r *Ring) Push(level Level, message string) Notification {
	r.mu.Lock()
	n := Notification{
		ID:        uuid.New(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  defaultDuration[level],
	}

	if level != LevelError {
		for _, existing := range r.items {
			if existing.Level == level && existing.Message == message {
				r.mu.Unlock()
				return existing
			}
		}
	}

	metrics.NotificationsTotal.WithLabelValues(string(level)).Inc()

	r.items = append(r.items, n)
	if len(r.items) > ringCapacity {
		r.items = r.items[len(r.items)-ringCapacity:]
	}
	snapshot := append([]Notification(nil), r.items...)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return n
}

func (r *Ring) Dismiss(id uuid.UUID) {
	r.mu.Lock()
	for i, n := range r.items {
		if n.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
	snapshot := append([]Notification(nil), r.items...)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (r *Ring) Items() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *Ring) Success(message string) Notification { return r.Push(LevelSuccess, message) }
func (r *Ring) Warning(message string) Notification { return r.Push(LevelWarning, message) }
func (r *Ring) Info(message string) Notification    { return r.Push(LevelInfo, message) }
func (r *Ring) Error(message string) Notification   { return r.Push(LevelError, message) }
