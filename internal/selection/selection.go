// Package selection implements the single Set<string>-backed selection
// model from spec.md §4.7, with derived single-item/multi-select fields
// recomputed from the set rather than tracked separately.
package selection

import "github.com/google/uuid"

type Mode string

const (
	ModeReplace Mode = "replace"
	ModeToggle  Mode = "toggle"
)

type Model struct {
	ids map[uuid.UUID]struct{}
}

func New() *Model {
	return &Model{ids: make(map[uuid.UUID]struct{})}
}

// Apply mutates the selection according to mode: replace clears then adds
// every id, toggle flips each provided id independently.
func (m *Model) Apply(mode Mode, ids ...uuid.UUID) {
	switch mode {
	case ModeReplace:
		m.ids = make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			m.ids[id] = struct{}{}
		}
	case ModeToggle:
		for _, id := range ids {
			if _, ok := m.ids[id]; ok {
				delete(m.ids, id)
			} else {
				m.ids[id] = struct{}{}
			}
		}
	}
}

func (m *Model) Clear() {
	m.ids = make(map[uuid.UUID]struct{})
}

func (m *Model) HasSelection() bool { return len(m.ids) > 0 }

func (m *Model) IsMultiSelectMode() bool { return len(m.ids) > 1 }

// SelectedTimelineItemID returns the sole selected id when exactly one is
// selected, and (uuid.Nil, false) otherwise.
func (m *Model) SelectedTimelineItemID() (uuid.UUID, bool) {
	if len(m.ids) != 1 {
		return uuid.Nil, false
	}
	for id := range m.ids {
		return id, true
	}
	return uuid.Nil, false
}

func (m *Model) Contains(id uuid.UUID) bool {
	_, ok := m.ids[id]
	return ok
}

func (m *Model) All() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	return out
}
