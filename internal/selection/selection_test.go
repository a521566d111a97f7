package selection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestReplaceClearsThenAdds(t *testing.T) {
	m := New()
	a, b := uuid.New(), uuid.New()
	m.Apply(ModeReplace, a)
	m.Apply(ModeReplace, b)

	require.False(t, m.Contains(a))
	require.True(t, m.Contains(b))
}

func TestToggleFlipsEachID(t *testing.T) {
	m := New()
	a := uuid.New()
	m.Apply(ModeToggle, a)
	require.True(t, m.Contains(a))

	m.Apply(ModeToggle, a)
	require.False(t, m.Contains(a))
}

func TestDerivedFields(t *testing.T) {
	m := New()
	require.False(t, m.HasSelection())

	a := uuid.New()
	m.Apply(ModeReplace, a)
	require.True(t, m.HasSelection())
	require.False(t, m.IsMultiSelectMode())
	id, ok := m.SelectedTimelineItemID()
	require.True(t, ok)
	require.Equal(t, a, id)

	b := uuid.New()
	m.Apply(ModeToggle, b)
	require.True(t, m.IsMultiSelectMode())
	_, ok = m.SelectedTimelineItemID()
	require.False(t, ok)
}
