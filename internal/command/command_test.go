package command

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingCommand struct {
	BaseCommand
	name      string
	log       *[]string
	failExec  bool
	disposed  *bool
}

func (c *recordingCommand) Description() string { return c.name }

func (c *recordingCommand) Execute() error {
	if c.failExec {
		return fmt.Errorf("boom")
	}
	*c.log = append(*c.log, "exec:"+c.name)
	return nil
}

func (c *recordingCommand) Undo() error {
	*c.log = append(*c.log, "undo:"+c.name)
	return nil
}

func (c *recordingCommand) Dispose() {
	c.BaseCommand.Dispose()
	if c.disposed != nil {
		*c.disposed = true
	}
}

func TestHistoryExecuteUndoRedo(t *testing.T) {
	h := NewHistoryStack(noopLogger(), nil)
	var log []string

	c1 := &recordingCommand{name: "a", log: &log}
	require.NoError(t, h.Execute(c1))
	require.True(t, h.CanUndo())
	require.False(t, h.CanRedo())

	require.NoError(t, h.Undo())
	require.False(t, h.CanUndo())
	require.True(t, h.CanRedo())
	require.Equal(t, []string{"exec:a", "undo:a"}, log)

	require.NoError(t, h.Redo())
	require.Equal(t, []string{"exec:a", "undo:a", "exec:a"}, log)
}

func TestHistoryExecuteDisposesDiscardedRedoTail(t *testing.T) {
	h := NewHistoryStack(noopLogger(), nil)
	var log []string
	var disposed bool

	c1 := &recordingCommand{name: "a", log: &log}
	c2 := &recordingCommand{name: "b", log: &log, disposed: &disposed}
	require.NoError(t, h.Execute(c1))
	require.NoError(t, h.Execute(c2))
	require.NoError(t, h.Undo())

	c3 := &recordingCommand{name: "c", log: &log}
	require.NoError(t, h.Execute(c3))

	require.True(t, disposed)
	require.Equal(t, 2, h.Len())
}

func TestHistoryFailedExecuteDoesNotAdvance(t *testing.T) {
	h := NewHistoryStack(noopLogger(), nil)
	var log []string

	bad := &recordingCommand{name: "bad", log: &log, failExec: true}
	require.Error(t, h.Execute(bad))
	require.Equal(t, 0, h.Len())
	require.False(t, h.CanUndo())
}

func TestBatchCommandUndoesChildrenInReverse(t *testing.T) {
	var log []string
	b := StartBatch("move two clips").
		AddCommand(&recordingCommand{name: "1", log: &log}).
		AddCommand(&recordingCommand{name: "2", log: &log}).
		Build()

	h := NewHistoryStack(noopLogger(), nil)
	require.NoError(t, h.Execute(b))
	require.Equal(t, []string{"exec:1", "exec:2"}, log)

	require.NoError(t, h.Undo())
	require.Equal(t, []string{"exec:1", "exec:2", "undo:2", "undo:1"}, log)
}

func TestDisposeIsIdempotent(t *testing.T) {
	var log []string
	calls := 0
	c := &recordingCommand{BaseCommand: NewBaseCommand(func() { calls++ }), name: "x", log: &log}

	c.Dispose()
	c.Dispose()
	require.Equal(t, 1, calls)
}

func TestSelectionDebouncerSuppressesWithinWindow(t *testing.T) {
	d := NewSelectionDebouncer()
	now := fixedTime()
	require.True(t, d.Allow(now))
	require.False(t, d.Allow(now.Add(50*time.Millisecond)))
}
