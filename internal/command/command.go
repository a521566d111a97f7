// Package command implements the undoable operation surface from
// spec.md §4.3: a Command interface, a batch composite, and a HistoryStack
// that sequences execute/undo/redo and disposes commands dropped from a
// discarded redo tail or a clear().
package command

import (
	"fmt"
	"sync"
)

// Command is a single undoable operation. Execute must be transactional:
// it either fully succeeds or restores any partial state itself before
// returning an error, since the HistoryStack retains no rollback
// mechanism of its own.
type Command interface {
	Execute() error
	Undo() error
	Description() string
	// Dispose releases resources the command captured (removed sprites,
	// cloned blobs, detached items). Implementations must be idempotent.
	Dispose()
}

// BaseCommand gives concrete commands the idempotent-dispose bookkeeping
// for free.
type BaseCommand struct {
	disposed bool
	mu       sync.Mutex
	onDispose func()
}

func NewBaseCommand(onDispose func()) BaseCommand {
	return BaseCommand{onDispose: onDispose}
}

func (b *BaseCommand) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.disposed = true
	if b.onDispose != nil {
		b.onDispose()
	}
}

// BatchCommand runs a fixed sequence of child commands as a single history
// entry. Execute runs children in order; Undo reverses them.
type BatchCommand struct {
	BaseCommand
	description string
	children    []Command
	executed    int // number of children successfully executed, for partial rollback
}

func NewBatchCommand(description string, children []Command) *BatchCommand {
	return &BatchCommand{description: description, children: children}
}

func (b *BatchCommand) Description() string { return b.description }

func (b *BatchCommand) Execute() error {
	for i, child := range b.children {
		if err := child.Execute(); err != nil {
			// Roll back everything already applied in this batch so the
			// batch as a whole behaves transactionally.
			for j := i - 1; j >= 0; j-- {
				_ = b.children[j].Undo()
			}
			b.executed = 0
			return fmt.Errorf("batch %q: child %d failed: %w", b.description, i, err)
		}
		b.executed = i + 1
	}
	return nil
}

func (b *BatchCommand) Undo() error {
	for i := b.executed - 1; i >= 0; i-- {
		if err := b.children[i].Undo(); err != nil {
			return fmt.Errorf("batch %q: undo child %d: %w", b.description, i, err)
		}
	}
	b.executed = 0
	return nil
}

func (b *BatchCommand) Dispose() {
	b.BaseCommand.Dispose()
	for _, child := range b.children {
		child.Dispose()
	}
}

// Builder accumulates commands for a future BatchCommand via startBatch
// per spec.md §4.3.
type Builder struct {
	description string
	children    []Command
}

func StartBatch(description string) *Builder {
	return &Builder{description: description}
}

func (b *Builder) AddCommand(c Command) *Builder {
	b.children = append(b.children, c)
	return b
}

func (b *Builder) Build() *BatchCommand {
	return NewBatchCommand(b.description, b.children)
}
