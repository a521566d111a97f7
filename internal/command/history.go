package command

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/novaforge/reelcore/internal/notify"
)

// HistoryStack is the ordered command log with a current index, −1 when
// empty. CanUndo/CanRedo are derived, never stored, so they can never
// drift out of sync with the underlying slice.
type HistoryStack struct {
	mu           sync.Mutex
	commands     []Command
	currentIndex int

	log      zerolog.Logger
	notifier *notify.Ring
}

func NewHistoryStack(log zerolog.Logger, notifier *notify.Ring) *HistoryStack {
	return &HistoryStack{currentIndex: -1, log: log, notifier: notifier}
}

func (h *HistoryStack) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentIndex >= 0
}

func (h *HistoryStack) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentIndex < len(h.commands)-1
}

// Execute runs cmd; if the index isn't at the tail, the redo tail is
// spliced off and each discarded command disposed before the new one is
// appended. A failed execute leaves history untouched — the command
// itself is responsible for restoring any partial state before the error
// surfaces here.
func (h *HistoryStack) Execute(cmd Command) error {
	h.mu.Lock()
	if h.currentIndex < len(h.commands)-1 {
		discarded := h.commands[h.currentIndex+1:]
		h.commands = h.commands[:h.currentIndex+1]
		for _, d := range discarded {
			d.Dispose()
		}
	}
	h.mu.Unlock()

	if err := cmd.Execute(); err != nil {
		h.log.Error().Str("command", cmd.Description()).Err(err).Msg("command execution failed")
		if h.notifier != nil {
			h.notifier.Error(fmt.Sprintf("%s failed: %v", cmd.Description(), err))
		}
		return err
	}

	h.mu.Lock()
	h.commands = append(h.commands, cmd)
	h.currentIndex++
	h.mu.Unlock()
	return nil
}

// Undo reverses the command at currentIndex and decrements. On failure the
// index is left untouched so a retry (or a fixed underlying state) can
// undo again.
func (h *HistoryStack) Undo() error {
	h.mu.Lock()
	if h.currentIndex < 0 {
		h.mu.Unlock()
		return nil
	}
	cmd := h.commands[h.currentIndex]
	h.mu.Unlock()

	if err := cmd.Undo(); err != nil {
		h.log.Error().Str("command", cmd.Description()).Err(err).Msg("undo failed")
		if h.notifier != nil {
			h.notifier.Error(fmt.Sprintf("undo %s failed: %v", cmd.Description(), err))
		}
		return err
	}

	h.mu.Lock()
	h.currentIndex--
	h.mu.Unlock()
	return nil
}

// Redo increments first, then re-executes; on failure the index is rolled
// back so state reflects what actually happened.
func (h *HistoryStack) Redo() error {
	h.mu.Lock()
	if h.currentIndex >= len(h.commands)-1 {
		h.mu.Unlock()
		return nil
	}
	h.currentIndex++
	cmd := h.commands[h.currentIndex]
	h.mu.Unlock()

	if err := cmd.Execute(); err != nil {
		h.mu.Lock()
		h.currentIndex--
		h.mu.Unlock()
		h.log.Error().Str("command", cmd.Description()).Err(err).Msg("redo failed")
		if h.notifier != nil {
			h.notifier.Error(fmt.Sprintf("redo %s failed: %v", cmd.Description(), err))
		}
		return err
	}
	return nil
}

// Clear disposes every command and resets the stack.
func (h *HistoryStack) Clear() {
	h.mu.Lock()
	commands := h.commands
	h.commands = nil
	h.currentIndex = -1
	h.mu.Unlock()

	for _, c := range commands {
		c.Dispose()
	}
}

func (h *HistoryStack) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commands)
}

// ExecuteBatch runs a batch command through the same path as Execute,
// appearing in history as a single entry whose undo reverses children in
// reverse order (handled by BatchCommand.Undo).
func (h *HistoryStack) ExecuteBatch(batch *BatchCommand) error {
	return h.Execute(batch)
}
