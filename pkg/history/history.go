package history

import (
	"fmt"
	"io"
	"log/slog"
)

// DefaultCapacity is the number of transactions kept when no capacity is configured.
const DefaultCapacity = 100

// Transaction is a named, ordered group of commands undone and redone as a unit.
type Transaction struct {
	Name     string
	Commands []Command
}

// Add appends a command to the transaction.
func (t *Transaction) Add(cmd Command) {
	t.Commands = append(t.Commands, cmd)
}

func (t *Transaction) undo(g Graph) error {
	for i := len(t.Commands) - 1; i >= 0; i-- {
		if err := t.Commands[i].Undo(g); err != nil {
			return fmt.Errorf("undo %q: %s: %w", t.Name, t.Commands[i].Name(), err)
		}
	}
	return nil
}

func (t *Transaction) redo(g Graph) error {
	for _, cmd := range t.Commands {
		if err := cmd.Redo(g); err != nil {
			return fmt.Errorf("redo %q: %s: %w", t.Name, cmd.Name(), err)
		}
	}
	return nil
}

// Hooks observes history activity.
type Hooks struct {
	OnCommit  func(*Transaction)
	OnDiscard func(*Transaction)
	OnUndo    func(*Transaction)
	OnRedo    func(*Transaction)
}

// History is a bounded ring of committed transactions with a cursor.
//
// The cursor is the index of the last applied transaction, -1 when nothing
// is applied. Slots after the cursor hold the redo branch until the next commit.
// History is not safe for concurrent use.
type History struct {
	graph      Graph
	ring       []*Transaction
	cursor     int
	adding     *Transaction
	processing bool
	hooks      Hooks
	logger     *slog.Logger
}

// Option configures a History.
type Option func(*History)

// WithCapacity sets the number of transaction slots.
func WithCapacity(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.ring = make([]*Transaction, n)
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks Hooks) Option {
	return func(h *History) {
		h.hooks = hooks
	}
}

// WithLogger sets the logger for debug tracing of transactions.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		h.logger = logger
	}
}

// New creates a History that applies commands to g.
func New(g Graph, opts ...Option) *History {
	h := &History{
		graph:  g,
		ring:   make([]*Transaction, DefaultCapacity),
		cursor: -1,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h
}

// Capacity returns the number of transaction slots.
func (h *History) Capacity() int { return len(h.ring) }

// Position returns the cursor.
func (h *History) Position() int { return h.cursor }

// IsProcessing reports whether an undo, redo or move is being applied.
// While processing, recording calls are ignored.
func (h *History) IsProcessing() bool { return h.processing }

// IsTransactionOpen reports whether BeginTransaction has not been ended yet.
func (h *History) IsTransactionOpen() bool { return h.adding != nil }

// CanUndo reports whether a transaction is applied.
func (h *History) CanUndo() bool { return h.cursor >= 0 }

// CanRedo reports whether the slot after the cursor holds a transaction.
func (h *History) CanRedo() bool {
	next := h.cursor + 1
	return next < len(h.ring) && h.ring[next] != nil
}

// Clear drops every transaction and resets the cursor.
func (h *History) Clear() {
	for i := range h.ring {
		h.ring[i] = nil
	}
	h.cursor = -1
}

// SetNumberOfTransactions resizes the ring. When clear is true the history is reset first.
// Shrinking keeps the most recent applied transactions and drops the redo branch.
func (h *History) SetNumberOfTransactions(n int, clear bool) {
	if n <= 0 {
		return
	}
	if clear {
		h.Clear()
	}

	prev := len(h.ring)
	switch {
	case n > prev:
		h.ring = append(h.ring, make([]*Transaction, n-prev)...)
	case n < prev:
		start := h.cursor + 1 - n
		if start < 0 {
			start = 0
		}
		ring := make([]*Transaction, n)
		count := copy(ring, h.ring[start:h.cursor+1])
		h.ring = ring
		h.cursor = count - 1
	}
}

// BeginTransaction opens a new transaction. An already open transaction is committed first.
func (h *History) BeginTransaction(name string) {
	if h.processing {
		return
	}
	if h.adding != nil {
		h.EndTransaction(false)
	}
	h.adding = &Transaction{Name: name}
	h.logger.Debug("history: begin transaction", "transaction", name)
}

// AddCommand appends cmd to the open transaction. Without one, it is a no-op.
func (h *History) AddCommand(cmd Command) {
	if h.processing || h.adding == nil {
		return
	}
	h.adding.Add(cmd)
	h.logger.Debug("history: add command", "transaction", h.adding.Name, "command", cmd.Name())
}

// EndTransaction closes the open transaction.
// A cancelled or empty transaction is discarded; otherwise it is committed after the
// cursor and any redo branch is dropped. A full ring evicts its oldest transaction.
func (h *History) EndTransaction(cancel bool) {
	if h.processing || h.adding == nil {
		return
	}
	tx := h.adding
	h.adding = nil

	if cancel || len(tx.Commands) == 0 {
		h.logger.Debug("history: discard transaction", "transaction", tx.Name, "cancel", cancel)
		if h.hooks.OnDiscard != nil {
			h.hooks.OnDiscard(tx)
		}
		return
	}

	next := h.cursor + 1
	if next >= len(h.ring) {
		copy(h.ring, h.ring[1:])
		h.ring[len(h.ring)-1] = nil
	} else {
		h.cursor = next
	}
	h.ring[h.cursor] = tx
	for i := h.cursor + 1; i < len(h.ring); i++ {
		h.ring[i] = nil
	}

	h.logger.Debug("history: commit transaction", "transaction", tx.Name, "commands", len(tx.Commands), "position", h.cursor)
	if h.hooks.OnCommit != nil {
		h.hooks.OnCommit(tx)
	}
}

// Record appends cmd to the open transaction, or commits it as its own transaction named name.
func (h *History) Record(name string, cmd Command) {
	if h.processing {
		return
	}
	if h.adding != nil {
		h.AddCommand(cmd)
		return
	}
	h.BeginTransaction(name)
	h.AddCommand(cmd)
	h.EndTransaction(false)
}

// Undo moves the cursor one transaction back.
func (h *History) Undo() error {
	return h.MoveTo(h.cursor - 1)
}

// Redo moves the cursor one transaction forward.
func (h *History) Redo() error {
	return h.MoveTo(h.cursor + 1)
}

// MoveTo undoes or redoes transactions until the cursor reaches pos.
// pos is clamped to [-1, Capacity()-1]; redo stops at the first empty slot.
// A failing command aborts the move, leaving the cursor on the last fully applied transaction.
func (h *History) MoveTo(pos int) error {
	h.processing = true
	defer func() { h.processing = false }()

	target := min(len(h.ring)-1, max(-1, pos))

	switch {
	case target > h.cursor:
		for i := h.cursor + 1; i <= target; i++ {
			tx := h.ring[i]
			if tx == nil {
				break
			}
			if err := tx.redo(h.graph); err != nil {
				return err
			}
			h.cursor = i
			h.logger.Debug("history: redo", "transaction", tx.Name, "position", i)
			if h.hooks.OnRedo != nil {
				h.hooks.OnRedo(tx)
			}
		}
	case target < h.cursor:
		for i := h.cursor; i > target; i-- {
			tx := h.ring[i]
			if err := tx.undo(h.graph); err != nil {
				return err
			}
			h.cursor = i - 1
			h.logger.Debug("history: undo", "transaction", tx.Name, "position", i)
			if h.hooks.OnUndo != nil {
				h.hooks.OnUndo(tx)
			}
		}
	}
	return nil
}

// Transactions returns a copy of the ring, including empty slots.
func (h *History) Transactions() []*Transaction {
	out := make([]*Transaction, len(h.ring))
	copy(out, h.ring)
	return out
}

// GetTransactionList splits the ring around the cursor.
// undo holds the applied transactions before the current one; redo holds the
// non-empty slots after it.
func (h *History) GetTransactionList() (undo []*Transaction, current *Transaction, redo []*Transaction) {
	if h.cursor == -1 {
		for _, tx := range h.ring {
			if tx != nil {
				redo = append(redo, tx)
			}
		}
		return nil, nil, redo
	}

	undo = append(undo, h.ring[:h.cursor]...)
	current = h.ring[h.cursor]
	for _, tx := range h.ring[h.cursor+1:] {
		if tx != nil {
			redo = append(redo, tx)
		}
	}
	return undo, current, redo
}
