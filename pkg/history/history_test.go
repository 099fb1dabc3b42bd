package history_test

import (
	"errors"
	"testing"

	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGraph keeps one property value per target, enough to observe command application.
type fakeGraph struct {
	values   map[uuid.UUID]map[string]any
	viewport map[uuid.UUID]history.Viewport
	calls    []string
	failOn   string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		values:   make(map[uuid.UUID]map[string]any),
		viewport: make(map[uuid.UUID]history.Viewport),
	}
}

func (g *fakeGraph) record(call string) error {
	g.calls = append(g.calls, call)
	if call == g.failOn {
		return errors.New("boom")
	}
	return nil
}

func (g *fakeGraph) DestroyNode(uuid.UUID) error      { return g.record("DestroyNode") }
func (g *fakeGraph) RestoreNode([]byte, int) error    { return g.record("RestoreNode") }
func (g *fakeGraph) DestroyNodePort(uuid.UUID) error  { return g.record("DestroyNodePort") }
func (g *fakeGraph) RestoreNodePort([]byte) error     { return g.record("RestoreNodePort") }
func (g *fakeGraph) DestroyConnector(uuid.UUID) error { return g.record("DestroyConnector") }
func (g *fakeGraph) RestoreConnector([]byte) error    { return g.record("RestoreConnector") }

func (g *fakeGraph) SetProperty(target uuid.UUID, property string, value any) error {
	if err := g.record("SetProperty"); err != nil {
		return err
	}
	if g.values[target] == nil {
		g.values[target] = make(map[string]any)
	}
	g.values[target][property] = value
	return nil
}

func (g *fakeGraph) SetViewport(fc uuid.UUID, v history.Viewport) error {
	g.viewport[fc] = v
	return g.record("SetViewport")
}

// commit records a single-command transaction that changes "Header" from old to new.
func commit(h *history.History, g *fakeGraph, target uuid.UUID, name string, old, new any) {
	h.BeginTransaction(name)
	h.AddCommand(&history.SetProperty{Target: target, Property: "Header", Old: old, New: new})
	h.EndTransaction(false)
	_ = g.SetProperty(target, "Header", new)
}

func TestHistory_CommitUndoRedo(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g)
	id := uuid.New()

	assert.Equal(t, history.DefaultCapacity, h.Capacity())
	assert.Equal(t, -1, h.Position())

	commit(h, g, id, "A", nil, "a")
	commit(h, g, id, "B", "a", "b")
	assert.Equal(t, 1, h.Position())

	require.NoError(t, h.Undo())
	assert.Equal(t, "a", g.values[id]["Header"])
	assert.Equal(t, 0, h.Position())
	assert.True(t, h.CanRedo())

	require.NoError(t, h.Redo())
	assert.Equal(t, "b", g.values[id]["Header"])
	assert.False(t, h.CanRedo())

	// Redo past the end is a no-op
	require.NoError(t, h.Redo())
	assert.Equal(t, 1, h.Position())
}

func TestHistory_UndoRedoUndo_IsUndo(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g)
	id := uuid.New()

	commit(h, g, id, "A", nil, "a")
	commit(h, g, id, "B", "a", "b")

	require.NoError(t, h.Undo())
	afterUndo := g.values[id]["Header"]
	posAfterUndo := h.Position()

	require.NoError(t, h.Redo())
	require.NoError(t, h.Undo())
	assert.Equal(t, afterUndo, g.values[id]["Header"])
	assert.Equal(t, posAfterUndo, h.Position())
}

func TestHistory_CommitTruncatesRedoBranch(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g)
	id := uuid.New()

	commit(h, g, id, "A", nil, "a")
	commit(h, g, id, "B", "a", "b")
	require.NoError(t, h.Undo())

	commit(h, g, id, "C", "a", "c")
	assert.False(t, h.CanRedo())

	undo, current, redo := h.GetTransactionList()
	require.NotNil(t, current)
	assert.Equal(t, "C", current.Name)
	require.Len(t, undo, 1)
	assert.Equal(t, "A", undo[0].Name)
	assert.Empty(t, redo)
}

func TestHistory_FullRingEvictsOldest(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g, history.WithCapacity(2))
	id := uuid.New()

	commit(h, g, id, "A", nil, "a")
	commit(h, g, id, "B", "a", "b")
	commit(h, g, id, "C", "b", "c")

	txs := h.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "B", txs[0].Name)
	assert.Equal(t, "C", txs[1].Name)
	assert.Equal(t, 1, h.Position())

	require.NoError(t, h.Undo())
	require.NoError(t, h.Undo())
	assert.Equal(t, -1, h.Position())
	assert.Equal(t, "a", g.values[id]["Header"], "A is no longer undoable")

	require.NoError(t, h.Undo())
	assert.Equal(t, -1, h.Position())
}

func TestHistory_CancelAndEmptyTransactionsAreDiscarded(t *testing.T) {
	g := newFakeGraph()
	var discarded []string
	h := history.New(g, history.WithHooks(history.Hooks{
		OnDiscard: func(tx *history.Transaction) { discarded = append(discarded, tx.Name) },
	}))

	h.BeginTransaction("empty")
	h.EndTransaction(false)

	h.BeginTransaction("cancelled")
	h.AddCommand(&history.SetProperty{Target: uuid.New(), Property: "X"})
	h.EndTransaction(true)

	assert.Equal(t, -1, h.Position())
	assert.Equal(t, []string{"empty", "cancelled"}, discarded)
	assert.False(t, h.IsTransactionOpen())
}

func TestHistory_BeginCommitsOpenTransaction(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g)

	h.BeginTransaction("first")
	h.AddCommand(&history.SetProperty{Target: uuid.New(), Property: "X"})
	h.BeginTransaction("second")

	_, current, _ := h.GetTransactionList()
	require.NotNil(t, current)
	assert.Equal(t, "first", current.Name)
	assert.True(t, h.IsTransactionOpen())
}

func TestHistory_AddCommandWithoutTransactionIsNoop(t *testing.T) {
	h := history.New(newFakeGraph())
	h.AddCommand(&history.SetProperty{Target: uuid.New(), Property: "X"})
	h.EndTransaction(false)
	assert.False(t, h.CanUndo())
}

func TestHistory_Record(t *testing.T) {
	h := history.New(newFakeGraph())
	id := uuid.New()

	h.Record("Setting Property", &history.SetProperty{Target: id, Property: "Header"})
	_, current, _ := h.GetTransactionList()
	require.NotNil(t, current)
	assert.Equal(t, "Setting Property", current.Name)

	h.BeginTransaction("Moving Nodes")
	h.Record("Setting Property", &history.SetProperty{Target: id, Property: "X"})
	h.EndTransaction(false)

	_, current, _ = h.GetTransactionList()
	assert.Equal(t, "Moving Nodes", current.Name)
	assert.Len(t, current.Commands, 1)
}

func TestHistory_ProcessingGuard(t *testing.T) {
	g := &recordingGraph{fakeGraph: newFakeGraph()}
	h := history.New(g)
	g.history = h
	id := uuid.New()

	h.Record("Setting Property", &history.SetProperty{Target: id, Property: "Header", Old: "a", New: "b"})
	require.NoError(t, h.Undo())

	assert.True(t, g.sawProcessing)
	assert.False(t, h.IsProcessing())
	_, current, redo := h.GetTransactionList()
	assert.Nil(t, current)
	assert.Len(t, redo, 1, "recording during undo must not create transactions")
}

// recordingGraph tries to record a command from inside a command application.
type recordingGraph struct {
	*fakeGraph
	history       *history.History
	sawProcessing bool
}

func (g *recordingGraph) SetProperty(target uuid.UUID, property string, value any) error {
	g.sawProcessing = g.history.IsProcessing()
	g.history.Record("nested", &history.SetProperty{Target: target, Property: property})
	return g.fakeGraph.SetProperty(target, property, value)
}

func TestHistory_MoveTo(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g, history.WithCapacity(5))
	id := uuid.New()

	commit(h, g, id, "A", nil, "a")
	commit(h, g, id, "B", "a", "b")
	commit(h, g, id, "C", "b", "c")

	require.NoError(t, h.MoveTo(-10))
	assert.Equal(t, -1, h.Position())
	assert.Nil(t, g.values[id]["Header"])

	// Redo stops at the first empty slot
	require.NoError(t, h.MoveTo(100))
	assert.Equal(t, 2, h.Position())
	assert.Equal(t, "c", g.values[id]["Header"])

	require.NoError(t, h.MoveTo(0))
	assert.Equal(t, "a", g.values[id]["Header"])
}

func TestHistory_FailingCommandAbortsMove(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g)

	h.BeginTransaction("Create")
	h.AddCommand(&history.CreateNode{Node: uuid.New()})
	h.EndTransaction(false)

	g.failOn = "DestroyNode"
	err := h.Undo()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CreateNode")
	assert.Equal(t, 0, h.Position())
	assert.False(t, h.IsProcessing(), "guard is cleared on failure")
}

func TestHistory_SetNumberOfTransactions(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g, history.WithCapacity(4))
	id := uuid.New()

	commit(h, g, id, "A", nil, "a")
	commit(h, g, id, "B", "a", "b")
	commit(h, g, id, "C", "b", "c")

	h.SetNumberOfTransactions(2, false)
	assert.Equal(t, 2, h.Capacity())
	txs := h.Transactions()
	assert.Equal(t, "B", txs[0].Name)
	assert.Equal(t, "C", txs[1].Name)
	assert.Equal(t, 1, h.Position())

	h.SetNumberOfTransactions(6, false)
	assert.Equal(t, 6, h.Capacity())
	assert.Equal(t, 1, h.Position())

	h.SetNumberOfTransactions(3, true)
	assert.Equal(t, 3, h.Capacity())
	assert.Equal(t, -1, h.Position())
	assert.False(t, h.CanRedo())
}

func TestCommands_ApplyInReverseOnUndo(t *testing.T) {
	g := newFakeGraph()
	h := history.New(g)
	fc := uuid.New()

	h.BeginTransaction("Mixed")
	h.AddCommand(&history.Connect{Connector: uuid.New()})
	h.AddCommand(&history.CreateNodePort{Port: uuid.New()})
	h.AddCommand(&history.ZoomPan{FlowChart: fc, From: history.Viewport{Scale: 1}, To: history.Viewport{OffsetX: 5, Scale: 2}})
	h.EndTransaction(false)

	require.NoError(t, h.Undo())
	assert.Equal(t, []string{"SetViewport", "DestroyNodePort", "DestroyConnector"}, g.calls)
	assert.Equal(t, 1.0, g.viewport[fc].Scale)

	g.calls = nil
	require.NoError(t, h.Redo())
	assert.Equal(t, []string{"RestoreConnector", "RestoreNodePort", "SetViewport"}, g.calls)
	assert.Equal(t, 2.0, g.viewport[fc].Scale)
}
