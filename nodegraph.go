package nodegraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/nodegraph/internal/presentation/graph"
	"github.com/aretw0/nodegraph/pkg/adapters/memory"
	"github.com/aretw0/nodegraph/pkg/connection"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/execution"
	"github.com/aretw0/nodegraph/pkg/format"
	"github.com/aretw0/nodegraph/pkg/interaction"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/observability"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/store"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a Save may hold a document lock.
const DefaultLockTTL = 30 * time.Second

// Editor is an editing session: one registry of live flow charts with the engine,
// controller and executor working on it, plus the store documents are kept in.
//
// An Editor is not safe for concurrent use, except for the read-only document
// methods (Documents, Document, Validate, Mermaid), which never touch the live registry.
type Editor struct {
	reg         *registry.Registry
	engine      *connection.Engine
	interaction *interaction.Controller
	executor    *execution.Executor

	store   store.DocumentStore
	locker  store.Locker
	lockTTL time.Duration
	codec   format.Codec
	catalog *registry.Catalog

	metrics         *observability.Metrics
	hooks           domain.LifecycleHooks
	execHooks       execution.Hooks
	historyCapacity int
	maxSteps        int
	logger          *slog.Logger
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithLogger sets a custom structured logger for the editor and every component.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithStore sets the document store. The default is an in-memory store.
func WithStore(s store.DocumentStore) Option {
	return func(e *Editor) {
		e.store = s
	}
}

// WithLocker serializes Save calls for the same document through l.
// A ttl of zero means DefaultLockTTL.
func WithLocker(l store.Locker, ttl time.Duration) Option {
	return func(e *Editor) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithCodec sets the document codec. The default is YAML.
func WithCodec(c format.Codec) Option {
	return func(e *Editor) {
		e.codec = c
	}
}

// WithCatalog sets the node types. The default is the standard nodes catalog.
func WithCatalog(c *registry.Catalog) Option {
	return func(e *Editor) {
		e.catalog = c
	}
}

// WithMetrics feeds m from registry, history and execution hooks.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Editor) {
		e.metrics = m
	}
}

// WithLifecycleHooks registers registry lifecycle hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Editor) {
		e.hooks = hooks
	}
}

// WithExecutionHooks registers node execution hooks.
func WithExecutionHooks(hooks execution.Hooks) Option {
	return func(e *Editor) {
		e.execHooks = hooks
	}
}

// WithHistoryCapacity sets the number of transactions each flow chart keeps.
func WithHistoryCapacity(n int) Option {
	return func(e *Editor) {
		e.historyCapacity = n
	}
}

// WithMaxSteps bounds the nodes executed by a single Run.
func WithMaxSteps(n int) Option {
	return func(e *Editor) {
		e.maxSteps = n
	}
}

// New creates an editor.
func New(opts ...Option) (*Editor, error) {
	e := &Editor{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.codec == nil {
		e.codec = format.YAML()
	}
	if e.catalog == nil {
		e.catalog = nodes.Catalog()
	}
	if e.lockTTL <= 0 {
		e.lockTTL = DefaultLockTTL
	}
	if e.historyCapacity < 0 {
		return nil, fmt.Errorf("history capacity must not be negative, got %d", e.historyCapacity)
	}

	hooks := e.hooks
	execHooks := e.execHooks
	regOpts := []registry.Option{
		registry.WithLogger(e.logger),
		registry.WithCatalog(e.catalog),
		registry.WithCodec(e.codec),
	}
	if e.historyCapacity > 0 {
		regOpts = append(regOpts, registry.WithHistoryCapacity(e.historyCapacity))
	}
	if e.metrics != nil {
		hooks = hooks.Merge(e.metrics.LifecycleHooks())
		execHooks = mergeExecutionHooks(execHooks, e.metrics.ExecutionHooks())
		regOpts = append(regOpts, registry.WithHistoryHooks(e.metrics.HistoryHooks()))
	}
	regOpts = append(regOpts, registry.WithHooks(hooks))

	e.reg = registry.New(regOpts...)
	e.engine = connection.New(e.reg, connection.WithLogger(e.logger))
	e.interaction = interaction.New(e.reg, e.engine, interaction.WithLogger(e.logger))

	execOpts := []execution.Option{execution.WithLogger(e.logger), execution.WithHooks(execHooks)}
	if e.maxSteps != 0 {
		execOpts = append(execOpts, execution.WithMaxSteps(e.maxSteps))
	}
	e.executor = execution.New(execOpts...)
	return e, nil
}

func mergeExecutionHooks(a, b execution.Hooks) execution.Hooks {
	chain := func(x, y func(context.Context, *execution.NodeEvent)) func(context.Context, *execution.NodeEvent) {
		switch {
		case x == nil:
			return y
		case y == nil:
			return x
		}
		return func(ctx context.Context, ev *execution.NodeEvent) {
			x(ctx, ev)
			y(ctx, ev)
		}
	}
	return execution.Hooks{
		OnNodeEnter: chain(a.OnNodeEnter, b.OnNodeEnter),
		OnNodeLeave: chain(a.OnNodeLeave, b.OnNodeLeave),
	}
}

func (e *Editor) Registry() *registry.Registry         { return e.reg }
func (e *Editor) Connections() *connection.Engine      { return e.engine }
func (e *Editor) Interaction() *interaction.Controller { return e.interaction }
func (e *Editor) Executor() *execution.Executor        { return e.executor }
func (e *Editor) Store() store.DocumentStore           { return e.store }
func (e *Editor) Codec() format.Codec                  { return e.codec }

// Close destroys every live flow chart.
func (e *Editor) Close() error {
	return e.reg.Close()
}

// NewFlowChart creates an empty flow chart with a fresh GUID.
func (e *Editor) NewFlowChart() (*domain.FlowChart, error) {
	return e.reg.CreateFlowChart(uuid.Nil)
}

// Open loads the named document into the session, replacing a live flow chart with
// the same GUID. On failure the session is left as it was.
func (e *Editor) Open(ctx context.Context, name string) (*domain.FlowChart, error) {
	data, err := e.load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	fc, err := e.Import(data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	e.logger.Info("document opened", "document", name, "flowchart", fc.GUID(), "nodes", len(fc.Nodes()))
	return fc, nil
}

// Import loads an encoded document into the session with the same guarantees as Open.
func (e *Editor) Import(data []byte) (*domain.FlowChart, error) {
	var rec format.FlowChartRecord
	if err := e.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}
	return e.ImportRecord(rec)
}

// ImportRecord loads a decoded document into the session with the same guarantees as Open.
func (e *Editor) ImportRecord(rec format.FlowChartRecord) (*domain.FlowChart, error) {
	if err := e.check(rec); err != nil {
		return nil, err
	}
	fc, err := e.reg.LoadFlowChartRecord(rec)
	if err != nil {
		if fc != nil {
			e.reg.DestroyFlowChart(fc.GUID())
		}
		return nil, err
	}
	return fc, nil
}

// check loads rec into a scratch registry so that a failing document never
// replaces a live flow chart.
func (e *Editor) check(rec format.FlowChartRecord) error {
	scratch := e.scratch()
	defer scratch.Close()
	_, err := scratch.LoadFlowChartRecord(rec)
	return err
}

func (e *Editor) scratch() *registry.Registry {
	return registry.New(registry.WithCatalog(e.catalog), registry.WithCodec(e.codec))
}

func (e *Editor) load(ctx context.Context, name string) ([]byte, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	return e.store.Load(ctx, name)
}

// Export encodes fc with the editor codec.
func (e *Editor) Export(fc *domain.FlowChart) ([]byte, error) {
	return e.reg.SerializeFlowChart(fc)
}

// Save stores fc under name. With a locker configured, the document is locked for
// the duration of the write.
func (e *Editor) Save(ctx context.Context, name string, fc *domain.FlowChart) (err error) {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	data, err := e.Export(fc)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, name, e.lockTTL)
		if err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				err = errors.Join(err, fmt.Errorf("save %s: unlock: %w", name, uerr))
			}
		}()
	}
	if err := e.store.Save(ctx, name, data); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	e.logger.Info("document saved", "document", name, "flowchart", fc.GUID(), "bytes", len(data))
	return nil
}

// Delete removes the named document from the store.
func (e *Editor) Delete(ctx context.Context, name string) error {
	return e.store.Delete(ctx, name)
}

// Documents lists the stored document names.
func (e *Editor) Documents(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// Document returns the decoded record of the named document without loading it.
func (e *Editor) Document(ctx context.Context, name string) (format.FlowChartRecord, error) {
	var rec format.FlowChartRecord
	data, err := e.load(ctx, name)
	if err != nil {
		return rec, err
	}
	if err := e.codec.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}
	return rec, nil
}

// Validate reports whether the named document loads completely.
func (e *Editor) Validate(ctx context.Context, name string) error {
	rec, err := e.Document(ctx, name)
	if err != nil {
		return err
	}
	return e.check(rec)
}

// Mermaid renders the named document as a Mermaid diagram.
func (e *Editor) Mermaid(ctx context.Context, name string) (string, error) {
	rec, err := e.Document(ctx, name)
	if err != nil {
		return "", err
	}
	scratch := e.scratch()
	defer scratch.Close()
	fc, err := scratch.LoadFlowChartRecord(rec)
	if err != nil {
		return "", err
	}
	return graph.GenerateMermaid(fc, nil), nil
}

// Types returns the node types available to documents, sorted by name.
func (e *Editor) Types() []registry.NodeType {
	names := e.catalog.Names()
	out := make([]registry.NodeType, 0, len(names))
	for _, name := range names {
		if t, ok := e.catalog.Lookup(name); ok {
			out = append(out, t)
		}
	}
	return out
}

// Run executes fc from its entry nodes and returns the number of executed nodes.
func (e *Editor) Run(ctx context.Context, fc *domain.FlowChart) (int, error) {
	steps, err := e.executor.Run(ctx, fc)
	if err != nil {
		e.logger.Warn("run failed", "flowchart", fc.GUID(), "steps", steps, "error", err)
		return steps, err
	}
	e.logger.Debug("run finished", "flowchart", fc.GUID(), "steps", steps)
	return steps, nil
}
