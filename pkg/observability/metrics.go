package observability

import (
	"context"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/execution"
	"github.com/aretw0/nodegraph/pkg/history"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nodegraph"

// Metrics holds the collectors fed by the hook sets.
type Metrics struct {
	Created      *prometheus.CounterVec
	Destroyed    *prometheus.CounterVec
	Deserialized *prometheus.CounterVec
	Connections  *prometheus.CounterVec
	Transactions *prometheus.CounterVec
	Commands     prometheus.Counter
	Executions   *prometheus.CounterVec
	Live         *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_created_total",
			Help:      "Entities created through the registry.",
		}, []string{"kind"}),
		Destroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_destroyed_total",
			Help:      "Entities destroyed through the registry.",
		}, []string{"kind"}),
		Deserialized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_deserialized_total",
			Help:      "Entities rebuilt from persisted documents.",
		}, []string{"kind"}),
		Connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "port_connections_total",
			Help:      "Connectors attached to or detached from ports.",
		}, []string{"event"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_transactions_total",
			Help:      "History transactions by outcome.",
		}, []string{"event"}),
		Commands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_commands_total",
			Help:      "Commands in committed transactions.",
		}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Executed nodes by type and final state.",
		}, []string{"type", "state"}),
		Live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities_live",
			Help:      "Entities currently registered.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{
		m.Created, m.Destroyed, m.Deserialized, m.Connections,
		m.Transactions, m.Commands, m.Executions, m.Live,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LifecycleHooks counts registry activity.
func (m *Metrics) LifecycleHooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCreate: func(e domain.Entity) {
			m.Created.WithLabelValues(e.Kind().String()).Inc()
			m.Live.WithLabelValues(e.Kind().String()).Inc()
		},
		OnPostDestroy: func(e domain.Entity) {
			m.Destroyed.WithLabelValues(e.Kind().String()).Inc()
			m.Live.WithLabelValues(e.Kind().String()).Dec()
		},
		OnDeserialize: func(e domain.Entity) {
			m.Deserialized.WithLabelValues(e.Kind().String()).Inc()
			m.Live.WithLabelValues(e.Kind().String()).Inc()
		},
		OnConnect: func(*domain.Port, *domain.Connector) {
			m.Connections.WithLabelValues("connect").Inc()
		},
		OnDisconnect: func(*domain.Port, *domain.Connector) {
			m.Connections.WithLabelValues("disconnect").Inc()
		},
	}
}

// HistoryHooks counts transactions by outcome.
func (m *Metrics) HistoryHooks() history.Hooks {
	return history.Hooks{
		OnCommit: func(tx *history.Transaction) {
			m.Transactions.WithLabelValues("commit").Inc()
			m.Commands.Add(float64(len(tx.Commands)))
		},
		OnDiscard: func(*history.Transaction) { m.Transactions.WithLabelValues("discard").Inc() },
		OnUndo:    func(*history.Transaction) { m.Transactions.WithLabelValues("undo").Inc() },
		OnRedo:    func(*history.Transaction) { m.Transactions.WithLabelValues("redo").Inc() },
	}
}

// ExecutionHooks counts finished nodes.
func (m *Metrics) ExecutionHooks() execution.Hooks {
	return execution.Hooks{
		OnNodeLeave: func(_ context.Context, e *execution.NodeEvent) {
			m.Executions.WithLabelValues(e.NodeType, e.State.String()).Inc()
		},
	}
}
