package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	Builds        *prometheus.CounterVec
	BuildDuration *prometheus.HistogramVec
	Nodes         prometheus.Gauge
	Reuses        *prometheus.CounterVec
	Discards      *prometheus.CounterVec
	StateUpdates  prometheus.Counter
	Disposed      prometheus.Counter
}

// NewMetrics creates the collectors under namespace (default "arbor") and
// registers them with reg. A nil reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "arbor"
	}
	m := &Metrics{
		Builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Build passes by trigger and outcome.",
			},
			[]string{"trigger", "outcome"},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Duration of committed build passes.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"trigger"},
		),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tree_nodes",
			Help:      "Nodes in the last committed generation.",
		}),
		Reuses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_reuse_total",
				Help:      "Nodes that kept their scope handle across a rebuild.",
			},
			[]string{"type"},
		),
		Discards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_discard_total",
				Help:      "Nodes unmounted by a rebuild.",
			},
			[]string{"type"},
		),
		StateUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_updates_total",
			Help:      "State writes applied at drain.",
		}),
		Disposed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_disposed_total",
			Help:      "Scope handles disposed by committed builds.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Builds, m.BuildDuration, m.Nodes, m.Reuses, m.Discards, m.StateUpdates, m.Disposed)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDidBuild: func(_ context.Context, e *domain.BuildEvent) {
			trigger := string(e.Trigger)
			m.Builds.WithLabelValues(trigger, "committed").Inc()
			m.BuildDuration.WithLabelValues(trigger).Observe(e.Duration.Seconds())
			m.Nodes.Set(float64(e.Nodes))
			if e.Diff != nil {
				m.Disposed.Add(float64(len(e.Diff.Disposed)))
			}
		},
		OnBuildAborted: func(_ context.Context, e *domain.BuildEvent) {
			m.Builds.WithLabelValues(string(e.Trigger), "aborted").Inc()
		},
		OnNodeReuse: func(_ context.Context, e *domain.NodeEvent) {
			m.Reuses.WithLabelValues(e.TypeName).Inc()
		},
		OnNodeDiscard: func(_ context.Context, e *domain.NodeEvent) {
			m.Discards.WithLabelValues(e.TypeName).Inc()
		},
		OnStateUpdate: func(_ context.Context, _ *domain.StateEvent) {
			m.StateUpdates.Inc()
		},
	}
}
