package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritotombe/supportflow/pkg/domain"
)

// Metrics records node visits, routing decisions, intents and run durations.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisits  *prometheus.CounterVec
	Routes      *prometheus.CounterVec
	Intents     *prometheus.CounterVec
	RunDuration prometheus.Histogram

	mu     sync.Mutex
	starts map[string]time.Time
	now    func() time.Time
}

// NewMetrics registers the supportflow series, plus the Go and process
// collectors, on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supportflow_node_visits_total",
			Help: "Total number of node visits",
		}, []string{"node_id"}),
		Routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supportflow_routes_total",
			Help: "Routing decisions taken between nodes",
		}, []string{"from", "to"}),
		Intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supportflow_intents_total",
			Help: "Classified intents",
		}, []string{"intent"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "supportflow_run_duration_seconds",
			Help:    "Duration of a workflow run, prepare to end",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		starts: make(map[string]time.Time),
		now:    time.Now,
	}
	m.registry.MustRegister(
		m.NodeVisits, m.Routes, m.Intents, m.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns the lifecycle callbacks feeding the metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeID)).Inc()
			if e.NodeID == domain.NodePrepare {
				m.mu.Lock()
				m.starts[e.ThreadID] = m.now()
				m.mu.Unlock()
			}
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			m.Routes.WithLabelValues(string(e.From), string(e.To)).Inc()
			if e.From == domain.NodeClassify {
				m.Intents.WithLabelValues(string(e.Intent)).Inc()
			}
			if e.To != domain.NodeEnd {
				return
			}
			m.mu.Lock()
			start, ok := m.starts[e.ThreadID]
			delete(m.starts, e.ThreadID)
			m.mu.Unlock()
			if ok {
				m.RunDuration.Observe(m.now().Sub(start).Seconds())
			}
		},
	}
}
