package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every flowmesh-level metric: the domain-specific ones
// (deployment outcome, router dispatch, worker restarts) plus the
// ambient service-status/error counters every node carries regardless
// of what it's running.
type Metrics struct {
	ServiceStatus *prometheus.GaugeVec
	ErrorsTotal   *prometheus.CounterVec

	DeploymentsTotal    *prometheus.CounterVec
	UndeploymentsTotal  prometheus.Counter
	RouterDispatch      *prometheus.HistogramVec
	WorkerRestartsTotal *prometheus.CounterVec
	WorkerEscalations   *prometheus.CounterVec
	ConnectedNodes      prometheus.Gauge
}

// NewMetrics builds every metric, unregistered — Registry registers
// them against its own *prometheus.Registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowmesh",
				Subsystem: "node",
				Name:      "status",
				Help:      "Node status (0=stopped, 1=starting, 2=running, 3=draining, 4=failed)",
			},
			[]string{"node"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowmesh",
				Subsystem: "node",
				Name:      "errors_total",
				Help:      "Total number of errors by subsystem",
			},
			[]string{"subsystem"},
		),
		DeploymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowmesh",
				Subsystem: "deploy",
				Name:      "deployments_total",
				Help:      "Total number of deploy.Deploy calls by outcome (success, partial, failed)",
			},
			[]string{"outcome"},
		),
		UndeploymentsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "flowmesh",
				Subsystem: "deploy",
				Name:      "undeployments_total",
				Help:      "Total number of deploy.Destroy calls",
			},
		),
		RouterDispatch: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "flowmesh",
				Subsystem: "router",
				Name:      "dispatch_duration_seconds",
				Help:      "Router.Publish per-value dispatch latency by outcome (ok, error)",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		WorkerRestartsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowmesh",
				Subsystem: "worker",
				Name:      "restarts_total",
				Help:      "Total number of supervisor-driven worker restarts by node",
			},
			[]string{"node"},
		),
		WorkerEscalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowmesh",
				Subsystem: "worker",
				Name:      "escalations_total",
				Help:      "Total number of worker crashes escalated past the restart budget, by node",
			},
			[]string{"node"},
		),
		ConnectedNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowmesh",
				Subsystem: "membership",
				Name:      "connected_nodes",
				Help:      "Number of nodes currently in connected or monitored-live state",
			},
		),
	}
}

// RecordServiceStatus sets a service-status gauge, scoped per node
// rather than per service.
func (m *Metrics) RecordServiceStatus(node string, status int) {
	m.ServiceStatus.WithLabelValues(node).Set(float64(status))
}

// RecordError increments the error counter for subsystem.
func (m *Metrics) RecordError(subsystem string) {
	m.ErrorsTotal.WithLabelValues(subsystem).Inc()
}

// RecordDeployment records one deploy.Deploy call's terminal outcome.
func (m *Metrics) RecordDeployment(outcome string) {
	m.DeploymentsTotal.WithLabelValues(outcome).Inc()
}

// RecordUndeployment records one deploy.Destroy call.
func (m *Metrics) RecordUndeployment() {
	m.UndeploymentsTotal.Inc()
}

// RecordRouterDispatch records one router.Router dispatch's latency.
func (m *Metrics) RecordRouterDispatch(outcome string, d time.Duration) {
	m.RouterDispatch.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordWorkerRestart records one supervisor-driven respawn.
func (m *Metrics) RecordWorkerRestart(node string) {
	m.WorkerRestartsTotal.WithLabelValues(node).Inc()
}

// RecordWorkerEscalation records one restart-budget escalation.
func (m *Metrics) RecordWorkerEscalation(node string) {
	m.WorkerEscalations.WithLabelValues(node).Inc()
}

// RecordConnectedNodes sets the current connected/monitored-live count.
func (m *Metrics) RecordConnectedNodes(n int) {
	m.ConnectedNodes.Set(float64(n))
}
