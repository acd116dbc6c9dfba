package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/flowmesh/ferrors"
)

// Registrar lets a package register its own metric beyond the
// pre-registered core set, without reaching into the underlying
// *prometheus.Registry directly.
type Registrar interface {
	RegisterCounter(name string, counter prometheus.Counter) error
	RegisterGauge(name string, gauge prometheus.Gauge) error
	RegisterHistogram(name string, histogram prometheus.Histogram) error
	Unregister(name string) bool
}

// Registry owns a dedicated Prometheus registry plus the pre-registered
// core Metrics. It is dedicated rather than the global default registry
// so more than one node can run in the same test binary without
// colliding on metric names.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics

	mu    sync.Mutex
	extra map[string]prometheus.Collector
}

// NewRegistry builds a Registry with every core metric pre-registered,
// plus the standard Go runtime/process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
		extra:              make(map[string]prometheus.Collector),
	}

	r.prometheusRegistry.MustRegister(
		r.Metrics.ServiceStatus,
		r.Metrics.ErrorsTotal,
		r.Metrics.DeploymentsTotal,
		r.Metrics.UndeploymentsTotal,
		r.Metrics.RouterDispatch,
		r.Metrics.WorkerRestartsTotal,
		r.Metrics.WorkerEscalations,
		r.Metrics.ConnectedNodes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying registry, for wiring a
// promhttp.Handler.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

func (r *Registry) register(name string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extra[name]; exists {
		return ferrors.WrapInvalid(fmt.Errorf("metric %q already registered", name), "metric", "Registry.register", "duplicate registration")
	}
	if err := r.prometheusRegistry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			return ferrors.WrapInvalid(err, "metric", "Registry.register", fmt.Sprintf("prometheus conflict for %q", name))
		}
		return ferrors.WrapFatal(err, "metric", "Registry.register", "prometheus registration failed")
	}
	r.extra[name] = collector
	return nil
}

// RegisterCounter registers an additional named counter.
func (r *Registry) RegisterCounter(name string, counter prometheus.Counter) error {
	return r.register(name, counter)
}

// RegisterGauge registers an additional named gauge.
func (r *Registry) RegisterGauge(name string, gauge prometheus.Gauge) error {
	return r.register(name, gauge)
}

// RegisterHistogram registers an additional named histogram.
func (r *Registry) RegisterHistogram(name string, histogram prometheus.Histogram) error {
	return r.register(name, histogram)
}

// Unregister removes a previously registered extra metric.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	collector, exists := r.extra[name]
	if !exists {
		return false
	}
	if r.prometheusRegistry.Unregister(collector) {
		delete(r.extra, name)
		return true
	}
	return false
}
