package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	assert.NotNil(t, r)
	assert.NotNil(t, r.PrometheusRegistry())
	assert.NotNil(t, r.Metrics)
}

func gatherNames(t *testing.T, r *Registry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestRegistryRegistersCoreMetrics(t *testing.T) {
	r := NewRegistry()

	r.Metrics.RecordDeployment("success")
	r.Metrics.RecordUndeployment()
	r.Metrics.RecordRouterDispatch("ok", 10*time.Millisecond)
	r.Metrics.RecordWorkerRestart("node-1")
	r.Metrics.RecordWorkerEscalation("node-1")
	r.Metrics.RecordConnectedNodes(3)
	r.Metrics.RecordServiceStatus("node-1", 2)
	r.Metrics.RecordError("router")

	names := gatherNames(t, r)
	for _, want := range []string{
		"flowmesh_deploy_deployments_total",
		"flowmesh_deploy_undeployments_total",
		"flowmesh_router_dispatch_duration_seconds",
		"flowmesh_worker_restarts_total",
		"flowmesh_worker_escalations_total",
		"flowmesh_membership_connected_nodes",
		"flowmesh_node_status",
		"flowmesh_node_errors_total",
	} {
		assert.True(t, names[want], "expected metric %q to be registered", want)
	}
}

func TestRegistryRegisterCounterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "flowmesh_test_counter", Help: "test"})
	require.NoError(t, r.RegisterCounter("test_counter", counter))

	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "flowmesh_test_counter_2", Help: "test"})
	err := r.RegisterCounter("test_counter", second)
	require.Error(t, err)
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "flowmesh_unregister_me", Help: "test"})
	require.NoError(t, r.RegisterCounter("unregister_me", counter))

	assert.True(t, r.Unregister("unregister_me"))
	assert.False(t, r.Unregister("unregister_me"), "second unregister of the same name should report nothing to remove")
}
