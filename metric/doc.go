// Package metric provides the Prometheus-based metrics surface for a
// flowmesh node: deployment outcomes, router dispatch latency, worker
// restarts, and the ambient service-status/error counters every
// long-running node needs regardless of domain.
//
// Registry owns a dedicated *prometheus.Registry (never the global
// default registry, so multiple nodes in one test binary never
// collide) plus the pre-registered Metrics. Server exposes it over
// HTTP in the standard Prometheus text format.
//
//	registry := metric.NewRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	go server.Start()
//	defer server.Stop(context.Background())
//
//	registry.Metrics.RecordDeployment("success")
//	registry.Metrics.RecordRouterDispatch("ok", time.Since(start))
//	registry.Metrics.RecordWorkerRestart("node-1")
package metric
