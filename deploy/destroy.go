package deploy

import (
	"log/slog"

	"github.com/c360/flowmesh/metric"
	"github.com/c360/flowmesh/strategy"
	"github.com/c360/flowmesh/worker"
)

// Destroy tears down dw: calls every node's drop_deployment hook and
// releases its WorkerRefs, best-effort, logging but not failing on a
// per-node error — a single uncooperative node never blocks tearing
// down the rest of the deployment. metrics, if non-nil, records one
// undeployment regardless of per-node errors: Destroy always runs to
// completion, so there's no partial/failed outcome to distinguish.
func Destroy(dw *DeployedWorkflow, release func(ref worker.Ref) error, metrics *metric.Metrics, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics != nil {
		metrics.RecordUndeployment()
	}

	for _, n := range dw.Nodes {
		if _, err := strategy.Dispatch(strategy.Context{
			ComponentRef:   n.Component,
			StrategyRef:    n.Strategy,
			DeploymentData: n.Deployment,
		}, strategy.HookDropDeployment, nil); err != nil {
			logger.Warn("destroy: drop_deployment failed", "node", n.Path, "component", componentLabel(n), "error", err)
		}

		for _, ref := range n.Refs {
			if release == nil {
				continue
			}
			if err := release(ref); err != nil {
				logger.Warn("destroy: failed to release worker ref", "node", n.Path, "component", componentLabel(n), "ref", ref.String(), "error", err)
			}
		}
	}
}
