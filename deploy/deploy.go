package deploy

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/metric"
	"github.com/c360/flowmesh/strategy"
	"github.com/c360/flowmesh/worker"
	"github.com/c360/flowmesh/workflow"
)

// Options configures a single Deploy call. Metrics, if non-nil, records
// the terminal outcome of the call.
type Options struct {
	Logger  *slog.Logger
	Metrics *metric.Metrics
}

// Deploy flattens wf, resolves and validates every
// node's strategy, dispatches the deploy hook across every node in
// parallel with that node's own Args (cooperatively cancelled if ctx is
// cancelled mid-flight), builds the routing table from the flattened
// links, and dispatches prepare. Node departure mid-deploy (a deploy hook
// error) tears down every node that already succeeded via
// drop_deployment and reports ferrors.DeploymentPartial listing
// successes and failures.
func Deploy(ctx context.Context, wf *workflow.Workflow, opts Options) (*DeployedWorkflow, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	flat, err := flatten(wf, "", wf.Strategy)
	if err != nil {
		recordDeployment(opts.Metrics, err)
		return nil, err
	}

	if err := dispatchDeploy(ctx, flat.nodes, logger); err != nil {
		recordDeployment(opts.Metrics, err)
		return nil, err
	}

	routing := buildRoutingTable(flat.links)

	if err := dispatchPrepare(ctx, flat.nodes, routing, logger); err != nil {
		recordDeployment(opts.Metrics, err)
		return nil, err
	}

	dw := &DeployedWorkflow{
		ID:      NewDeploymentID(),
		Nodes:   make(map[string]*FlatNode, len(flat.nodes)),
		Routing: routing,
	}
	for _, n := range flat.nodes {
		dw.Nodes[n.Path] = n
	}
	recordDeployment(opts.Metrics, nil)
	return dw, nil
}

// recordDeployment records one Deploy call's terminal outcome, if m is
// non-nil: "success" when err is nil, "partial" for a
// ferrors.DeploymentPartialError (some nodes came up), "failed"
// otherwise.
func recordDeployment(m *metric.Metrics, err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.RecordDeployment("success")
	case ferrors.IsDeploymentPartial(err):
		m.RecordDeployment("partial")
	default:
		m.RecordDeployment("failed")
	}
}

func dispatchDeploy(ctx context.Context, nodes []*FlatNode, logger *slog.Logger) error {
	group, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var succeeded []string
	failures := make(map[string]error)

	for _, n := range nodes {
		n := n
		group.Go(func() error {
			select {
			case <-gctx.Done():
				mu.Lock()
				failures[n.Path] = gctx.Err()
				mu.Unlock()
				return nil
			default:
			}

			result, err := strategy.Dispatch(strategy.Context{
				ComponentRef:   n.Component,
				StrategyRef:    n.Strategy,
				DeploymentData: map[string]any{},
				InvocationData: n.Args,
			}, strategy.HookDeploy, n.Args)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("deploy: node failed to deploy", "node", n.Path, "component", componentLabel(n), "error", err)
				failures[n.Path] = err
				return nil
			}
			if result.NewState != nil {
				n.Deployment = result.NewState
			} else {
				n.Deployment = map[string]any{}
			}
			for _, pub := range result.Published {
				if ref, ok := pub.Value.(worker.Ref); ok {
					n.Refs = append(n.Refs, ref)
				}
			}
			succeeded = append(succeeded, n.Path)
			return nil
		})
	}
	_ = group.Wait()

	if len(failures) > 0 {
		logger.Error("deploy: tearing down already-deployed nodes after failure", "failed", len(failures), "succeeded", len(succeeded))
		rollback(nodes, succeeded, logger)
		return ferrors.DeploymentPartial(succeeded, failures)
	}
	return nil
}

func dispatchPrepare(ctx context.Context, nodes []*FlatNode, routing RoutingTable, logger *slog.Logger) error {
	group, _ := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var succeeded []string
	failures := make(map[string]error)

	for _, n := range nodes {
		n := n
		group.Go(func() error {
			fragment := routingFragment(routing, n)
			_, err := strategy.Dispatch(strategy.Context{
				ComponentRef:   n.Component,
				StrategyRef:    n.Strategy,
				DeploymentData: n.Deployment,
				InvocationData: fragment,
			}, strategy.HookPrepare, fragment)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("deploy: node failed to prepare", "node", n.Path, "component", componentLabel(n), "error", err)
				failures[n.Path] = err
				return nil
			}
			succeeded = append(succeeded, n.Path)
			return nil
		})
	}
	_ = group.Wait()

	if len(failures) > 0 {
		logger.Error("deploy: prepare failed on some nodes, tearing down", "failed", len(failures))
		rollback(nodes, namesOf(nodes), logger)
		return ferrors.DeploymentPartial(succeeded, failures)
	}
	return nil
}

// routingFragment returns only the routes whose source is n, the
// per-destination fragment strategy.prepare receives.
func routingFragment(routing RoutingTable, n *FlatNode) RoutingTable {
	fragment := make(RoutingTable)
	for key, destinations := range routing {
		if key.Instance == n.Instance {
			fragment[key] = destinations
		}
	}
	return fragment
}

// componentLabel returns n's component name for logging, or "" if the
// component is anonymous.
func componentLabel(n *FlatNode) string {
	name, _ := n.Component.EntityName()
	return name
}

func namesOf(nodes []*FlatNode) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Path
	}
	return names
}

func rollback(nodes []*FlatNode, paths []string, logger *slog.Logger) {
	byPath := make(map[string]*FlatNode, len(nodes))
	for _, n := range nodes {
		byPath[n.Path] = n
	}
	for _, path := range paths {
		n, ok := byPath[path]
		if !ok {
			continue
		}
		if _, err := strategy.Dispatch(strategy.Context{
			ComponentRef:   n.Component,
			StrategyRef:    n.Strategy,
			DeploymentData: n.Deployment,
		}, strategy.HookDropDeployment, nil); err != nil {
			logger.Warn("deploy: drop_deployment failed during rollback", "node", path, "component", componentLabel(n), "error", err)
		}
	}
}
