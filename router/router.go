package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/deploy"
	"github.com/c360/flowmesh/metric"
	"github.com/c360/flowmesh/strategy"
	"github.com/c360/flowmesh/worker"
)

// Delivery is the InvocationData carried all the way from a
// destination's send dispatch through to its receive dispatch: which
// in-port the value arrived on, alongside the value itself. Carrying
// the port lets a component with more than one in-port tell its
// inputs apart inside a single receive hook, since the receive hook
// signature itself names only the message value.
type Delivery struct {
	Port  component.Port
	Value any
}

// SendFunc delivers args to a concrete destination worker. Callers
// wire this to worker.Runtime.Send for a worker local to this node,
// or a transport-backed call for a remote one; Router itself never
// reaches into a Runtime directly.
type SendFunc func(ctx context.Context, ref worker.Ref, args any) error

// Router is the runtime half of routing: it holds no mutable
// state of its own; every call resolves fresh against the
// DeployedWorkflow it was built for.
type Router struct {
	dw      *deploy.DeployedWorkflow
	send    SendFunc
	metrics *metric.Metrics
	logger  *slog.Logger
}

// NewRouter builds a Router over dw, dispatching resolved messages
// through send. metrics, if non-nil, records each per-value dispatch's
// latency and outcome.
func NewRouter(dw *deploy.DeployedWorkflow, send SendFunc, metrics *metric.Metrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{dw: dw, send: send, metrics: metrics, logger: logger}
}

// Publish delivers values, the ordered sequence a
// source instance published on one out-port. For each destination
// wired from (source, port), Publish invokes the destination
// strategy's send hook once per value, in order, then dispatches the
// resulting message — the publish-order delivery guarantee falls out of
// iterating values and destinations in slice order. Failures on one
// destination or one value never stop delivery to the others; every
// failure is collected and returned joined.
func (r *Router) Publish(ctx context.Context, source component.InstanceID, port component.Port, values []any) error {
	destinations := r.dw.Routing[deploy.RouteKey{Instance: source, Port: port}]
	if len(destinations) == 0 {
		return nil
	}

	var errs []error
	for _, dest := range destinations {
		node := r.dw.NodeByInstance(dest.Instance)
		if node == nil {
			errs = append(errs, fmt.Errorf("router: no deployed node for instance %s", dest.Instance))
			continue
		}
		for _, value := range values {
			if err := r.dispatchOne(ctx, node, dest.Port, value); err != nil {
				r.logger.Error("router: send failed", "destination", node.Path, "port", dest.Port, "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// dispatchOne runs the destination's send hook against a single
// value, then dispatches the resulting message to whichever worker
// the hook chose. A send hook with exactly one candidate WorkerRef
// never has to choose — dispatchOne uses it automatically, so
// unreplicated components need no custom send hook beyond a no-op.
func (r *Router) dispatchOne(ctx context.Context, node *deploy.FlatNode, port component.Port, value any) error {
	start := time.Now()
	err := r.dispatchOneInner(ctx, node, port, value)
	if r.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		r.metrics.RecordRouterDispatch(outcome, time.Since(start))
	}
	return err
}

func (r *Router) dispatchOneInner(ctx context.Context, node *deploy.FlatNode, port component.Port, value any) error {
	delivery := Delivery{Port: port, Value: value}

	result, err := strategy.Dispatch(strategy.Context{
		ComponentRef:   node.Component,
		StrategyRef:    node.Strategy,
		DeploymentData: node.Deployment,
		InvocationData: delivery,
	}, strategy.HookSend, delivery)
	if err != nil {
		return fmt.Errorf("node %q: %w", node.Path, err)
	}

	ref, ok := result.Result.(worker.Ref)
	if !ok {
		if len(node.Refs) != 1 {
			return fmt.Errorf("node %q: send hook chose no destination worker among %d candidates", node.Path, len(node.Refs))
		}
		ref = node.Refs[0]
	}

	if r.send == nil {
		return nil
	}
	if err := r.send(ctx, ref, delivery); err != nil {
		return fmt.Errorf("node %q: dispatch to %s failed: %w", node.Path, ref, err)
	}
	return nil
}
