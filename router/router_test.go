package router_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/deploy"
	"github.com/c360/flowmesh/metric"
	"github.com/c360/flowmesh/router"
	"github.com/c360/flowmesh/worker"
)

func buildDestinationComponent(t *testing.T) *component.Component {
	t.Helper()
	comp, err := component.NewComponent(component.Spec{
		InPorts: []component.Port{"in"},
	})
	require.NoError(t, err)
	return comp
}

func sendHook(fn component.Fn) *component.Callback {
	return &component.Callback{Fn: fn}
}

func passthroughSend() *component.Callback {
	return sendHook(func(env *component.Env, args any) (any, error) { return nil, nil })
}

func TestRouterDeliversValuesInPublishOrder(t *testing.T) {
	comp := buildDestinationComponent(t)
	destInstance := component.NewInstanceID()
	node := &deploy.FlatNode{
		Path:      "average",
		Instance:  destInstance,
		Component: comp,
		Strategy:  &component.Strategy{Send: passthroughSend()},
		Refs:      []worker.Ref{worker.NewRef("node-1")},
	}

	source := component.NewInstanceID()
	dw := &deploy.DeployedWorkflow{
		Nodes: map[string]*deploy.FlatNode{"average": node},
		Routing: deploy.RoutingTable{
			{Instance: source, Port: "out"}: {{Instance: destInstance, Port: "in"}},
		},
	}

	var mu sync.Mutex
	var delivered []any
	send := func(ctx context.Context, ref worker.Ref, args any) error {
		mu.Lock()
		defer mu.Unlock()
		delivery := args.(router.Delivery)
		delivered = append(delivered, delivery.Value)
		return nil
	}

	r := router.NewRouter(dw, send, nil, nil)
	err := r.Publish(context.Background(), source, "out", []any{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []any{1, 2, 3}, delivered)
}

func TestRouterRecordsDispatchMetric(t *testing.T) {
	comp := buildDestinationComponent(t)
	destInstance := component.NewInstanceID()
	node := &deploy.FlatNode{
		Path:      "average",
		Instance:  destInstance,
		Component: comp,
		Strategy:  &component.Strategy{Send: passthroughSend()},
		Refs:      []worker.Ref{worker.NewRef("node-1")},
	}

	source := component.NewInstanceID()
	dw := &deploy.DeployedWorkflow{
		Nodes: map[string]*deploy.FlatNode{"average": node},
		Routing: deploy.RoutingTable{
			{Instance: source, Port: "out"}: {{Instance: destInstance, Port: "in"}},
		},
	}

	registry := metric.NewRegistry()
	send := func(ctx context.Context, ref worker.Ref, args any) error { return nil }
	r := router.NewRouter(dw, send, registry.Metrics, nil)

	require.NoError(t, r.Publish(context.Background(), source, "out", []any{1}))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "flowmesh_router_dispatch_duration_seconds" {
			found = true
		}
	}
	require.True(t, found, "expected a router dispatch sample")
}

func TestRouterFansOutToEveryDestination(t *testing.T) {
	compA := buildDestinationComponent(t)
	compB := buildDestinationComponent(t)
	instA := component.NewInstanceID()
	instB := component.NewInstanceID()

	nodeA := &deploy.FlatNode{Path: "a", Instance: instA, Component: compA, Strategy: &component.Strategy{Send: passthroughSend()}, Refs: []worker.Ref{worker.NewRef("node-1")}}
	nodeB := &deploy.FlatNode{Path: "b", Instance: instB, Component: compB, Strategy: &component.Strategy{Send: passthroughSend()}, Refs: []worker.Ref{worker.NewRef("node-2")}}

	source := component.NewInstanceID()
	dw := &deploy.DeployedWorkflow{
		Nodes: map[string]*deploy.FlatNode{"a": nodeA, "b": nodeB},
		Routing: deploy.RoutingTable{
			{Instance: source, Port: "out"}: {
				{Instance: instA, Port: "in"},
				{Instance: instB, Port: "in"},
			},
		},
	}

	var mu sync.Mutex
	receivedBy := map[worker.Ref][]any{}
	send := func(ctx context.Context, ref worker.Ref, args any) error {
		mu.Lock()
		defer mu.Unlock()
		receivedBy[ref] = append(receivedBy[ref], args.(router.Delivery).Value)
		return nil
	}

	r := router.NewRouter(dw, send, nil, nil)
	err := r.Publish(context.Background(), source, "out", []any{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, []any{"x", "y"}, receivedBy[nodeA.Refs[0]])
	require.Equal(t, []any{"x", "y"}, receivedBy[nodeB.Refs[0]])
}

func TestRouterSendHookChoosesAmongReplicas(t *testing.T) {
	comp := buildDestinationComponent(t)
	destInstance := component.NewInstanceID()
	replicas := []worker.Ref{worker.NewRef("node-1"), worker.NewRef("node-2")}

	roundRobin := sendHook(func(env *component.Env, args any) (any, error) {
		return nil, nil
	})
	var next int
	roundRobin.Fn = func(env *component.Env, args any) (any, error) {
		ref := replicas[next%len(replicas)]
		next++
		return ref, nil
	}

	node := &deploy.FlatNode{
		Path:      "replicated",
		Instance:  destInstance,
		Component: comp,
		Strategy:  &component.Strategy{Send: roundRobin},
		Refs:      replicas,
	}

	source := component.NewInstanceID()
	dw := &deploy.DeployedWorkflow{
		Nodes: map[string]*deploy.FlatNode{"replicated": node},
		Routing: deploy.RoutingTable{
			{Instance: source, Port: "out"}: {{Instance: destInstance, Port: "in"}},
		},
	}

	var mu sync.Mutex
	var chosen []worker.Ref
	send := func(ctx context.Context, ref worker.Ref, args any) error {
		mu.Lock()
		defer mu.Unlock()
		chosen = append(chosen, ref)
		return nil
	}

	r := router.NewRouter(dw, send, nil, nil)
	err := r.Publish(context.Background(), source, "out", []any{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []worker.Ref{replicas[0], replicas[1], replicas[0], replicas[1]}, chosen)
}

func TestRouterCollectsErrorsWithoutStoppingOtherDestinations(t *testing.T) {
	compA := buildDestinationComponent(t)
	compB := buildDestinationComponent(t)
	instA := component.NewInstanceID()
	instB := component.NewInstanceID()

	failingSend := sendHook(func(env *component.Env, args any) (any, error) {
		return nil, errors.New("boom")
	})
	nodeA := &deploy.FlatNode{Path: "a", Instance: instA, Component: compA, Strategy: &component.Strategy{Send: failingSend}, Refs: []worker.Ref{worker.NewRef("node-1")}}
	nodeB := &deploy.FlatNode{Path: "b", Instance: instB, Component: compB, Strategy: &component.Strategy{Send: passthroughSend()}, Refs: []worker.Ref{worker.NewRef("node-2")}}

	source := component.NewInstanceID()
	dw := &deploy.DeployedWorkflow{
		Nodes: map[string]*deploy.FlatNode{"a": nodeA, "b": nodeB},
		Routing: deploy.RoutingTable{
			{Instance: source, Port: "out"}: {
				{Instance: instA, Port: "in"},
				{Instance: instB, Port: "in"},
			},
		},
	}

	var mu sync.Mutex
	var delivered []any
	send := func(ctx context.Context, ref worker.Ref, args any) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, args.(router.Delivery).Value)
		return nil
	}

	r := router.NewRouter(dw, send, nil, nil)
	err := r.Publish(context.Background(), source, "out", []any{"only-value"})
	require.Error(t, err)
	require.Equal(t, []any{"only-value"}, delivered)
}
