package deploy_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/deploy"
	"github.com/c360/flowmesh/transport"
	"github.com/c360/flowmesh/worker"
	"github.com/c360/flowmesh/workflow"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run tests against a real NATS broker")
	}
}

func startNATS(t *testing.T) *nats.Conn {
	t.Helper()
	ctx := context.Background()

	container, err := tcnats.Run(ctx, "nats:2.11-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	return conn
}

// remoteWorkerNode stands in for a worker process: it answers
// "spawn"/"release" requests over a real NATS subject, the same shape a
// flowmeshd worker process's transport.Dispatcher would expose.
type remoteWorkerNode struct {
	dispatcher *transport.Dispatcher
	released   chan worker.Ref
}

func startRemoteWorkerNode(t *testing.T, conn *nats.Conn, subject string) *remoteWorkerNode {
	t.Helper()

	node := &remoteWorkerNode{
		dispatcher: transport.NewDispatcher(conn, subject, nil),
		released:   make(chan worker.Ref, 8),
	}
	node.dispatcher.Handle("spawn", func(ctx context.Context, payload []byte) (any, error) {
		return worker.NewRef("remote-node-1"), nil
	})
	node.dispatcher.Handle("release", func(ctx context.Context, payload []byte) (any, error) {
		var ref worker.Ref
		if err := transport.Decode(payload, &ref); err == nil {
			node.released <- ref
		}
		return "ok", nil
	})
	require.NoError(t, node.dispatcher.Listen())
	t.Cleanup(func() { _ = node.dispatcher.Stop() })
	return node
}

// remoteDeployStrategy builds a strategy whose deploy hook spawns a
// worker on subject via a real Broker.On NATS round trip, and whose
// drop_deployment hook releases it the same way — the strategy's
// DeploymentData carries the resulting worker.Ref between the two.
func remoteDeployStrategy(broker *transport.Broker, subject string) *component.Strategy {
	return &component.Strategy{
		Define: noopHook(),
		Deploy: &component.Callback{
			StateCapability:   component.StateReadWrite,
			Write:             []string{"ref"},
			Publish:           []component.Port{"worker_ref"},
			PublishCapability: true,
			Fn: func(env *component.Env, args any) (any, error) {
				var ref worker.Ref
				if err := broker.On(context.Background(), "remote-node-1", subject, "spawn", nil, 5*time.Second, &ref); err != nil {
					return nil, err
				}
				env.Set("ref", ref)
				env.Publish("worker_ref", ref)
				return ref, nil
			},
		},
		Prepare: noopHook(),
		Send:    noopHook(),
		Receive: noopHook(),
		DropDeployment: &component.Callback{
			StateCapability: component.StateRead,
			Read:            []string{"ref"},
			Fn: func(env *component.Env, args any) (any, error) {
				ref, _ := env.Get("ref").(worker.Ref)
				var reply string
				_ = broker.On(context.Background(), "remote-node-1", subject, "release", ref, 5*time.Second, &reply)
				return nil, nil
			},
		},
		DropInvocation: noopHook(),
	}
}

func TestDeployDestroyRoundTripOverRealTransport(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)
	subject := "flowmesh.worker.remote-node-1"
	remote := startRemoteWorkerNode(t, conn, subject)
	broker := transport.NewBroker(conn)

	source, err := component.NewComponent(component.Spec{
		InPorts:  []component.Port{"start"},
		OutPorts: []component.Port{"out"},
		Strategy: remoteDeployStrategy(broker, subject),
	})
	require.NoError(t, err)

	wf, err := workflow.Build(workflow.Spec{
		Nodes: map[workflow.NodeID]workflow.Node{
			"source": {ID: "source", Component: source},
		},
	})
	require.NoError(t, err)

	dw, err := deploy.Deploy(context.Background(), wf, deploy.Options{})
	require.NoError(t, err)
	require.Len(t, dw.Nodes, 1)

	var gotRef worker.Ref
	select {
	case gotRef = <-remote.released:
		t.Fatal("release fired before destroy was called")
	case <-time.After(100 * time.Millisecond):
	}

	deploy.Destroy(dw, nil, nil, nil)

	select {
	case gotRef = <-remote.released:
		require.Equal(t, "remote-node-1", gotRef.Node)
	case <-time.After(5 * time.Second):
		t.Fatal("expected the remote node to observe a release call")
	}
}
