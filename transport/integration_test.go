package transport_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"

	"github.com/c360/flowmesh/transport"
)

// skipUnlessIntegration gates tests that need a real NATS server behind
// an explicit opt-in environment variable.
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

func TestBeaconProbeRoundTrip(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	beacon := transport.NewBeacon(conn, "worker-1", transport.RoleWorker, "secret")
	require.NoError(t, beacon.Listen())
	t.Cleanup(func() { _ = beacon.Stop() })

	reply, err := transport.Probe(context.Background(), conn, "worker-1", "secret", transport.RoleWorker, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "worker-1", reply.NodeName)
	require.True(t, reply.CookieMatch)
}

func TestBeaconProbeWrongCookie(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	beacon := transport.NewBeacon(conn, "worker-2", transport.RoleWorker, "secret")
	require.NoError(t, beacon.Listen())
	t.Cleanup(func() { _ = beacon.Stop() })

	_, err := transport.Probe(context.Background(), conn, "worker-2", "wrong", transport.RoleWorker, 2*time.Second)
	require.Error(t, err)
}

func TestDispatcherAndBrokerRoundTrip(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	dispatcher := transport.NewDispatcher(conn, "flowmesh.test.echo", nil)
	dispatcher.Handle("echo", func(ctx context.Context, payload []byte) (any, error) {
		var s string
		_ = transport.Decode(payload, &s)
		return s, nil
	})
	require.NoError(t, dispatcher.Listen())
	t.Cleanup(func() { _ = dispatcher.Stop() })

	broker := transport.NewBroker(conn)
	var result string
	err := broker.On(context.Background(), "worker-1", "flowmesh.test.echo", "echo", "hello", 2*time.Second, &result)
	require.NoError(t, err)
	require.Equal(t, "hello", result)
}

func TestBrokerOnAllCollectsPartialFailures(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	dispatcher := transport.NewDispatcher(conn, "flowmesh.test.onall.ok", nil)
	dispatcher.Handle("ping", func(ctx context.Context, payload []byte) (any, error) {
		return "pong", nil
	})
	require.NoError(t, dispatcher.Listen())
	t.Cleanup(func() { _ = dispatcher.Stop() })

	broker := transport.NewBroker(conn)
	results := broker.OnAll(context.Background(), []transport.Target{
		{Node: "ok", Subject: "flowmesh.test.onall.ok"},
		{Node: "missing", Subject: "flowmesh.test.onall.missing"},
	}, "ping", nil, 500*time.Millisecond)

	require.NoError(t, results["ok"])
	require.Error(t, results["missing"])
}

func TestBrokerWithLimitThrottlesCalls(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	dispatcher := transport.NewDispatcher(conn, "flowmesh.test.limited", nil)
	dispatcher.Handle("ping", func(ctx context.Context, payload []byte) (any, error) {
		return "pong", nil
	})
	require.NoError(t, dispatcher.Listen())
	t.Cleanup(func() { _ = dispatcher.Stop() })

	broker := transport.NewBrokerWithLimit(conn, 5, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		var result string
		err := broker.On(context.Background(), "limited", "flowmesh.test.limited", "ping", nil, time.Second, &result)
		require.NoError(t, err)
		require.Equal(t, "pong", result)
	}
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 300*time.Millisecond, "three calls against a 5/s limiter with burst 1 should take at least ~400ms")
}
