package membership_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"

	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/membership"
	"github.com/c360/flowmesh/transport"
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

func TestMasterConnectAndDisconnect(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	worker, err := membership.NewWorker(conn, "worker-1", "secret", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = worker.Close() })

	master := membership.NewMaster(conn, "master", "secret", 50*time.Millisecond, time.Second, nil)

	joins, unsubJoin := master.JoinSubscription()
	defer unsubJoin()

	require.NoError(t, master.Connect(context.Background(), "worker-1"))

	select {
	case node := <-joins:
		require.Equal(t, "worker-1", node.Name)
	case <-time.After(time.Second):
		t.Fatal("expected a join notification")
	}

	entries := master.NodeEntries()
	require.Contains(t, entries, "worker-1")
	require.Equal(t, membership.StateVerified, entries["worker-1"].State)

	require.NoError(t, master.Disconnect("worker-1"))
	require.NotContains(t, master.NodeEntries(), "worker-1")
}

func TestMasterConnectAlreadyConnected(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	worker, err := membership.NewWorker(conn, "worker-2", "secret", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = worker.Close() })

	master := membership.NewMaster(conn, "master", "secret", 50*time.Millisecond, time.Second, nil)
	require.NoError(t, master.Connect(context.Background(), "worker-2"))

	err = master.Connect(context.Background(), "worker-2")
	require.Error(t, err)
}

func TestMasterConnectHandshakeFailureWrongCookie(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	worker, err := membership.NewWorker(conn, "worker-3", "secret", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = worker.Close() })

	master := membership.NewMaster(conn, "master", "wrong-secret", 50*time.Millisecond, time.Second, nil)
	err = master.Connect(context.Background(), "worker-3")
	require.Error(t, err)

	entries := master.NodeEntries()
	require.NotContains(t, entries, "worker-3")
}

func TestMasterConnectNoSuchNodeTimesOut(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	master := membership.NewMaster(conn, "master", "secret", 50*time.Millisecond, 200*time.Millisecond, nil)
	err := master.Connect(context.Background(), "ghost")
	require.Error(t, err)
}

func TestMasterConnectAllPreservesSuccessesOnPartialFailure(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	workerA, err := membership.NewWorker(conn, "worker-all-a", "secret", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = workerA.Close() })

	master := membership.NewMaster(conn, "master", "secret", 50*time.Millisecond, 200*time.Millisecond, nil)

	succeeded, err := master.ConnectAll(context.Background(), []string{"worker-all-a", "ghost"})
	require.Error(t, err)
	require.Equal(t, []string{"worker-all-a"}, succeeded)

	entries := master.NodeEntries()
	require.Contains(t, entries, "worker-all-a")
	require.NotContains(t, entries, "ghost")
}

func TestMasterConnectRejectsNonSelfInLocalMode(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	worker, err := membership.NewWorker(conn, "worker-local", "secret", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = worker.Close() })

	master := membership.NewMaster(conn, "local", "secret", 50*time.Millisecond, time.Second, nil)
	master.EnableLocalMode()

	err = master.Connect(context.Background(), "worker-local")
	require.ErrorIs(t, err, ferrors.ErrNotDistributed)
}

func TestMasterDisconnectNotConnected(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)
	master := membership.NewMaster(conn, "master", "secret", 50*time.Millisecond, time.Second, nil)

	err := master.Disconnect("nobody")
	require.Error(t, err)
}

func TestMasterDetectsWorkerDeath(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	worker, err := membership.NewWorker(conn, "worker-4", "secret", nil)
	require.NoError(t, err)

	master := membership.NewMaster(conn, "master", "secret", 30*time.Millisecond, 100*time.Millisecond, nil)
	leaves, unsubLeave := master.LeaveSubscription()
	defer unsubLeave()

	require.NoError(t, master.Connect(context.Background(), "worker-4"))

	require.NoError(t, worker.Close())

	select {
	case node := <-leaves:
		require.Equal(t, "worker-4", node.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a leave notification once the worker stopped answering")
	}

	require.NotContains(t, master.NodeEntries(), "worker-4")
}

func TestMasterConnectRefusedByWorkerWithDifferentMasterRegistered(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	worker, err := membership.NewWorker(conn, "worker-6", "secret", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = worker.Close() })

	first := membership.NewMaster(conn, "master-a", "secret", 50*time.Millisecond, time.Second, nil)
	require.NoError(t, first.Connect(context.Background(), "worker-6"))

	second := membership.NewMaster(conn, "master-b", "secret", 50*time.Millisecond, time.Second, nil)
	err = second.Connect(context.Background(), "worker-6")
	require.Error(t, err, "a second master claiming the same worker should be refused")

	require.NotContains(t, second.NodeEntries(), "worker-6")
}

func TestWorkerRegisterMasterShutdownWithMaster(t *testing.T) {
	skipUnlessIntegration(t)

	conn := startNATS(t)

	worker, err := membership.NewWorker(conn, "worker-5", "secret", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = worker.Close() })

	// A bare transport.Beacon answering under RoleMaster stands in for a
	// full Master, since RegisterMaster only needs something that answers
	// the beacon handshake as a master.
	masterBeacon := transport.NewBeacon(conn, "master-1", transport.RoleMaster, "secret")
	require.NoError(t, masterBeacon.Listen())

	shutdownCh := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = worker.RegisterMaster(ctx, "master-1", true, 30*time.Millisecond, 100*time.Millisecond, func() {
		close(shutdownCh)
	})
	require.NoError(t, err)
	require.Equal(t, "master-1", worker.MasterNode())

	require.NoError(t, masterBeacon.Stop())

	select {
	case <-shutdownCh:
	case <-time.After(3 * time.Second):
		t.Fatal("expected shutdownFn to run once the master stopped answering")
	}
}
