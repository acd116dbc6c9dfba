package membership

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/transport"
)

// Master tracks the set of worker nodes connected to this cluster
// controller: it runs the connect/verify handshake, monitors liveness,
// and publishes join/leave notifications. Handshakes against different
// nodes run in parallel; handshakes against the *same* node name are
// serialized, so two concurrent Connect calls for "worker-1" can never
// race each other into an inconsistent NodeEntry.
type Master struct {
	conn            *nats.Conn
	name            string
	cookie          string
	monitorInterval time.Duration
	livenessTimeout time.Duration
	logger          *slog.Logger

	localOnly bool

	mu    sync.RWMutex
	nodes map[string]*NodeEntry
	stop  map[string]chan struct{}

	nodeLocks sync.Map // name string -> *sync.Mutex

	subsMu sync.Mutex
	joins  []chan ferrors.NodeID
	leaves []chan ferrors.NodeID
}

// NewMaster builds a Master identifying itself as name when it asks a
// worker to register it. monitorInterval is how often a connected node
// is re-probed for liveness; livenessTimeout bounds each probe.
func NewMaster(conn *nats.Conn, name, cookie string, monitorInterval, livenessTimeout time.Duration, logger *slog.Logger) *Master {
	if logger == nil {
		logger = slog.Default()
	}
	return &Master{
		conn:            conn,
		name:            name,
		cookie:          cookie,
		monitorInterval: monitorInterval,
		livenessTimeout: livenessTimeout,
		logger:          logger,
		nodes:           make(map[string]*NodeEntry),
		stop:            make(map[string]chan struct{}),
	}
}

// EnableLocalMode restricts this Master to connecting only to its own
// node name, the single-process carve-out where master and worker share
// one node and there is no real cluster to distribute across. Connect
// against any other name then fails with ferrors.ErrNotDistributed
// instead of attempting a handshake.
func (m *Master) EnableLocalMode() {
	m.localOnly = true
}

// forget drops nodeName's entry after a failed handshake, so a node that
// did not connect is absent from NodeEntries rather than left disposed.
func (m *Master) forget(nodeName string) {
	m.mu.Lock()
	delete(m.nodes, nodeName)
	m.mu.Unlock()
}

func (m *Master) lockFor(name string) *sync.Mutex {
	lock, _ := m.nodeLocks.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Connect runs the connect/verify handshake against nodeName — probe
// the worker, then ask it to register this master — and, on success,
// starts monitoring its liveness. not_distributed if this Master was
// put into local mode and nodeName isn't its own name.
// already_connected(node) if the node is already verified or being
// monitored here, or if the worker itself refuses because it already
// has a different master registered.
func (m *Master) Connect(ctx context.Context, nodeName string) error {
	if m.localOnly && nodeName != m.name {
		return fmt.Errorf("membership: connect %s: %w", nodeName, ferrors.ErrNotDistributed)
	}

	lock := m.lockFor(nodeName)
	lock.Lock()
	defer lock.Unlock()

	node := ferrors.NodeID{Name: nodeName}

	m.mu.RLock()
	existing, known := m.nodes[nodeName]
	m.mu.RUnlock()
	if known && (existing.State == StateVerified || existing.State == StateMonitoredLive) {
		return ferrors.AlreadyConnected(node)
	}

	m.setState(nodeName, StateConnecting)

	reply, err := transport.Probe(ctx, m.conn, nodeName, m.cookie, transport.RoleWorker, m.livenessTimeout)
	if err != nil {
		m.forget(nodeName)
		return err
	}

	if err := transport.RequestMasterRegistration(ctx, m.conn, reply.NodeName, m.cookie, m.name, m.livenessTimeout); err != nil {
		m.forget(nodeName)
		return err
	}

	m.mu.Lock()
	m.nodes[nodeName] = &NodeEntry{Name: reply.NodeName, State: StateVerified}
	stopCh := make(chan struct{})
	m.stop[nodeName] = stopCh
	m.mu.Unlock()

	m.notify(m.joins, node)
	go m.monitor(nodeName, stopCh)

	return nil
}

// ConnectAll runs Connect against every name in names in parallel and
// returns the names that succeeded. A node already connecting on a
// different ConnectAll/Connect call is still handled correctly — per-name
// serialization happens inside Connect via lockFor — but every name here
// is otherwise independent, so one node's failure never rolls back
// another's success. On any failure it returns the partial successes
// alongside a ferrors.DeploymentPartialError listing every node's
// outcome; the caller decides whether to keep or unwind the successes.
func (m *Master) ConnectAll(ctx context.Context, names []string) ([]string, error) {
	group, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var succeeded []string
	failures := make(map[string]error)

	for _, name := range names {
		name := name
		group.Go(func() error {
			err := m.Connect(gctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[name] = err
				return nil
			}
			succeeded = append(succeeded, name)
			return nil
		})
	}
	_ = group.Wait()

	if len(failures) > 0 {
		return succeeded, ferrors.DeploymentPartial(succeeded, failures)
	}
	return succeeded, nil
}

// Disconnect stops monitoring nodeName and removes it from the cluster
// view. not_connected(node) if the node was never connected.
func (m *Master) Disconnect(nodeName string) error {
	node := ferrors.NodeID{Name: nodeName}

	m.mu.Lock()
	_, known := m.nodes[nodeName]
	if !known {
		m.mu.Unlock()
		return ferrors.NotConnected(node)
	}
	if stopCh, ok := m.stop[nodeName]; ok {
		close(stopCh)
		delete(m.stop, nodeName)
	}
	delete(m.nodes, nodeName)
	m.mu.Unlock()

	m.notify(m.leaves, node)
	return nil
}

// NodeEntries returns a snapshot of every node this master currently
// knows about.
func (m *Master) NodeEntries() map[string]NodeEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]NodeEntry, len(m.nodes))
	for name, entry := range m.nodes {
		out[name] = *entry
	}
	return out
}

func (m *Master) setState(nodeName string, state ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.nodes[nodeName]
	if !ok {
		entry = &NodeEntry{Name: nodeName}
		m.nodes[nodeName] = entry
	}
	entry.State = state
}

func (m *Master) monitor(nodeName string, stop <-chan struct{}) {
	ticker := time.NewTicker(m.monitorInterval)
	defer ticker.Stop()

	node := ferrors.NodeID{Name: nodeName}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.livenessTimeout)
			_, err := transport.Probe(ctx, m.conn, nodeName, m.cookie, transport.RoleWorker, m.livenessTimeout)
			cancel()

			if err != nil {
				m.logger.Warn("membership: node failed liveness probe", "node", nodeName, "error", err)
				m.setState(nodeName, StateMonitoredDead)
				m.mu.Lock()
				delete(m.nodes, nodeName)
				delete(m.stop, nodeName)
				m.mu.Unlock()
				m.notify(m.leaves, node)
				return
			}
			m.setState(nodeName, StateMonitoredLive)
		}
	}
}

// JoinSubscription returns a channel that receives a NodeID every time
// a node successfully connects, and an unsubscribe function.
func (m *Master) JoinSubscription() (<-chan ferrors.NodeID, func()) {
	return m.subscribe(&m.joins)
}

// LeaveSubscription returns a channel that receives a NodeID every time
// a node disconnects or fails liveness monitoring, and an unsubscribe
// function.
func (m *Master) LeaveSubscription() (<-chan ferrors.NodeID, func()) {
	return m.subscribe(&m.leaves)
}

func (m *Master) subscribe(list *[]chan ferrors.NodeID) (<-chan ferrors.NodeID, func()) {
	ch := make(chan ferrors.NodeID, 16)

	m.subsMu.Lock()
	*list = append(*list, ch)
	m.subsMu.Unlock()

	unsubscribe := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		for i, c := range *list {
			if c == ch {
				*list = append((*list)[:i], (*list)[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

func (m *Master) notify(list []chan ferrors.NodeID, node ferrors.NodeID) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range list {
		select {
		case ch <- node:
		default:
			m.logger.Warn("membership: subscriber channel full, dropping notification", "node", node.Name)
		}
	}
}
