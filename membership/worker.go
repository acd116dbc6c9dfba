package membership

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/flowmesh/transport"
)

// Worker is the worker-side half of the handshake: it probes a
// candidate master, answers the master's own beacon so the master can
// verify it back, answers a master-initiated registration RPC so a
// master can claim it without the worker dialing first, and optionally
// shuts itself down when the master disappears, when its
// shutdown-with-master flag is set.
type Worker struct {
	conn     *nats.Conn
	nodeName string
	cookie   string
	logger   *slog.Logger

	beacon      *transport.Beacon
	registerSub *nats.Subscription

	mu                 sync.Mutex
	masterNode         string
	shutdownWithMaster bool
	stop               chan struct{}
	shutdownFn         func()
}

// NewWorker builds a Worker for nodeName, starts answering beacon
// probes under transport.RoleWorker so masters can verify it, and
// starts answering master-registration requests on
// transport.RegisterMasterSubject.
func NewWorker(conn *nats.Conn, nodeName, cookie string, logger *slog.Logger) (*Worker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	beacon := transport.NewBeacon(conn, nodeName, transport.RoleWorker, cookie)
	if err := beacon.Listen(); err != nil {
		return nil, err
	}
	w := &Worker{
		conn:     conn,
		nodeName: nodeName,
		cookie:   cookie,
		logger:   logger,
		beacon:   beacon,
	}
	sub, err := conn.Subscribe(transport.RegisterMasterSubject(nodeName), w.handleRegisterMaster)
	if err != nil {
		_ = beacon.Stop()
		return nil, err
	}
	w.registerSub = sub
	return w, nil
}

// handleRegisterMaster answers a master's registration RPC. A worker
// accepts at most one master registration at a time: a request naming
// the master it already has registered, or naming a new one while none
// is registered, is accepted; a request naming a different master while
// one is already registered is refused with already_connected, without
// the caller needing to consult NodeEntries or any other bookkeeping.
func (w *Worker) handleRegisterMaster(msg *nats.Msg) {
	var req transport.RegisterMasterRequest
	if err := transport.Decode(msg.Data, &req); err != nil {
		return
	}

	reply := transport.RegisterMasterReply{}
	if req.Cookie != w.cookie {
		reply.Reason = "wrong_cookie"
	} else {
		w.mu.Lock()
		if w.masterNode == "" || w.masterNode == req.MasterNode {
			w.masterNode = req.MasterNode
			reply.Accepted = true
		} else {
			reply.Reason = "already_connected"
		}
		w.mu.Unlock()
	}

	data, err := transport.Encode(reply)
	if err != nil {
		return
	}
	_ = msg.Respond(data)
}

// Close stops answering beacon probes and registration requests and,
// if registered, stops monitoring the master.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
	w.mu.Unlock()
	if w.registerSub != nil {
		_ = w.registerSub.Unsubscribe()
	}
	return w.beacon.Stop()
}

// RegisterMaster probes masterNode to confirm it's a live master under
// the shared cookie, then starts monitoring it. If shutdownWithMaster
// is true and shutdownFn is non-nil, shutdownFn runs the moment the
// master stops answering liveness probes — the worker's half of
// paired-shutdown behavior.
func (w *Worker) RegisterMaster(ctx context.Context, masterNode string, shutdownWithMaster bool, monitorInterval, livenessTimeout time.Duration, shutdownFn func()) error {
	reply, err := transport.Probe(ctx, w.conn, masterNode, w.cookie, transport.RoleMaster, livenessTimeout)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.masterNode = reply.NodeName
	w.shutdownWithMaster = shutdownWithMaster
	w.shutdownFn = shutdownFn
	stop := make(chan struct{})
	w.stop = stop
	w.mu.Unlock()

	go w.monitorMaster(masterNode, stop, monitorInterval, livenessTimeout)
	return nil
}

// MasterNode returns the name of the master this worker last registered
// with, or "" if it has never registered.
func (w *Worker) MasterNode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.masterNode
}

func (w *Worker) monitorMaster(masterNode string, stop <-chan struct{}, interval, deadline time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), deadline)
			_, err := transport.Probe(ctx, w.conn, masterNode, w.cookie, transport.RoleMaster, deadline)
			cancel()

			if err != nil {
				w.logger.Warn("membership: master failed liveness probe", "master", masterNode, "error", err)
				w.mu.Lock()
				shutdown := w.shutdownWithMaster
				fn := w.shutdownFn
				w.mu.Unlock()
				if shutdown && fn != nil {
					fn()
				}
				return
			}
		}
	}
}
