package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/flowconfig"
	"github.com/c360/flowmesh/membership"
	"github.com/c360/flowmesh/metric"
	"github.com/c360/flowmesh/worker"
)

const (
	monitorInterval = 5 * time.Second
	livenessTimeout = 2 * time.Second
)

// infra is the ambient machinery every mode needs: a NATS connection
// and a metrics registry+server, mirroring 's
// createCoreDependencies/setupInfrastructure split.
type infra struct {
	conn     *nats.Conn
	registry *metric.Registry
	server   *metric.Server
}

func setupInfra(cfg *flowconfig.Config, logger *slog.Logger) (*infra, error) {
	conn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATSURL, err)
	}

	registry := metric.NewRegistry()
	var server *metric.Server
	if cfg.MetricsPort != 0 {
		server = metric.NewServer(cfg.MetricsPort, "/metrics", registry)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	return &infra{conn: conn, registry: registry, server: server}, nil
}

// Node status gauge values, mirroring metric.Metrics.RecordServiceStatus's
// documented encoding.
const (
	statusStopped  = 0
	statusStarting = 1
	statusRunning  = 2
	statusDraining = 3
	statusFailed   = 4
)

func (i *infra) close() {
	if i.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = i.server.Stop(ctx)
	}
	i.conn.Close()
}

func runMaster(ctx context.Context, cfg *flowconfig.Config, logger *slog.Logger) error {
	infra, err := setupInfra(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close()
	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusStarting)

	master := membership.NewMaster(infra.conn, cfg.NodeName, cfg.Cookie, monitorInterval, livenessTimeout, logger)

	joins, unsubJoins := master.JoinSubscription()
	leaves, unsubLeaves := master.LeaveSubscription()
	defer unsubJoins()
	defer unsubLeaves()
	go watchMembership(ctx, joins, leaves, infra.registry, master)

	if len(cfg.MasterWorkers) > 0 {
		names := make([]string, len(cfg.MasterWorkers))
		for i, id := range cfg.MasterWorkers {
			names[i] = id.Name
		}
		if _, err := master.ConnectAll(ctx, names); err != nil {
			infra.registry.Metrics.RecordError("membership")
			logger.Error("master: failed to connect one or more configured workers", "workers", names, "error", err)
		}
	}

	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusRunning)
	logger.Info("flowmeshd: master node running", "node", cfg.NodeName, "nats", cfg.NATSURL)
	<-ctx.Done()
	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusDraining)
	logger.Info("flowmeshd: master node shutting down")

	for name := range master.NodeEntries() {
		_ = master.Disconnect(name)
	}
	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusStopped)
	return nil
}

func watchMembership(ctx context.Context, joins, leaves <-chan ferrors.NodeID, registry *metric.Registry, master *membership.Master) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-joins:
			registry.Metrics.RecordConnectedNodes(len(master.NodeEntries()))
		case <-leaves:
			registry.Metrics.RecordConnectedNodes(len(master.NodeEntries()))
		}
	}
}

func runWorker(ctx context.Context, cfg *flowconfig.Config, logger *slog.Logger) error {
	infra, err := setupInfra(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close()

	nodeName := cfg.NodeName
	if nodeName == "" {
		return fmt.Errorf("worker mode requires --name or FLOWMESH_NODE_NAME")
	}
	infra.registry.Metrics.RecordServiceStatus(nodeName, statusStarting)

	w, err := membership.NewWorker(infra.conn, nodeName, cfg.Cookie, logger)
	if err != nil {
		infra.registry.Metrics.RecordServiceStatus(nodeName, statusFailed)
		return fmt.Errorf("start worker membership beacon: %w", err)
	}
	defer w.Close()

	supervisor := worker.NewSupervisor(5, time.Minute, func(ref worker.Ref, instance component.InstanceID, err error) {
		infra.registry.Metrics.RecordWorkerEscalation(nodeName)
		infra.registry.Metrics.RecordError("worker")
		logger.Error("worker: escalated past restart budget", "worker", ref.String(), "node", nodeName, "instance", instance.String(), "error", err)
	}, logger)
	supervisor.Metrics = infra.registry.Metrics
	_ = supervisor.Attach(nodeName, func(component.InstanceID, component.Port, []any) {
		// No workflow is deployed onto a bare CLI-started worker node;
		// deploy.Deploy wires a real PublishFunc once it spawns workers here.
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.WorkerMaster != nil {
		shutdownFn := func() {}
		if cfg.ShutdownWithMaster {
			shutdownFn = func() {
				logger.Warn("worker: master disconnected, shutting down")
				cancel()
			}
		}
		if err := w.RegisterMaster(ctx, cfg.WorkerMaster.Name, cfg.ShutdownWithMaster, monitorInterval, livenessTimeout, shutdownFn); err != nil {
			infra.registry.Metrics.RecordServiceStatus(nodeName, statusFailed)
			return fmt.Errorf("register with master %s: %w", cfg.WorkerMaster.String(), err)
		}
	}

	infra.registry.Metrics.RecordServiceStatus(nodeName, statusRunning)
	logger.Info("flowmeshd: worker node running", "node", nodeName, "nats", cfg.NATSURL)
	<-ctx.Done()
	infra.registry.Metrics.RecordServiceStatus(nodeName, statusDraining)
	logger.Info("flowmeshd: worker node shutting down")
	infra.registry.Metrics.RecordServiceStatus(nodeName, statusStopped)
	return nil
}

// runLocal runs master and worker membership roles in a single process
// against the local node name, the single-node/local-mode carve-out
// that skips the not_distributed check.
func runLocal(ctx context.Context, cfg *flowconfig.Config, logger *slog.Logger) error {
	infra, err := setupInfra(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close()

	nodeName := cfg.NodeName
	if nodeName == "" {
		nodeName = "local"
	}

	infra.registry.Metrics.RecordServiceStatus(nodeName, statusStarting)

	master := membership.NewMaster(infra.conn, nodeName, cfg.Cookie, monitorInterval, livenessTimeout, logger)
	master.EnableLocalMode()
	w, err := membership.NewWorker(infra.conn, nodeName, cfg.Cookie, logger)
	if err != nil {
		infra.registry.Metrics.RecordServiceStatus(nodeName, statusFailed)
		return fmt.Errorf("start local membership beacon: %w", err)
	}
	defer w.Close()

	if err := master.Connect(ctx, nodeName); err != nil {
		infra.registry.Metrics.RecordServiceStatus(nodeName, statusFailed)
		return fmt.Errorf("connect local node to itself: %w", err)
	}

	infra.registry.Metrics.RecordServiceStatus(nodeName, statusRunning)
	logger.Info("flowmeshd: local node running", "node", nodeName, "nats", cfg.NATSURL)
	<-ctx.Done()
	infra.registry.Metrics.RecordServiceStatus(nodeName, statusDraining)
	logger.Info("flowmeshd: local node shutting down")
	_ = master.Disconnect(nodeName)
	infra.registry.Metrics.RecordServiceStatus(nodeName, statusStopped)
	return nil
}

// runDeploy reads --worker-file's name@host entries and connects each
// to a master running in this same process, the in-process analogue of
// an ssh-spawn-then-launch-master sequence — actually shelling out to
// spawn remote processes is a separate launcher script, out of scope
// for this process itself. Connects fan out via Master.ConnectAll: a
// partial failure logs the aggregated failures but keeps whatever
// workers did connect running, the same successes-survive-failure
// behavior runMaster gives its configured workers.
func runDeploy(ctx context.Context, cfg *flowconfig.Config, workerFile string, logger *slog.Logger) error {
	if workerFile == "" {
		return fmt.Errorf("deploy mode requires --worker-file")
	}
	data, err := os.ReadFile(workerFile)
	if err != nil {
		return fmt.Errorf("read worker file: %w", err)
	}

	var identities []flowconfig.NodeIdentity
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := flowconfig.ParseNodeIdentity(line)
		if err != nil {
			return fmt.Errorf("worker file: %w", err)
		}
		identities = append(identities, id)
	}

	infra, err := setupInfra(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.close()
	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusStarting)

	master := membership.NewMaster(infra.conn, cfg.NodeName, cfg.Cookie, monitorInterval, livenessTimeout, logger)

	names := make([]string, len(identities))
	for i, id := range identities {
		names[i] = id.Name
	}
	connected, err := master.ConnectAll(ctx, names)
	if err != nil {
		infra.registry.Metrics.RecordError("membership")
		logger.Error("deploy: failed to connect one or more workers", "connected", connected, "error", err)
	}

	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusRunning)
	logger.Info("flowmeshd: deploy mode launched master with workers", "workers", connected)
	<-ctx.Done()
	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusDraining)
	logger.Info("flowmeshd: deploy mode shutting down")
	for _, name := range connected {
		_ = master.Disconnect(name)
	}
	infra.registry.Metrics.RecordServiceStatus(cfg.NodeName, statusStopped)
	return nil
}
