package worker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/metric"
)

// Supervisor wires a Runtime's crash callback to a restart policy: a
// crashed worker is respawned with fresh state, unless it has crashed
// more than MaxRestarts times within Window, in which case the
// supervisor stops retrying and escalates to OnEscalate — the node-level
// runtime. Generalizes per-component error tracking that records only
// the last error into counting recent errors within a sliding window.
type Supervisor struct {
	MaxRestarts int
	Window      time.Duration
	OnEscalate  func(ref Ref, instance component.InstanceID, err error)
	Metrics     *metric.Metrics

	logger *slog.Logger

	mu       sync.Mutex
	restarts map[component.InstanceID][]time.Time
}

// NewSupervisor builds a Supervisor. Its Attach method builds a Runtime
// whose crashes it handles. Set the returned Supervisor's Metrics
// field to record each ordinary (non-escalating) restart.
func NewSupervisor(maxRestarts int, window time.Duration, onEscalate func(ref Ref, instance component.InstanceID, err error), logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		MaxRestarts: maxRestarts,
		Window:      window,
		OnEscalate:  onEscalate,
		logger:      logger,
		restarts:    make(map[component.InstanceID][]time.Time),
	}
}

// Attach returns a Runtime whose crashes are handled by this Supervisor.
func (s *Supervisor) Attach(node string, publish PublishFunc) *Runtime {
	var runtime *Runtime
	runtime = NewRuntime(node, publish, func(ref Ref, instance component.InstanceID, comp *component.Component, role string, deployment map[string]any, opts Options, err error) {
		s.handleCrash(runtime, ref, instance, comp, role, deployment, opts, err)
	}, s.logger)
	return runtime
}

func (s *Supervisor) handleCrash(runtime *Runtime, ref Ref, instance component.InstanceID, comp *component.Component, role string, deployment map[string]any, opts Options, err error) {
	name, _ := comp.EntityName()
	s.logger.Error("worker: crashed", "worker", ref.String(), "node", ref.Node, "component", name, "instance", instance.String(), "error", err)

	if s.tooManyRestarts(instance) {
		s.logger.Error("worker: restart budget exhausted, escalating", "worker", ref.String(), "node", ref.Node, "component", name, "instance", instance.String())
		runtime.Release(ref)
		if s.OnEscalate != nil {
			s.OnEscalate(ref, instance, ferrors.WorkerCrash(ref.String(), err))
		}
		return
	}

	if s.Metrics != nil {
		s.Metrics.RecordWorkerRestart(ref.Node)
	}
	runtime.Respawn(ref, instance, comp, role, deployment, opts)
}

func (s *Supervisor) tooManyRestarts(instance component.InstanceID) bool {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.Window)
	history := s.restarts[instance]
	kept := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	s.restarts[instance] = kept

	return len(kept) > s.MaxRestarts
}
