package worker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360/flowmesh/component"
)

// Runtime owns every worker goroutine running on one node, keyed by Ref.
// Spawn starts a worker on this node; Send and SendToInstance deliver
// messages to a running one.
type Runtime struct {
	node    string
	publish PublishFunc
	onCrash func(ref Ref, instance component.InstanceID, comp *component.Component, role string, deployment map[string]any, opts Options, err error)
	logger  *slog.Logger

	mu        sync.RWMutex
	workers   map[Ref]*Worker
	instances map[component.InstanceID]Ref
}

// NewRuntime builds an empty Runtime for node. onCrash, if non-nil, is
// invoked with full respawn context whenever a worker's receive hook
// crashes — normally supplied by a Supervisor wrapping this Runtime.
func NewRuntime(node string, publish PublishFunc, onCrash func(ref Ref, instance component.InstanceID, comp *component.Component, role string, deployment map[string]any, opts Options, err error), logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		node:      node,
		publish:   publish,
		onCrash:   onCrash,
		logger:    logger,
		workers:   make(map[Ref]*Worker),
		instances: make(map[component.InstanceID]Ref),
	}
}

// Spawn creates and starts a new worker for instance running comp, and
// returns its Ref. role names the worker's place in its strategy (e.g.
// "primary" vs "replica"); deployment is the strategy's own
// per-deployment bookkeeping for this node, the same map its deploy and
// prepare hooks built, made available to the worker's receive hook
// independent of the worker's own field state. Spawn mints a fresh Tag
// for role every time it's called, including on respawn.
func (r *Runtime) Spawn(instance component.InstanceID, comp *component.Component, role string, deployment map[string]any, opts Options) Ref {
	ref := NewRef(r.node)
	tag := NewTag(role)

	var crash func(err error)
	if r.onCrash != nil {
		crash = func(err error) { r.onCrash(ref, instance, comp, role, deployment, opts, err) }
	}

	w := NewWorker(ref, instance, comp, deployment, tag, opts, r.publish, crash, r.logger)
	w.Start()

	r.mu.Lock()
	r.workers[ref] = w
	r.instances[instance] = ref
	r.mu.Unlock()

	return ref
}

// Lookup returns the worker for ref, or nil if no such worker exists on
// this runtime.
func (r *Runtime) Lookup(ref Ref) *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workers[ref]
}

// RefForInstance returns the current Ref owning instance. A crash
// respawn mints a new Ref for the same instance, so callers that need
// to keep addressing an instance across restarts should resolve
// through this rather than caching a Ref.
func (r *Runtime) RefForInstance(instance component.InstanceID) (Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.instances[instance]
	return ref, ok
}

// Send delivers args to ref's mailbox.
func (r *Runtime) Send(ref Ref, args any) error {
	w := r.Lookup(ref)
	if w == nil {
		return fmt.Errorf("worker: no such ref %s on node %s", ref, r.node)
	}
	return w.Send(args)
}

// SendToInstance delivers args to whichever Ref currently owns instance.
func (r *Runtime) SendToInstance(instance component.InstanceID, args any) error {
	ref, ok := r.RefForInstance(instance)
	if !ok {
		return fmt.Errorf("worker: no worker for instance %s on node %s", instance, r.node)
	}
	return r.Send(ref, args)
}

// Release stops and removes ref from the runtime, best-effort.
func (r *Runtime) Release(ref Ref) {
	r.mu.Lock()
	w, ok := r.workers[ref]
	delete(r.workers, ref)
	if ok && r.instances[w.Instance] == ref {
		delete(r.instances, w.Instance)
	}
	r.mu.Unlock()
	if ok {
		w.Stop()
	}
}

// Refs returns every worker Ref currently owned by this runtime.
func (r *Runtime) Refs() []Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]Ref, 0, len(r.workers))
	for ref := range r.workers {
		refs = append(refs, ref)
	}
	return refs
}

// Respawn replaces ref's worker with a fresh one for the same instance,
// component, role, and deployment data, starting from empty field state
// and a new generation — the crash-restart path Supervisor drives. A
// receive hook that compares the tag on this call against the one it
// saw before the crash sees the same role but a different generation,
// and so knows its field state came back empty.
func (r *Runtime) Respawn(ref Ref, instance component.InstanceID, comp *component.Component, role string, deployment map[string]any, opts Options) Ref {
	r.Release(ref)
	return r.Spawn(instance, comp, role, deployment, opts)
}
