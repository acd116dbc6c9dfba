package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/strategy"
)

// PublishFunc delivers the values a worker's receive hook published on a
// single out-port, in publish order, to whatever routes them onward —
// router.Router.Publish in the full deployment, a no-op in tests that
// don't care about downstream fan-out.
type PublishFunc func(instance component.InstanceID, port component.Port, values []any)

// message is one unit of mailbox work: invoke the component's strategy
// Receive hook with args, against this worker's current state.
type message struct {
	args any
	done chan error
}

// Worker is a goroutine owning one component instance's state and a
// buffered mailbox. Exactly one message is in flight at a time — the
// goroutine pulls one message, runs it to completion, then pulls the
// next — giving callers the FIFO-per-instance delivery guarantee.
type Worker struct {
	Ref      Ref
	Instance component.InstanceID
	Tag      Tag

	comp       *component.Component
	strat      *component.Strategy
	deployment map[string]any
	publish    PublishFunc
	onCrash    func(err error)
	logger     *slog.Logger

	opts    Options
	mailbox chan message

	mu    sync.RWMutex
	state State
	data  map[string]any

	stop chan struct{}
	done chan struct{}
}

// NewWorker spawns a worker for one component instance. deployment is
// the strategy's own per-deployment bookkeeping — the same map the
// deploy and prepare hooks for this node built and read, kept alongside
// the instance's field state rather than standing in for it, so a
// receive hook can read the two apart. tag identifies the worker's role
// and the generation it was spawned into; Runtime.Spawn/Respawn mint
// it. The returned Worker starts in StateSpawned; Start begins draining
// its mailbox. onCrash, if non-nil, runs once when a receive hook
// invocation fails with a ferrors.Fatal-classified error — the Go
// rendering of "the worker's task crashed" — before the run loop exits.
// A Supervisor normally supplies onCrash to drive respawn decisions.
func NewWorker(ref Ref, instance component.InstanceID, comp *component.Component, deployment map[string]any, tag Tag, opts Options, publish PublishFunc, onCrash func(err error), logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MailboxSize <= 0 {
		opts = DefaultOptions()
	}
	return &Worker{
		Ref:        ref,
		Instance:   instance,
		Tag:        tag,
		comp:       comp,
		strat:      comp.Strategy(),
		deployment: deployment,
		publish:    publish,
		onCrash:    onCrash,
		logger:     logger,
		opts:       opts,
		mailbox:    make(chan message, opts.MailboxSize),
		state:      StateSpawned,
		data:       component.CreateEmptyState(comp),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// componentLabel returns the worker's component name for logging, or
// "" if the component is anonymous.
func (w *Worker) componentLabel() string {
	if name, ok := w.comp.EntityName(); ok {
		return name
	}
	return ""
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Snapshot returns a copy of the worker's current state map, for
// inspection by callers that don't want to go through a strategy hook —
// tests, primarily.
func (w *Worker) Snapshot() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]any, len(w.data))
	for k, v := range w.data {
		out[k] = v
	}
	return out
}

// Start begins the worker's run loop in its own goroutine.
func (w *Worker) Start() {
	w.setState(StateReady)
	go w.run()
}

// Stop drains any queued messages, then stops the worker's goroutine.
// It blocks until the goroutine has exited.
func (w *Worker) Stop() {
	w.setState(StateDraining)
	close(w.stop)
	<-w.done
	w.setState(StateStopped)
}

// Send enqueues args for delivery, blocking, dropping, or discarding the
// oldest queued message per the worker's BackpressurePolicy. It returns
// once the message is queued (not once it's processed); callers that
// need the result should use SendWait.
func (w *Worker) Send(args any) error {
	return w.enqueue(args, nil)
}

// SendWait enqueues args and blocks until the receive hook has run
// against it, returning any error the hook produced.
func (w *Worker) SendWait(args any) error {
	done := make(chan error, 1)
	if err := w.enqueue(args, done); err != nil {
		return err
	}
	return <-done
}

func (w *Worker) enqueue(args any, done chan error) error {
	msg := message{args: args, done: done}

	switch w.opts.Backpressure {
	case BackpressureBlock:
		select {
		case w.mailbox <- msg:
			return nil
		case <-w.stop:
			return ferrors.WorkerCrash(w.Ref.String(), context.Canceled)
		}
	case BackpressureDropNewest:
		select {
		case w.mailbox <- msg:
			return nil
		default:
			w.logger.Warn("worker: mailbox full, dropping newest message", "worker", w.Ref.String(), "node", w.Ref.Node, "component", w.componentLabel(), "instance", w.Instance.String())
			if done != nil {
				done <- nil
			}
			return nil
		}
	case BackpressureDropOldest:
		select {
		case w.mailbox <- msg:
			return nil
		default:
			select {
			case <-w.mailbox:
				w.logger.Warn("worker: mailbox full, dropped oldest message", "worker", w.Ref.String(), "node", w.Ref.Node, "component", w.componentLabel(), "instance", w.Instance.String())
			default:
			}
			select {
			case w.mailbox <- msg:
			default:
			}
			return nil
		}
	default:
		w.mailbox <- msg
		return nil
	}
}

func (w *Worker) run() {
	for {
		select {
		case <-w.stop:
			w.drain()
			close(w.done)
			return
		case msg := <-w.mailbox:
			if crashErr := w.process(msg); crashErr != nil {
				w.setState(StateStopped)
				// done is closed before onCrash runs, so an onCrash that
				// releases this worker (and so calls Stop) does not block.
				close(w.done)
				if w.onCrash != nil {
					w.onCrash(crashErr)
				}
				return
			}
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case msg := <-w.mailbox:
			w.process(msg)
		default:
			return
		}
	}
}

// process runs one mailbox message to completion, returning a non-nil
// error only when the receive hook crashed (a ferrors.Fatal-classified
// error) — the caller then stops the run loop and defers to onCrash.
func (w *Worker) process(msg message) error {
	w.setState(StateRunning)

	w.mu.Lock()
	state := w.data
	w.mu.Unlock()

	ctx := strategy.Context{
		ComponentRef:   w.comp,
		StrategyRef:    w.strat,
		DeploymentData: w.deployment,
		InstanceState:  state,
		InvocationData: msg.args,
		Tag:            w.Tag.String(),
	}

	result, err := strategy.Dispatch(ctx, strategy.HookReceive, msg.args)
	if err != nil {
		w.logger.Error("worker: receive hook failed", "worker", w.Ref.String(), "node", w.Ref.Node, "component", w.componentLabel(), "instance", w.Instance.String(), "error", err)
		if msg.done != nil {
			msg.done <- err
		}
		if ferrors.IsFatal(err) {
			return err
		}
		w.setState(StateReady)
		return nil
	}

	if result.NewState != nil {
		w.mu.Lock()
		w.data = result.NewState
		w.mu.Unlock()
	}

	if w.publish != nil && len(result.Published) > 0 {
		byPort := make(map[component.Port][]any, len(result.Published))
		order := make([]component.Port, 0, len(result.Published))
		for _, pub := range result.Published {
			if _, seen := byPort[pub.Port]; !seen {
				order = append(order, pub.Port)
			}
			byPort[pub.Port] = append(byPort[pub.Port], pub.Value)
		}
		for _, port := range order {
			w.publish(w.Instance, port, byPort[port])
		}
	}

	w.setState(StateReady)
	if msg.done != nil {
		msg.done <- nil
	}
	return nil
}
