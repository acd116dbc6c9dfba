package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// Handler answers one tagged request, returning the reply payload or an
// error. ctx carries the per-call deadline a Broker call was made with.
// payload is the envelope's raw JSON payload — handlers that need a
// typed value call Decode themselves.
type Handler func(ctx context.Context, payload []byte) (any, error)

// Dispatcher subscribes to a single NATS subject and routes each
// inbound Envelope to the Handler registered for its Tag. A handler
// that panics is recovered and logged rather than taking the whole
// subscription down — restarting per-message costs nothing since a new
// goroutine handles every message anyway, unlike a long-lived worker
// goroutine that needs an explicit supervisor (see the worker package).
type Dispatcher struct {
	conn     *nats.Conn
	subject  string
	sub      *nats.Subscription
	logger   *slog.Logger
	handlers sync.Map // tag -> Handler
}

// NewDispatcher builds a Dispatcher for subject. Call Listen to start
// routing inbound messages.
func NewDispatcher(conn *nats.Conn, subject string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{conn: conn, subject: subject, logger: logger}
}

// Handle registers handler for tag, replacing any previous registration.
func (d *Dispatcher) Handle(tag string, handler Handler) {
	d.handlers.Store(tag, handler)
}

// Listen subscribes to the dispatcher's subject and begins routing.
func (d *Dispatcher) Listen() error {
	sub, err := d.conn.Subscribe(d.subject, d.onMessage)
	if err != nil {
		return err
	}
	d.sub = sub
	return nil
}

// Stop unsubscribes the dispatcher.
func (d *Dispatcher) Stop() error {
	if d.sub == nil {
		return nil
	}
	return d.sub.Unsubscribe()
}

func (d *Dispatcher) onMessage(msg *nats.Msg) {
	var env Envelope
	if err := Decode(msg.Data, &env); err != nil {
		d.logger.Warn("dispatcher: malformed envelope", "subject", d.subject, "error", err)
		return
	}

	value, ok := d.handlers.Load(env.Tag)
	if !ok {
		d.logger.Warn("dispatcher: no handler for tag", "tag", env.Tag, "subject", d.subject)
		if msg.Reply != "" {
			d.respondError(msg, fmt.Errorf("no handler for tag %q", env.Tag))
		}
		return
	}
	handler := value.(Handler)

	go d.run(msg, env, handler)
}

func (d *Dispatcher) run(msg *nats.Msg, env Envelope, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatcher: handler panicked", "tag", env.Tag, "correlation_id", env.CorrelationID, "panic", r)
			if msg.Reply != "" {
				d.respondError(msg, fmt.Errorf("handler panicked: %v", r))
			}
		}
	}()

	result, err := handler(context.Background(), env.Payload)
	if msg.Reply == "" {
		if err != nil {
			d.logger.Warn("dispatcher: handler failed", "tag", env.Tag, "error", err)
		}
		return
	}

	if err != nil {
		d.respondError(msg, err)
		return
	}

	reply, encErr := NewEnvelope(env.Tag, result)
	if encErr != nil {
		d.respondError(msg, encErr)
		return
	}
	reply.CorrelationID = env.CorrelationID

	data, encErr := Encode(reply)
	if encErr != nil {
		d.respondError(msg, encErr)
		return
	}
	_ = msg.Respond(data)
}

func (d *Dispatcher) respondError(msg *nats.Msg, err error) {
	reply := Envelope{Tag: "error", Payload: []byte(fmt.Sprintf("%q", err.Error()))}
	data, encErr := Encode(reply)
	if encErr != nil {
		return
	}
	_ = msg.Respond(data)
}
