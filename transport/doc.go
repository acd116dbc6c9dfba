// Package transport carries flowmesh's remote traffic over NATS: a
// handshake beacon used to verify a peer before trusting it, a
// dispatcher that routes inbound requests to registered handlers and
// recovers from a handler that panics, replying with an error, a broker
// that turns "call one/all of these nodes" into NATS request/reply with
// a deadline, and a load balancer that picks which node answers a given
// call.
//
// Constructors take their dependencies as plain arguments (NewDispatcher
// takes a *slog.Logger), and calls take context-scoped per-call
// timeouts — narrowed from a general-purpose
// connection manager (circuit breaker, JetStream streams/KV, metrics
// polling) down to the request/reply and pub/sub primitives this
// runtime's dispatch layer actually needs.
package transport
