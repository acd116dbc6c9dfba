// Package router dispatches published values to their destinations:
// once a worker's receive hook publishes values on an out-port, Router
// looks up who is wired to that (instance, port) in the deployment's
// RoutingTable and invokes each destination's strategy send hook once
// per value, in publish order, before handing the message on to a
// concrete worker.
//
// The fan-out mirrors a pub-sub subject dispatch: a publish on one
// subject reaches every registered handler, in registration order,
// without the publisher knowing how many subscribers exist or where
// they run.
package router
