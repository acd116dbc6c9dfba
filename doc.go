// Package flowmesh implements a distributed runtime for reactive dataflow
// workflows.
//
// # Overview
//
// A workflow is a directed graph of reactive components connected by typed
// ports. Flowmesh deploys a workflow across a cluster of worker nodes,
// routes data tokens along graph edges, and invokes per-component user
// logic in response to arriving data. Each component is parameterized by a
// strategy: a bundle of hooks deciding how the component is materialized on
// workers, how outgoing data is dispatched, and how incoming messages are
// processed. Strategies compose, so behaviors like replication, stateful
// aggregation, or checkpointed state can be built as reusable pieces.
//
// # Architecture
//
//	┌──────────────────────────────────────┐
//	│            deploy.Deploy              │  walks a workflow, calls
//	│   (flatten, resolve, deploy, route)   │  strategy hooks, builds the
//	└──────────────────┬────────────────────┘  routing table
//	                   ↓ spawns workers via
//	┌──────────────────────────────────────┐
//	│        transport + membership         │  beacon handshake, node
//	│  (NATS request/reply, liveness mon.)  │  join/leave, task broker
//	└──────────────────┬────────────────────┘
//	                   ↓ hosts
//	┌──────────────────────────────────────┐
//	│            worker.Runtime             │  per-component workers,
//	│     (mailbox, receive, publish)       │  FIFO delivery, state
//	└──────────────────┬────────────────────┘
//	                   ↓ publishes through
//	┌──────────────────────────────────────┐
//	│             router.Router             │  out-port → destination
//	│                                        │  fan-out, strategy.Send
//	└────────────────────────────────────────┘
//
// # Packages
//
//   - registry: process-wide name → entity directory.
//   - component: component/port/callback model and invocation engine.
//   - strategy: strategy composition (merge) and hook dispatch.
//   - workflow: graph of component/sub-workflow nodes, validation.
//   - transport: node-to-node messaging over NATS, beacon, task broker.
//   - membership: master-side connection lifecycle and liveness.
//   - worker: per-component supervised workers on a node.
//   - deploy: deployment engine (flatten, resolve, deploy, route).
//   - router: per-edge dispatch from a publish to destination workers.
//   - ferrors: classified error taxonomy shared across the above.
//   - metric: ambient Prometheus metrics.
//   - flowconfig: environment-driven configuration.
//
// Flowmesh does not include a surface syntax for describing workflows —
// callers build the data model directly, the way a generated parser
// would. It also does not include a durable storage layer: checkpoints,
// if any, are strategy-provided and held in memory only.
package flowmesh
