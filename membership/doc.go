// Package membership implements cluster membership from a master's
// point of view (connect/verify/register/monitor a worker node) and
// from a worker's point of view (register with, and optionally shut
// down alongside, a master). It builds on transport.Beacon/Probe for
// the handshake and exposes join/leave notifications as a small
// pub-sub so other packages (deploy, in particular) can react to nodes
// coming and going.
//
// The master tracks each worker connection as a ConnectionState
// (StateUnknown, StateConnecting, StateVerified, StateMonitoredLive,
// StateMonitoredDead, StateDisposed), with a health-monitoring
// goroutine and join/leave notification per connected worker, for many
// worker connections at once.
package membership
