// Package worker is the node-local runtime: each deployed component
// instance runs as a goroutine draining a buffered mailbox, one message
// processed at a time, giving the FIFO-per-instance guarantee the
// routing layer depends on. Runtime owns the set of worker goroutines
// for one node; Supervisor restarts a crashed worker with fresh state
// and escalates after too many restarts in a sliding window.
//
// Each worker instance moves through the spawned -> ready -> running ->
// draining -> stopped states of State; one component instance can be
// spawned, crash, and be respawned many times.
package worker
