package component

import "fmt"

// capabilityViolation is panicked by Env when a callback body touches a
// field or port outside its declared capabilities. Call recovers it and
// turns it into an Invalid-class error, since a callback violating its
// own declared read/write/publish sets is a defect in how the callback
// was built, not a runtime data problem.
type capabilityViolation struct {
	reason string
}

func (v *capabilityViolation) Error() string { return v.reason }

// Env is the restricted handle a callback body uses to read state, write
// state, and publish values. It is constructed fresh for every
// invocation from the callback's declared Read/Write/Publish/
// StateCapability/PublishCapability sets, so the body can never reach a
// field or port it did not declare.
type Env struct {
	state      map[string]any
	deployment map[string]any
	readable   map[string]bool
	writable   map[string]bool
	publishOK  map[Port]bool
	stateCap   StateCapability
	publishCa  bool
	tag        string

	mutated   bool
	published []Published
}

func newEnv(cb *Callback, state, deployment map[string]any, tag string) *Env {
	return &Env{
		state:      state,
		deployment: deployment,
		readable:   stringSet(append(append([]string{}, cb.Read...), cb.Write...)),
		writable:   stringSet(cb.Write),
		publishOK:  portSet(cb.Publish),
		stateCap:   cb.StateCapability,
		publishCa:  cb.PublishCapability,
		tag:        tag,
	}
}

// Get returns the current value of field, or nil if it was never set.
// Reading a field outside the callback's declared Read/Write set, or
// reading at all with StateCapability none, panics with a
// capabilityViolation.
func (e *Env) Get(field string) any {
	if e.stateCap == StateNone {
		panic(&capabilityViolation{fmt.Sprintf("callback has no state capability, cannot read %q", field)})
	}
	if !e.readable[field] {
		panic(&capabilityViolation{fmt.Sprintf("field %q is not in this callback's read set", field)})
	}
	return e.state[field]
}

// Set updates field to value. Only permitted when the callback's Write
// set lists the field and its StateCapability is readwrite; otherwise
// Set panics with a capabilityViolation.
func (e *Env) Set(field string, value any) {
	if e.stateCap != StateReadWrite {
		panic(&capabilityViolation{fmt.Sprintf("callback does not have readwrite state capability, cannot write %q", field)})
	}
	if !e.writable[field] {
		panic(&capabilityViolation{fmt.Sprintf("field %q is not in this callback's write set", field)})
	}
	if e.state == nil {
		e.state = make(map[string]any)
	}
	e.state[field] = value
	e.mutated = true
}

// Deployment returns the current value of field in the strategy's
// per-deployment bookkeeping — the map the deploy and prepare hooks for
// this node built up, independent of whatever state map Get/Set read and
// write for this invocation. A receive hook on a replication or
// broadcast strategy reads its own replica set through here rather than
// through Get, since Get on a receive hook reaches the worker's field
// state instead. Unlike Get, reading here is never capability-gated:
// deployment bookkeeping isn't declared in a component's Fields, so
// there's no read/write set to check it against.
func (e *Env) Deployment(field string) any {
	return e.deployment[field]
}

// Tag returns the worker tag this invocation was dispatched with — empty
// outside a worker's receive hook. Reading it carries no capability
// requirement: it isn't deployment state, just a label identifying the
// worker's role and current generation to hooks that care about either.
func (e *Env) Tag() string {
	return e.tag
}

// Publish appends (port, value) to the publish accumulator. Only
// permitted when the port appears in the callback's Publish set and
// PublishCapability is true; otherwise Publish panics with a
// capabilityViolation.
func (e *Env) Publish(port Port, value any) {
	if !e.publishCa {
		panic(&capabilityViolation{fmt.Sprintf("callback has no publish capability, cannot publish on %q", port)})
	}
	if !e.publishOK[port] {
		panic(&capabilityViolation{fmt.Sprintf("port %q is not in this callback's publish set", port)})
	}
	e.published = append(e.published, Published{Port: port, Value: value})
}
