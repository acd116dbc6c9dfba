package workflow

import (
	"github.com/c360/flowmesh/component"
)

// NodeID identifies a node within a single Workflow. It only needs to
// be unique within that workflow — the same NodeID string may reappear
// in a different, unrelated workflow.
type NodeID string

// Endpoint names one side of a Link: a node and one of its ports. The
// empty NodeID refers to the workflow itself, letting a Link connect a
// workflow's own in/out ports through to a node inside it.
type Endpoint struct {
	Node NodeID
	Port component.Port
}

// Node is either a leaf component instance or a nested sub-workflow.
// Exactly one of Component/Workflow is set.
type Node struct {
	ID        NodeID
	Component *component.Component
	Workflow  *Workflow
	Strategy  *component.Strategy // node-local strategy override, merged over the enclosing workflow's
	Args      any                 // passed to the strategy deploy hook for a component node
}

// IsComponentNode reports whether n wraps a leaf component rather than
// a nested workflow.
func (n Node) IsComponentNode() bool { return n.Component != nil }

// InPorts returns the in-ports the node exposes to links, regardless of
// whether it is a component or a nested workflow.
func (n Node) InPorts() []component.Port {
	if n.Component != nil {
		return n.Component.InPorts()
	}
	if n.Workflow != nil {
		return n.Workflow.InPorts
	}
	return nil
}

// OutPorts returns the out-ports the node exposes to links.
func (n Node) OutPorts() []component.Port {
	if n.Component != nil {
		return n.Component.OutPorts()
	}
	if n.Workflow != nil {
		return n.Workflow.OutPorts
	}
	return nil
}

// Link is a directed connection from one endpoint's out-port to
// another's in-port.
type Link struct {
	From Endpoint
	To   Endpoint
}

// Workflow is an immutable node/link graph, built and validated by
// Build. It may itself be embedded as a Node.Workflow inside an
// enclosing workflow, in which case its InPorts/OutPorts are the ports
// visible to the enclosing graph's links.
type Workflow struct {
	name     *string
	Nodes    map[NodeID]Node
	Links    []Link
	InPorts  []component.Port
	OutPorts []component.Port
	Strategy *component.Strategy // default strategy for nodes that don't override it
}

// Name returns the workflow's optional identifier.
func (w *Workflow) Name() *string { return w.name }

// EntityName implements registry.Entity.
func (w *Workflow) EntityName() (string, bool) {
	if w == nil || w.name == nil {
		return "", false
	}
	return *w.name, true
}
