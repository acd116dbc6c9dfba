package workflow

import (
	"fmt"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/ferrors"
)

// Spec is the plain-data input Build validates and freezes into a
// Workflow, mirroring component.Spec's role for NewComponent.
type Spec struct {
	Name     *string
	Nodes    map[NodeID]Node
	Links    []Link
	InPorts  []component.Port
	OutPorts []component.Port
	Strategy *component.Strategy
}

// Build validates spec against the workflow invariants —
// every node exactly one of component/sub-workflow, every link endpoint
// resolves to a real node and a port that node actually exposes on the
// correct side, and at most one incoming link per in-port — and freezes
// it into an immutable *Workflow. Every violation found is accumulated
// into one *ferrors.DefinitionError rather than failing on the first.
func Build(spec Spec) (*Workflow, error) {
	var problems []ferrors.Problem

	for id, n := range spec.Nodes {
		if n.Component == nil && n.Workflow == nil {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("nodes[%s]", id), Message: "node must be either a component or a sub-workflow",
			})
		}
		if n.Component != nil && n.Workflow != nil {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("nodes[%s]", id), Message: "node cannot be both a component and a sub-workflow",
			})
		}
	}

	incoming := make(map[Endpoint]int, len(spec.Links))
	for i, link := range spec.Links {
		if err := resolveEndpoint(spec, link.From, true); err != nil {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("links[%d].from", i), Message: err.Error(),
			})
		}
		if err := resolveEndpoint(spec, link.To, false); err != nil {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("links[%d].to", i), Message: err.Error(),
			})
		}
		incoming[link.To]++
	}

	for endpoint, count := range incoming {
		if count > 1 {
			problems = append(problems, ferrors.Problem{
				Path:    fmt.Sprintf("links[->%s.%s]", endpoint.Node, endpoint.Port),
				Message: fmt.Sprintf("in-port %q has %d incoming links, at most one is allowed", endpoint.Port, count),
			})
		}
	}

	if len(problems) > 0 {
		return nil, &ferrors.DefinitionError{Problems: problems}
	}

	nodes := make(map[NodeID]Node, len(spec.Nodes))
	for id, n := range spec.Nodes {
		nodes[id] = n
	}

	return &Workflow{
		name:     spec.Name,
		Nodes:    nodes,
		Links:    append([]Link{}, spec.Links...),
		InPorts:  spec.InPorts,
		OutPorts: spec.OutPorts,
		Strategy: spec.Strategy,
	}, nil
}

// resolveEndpoint checks that endpoint names a real node (or the
// workflow itself, via the empty NodeID) and a port that node exposes
// on the expected side. sourceSide is true when endpoint is the source
// (From) of a link, meaning it must be an out-port of an inner node or
// an in-port of the enclosing workflow (a passthrough).
func resolveEndpoint(spec Spec, endpoint Endpoint, sourceSide bool) error {
	if endpoint.Node == "" {
		// A passthrough endpoint on the workflow itself: a link "from"
		// the workflow draws on one of its own in-ports (value flowing
		// in); a link "to" the workflow deposits on one of its own
		// out-ports (value flowing out).
		if sourceSide {
			if !containsPort(spec.InPorts, endpoint.Port) {
				return fmt.Errorf("workflow has no in-port %q", endpoint.Port)
			}
			return nil
		}
		if !containsPort(spec.OutPorts, endpoint.Port) {
			return fmt.Errorf("workflow has no out-port %q", endpoint.Port)
		}
		return nil
	}

	node, ok := spec.Nodes[endpoint.Node]
	if !ok {
		return fmt.Errorf("no such node %q", endpoint.Node)
	}

	if sourceSide {
		if !containsPort(node.OutPorts(), endpoint.Port) {
			return fmt.Errorf("node %q has no out-port %q", endpoint.Node, endpoint.Port)
		}
		return nil
	}
	if !containsPort(node.InPorts(), endpoint.Port) {
		return fmt.Errorf("node %q has no in-port %q", endpoint.Node, endpoint.Port)
	}
	return nil
}

func containsPort(ports []component.Port, p component.Port) bool {
	for _, candidate := range ports {
		if candidate == p {
			return true
		}
	}
	return false
}
