package deploy

import (
	"fmt"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/strategy"
	"github.com/c360/flowmesh/workflow"
)

// flattenResult is what flattening one workflow level produces: every
// component node found (at this level and below), every fully-resolved
// link between them, plus this level's own boundary — which of its
// in-ports feed which flat destinations, and which flat source feeds
// each of its out-ports — left for the caller one level up to resolve.
type flattenResult struct {
	nodes   []*FlatNode
	links   []FlatLink
	inPort  map[component.Port][]FlatEndpoint
	outPort map[component.Port]FlatEndpoint
}

// flatten walks wf, expanding every sub-workflow node into its
// children with a path-prefixed id.
// enclosingDefault is the strategy fallback inherited from every level
// above wf — wf's own default strategy is merged over it before being
// handed down to wf's own children.
func flatten(wf *workflow.Workflow, pathPrefix string, enclosingDefault *component.Strategy) (*flattenResult, error) {
	levelDefault := strategy.Merge(wf.Strategy, enclosingDefault)

	result := &flattenResult{
		inPort:  make(map[component.Port][]FlatEndpoint),
		outPort: make(map[component.Port]FlatEndpoint),
	}

	childOut := make(map[workflow.NodeID]map[component.Port]FlatEndpoint, len(wf.Nodes))
	childIn := make(map[workflow.NodeID]map[component.Port][]FlatEndpoint, len(wf.Nodes))

	for id, node := range wf.Nodes {
		path := id2path(pathPrefix, id)

		if node.IsComponentNode() {
			resolved := strategy.Merge(node.Strategy, node.Component.Strategy(), levelDefault)
			if !strategy.Complete(resolved) {
				return nil, fmt.Errorf("node %q: %w", path, ferrors.ErrStrategyIncomplete)
			}
			if err := component.ValidateArgs(node.Component, node.Args); err != nil {
				return nil, fmt.Errorf("node %q: %w", path, err)
			}

			instance := component.NewInstanceID()
			flat := &FlatNode{Path: path, Instance: instance, Component: node.Component, Strategy: resolved, Args: node.Args}
			result.nodes = append(result.nodes, flat)

			out := make(map[component.Port]FlatEndpoint, len(node.Component.OutPorts()))
			for _, p := range node.Component.OutPorts() {
				out[p] = FlatEndpoint{Instance: instance, Port: p}
			}
			childOut[id] = out

			in := make(map[component.Port][]FlatEndpoint, len(node.Component.InPorts()))
			for _, p := range node.Component.InPorts() {
				in[p] = []FlatEndpoint{{Instance: instance, Port: p}}
			}
			childIn[id] = in
			continue
		}

		childDefault := strategy.Merge(node.Strategy, levelDefault)
		sub, err := flatten(node.Workflow, path, childDefault)
		if err != nil {
			return nil, err
		}
		result.nodes = append(result.nodes, sub.nodes...)
		result.links = append(result.links, sub.links...)
		childOut[id] = sub.outPort
		childIn[id] = sub.inPort
	}

	for _, link := range wf.Links {
		from, fromIsBoundary, err := resolveSource(link.From, childOut)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path2string(pathPrefix), err)
		}
		destinations, toIsBoundary, err := resolveDestinations(link.To, childIn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path2string(pathPrefix), err)
		}

		switch {
		case fromIsBoundary && toIsBoundary:
			return nil, fmt.Errorf("%s: link from in-port %q directly to out-port %q (no node in between) is not supported by the deployment engine",
				path2string(pathPrefix), link.From.Port, link.To.Port)
		case fromIsBoundary:
			for _, dest := range destinations {
				result.inPort[link.From.Port] = append(result.inPort[link.From.Port], dest)
			}
		case toIsBoundary:
			result.outPort[link.To.Port] = from
		default:
			for _, dest := range destinations {
				result.links = append(result.links, FlatLink{From: from, To: dest})
			}
		}
	}

	return result, nil
}

func resolveSource(endpoint workflow.Endpoint, childOut map[workflow.NodeID]map[component.Port]FlatEndpoint) (FlatEndpoint, bool, error) {
	if endpoint.Node == "" {
		return FlatEndpoint{}, true, nil
	}
	ports, ok := childOut[endpoint.Node]
	if !ok {
		return FlatEndpoint{}, false, fmt.Errorf("no such node %q", endpoint.Node)
	}
	resolved, ok := ports[endpoint.Port]
	if !ok {
		return FlatEndpoint{}, false, fmt.Errorf("node %q has no resolvable out-port %q", endpoint.Node, endpoint.Port)
	}
	return resolved, false, nil
}

func resolveDestinations(endpoint workflow.Endpoint, childIn map[workflow.NodeID]map[component.Port][]FlatEndpoint) ([]FlatEndpoint, bool, error) {
	if endpoint.Node == "" {
		return nil, true, nil
	}
	ports, ok := childIn[endpoint.Node]
	if !ok {
		return nil, false, fmt.Errorf("no such node %q", endpoint.Node)
	}
	resolved, ok := ports[endpoint.Port]
	if !ok {
		return nil, false, fmt.Errorf("node %q has no resolvable in-port %q", endpoint.Node, endpoint.Port)
	}
	return resolved, false, nil
}

func id2path(prefix string, id workflow.NodeID) string {
	if prefix == "" {
		return string(id)
	}
	return prefix + "/" + string(id)
}

func path2string(prefix string) string {
	if prefix == "" {
		return "<root>"
	}
	return prefix
}
