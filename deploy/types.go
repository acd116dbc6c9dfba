package deploy

import (
	"github.com/google/uuid"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/worker"
)

// DeploymentID identifies one deployment, minted fresh by Deploy.
type DeploymentID uuid.UUID

// NewDeploymentID mints a fresh DeploymentID.
func NewDeploymentID() DeploymentID { return DeploymentID(uuid.New()) }

// String renders the DeploymentID in its canonical UUID form.
func (id DeploymentID) String() string { return uuid.UUID(id).String() }

// FlatEndpoint names a concrete, already-resolved component instance and
// one of its ports — the unit both RoutingTable and flattening deal in.
type FlatEndpoint struct {
	Instance component.InstanceID
	Port     component.Port
}

// FlatLink is a directed connection between two FlatEndpoints, produced
// by flattening every nested sub-workflow boundary away.
type FlatLink struct {
	From FlatEndpoint
	To   FlatEndpoint
}

// FlatNode is one component instance in a flattened workflow, with its
// strategy already resolved (node override merged over the component's
// own strategy, merged over every enclosing workflow's default) and
// confirmed Complete.
type FlatNode struct {
	Path       string
	Instance   component.InstanceID
	Component  *component.Component
	Strategy   *component.Strategy
	Args       any
	Deployment map[string]any
	Refs       []worker.Ref
}

// RouteKey is a RoutingTable lookup key: one component instance's one
// out-port.
type RouteKey struct {
	Instance component.InstanceID
	Port     component.Port
}

// RoutingTable maps a (source instance, out-port) to the ordered
// sequence of destinations wired to it.
type RoutingTable map[RouteKey][]FlatEndpoint

// DeployedWorkflow is the handle Deploy returns: the flattened node set,
// the routing table built from the flattened links, and the
// DeploymentID identifying this deployment for Destroy.
type DeployedWorkflow struct {
	ID      DeploymentID
	Nodes   map[string]*FlatNode
	Routing RoutingTable
}

// Instances returns every component.InstanceID this deployment owns.
func (dw *DeployedWorkflow) Instances() []component.InstanceID {
	ids := make([]component.InstanceID, 0, len(dw.Nodes))
	for _, n := range dw.Nodes {
		ids = append(ids, n.Instance)
	}
	return ids
}

// NodeByInstance finds the FlatNode owning instance, or nil.
func (dw *DeployedWorkflow) NodeByInstance(instance component.InstanceID) *FlatNode {
	for _, n := range dw.Nodes {
		if n.Instance == instance {
			return n
		}
	}
	return nil
}
