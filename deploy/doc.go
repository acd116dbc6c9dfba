// Package deploy implements the deployment engine: turning a validated
// workflow.Workflow into a running DeployedWorkflow by flattening nested
// sub-workflows, resolving and completing each component's strategy,
// dispatching the deploy and prepare hooks, and building the routing
// table the router package reads at runtime.
//
// Deployment resolves dependencies, brings nodes up in an advisory
// order, and records what succeeded, the same shape as starting a fixed
// set of in-process components generalized to flattening and deploying
// a possibly-nested workflow graph across remote workers.
package deploy
