// Package workflow models the node/link graph that the deploy package
// flattens and distributes: components and nested sub-workflows as
// nodes, links between named endpoints. Validation follows a
// graph package's style of edge-list bookkeeping, generalized from
// "outgoing edges on an entity" to "links between workflow endpoints."
//
// No DOT/graphviz encoder lives here — visualizing a workflow is a
// surface concern this runtime does not provide; Renderer exists so a
// caller can plug one in without this package depending on an encoding
// library it has no other use for.
package workflow
