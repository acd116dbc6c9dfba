package workflow

// Renderer produces an external representation of a Workflow — DOT,
// an image, a UI graph payload — for callers that want one. Flowmesh
// ships no implementation; visualizing a workflow is a surface concern
// outside this runtime's scope.
type Renderer interface {
	Render(w *Workflow) ([]byte, error)
}
