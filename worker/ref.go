package worker

import "github.com/google/uuid"

// Ref addresses one worker goroutine: the node it runs on plus a local
// identifier unique within that node.
type Ref struct {
	Node    string
	LocalID uuid.UUID
}

// NewRef mints a fresh Ref on node.
func NewRef(node string) Ref {
	return Ref{Node: node, LocalID: uuid.New()}
}

// String renders the Ref for logging.
func (r Ref) String() string {
	return r.Node + "/" + r.LocalID.String()
}
