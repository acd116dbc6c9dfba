package worker

import "github.com/google/uuid"

// Tag travels alongside a worker's field state as the other half of its
// observable identity: Role is the caller-supplied label a strategy uses
// to tell worker roles apart (e.g. "primary" vs "replica"), and
// Generation is minted fresh every time a worker for that role is
// spawned or respawned. A strategy's receive hook that remembers the
// last tag it saw can compare generations to detect a crash-reset —
// same role, new generation means the field state it's looking at came
// back empty.
type Tag struct {
	Role       string
	Generation uuid.UUID
}

// NewTag mints a tag for role with a fresh generation.
func NewTag(role string) Tag {
	return Tag{Role: role, Generation: uuid.New()}
}

// String renders the tag for logging and for passing across the
// strategy hook boundary, which only deals in plain strings.
func (t Tag) String() string {
	return t.Role + "#" + t.Generation.String()
}
