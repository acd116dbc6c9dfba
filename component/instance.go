package component

import "github.com/google/uuid"

// InstanceID identifies one deployed instance of a Component within a
// running workflow — the unit the router and worker runtime address
// messages to. Minted once at deploy time and never reused, the same
// way a UUID mints identity for NATS subjects and resource tracking.
type InstanceID uuid.UUID

// NewInstanceID mints a fresh InstanceID.
func NewInstanceID() InstanceID { return InstanceID(uuid.New()) }

// String renders the InstanceID in its canonical UUID form.
func (id InstanceID) String() string { return uuid.UUID(id).String() }
