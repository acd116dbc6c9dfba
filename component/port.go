package component

// Port is an atom-like symbolic name, scoped to the component that
// declares it. A port name is unique within a single component's
// in-ports, and unique within its out-ports, but the same name may be
// reused between the two sets (e.g. one component can declare a port
// named "value" both as an in-port and as an out-port).
type Port string
