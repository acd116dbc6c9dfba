package component

// StateCapability controls whether a callback body may observe or mutate
// worker state.
type StateCapability int

const (
	// StateNone means the callback neither reads nor writes state; any
	// state mutation it records is discarded.
	StateNone StateCapability = iota
	// StateRead means the callback may read fields but not write them.
	StateRead
	// StateReadWrite means the callback may both read and write fields
	// listed in its Write set.
	StateReadWrite
)

// String renders a StateCapability for logging.
func (c StateCapability) String() string {
	switch c {
	case StateNone:
		return "none"
	case StateRead:
		return "read"
	case StateReadWrite:
		return "readwrite"
	default:
		return "unknown"
	}
}

// Published is one value emitted on an out-port during a single callback
// invocation.
type Published struct {
	Port  Port
	Value any
}

// CallbackResult is the triple a callback invocation produces: the new
// state (nil meaning "unchanged"), the published values (nil meaning
// "nothing published"), and an arbitrary result value returned to the
// caller of Call.
type CallbackResult struct {
	NewState  map[string]any
	Published []Published
	Result    any
}

// Fn is the shape of a callback body: a plain function over an explicit
// (env, args) pair, reading and writing state and publishing values only
// through env. The function never sees the raw state map directly, so it
// cannot bypass the declared read/write/publish sets.
type Fn func(env *Env, args any) (any, error)

// Callback is a pure description of one user-defined operation: the
// function value plus the capabilities it declares. A component built
// with NewComponent validates that every declared field and port exists
// on the owning component — violations are definition_errors raised
// before the component is ever invoked, not at call time.
type Callback struct {
	Fn                Fn
	Read              []string
	Write             []string
	Publish           []Port
	StateCapability   StateCapability
	PublishCapability bool
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func portSet(items []Port) map[Port]bool {
	set := make(map[Port]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
