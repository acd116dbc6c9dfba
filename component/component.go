package component

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/flowmesh/ferrors"
)

// Component is an immutable description of a reactive processing unit:
// state fields, named in/out ports, and named callbacks. Once built by
// NewComponent it is never mutated — the registry and every running
// worker share the same *Component value.
type Component struct {
	name       *string
	fields     []string
	inPorts    []Port
	outPorts   []Port
	callbacks  map[string]*Callback
	strategy   *Strategy
	argsSchema *string
}

// Name returns the component's optional identifier.
func (c *Component) Name() *string { return c.name }

// EntityName implements registry.Entity.
func (c *Component) EntityName() (string, bool) {
	if c.name == nil {
		return "", false
	}
	return *c.name, true
}

// Fields returns the component's ordered, unique state slot names.
func (c *Component) Fields() []string { return c.fields }

// InPorts returns the component's non-empty ordered in-port list.
func (c *Component) InPorts() []Port { return c.inPorts }

// OutPorts returns the component's ordered out-port list, possibly empty.
func (c *Component) OutPorts() []Port { return c.outPorts }

// Callback returns the named callback, or nil if no such callback exists.
func (c *Component) Callback(name string) *Callback { return c.callbacks[name] }

// Callbacks returns a snapshot of the component's callback names.
func (c *Component) Callbacks() []string {
	names := make([]string, 0, len(c.callbacks))
	for name := range c.callbacks {
		names = append(names, name)
	}
	return names
}

// Strategy returns the component's strategy.
func (c *Component) Strategy() *Strategy { return c.strategy }

// ArgsSchema returns the JSON schema text node args are validated
// against by ValidateArgs, or "" if the component declared none.
func (c *Component) ArgsSchema() string {
	if c.argsSchema == nil {
		return ""
	}
	return *c.argsSchema
}

// Spec is the plain-data form NewComponent validates and freezes into a
// Component. It exists because the surface collaborator producing the
// data model hands the core struct literals, not a fluent builder API.
type Spec struct {
	Name      *string
	Fields    []string
	InPorts   []Port
	OutPorts  []Port
	Callbacks map[string]*Callback
	Strategy  *Strategy

	// ArgsSchema is an optional JSON schema (draft-04, per gojsonschema)
	// that every ComponentNode.Args deploying this component must
	// satisfy — checked by ValidateArgs, not by NewComponent itself,
	// except that the schema text must compile.
	ArgsSchema *string
}

// NewComponent validates spec against its invariants —
// every field unique, in-ports non-empty and unique, out-ports unique,
// every callback's declared read/write fields present in Fields and every
// declared publish port present in OutPorts — and freezes it into an
// immutable *Component. Any violation is a *ferrors.DefinitionError
// listing every problem found, not just the first.
func NewComponent(spec Spec) (*Component, error) {
	var problems []ferrors.Problem

	fieldSet := make(map[string]bool, len(spec.Fields))
	for i, f := range spec.Fields {
		if fieldSet[f] {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("fields[%d]", i), Message: fmt.Sprintf("duplicate field %q", f),
			})
		}
		fieldSet[f] = true
	}

	if len(spec.InPorts) == 0 {
		problems = append(problems, ferrors.Problem{Path: "in_ports", Message: "component must declare at least one in-port"})
	}
	inSet := make(map[Port]bool, len(spec.InPorts))
	for i, p := range spec.InPorts {
		if inSet[p] {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("in_ports[%d]", i), Message: fmt.Sprintf("duplicate in-port %q", p),
			})
		}
		inSet[p] = true
	}

	outSet := make(map[Port]bool, len(spec.OutPorts))
	for i, p := range spec.OutPorts {
		if outSet[p] {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("out_ports[%d]", i), Message: fmt.Sprintf("duplicate out-port %q", p),
			})
		}
		outSet[p] = true
	}

	for name, cb := range spec.Callbacks {
		for _, f := range cb.Read {
			if !fieldSet[f] {
				problems = append(problems, ferrors.Problem{
					Path: fmt.Sprintf("callbacks[%s].read", name), Message: fmt.Sprintf("field %q not declared in fields", f),
				})
			}
		}
		for _, f := range cb.Write {
			if !fieldSet[f] {
				problems = append(problems, ferrors.Problem{
					Path: fmt.Sprintf("callbacks[%s].write", name), Message: fmt.Sprintf("field %q not declared in fields", f),
				})
			}
		}
		for _, p := range cb.Publish {
			if !outSet[p] {
				problems = append(problems, ferrors.Problem{
					Path: fmt.Sprintf("callbacks[%s].publish", name), Message: fmt.Sprintf("port %q not declared in out_ports", p),
				})
			}
		}
		if len(cb.Write) > 0 && cb.StateCapability != StateReadWrite {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("callbacks[%s]", name), Message: "declares write fields but state_capability is not readwrite",
			})
		}
		if len(cb.Publish) > 0 && !cb.PublishCapability {
			problems = append(problems, ferrors.Problem{
				Path: fmt.Sprintf("callbacks[%s]", name), Message: "declares publish ports but publish_capability is false",
			})
		}
	}

	if spec.ArgsSchema != nil {
		if _, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(*spec.ArgsSchema)); err != nil {
			problems = append(problems, ferrors.Problem{Path: "args_schema", Message: fmt.Sprintf("does not compile: %v", err)})
		}
	}

	if len(problems) > 0 {
		return nil, &ferrors.DefinitionError{Problems: problems}
	}

	callbacks := make(map[string]*Callback, len(spec.Callbacks))
	for name, cb := range spec.Callbacks {
		callbacks[name] = cb
	}

	return &Component{
		name:       spec.Name,
		fields:     spec.Fields,
		inPorts:    spec.InPorts,
		outPorts:   spec.OutPorts,
		callbacks:  callbacks,
		strategy:   spec.Strategy,
		argsSchema: spec.ArgsSchema,
	}, nil
}

// CreateEmptyState returns a mapping from each of the component's field
// names to nil, the state a freshly spawned or crash-restarted worker
// starts from.
func CreateEmptyState(c *Component) map[string]any {
	state := make(map[string]any, len(c.fields))
	for _, f := range c.fields {
		state[f] = nil
	}
	return state
}
