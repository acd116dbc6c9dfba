package component

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/flowmesh/ferrors"
)

// ValidateArgs checks args — a ComponentNode's or WorkflowNode's Args —
// against c's declared ArgsSchema, if any. A component with no
// ArgsSchema accepts any args unchecked; this is an opt-in supplement,
// not a new invariant on every component.
func ValidateArgs(c *Component, args any) error {
	if c == nil || c.argsSchema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(*c.argsSchema), gojsonschema.NewGoLoader(args))
	if err != nil {
		return ferrors.WrapInvalid(err, "component", "ValidateArgs", "schema evaluation failed")
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return ferrors.WrapInvalid(fmt.Errorf("%s", strings.Join(problems, "; ")), "component", "ValidateArgs", "args failed schema validation")
}
