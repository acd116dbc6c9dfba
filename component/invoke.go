package component

import (
	"fmt"
	"maps"

	"github.com/c360/flowmesh/ferrors"
)

// Call looks up callbackName on component, builds a fresh Env around
// state (initialized to the caller-supplied mapping; a nil map behaves as
// empty, missing fields read as nil), and runs the callback body. It
// returns the CallbackResult the body produced — state_capability none
// forces NewState to nil, and publish_capability false forces Published
// to nil, regardless of what the body attempted.
//
// A panic from the callback body — including a capabilityViolation
// raised by Env when the body oversteps its declared capabilities — is
// recovered and returned as an error rather than propagated: the
// surrounding invocation always catches a callback body failure.
func Call(c *Component, callbackName string, state map[string]any, args any) (result CallbackResult, err error) {
	cb := c.Callback(callbackName)
	if cb == nil {
		return CallbackResult{}, fmt.Errorf("%s: %w", callbackName, ferrors.ErrNoSuchCallback)
	}
	return CallCallback(cb, callbackName, state, nil, args, "")
}

// CallCallback runs cb directly, without requiring it be attached to a
// Component. The strategy package uses this to dispatch strategy hooks,
// which are Callbacks in their own right but are not looked up by name
// on a Component — a strategy's Define/Deploy/Prepare/Send/Receive/
// DropDeployment/DropInvocation hooks carry their own Read/Write/Publish
// declarations against the deployment-scoped state a strategy manages.
// label names the operation for error context only. tag is the worker
// tag in scope for this invocation, if any — forwarded to the callback
// body through Env.Tag and otherwise unused here. deployment is the
// strategy's per-deployment bookkeeping, reachable through Env.Deployment
// independent of state — a receive hook gets its own field state as
// state and the deployment data its deploy/prepare hooks built as
// deployment, rather than one overloading the other.
func CallCallback(cb *Callback, label string, state, deployment map[string]any, args any, tag string) (result CallbackResult, err error) {
	env := newEnv(cb, maps.Clone(state), deployment, tag)

	defer func() {
		if r := recover(); r != nil {
			if cv, ok := r.(*capabilityViolation); ok {
				err = ferrors.WrapInvalid(cv, "component", label, "capability check")
				result = CallbackResult{}
				return
			}
			err = ferrors.WrapFatal(fmt.Errorf("callback panicked: %v", r), "component", label, "invoke")
			result = CallbackResult{}
		}
	}()

	value, bodyErr := cb.Fn(env, args)
	if bodyErr != nil {
		return CallbackResult{}, ferrors.WrapTransient(bodyErr, "component", label, "invoke")
	}

	out := CallbackResult{Result: value}
	if cb.StateCapability == StateReadWrite && env.mutated {
		out.NewState = env.state
	}
	if cb.PublishCapability {
		out.Published = env.published
	}
	return out, nil
}
