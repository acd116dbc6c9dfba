package strategy

import (
	"fmt"

	"github.com/c360/flowmesh/component"
	"github.com/c360/flowmesh/ferrors"
)

// Hook names a strategy callback.
type Hook string

const (
	HookDefine         Hook = "define"
	HookDeploy         Hook = "deploy"
	HookPrepare        Hook = "prepare"
	HookSend           Hook = "send"
	HookReceive        Hook = "receive"
	HookDropDeployment Hook = "drop_deployment"
	HookDropInvocation Hook = "drop_invocation"
)

// Context is the argument bundle every strategy hook is dispatched with.
// ComponentRef and StrategyRef identify what is being deployed/routed;
// DeploymentData is the strategy's own per-deployment bookkeeping (built
// up across Define/Deploy/Prepare and read back consistently by every
// later hook, receive included, through Env.Deployment).
// InstanceState is the worker's own field state — it's the Get/Set
// target for a receive dispatch and is ignored by every other hook, which
// read and write DeploymentData directly instead. InvocationData is
// scoped to a single Send/Receive call. Tag carries a worker's role and
// current generation into a receive hook (empty outside that path) — a
// strategy that remembers the last tag it saw for a worker can tell a
// same-role respawn from ordinary delivery.
type Context struct {
	ComponentRef   *component.Component
	StrategyRef    *component.Strategy
	DeploymentData map[string]any
	InstanceState  map[string]any
	InvocationData any
	Tag            string
}

func hookByName(s *component.Strategy, h Hook) *component.Callback {
	switch h {
	case HookDefine:
		return s.Define
	case HookDeploy:
		return s.Deploy
	case HookPrepare:
		return s.Prepare
	case HookSend:
		return s.Send
	case HookReceive:
		return s.Receive
	case HookDropDeployment:
		return s.DropDeployment
	case HookDropInvocation:
		return s.DropInvocation
	default:
		return nil
	}
}

// Dispatch runs the named hook from ctx.StrategyRef against args,
// returning the hook's CallbackResult. Every hook but receive reads and
// writes ctx.DeploymentData directly; receive reads and writes
// ctx.InstanceState instead, with ctx.DeploymentData still reachable
// read-only through Env.Deployment. Dispatching a nil or absent hook
// returns ferrors.ErrStrategyIncomplete — callers that need a hard
// guarantee a hook exists should check Complete(ctx.StrategyRef) before
// deploying, since Dispatch only reports the problem for the single hook
// actually invoked.
func Dispatch(ctx Context, h Hook, args any) (component.CallbackResult, error) {
	if ctx.StrategyRef == nil {
		return component.CallbackResult{}, fmt.Errorf("%s: %w", h, ferrors.ErrStrategyIncomplete)
	}
	cb := hookByName(ctx.StrategyRef, h)
	if cb == nil {
		return component.CallbackResult{}, fmt.Errorf("%s: %w", h, ferrors.ErrStrategyIncomplete)
	}

	state := ctx.DeploymentData
	if h == HookReceive {
		state = ctx.InstanceState
	}
	return component.CallCallback(cb, string(h), state, ctx.DeploymentData, args, ctx.Tag)
}
