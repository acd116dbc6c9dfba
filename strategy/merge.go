package strategy

import "github.com/c360/flowmesh/component"

// hookSlots names the seven hooks a Strategy carries, in the fixed order
// Complete checks them and Merge folds them.
var hookSlots = []struct {
	get func(*component.Strategy) *component.Callback
	set func(*component.Strategy, *component.Callback) *component.Strategy
}{
	{func(s *component.Strategy) *component.Callback { return s.Define }, setDefine},
	{func(s *component.Strategy) *component.Callback { return s.Deploy }, setDeploy},
	{func(s *component.Strategy) *component.Callback { return s.Prepare }, setPrepare},
	{func(s *component.Strategy) *component.Callback { return s.Send }, setSend},
	{func(s *component.Strategy) *component.Callback { return s.Receive }, setReceive},
	{func(s *component.Strategy) *component.Callback { return s.DropDeployment }, setDropDeployment},
	{func(s *component.Strategy) *component.Callback { return s.DropInvocation }, setDropInvocation},
}

func setDefine(s *component.Strategy, cb *component.Callback) *component.Strategy {
	c := *s
	c.Define = cb
	return &c
}
func setDeploy(s *component.Strategy, cb *component.Callback) *component.Strategy {
	c := *s
	c.Deploy = cb
	return &c
}
func setPrepare(s *component.Strategy, cb *component.Callback) *component.Strategy {
	c := *s
	c.Prepare = cb
	return &c
}
func setSend(s *component.Strategy, cb *component.Callback) *component.Strategy {
	c := *s
	c.Send = cb
	return &c
}
func setReceive(s *component.Strategy, cb *component.Callback) *component.Strategy {
	c := *s
	c.Receive = cb
	return &c
}
func setDropDeployment(s *component.Strategy, cb *component.Callback) *component.Strategy {
	c := *s
	c.DropDeployment = cb
	return &c
}
func setDropInvocation(s *component.Strategy, cb *component.Callback) *component.Strategy {
	c := *s
	c.DropInvocation = cb
	return &c
}

// mergeTwo produces a strategy where every hook present on child is kept,
// and every hook absent from child falls back to parent's. Neither input
// is mutated.
func mergeTwo(child, parent *component.Strategy) *component.Strategy {
	result := &component.Strategy{}
	for _, slot := range hookSlots {
		if hook := slot.get(child); hook != nil {
			result = slot.set(result, hook)
		} else {
			result = slot.set(result, slot.get(parent))
		}
	}
	return result
}

// Merge composes child's strategy with zero or more enclosing parents,
// child hooks always winning over any parent's. Parents are applied
// left to right, so parents[0] outranks parents[1] wherever child leaves
// a hook unset — this is the strategy a workflow uses to let a node
// narrow the strategy inherited from its enclosing workflow, and a
// sub-workflow narrow the strategy inherited from the workflow that
// embeds it.
//
// With no parents, child is returned unchanged (including its name).
// With exactly one parent, the result adopts that parent's name, mirroring
// a node picking up the strategy its workflow is registered under — unless
// that parent is anonymous, in which case child's own name survives instead
// of being erased by a nameless placeholder. This keeps merge(s,
// empty_strategy) equal to s: merging in an empty, unnamed parent must be a
// no-op, not a name-stripping operation. With more than one parent the
// merge is internal to a flattening pass and the result is anonymous, per
// component.Strategy.WithName's doc comment.
func Merge(child *component.Strategy, parents ...*component.Strategy) *component.Strategy {
	if child == nil {
		child = &component.Strategy{}
	}
	if len(parents) == 0 {
		return child
	}

	name := child.Name()
	result := child
	for _, parent := range parents {
		if parent == nil {
			parent = &component.Strategy{}
		}
		result = mergeTwo(result, parent)
	}

	if len(parents) == 1 {
		if parents[0] != nil {
			if parentName := parents[0].Name(); parentName != nil {
				name = parentName
			}
		}
		return result.WithName(name)
	}
	return result.WithName(nil)
}

// Complete reports whether every one of the seven hooks is set. A
// strategy that reaches deployment incomplete triggers
// ferrors.ErrStrategyIncomplete.
func Complete(s *component.Strategy) bool {
	if s == nil {
		return false
	}
	for _, slot := range hookSlots {
		if slot.get(s) == nil {
			return false
		}
	}
	return true
}
