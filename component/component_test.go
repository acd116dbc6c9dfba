package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAverage builds a running-average component: fields [total, count],
// in-port value, out-port current, callback react(v) that accumulates
// and publishes the running mean.
func newAverage(t *testing.T) *Component {
	t.Helper()

	react := &Callback{
		Read:              []string{"total", "count"},
		Write:             []string{"total", "count"},
		Publish:           []Port{"current"},
		StateCapability:   StateReadWrite,
		PublishCapability: true,
		Fn: func(env *Env, args any) (any, error) {
			v := args.(float64)
			count := asFloat(env.Get("count")) + 1
			total := asFloat(env.Get("total")) + v
			env.Set("count", count)
			env.Set("total", total)
			env.Publish("current", total/count)
			return nil, nil
		},
	}

	init := &Callback{
		Write:           []string{"total", "count"},
		StateCapability: StateReadWrite,
		Fn: func(env *Env, args any) (any, error) {
			env.Set("total", 0.0)
			env.Set("count", 0.0)
			return nil, nil
		},
	}

	comp, err := NewComponent(Spec{
		Fields:   []string{"total", "count"},
		InPorts:  []Port{"value"},
		OutPorts: []Port{"current"},
		Callbacks: map[string]*Callback{
			"init":  init,
			"react": react,
		},
	})
	require.NoError(t, err)
	return comp
}

func asFloat(v any) float64 {
	if v == nil {
		return 0
	}
	return v.(float64)
}

func TestAverageReact(t *testing.T) {
	avg := newAverage(t)

	result, err := Call(avg, "react", map[string]any{"total": 0.0, "count": 0.0}, 10.0)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"total": 10.0, "count": 1.0}, result.NewState)
	require.Len(t, result.Published, 1)
	assert.Equal(t, Port("current"), result.Published[0].Port)
	assert.Equal(t, 10.0, result.Published[0].Value)
}

func TestCreateEmptyState(t *testing.T) {
	avg := newAverage(t)
	state := CreateEmptyState(avg)
	assert.Equal(t, map[string]any{"total": nil, "count": nil}, state)
}

func TestCallNoSuchCallback(t *testing.T) {
	avg := newAverage(t)
	_, err := Call(avg, "nope", CreateEmptyState(avg), nil)
	require.Error(t, err)
}

func TestCallWriteOutsideDeclaredSetIsRejected(t *testing.T) {
	cb := &Callback{
		Read:            []string{"total"},
		StateCapability: StateRead,
		Fn: func(env *Env, args any) (any, error) {
			env.Set("total", 1.0) // not writable: StateRead, no Write set
			return nil, nil
		},
	}
	comp, err := NewComponent(Spec{
		Fields:    []string{"total"},
		InPorts:   []Port{"value"},
		Callbacks: map[string]*Callback{"bad": cb},
	})
	require.NoError(t, err)

	_, err = Call(comp, "bad", CreateEmptyState(comp), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write")
}

func TestCallPublishOutsideDeclaredSetIsRejected(t *testing.T) {
	cb := &Callback{
		Publish:           []Port{"a"},
		PublishCapability: true,
		Fn: func(env *Env, args any) (any, error) {
			env.Publish("b", 1) // not declared
			return nil, nil
		},
	}
	comp, err := NewComponent(Spec{
		InPorts:   []Port{"value"},
		OutPorts:  []Port{"a", "b"},
		Callbacks: map[string]*Callback{"bad": cb},
	})
	require.NoError(t, err)

	_, err = Call(comp, "bad", nil, nil)
	require.Error(t, err)
}

func TestNewComponentRejectsUndeclaredPublishPort(t *testing.T) {
	cb := &Callback{
		Publish:           []Port{"missing"},
		PublishCapability: true,
		Fn:                func(env *Env, args any) (any, error) { return nil, nil },
	}
	_, err := NewComponent(Spec{
		InPorts:   []Port{"value"},
		Callbacks: map[string]*Callback{"bad": cb},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestNewComponentRejectsUndeclaredReadField(t *testing.T) {
	cb := &Callback{
		Read:            []string{"ghost"},
		StateCapability: StateRead,
		Fn:              func(env *Env, args any) (any, error) { return nil, nil },
	}
	_, err := NewComponent(Spec{
		InPorts:   []Port{"value"},
		Callbacks: map[string]*Callback{"bad": cb},
	})
	require.Error(t, err)
}

func TestNewComponentRequiresAtLeastOneInPort(t *testing.T) {
	_, err := NewComponent(Spec{})
	require.Error(t, err)
}

func TestStateCapabilityNoneForcesNilState(t *testing.T) {
	cb := &Callback{
		StateCapability: StateNone,
		Fn: func(env *Env, args any) (any, error) {
			return 42, nil
		},
	}
	comp, err := NewComponent(Spec{
		InPorts:   []Port{"value"},
		Callbacks: map[string]*Callback{"noop": cb},
	})
	require.NoError(t, err)

	result, err := Call(comp, "noop", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, result.NewState)
	assert.Equal(t, 42, result.Result)
}

func TestPublishCapabilityFalseForcesNilPublished(t *testing.T) {
	cb := &Callback{
		PublishCapability: false,
		Fn:                func(env *Env, args any) (any, error) { return nil, nil },
	}
	comp, err := NewComponent(Spec{
		InPorts:   []Port{"value"},
		Callbacks: map[string]*Callback{"noop": cb},
	})
	require.NoError(t, err)

	result, err := Call(comp, "noop", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Published)
}
