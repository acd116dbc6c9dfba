package registry_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowmesh/ferrors"
	"github.com/c360/flowmesh/registry"
)

type namedThing struct {
	name    string
	has     bool
	version int
}

func (n namedThing) EntityName() (string, bool) { return n.name, n.has }

func TestPutIfNamedAndGet(t *testing.T) {
	r := registry.New[namedThing]()
	require.NoError(t, r.PutIfNamed(namedThing{name: "counter", has: true}))

	got, err := r.Get("counter")
	require.NoError(t, err)
	assert.Equal(t, "counter", got.name)
}

func TestPutIfNamedSkipsAnonymous(t *testing.T) {
	r := registry.New[namedThing]()
	require.NoError(t, r.PutIfNamed(namedThing{has: false}))
	assert.Empty(t, r.All())
}

func TestGetUnknownNameIsErrUnknownName(t *testing.T) {
	r := registry.New[namedThing]()
	_, err := r.Get("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrUnknownName)
}

func TestPutIfNamedReplacesExistingBinding(t *testing.T) {
	r := registry.New[namedThing]()
	require.NoError(t, r.PutIfNamed(namedThing{name: "a", has: true, version: 1}))
	require.NoError(t, r.PutIfNamed(namedThing{name: "a", has: true, version: 2}))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.version)
	assert.Len(t, r.All(), 1)
}

func TestAllReturnsSnapshot(t *testing.T) {
	r := registry.New[namedThing]()
	require.NoError(t, r.PutIfNamed(namedThing{name: "a", has: true}))

	snapshot := r.All()
	require.NoError(t, r.PutIfNamed(namedThing{name: "b", has: true}))

	assert.Len(t, snapshot, 1)
	assert.Len(t, r.All(), 2)
}

func TestRegistryIsSafeForConcurrentUse(t *testing.T) {
	r := registry.New[namedThing]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i%26))
			_ = r.PutIfNamed(namedThing{name: name, has: true})
			_, _ = r.Get(name)
			_ = r.All()
		}(i)
	}
	wg.Wait()
}
