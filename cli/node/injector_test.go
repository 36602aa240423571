package node

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeUpkeep interface {
	Name() string
}

type firstUpkeep struct{}

func (firstUpkeep) Name() string { return "first" }

type secondUpkeep struct{}

func (secondUpkeep) Name() string { return "second" }

func TestInjector_Resolve(t *testing.T) {
	inj := NewInjector()
	inj.Inject("raffle")

	var name string
	require.NoError(t, inj.Resolve(&name))
	require.Equal(t, "raffle", name)

	var height uint64
	err := inj.Resolve(&height)
	require.EqualError(t, err, "couldn't find dependency for 'uint64'")

	err = inj.Resolve(height)
	require.EqualError(t, err, "expect a pointer")

	err = inj.Resolve((*interface{})(nil))
	require.EqualError(t, err, "reflect value '<nil>' is invalid")
}

func TestInjector_ResolveInterface(t *testing.T) {
	inj := NewInjector()
	inj.Inject(firstUpkeep{})
	inj.Inject(secondUpkeep{})

	var upkeep fakeUpkeep
	require.NoError(t, inj.Resolve(&upkeep))
	require.Equal(t, "first", upkeep.Name())

	var second secondUpkeep
	require.NoError(t, inj.Resolve(&second))
	require.Equal(t, "second", second.Name())

	var stringer fmt.Stringer
	err := inj.Resolve(&stringer)
	require.EqualError(t, err, "couldn't find dependency for 'fmt.Stringer'")
}

func TestInjector_Inject(t *testing.T) {
	inj := NewInjector()
	inj.Inject(nil)
	inj.Inject("first")
	inj.Inject("second")

	require.Len(t, inj.(*registry).deps, 1)

	var value string
	require.NoError(t, inj.Resolve(&value))
	require.Equal(t, "second", value)
}
