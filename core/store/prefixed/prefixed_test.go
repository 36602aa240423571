package prefixed

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/internal/testing/fake"
)

func TestSnapshot_Get_Set_Delete(t *testing.T) {
	parent := fake.NewSnapshot()

	snap := NewSnapshot("AAAA", parent)

	err := snap.Set([]byte("key"), []byte("value"))
	require.NoError(t, err)

	value, err := snap.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	value, err = parent.Get([]byte("AAAAkey"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	value, err = NewReadable("BBBB", parent).Get([]byte("key"))
	require.NoError(t, err)
	require.Nil(t, value)

	err = snap.Delete([]byte("key"))
	require.NoError(t, err)

	value, err = parent.Get([]byte("AAAAkey"))
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestSnapshot_Errors(t *testing.T) {
	snap := NewSnapshot("AAAA", fake.NewBadSnapshot())

	_, err := snap.Get([]byte("key"))
	require.EqualError(t, err, fake.GetError().Error())

	err = snap.Set([]byte("key"), []byte("value"))
	require.EqualError(t, err, fake.GetError().Error())

	err = snap.Delete([]byte("key"))
	require.EqualError(t, err, fake.GetError().Error())
}

func TestReadable_Get(t *testing.T) {
	parent := fake.NewSnapshot()
	require.NoError(t, parent.Set([]byte("BBBBkey"), []byte("value")))

	r := NewReadable("BBBB", parent)

	value, err := r.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	require.Panics(t, func() {
		r.(*Snapshot).Set([]byte("key"), nil)
	})
}

func TestNewPrefixedKey(t *testing.T) {
	require.Equal(t, []byte("ABCDkey"), NewPrefixedKey([]byte("ABCD"), []byte("key")))
	require.Equal(t, []byte("ABCD"), NewPrefixedKey([]byte("ABCD"), nil))
}
