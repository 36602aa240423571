package json

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/core/bank/types"
	"go.dedis.ch/lottery/internal/testing/fake"
	"go.dedis.ch/lottery/serde"
)

func TestAccountFormat_Encode(t *testing.T) {
	format := accountFormat{}
	ctx := newContext()

	data, err := format.Encode(ctx, types.NewAccount(42, true))
	require.NoError(t, err)
	require.Equal(t, `{"Balance":42,"Rejecting":true}`, string(data))

	data, err = format.Encode(ctx, types.NewAccount(7, false))
	require.NoError(t, err)
	require.Equal(t, `{"Balance":7}`, string(data))

	_, err = format.Encode(ctx, fake.Message{})
	require.EqualError(t, err, "unsupported message of type 'fake.Message'")

	_, err = format.Encode(fake.NewBadContext(), types.NewAccount(0, false))
	require.EqualError(t, err, fake.Err("failed to marshal"))
}

func TestAccountFormat_Decode(t *testing.T) {
	format := accountFormat{}
	ctx := newContext()

	msg, err := format.Decode(ctx, []byte(`{"Balance":42,"Rejecting":true}`))
	require.NoError(t, err)
	require.Equal(t, types.NewAccount(42, true), msg)

	_, err = format.Decode(fake.NewBadContext(), []byte(`{}`))
	require.EqualError(t, err, fake.Err("failed to unmarshal"))
}

// -----------------------------------------------------------------------------
// Utility functions

type jsonEngine struct{}

func newContext() serde.Context {
	return serde.NewContext(jsonEngine{})
}

func (jsonEngine) GetFormat() serde.Format {
	return serde.FormatJSON
}

func (jsonEngine) Marshal(m interface{}) ([]byte, error) {
	return json.Marshal(m)
}

func (jsonEngine) Unmarshal(data []byte, m interface{}) error {
	return json.Unmarshal(data, m)
}
