package types

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/internal/testing/fake"
)

func init() {
	RegisterMessageFormat(fake.GoodFormat, fake.Format{Msg: Index{}})
	RegisterMessageFormat(fake.BadFormat, fake.NewBadFormat())
}

func TestSubscription_Consumers(t *testing.T) {
	sub := NewSubscription(1, "owner", 5)
	require.Equal(t, uint64(1), sub.GetID())
	require.Equal(t, "owner", sub.GetOwner())
	require.Equal(t, uint64(5), sub.GetBalance())
	require.False(t, sub.HasConsumer("A"))

	sub2 := sub.WithConsumer("A").WithConsumer("B").WithConsumer("A")
	require.Equal(t, []string{"A", "B"}, sub2.GetConsumers())
	require.True(t, sub2.HasConsumer("B"))
	require.Empty(t, sub.GetConsumers())

	sub3 := sub2.WithoutConsumer("A")
	require.Equal(t, []string{"B"}, sub3.GetConsumers())
	require.Equal(t, []string{"A", "B"}, sub2.GetConsumers())

	require.Equal(t, uint64(9), sub3.WithBalance(9).GetBalance())
	require.Equal(t, uint64(5), sub3.GetBalance())
}

func TestRequest_Getters(t *testing.T) {
	params := RequestParams{
		ID:               2,
		Subscription:     1,
		Consumer:         "consumer",
		KeyHash:          []byte{1},
		PreSeed:          []byte{2},
		Confirmations:    3,
		CallbackGasLimit: 500000,
		NumWords:         1,
		Timestamp:        100,
	}

	req := NewRequest(params)
	require.Equal(t, uint64(2), req.GetID())
	require.Equal(t, uint64(1), req.GetSubscription())
	require.Equal(t, "consumer", req.GetConsumer())
	require.Equal(t, []byte{1}, req.GetKeyHash())
	require.Equal(t, []byte{2}, req.GetPreSeed())
	require.Equal(t, uint16(3), req.GetConfirmations())
	require.Equal(t, uint32(500000), req.GetCallbackGasLimit())
	require.Equal(t, uint32(1), req.GetNumWords())
	require.Equal(t, int64(100), req.GetTimestamp())
	require.Equal(t, params, req.GetParams())
}

func TestIndex_Counters(t *testing.T) {
	idx := NewIndex(0, 0)

	idx, subID := idx.NextSubscription()
	require.Equal(t, uint64(1), subID)

	idx, reqA := idx.NextRequest()
	idx, reqB := idx.NextRequest()
	require.Equal(t, uint64(1), reqA)
	require.Equal(t, uint64(2), reqB)
	require.Equal(t, []uint64{1, 2}, idx.GetPending())

	done := idx.Done(1)
	require.Equal(t, []uint64{2}, done.GetPending())
	require.Equal(t, []uint64{1, 2}, idx.GetPending())
	require.Equal(t, uint64(2), done.GetLastRequest())
	require.Equal(t, uint64(1), done.GetLastSubscription())
}

func TestMessages_Serialize(t *testing.T) {
	data, err := NewIndex(0, 0).Serialize(fake.NewContext())
	require.NoError(t, err)
	require.Equal(t, fake.GetFakeFormatValue(), data)

	_, err = NewSubscription(1, "", 0).Serialize(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("encoding failed"))

	_, err = NewRequest(RequestParams{}).Serialize(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("encoding failed"))
}

func TestMessageFactory_Deserialize(t *testing.T) {
	factory := NewMessageFactory()

	msg, err := factory.Deserialize(fake.NewContext(), nil)
	require.NoError(t, err)
	require.Equal(t, Index{}, msg)

	_, err = factory.Deserialize(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("decoding failed"))
}
