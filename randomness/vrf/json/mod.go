// Package json implements the JSON format of the randomness coordinator
// records.
package json

import (
	"go.dedis.ch/lottery/randomness/vrf/types"
	"go.dedis.ch/lottery/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterMessageFormat(serde.FormatJSON, msgFormat{})
}

// SubscriptionJSON is the JSON representation of a subscription.
type SubscriptionJSON struct {
	ID        uint64
	Owner     string
	Balance   uint64
	Consumers []string
}

// RequestJSON is the JSON representation of a pending request.
type RequestJSON struct {
	ID               uint64
	Subscription     uint64
	Consumer         string
	KeyHash          []byte
	PreSeed          []byte
	Confirmations    uint16
	CallbackGasLimit uint32
	NumWords         uint32
	Timestamp        int64
}

// IndexJSON is the JSON representation of the counters of the coordinator.
type IndexJSON struct {
	LastSubscription uint64
	LastRequest      uint64
	Pending          []uint64
}

// MessageJSON is the JSON wrapper of the records. Only one field is set.
type MessageJSON struct {
	Subscription *SubscriptionJSON `json:",omitempty"`
	Request      *RequestJSON      `json:",omitempty"`
	Index        *IndexJSON        `json:",omitempty"`
}

// msgFormat is the engine to encode and decode the coordinator records.
//
// - implements serde.FormatEngine
type msgFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the message
// if appropriate, otherwise an error.
func (msgFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	var m MessageJSON

	switch in := msg.(type) {
	case types.Subscription:
		m.Subscription = &SubscriptionJSON{
			ID:        in.GetID(),
			Owner:     in.GetOwner(),
			Balance:   in.GetBalance(),
			Consumers: in.GetConsumers(),
		}
	case types.Request:
		p := in.GetParams()

		m.Request = &RequestJSON{
			ID:               p.ID,
			Subscription:     p.Subscription,
			Consumer:         p.Consumer,
			KeyHash:          p.KeyHash,
			PreSeed:          p.PreSeed,
			Confirmations:    p.Confirmations,
			CallbackGasLimit: p.CallbackGasLimit,
			NumWords:         p.NumWords,
			Timestamp:        p.Timestamp,
		}
	case types.Index:
		m.Index = &IndexJSON{
			LastSubscription: in.GetLastSubscription(),
			LastRequest:      in.GetLastRequest(),
			Pending:          in.GetPending(),
		}
	default:
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It populates the message from the JSON
// data if appropriate, otherwise it returns an error.
func (msgFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := MessageJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	switch {
	case m.Subscription != nil:
		s := m.Subscription
		return types.NewSubscription(s.ID, s.Owner, s.Balance, s.Consumers...), nil
	case m.Request != nil:
		r := m.Request

		return types.NewRequest(types.RequestParams{
			ID:               r.ID,
			Subscription:     r.Subscription,
			Consumer:         r.Consumer,
			KeyHash:          r.KeyHash,
			PreSeed:          r.PreSeed,
			Confirmations:    r.Confirmations,
			CallbackGasLimit: r.CallbackGasLimit,
			NumWords:         r.NumWords,
			Timestamp:        r.Timestamp,
		}), nil
	case m.Index != nil:
		idx := m.Index
		return types.NewIndex(idx.LastSubscription, idx.LastRequest, idx.Pending...), nil
	}

	return nil, xerrors.New("message is empty")
}
