// Package json implements the JSON format of the raffle round.
package json

import (
	"time"

	"go.dedis.ch/lottery/contracts/raffle/types"
	"go.dedis.ch/lottery/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterRoundFormat(serde.FormatJSON, roundFormat{})
}

// RoundJSON is the JSON representation of a round. The interval is stored in
// whole seconds.
type RoundJSON struct {
	EntranceFee    uint64
	Interval       int64
	Players        []string
	LastTimestamp  int64
	State          uint8
	RecentWinner   string `json:",omitempty"`
	PendingRequest uint64 `json:",omitempty"`

	KeyHash              []byte
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

// roundFormat is the format engine to encode and decode rounds.
//
// - implements serde.FormatEngine
type roundFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the round
// if appropriate, otherwise an error.
func (roundFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	round, ok := msg.(types.Round)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	p := round.GetParams()

	m := RoundJSON{
		EntranceFee:          p.EntranceFee,
		Interval:             int64(p.Interval / time.Second),
		Players:              p.Players,
		LastTimestamp:        p.LastTimestamp,
		State:                uint8(p.State),
		RecentWinner:         p.RecentWinner,
		PendingRequest:       p.PendingRequest,
		KeyHash:              p.KeyHash,
		SubscriptionID:       p.SubscriptionID,
		RequestConfirmations: p.RequestConfirmations,
		CallbackGasLimit:     p.CallbackGasLimit,
		NumWords:             p.NumWords,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It populates the round from the JSON
// data if appropriate, otherwise it returns an error.
func (roundFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := RoundJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	round := types.NewRound(types.RoundParams{
		EntranceFee:          m.EntranceFee,
		Interval:             time.Duration(m.Interval) * time.Second,
		Players:              m.Players,
		LastTimestamp:        m.LastTimestamp,
		State:                types.State(m.State),
		RecentWinner:         m.RecentWinner,
		PendingRequest:       m.PendingRequest,
		KeyHash:              m.KeyHash,
		SubscriptionID:       m.SubscriptionID,
		RequestConfirmations: m.RequestConfirmations,
		CallbackGasLimit:     m.CallbackGasLimit,
		NumWords:             m.NumWords,
	})

	return round, nil
}
