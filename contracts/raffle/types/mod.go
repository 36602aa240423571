// Package types defines the round record of the raffle.
package types

import (
	"time"

	"go.dedis.ch/lottery/serde"
	"go.dedis.ch/lottery/serde/registry"
	"golang.org/x/xerrors"
)

var roundFormats = registry.New("round")

// RegisterRoundFormat registers the engine for the provided format.
func RegisterRoundFormat(f serde.Format, e serde.FormatEngine) {
	roundFormats.Register(f, e)
}

// State is the state of the round.
type State uint8

const (
	// StateOpen is the state of a round accepting entries.
	StateOpen State = iota

	// StateCalculating is the state of a round waiting for its random word.
	StateCalculating
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateCalculating:
		return "CALCULATING"
	default:
		return "UNKNOWN"
	}
}

// RoundParams contains the fields of a round.
type RoundParams struct {
	EntranceFee    uint64
	Interval       time.Duration
	Players        []string
	LastTimestamp  int64
	State          State
	RecentWinner   string
	PendingRequest uint64

	KeyHash              []byte
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

// Round is the state of the raffle: the configuration set at deployment and
// the current round.
//
// - implements serde.Message
type Round struct {
	params RoundParams
}

// NewRound creates a new round from the parameters.
func NewRound(p RoundParams) Round {
	p.Players = append([]string{}, p.Players...)
	p.KeyHash = append([]byte{}, p.KeyHash...)

	return Round{params: p}
}

// GetParams returns a copy of the fields of the round.
func (r Round) GetParams() RoundParams {
	p := r.params
	p.Players = append([]string{}, p.Players...)
	p.KeyHash = append([]byte{}, p.KeyHash...)

	return p
}

// GetEntranceFee returns the minimum payment of an entry.
func (r Round) GetEntranceFee() uint64 {
	return r.params.EntranceFee
}

// GetInterval returns the duration of a round.
func (r Round) GetInterval() time.Duration {
	return r.params.Interval
}

// GetPlayers returns the entries of the current round in order.
func (r Round) GetPlayers() []string {
	return append([]string{}, r.params.Players...)
}

// GetLastTimestamp returns the time the current round started.
func (r Round) GetLastTimestamp() time.Time {
	return time.Unix(r.params.LastTimestamp, 0)
}

// GetState returns the state of the round.
func (r Round) GetState() State {
	return r.params.State
}

// GetRecentWinner returns the winner of the previous round, or an empty
// string.
func (r Round) GetRecentWinner() string {
	return r.params.RecentWinner
}

// GetPendingRequest returns the identifier of the outstanding request, or
// zero if there is none.
func (r Round) GetPendingRequest() uint64 {
	return r.params.PendingRequest
}

// Serialize implements serde.Message.
func (r Round) Serialize(ctx serde.Context) ([]byte, error) {
	format := roundFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, r)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode round: %v", err)
	}

	return data, nil
}

// RoundFactory is the factory to deserialize rounds.
//
// - implements serde.Factory
type RoundFactory struct{}

// NewRoundFactory returns a new factory.
func NewRoundFactory() RoundFactory {
	return RoundFactory{}
}

// Deserialize implements serde.Factory.
func (f RoundFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.RoundOf(ctx, data)
}

// RoundOf returns the round of the data if appropriate, otherwise an error.
func (f RoundFactory) RoundOf(ctx serde.Context, data []byte) (Round, error) {
	format := roundFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return Round{}, xerrors.Errorf("failed to decode round: %v", err)
	}

	round, ok := msg.(Round)
	if !ok {
		return Round{}, xerrors.Errorf("invalid round of type '%T'", msg)
	}

	return round, nil
}
