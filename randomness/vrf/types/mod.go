// Package types defines the records the randomness coordinator keeps in the
// store: the subscriptions, the pending requests and the counters.
package types

import (
	"go.dedis.ch/lottery/serde"
	"go.dedis.ch/lottery/serde/registry"
	"golang.org/x/xerrors"
)

var msgFormats = registry.New("message")

// RegisterMessageFormat registers the engine for the provided format.
func RegisterMessageFormat(f serde.Format, e serde.FormatEngine) {
	msgFormats.Register(f, e)
}

// Subscription is a prepaid account that pays for the fulfillments of the
// requests of its consumers.
//
// - implements serde.Message
type Subscription struct {
	id        uint64
	owner     string
	balance   uint64
	consumers []string
}

// NewSubscription creates a new subscription.
func NewSubscription(id uint64, owner string, balance uint64, consumers ...string) Subscription {
	return Subscription{
		id:        id,
		owner:     owner,
		balance:   balance,
		consumers: consumers,
	}
}

// GetID returns the identifier of the subscription.
func (s Subscription) GetID() uint64 {
	return s.id
}

// GetOwner returns the address of the owner.
func (s Subscription) GetOwner() string {
	return s.owner
}

// GetBalance returns the funds left on the subscription.
func (s Subscription) GetBalance() uint64 {
	return s.balance
}

// GetConsumers returns the addresses allowed to request randomness.
func (s Subscription) GetConsumers() []string {
	return append([]string{}, s.consumers...)
}

// HasConsumer returns true if the address is a consumer of the subscription.
func (s Subscription) HasConsumer(addr string) bool {
	for _, consumer := range s.consumers {
		if consumer == addr {
			return true
		}
	}

	return false
}

// WithBalance returns a copy of the subscription with the new balance.
func (s Subscription) WithBalance(balance uint64) Subscription {
	s.balance = balance
	s.consumers = s.GetConsumers()

	return s
}

// WithConsumer returns a copy of the subscription with the consumer added. It
// is a no-op if the consumer is already registered.
func (s Subscription) WithConsumer(addr string) Subscription {
	consumers := s.GetConsumers()
	if !s.HasConsumer(addr) {
		consumers = append(consumers, addr)
	}

	s.consumers = consumers

	return s
}

// WithoutConsumer returns a copy of the subscription without the consumer.
func (s Subscription) WithoutConsumer(addr string) Subscription {
	consumers := make([]string, 0, len(s.consumers))
	for _, consumer := range s.consumers {
		if consumer != addr {
			consumers = append(consumers, consumer)
		}
	}

	s.consumers = consumers

	return s
}

// Serialize implements serde.Message.
func (s Subscription) Serialize(ctx serde.Context) ([]byte, error) {
	return serialize(ctx, s)
}

// Request is a pending request for random words.
//
// - implements serde.Message
type Request struct {
	id               uint64
	subscription     uint64
	consumer         string
	keyHash          []byte
	preSeed          []byte
	confirmations    uint16
	callbackGasLimit uint32
	numWords         uint32
	timestamp        int64
}

// RequestParams contains the parameters to create a request.
type RequestParams struct {
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

// NewRequest creates a new request from the parameters.
func NewRequest(p RequestParams) Request {
	return Request{
		id:               p.ID,
		subscription:     p.Subscription,
		consumer:         p.Consumer,
		keyHash:          p.KeyHash,
		preSeed:          p.PreSeed,
		confirmations:    p.Confirmations,
		callbackGasLimit: p.CallbackGasLimit,
		numWords:         p.NumWords,
		timestamp:        p.Timestamp,
	}
}

// GetID returns the identifier of the request.
func (r Request) GetID() uint64 {
	return r.id
}

// GetSubscription returns the identifier of the subscription paying for the
// request.
func (r Request) GetSubscription() uint64 {
	return r.subscription
}

// GetConsumer returns the address of the requester.
func (r Request) GetConsumer() string {
	return r.consumer
}

// GetKeyHash returns the hash of the key the requester asked for.
func (r Request) GetKeyHash() []byte {
	return append([]byte{}, r.keyHash...)
}

// GetPreSeed returns the seed derived when the request was made.
func (r Request) GetPreSeed() []byte {
	return append([]byte{}, r.preSeed...)
}

// GetConfirmations returns the number of blocks to wait before fulfilling.
func (r Request) GetConfirmations() uint16 {
	return r.confirmations
}

// GetCallbackGasLimit returns the gas limit of the consumer callback.
func (r Request) GetCallbackGasLimit() uint32 {
	return r.callbackGasLimit
}

// GetNumWords returns the number of random words requested.
func (r Request) GetNumWords() uint32 {
	return r.numWords
}

// GetTimestamp returns the unix time of the request.
func (r Request) GetTimestamp() int64 {
	return r.timestamp
}

// GetParams returns the parameters of the request.
func (r Request) GetParams() RequestParams {
	return RequestParams{
		ID:               r.id,
		Subscription:     r.subscription,
		Consumer:         r.consumer,
		KeyHash:          r.GetKeyHash(),
		PreSeed:          r.GetPreSeed(),
		Confirmations:    r.confirmations,
		CallbackGasLimit: r.callbackGasLimit,
		NumWords:         r.numWords,
		Timestamp:        r.timestamp,
	}
}

// Serialize implements serde.Message.
func (r Request) Serialize(ctx serde.Context) ([]byte, error) {
	return serialize(ctx, r)
}

// Index contains the counters of the coordinator and the list of pending
// requests in order of creation.
//
// - implements serde.Message
type Index struct {
	lastSubscription uint64
	lastRequest      uint64
	pending          []uint64
}

// NewIndex creates a new index.
func NewIndex(lastSub, lastReq uint64, pending ...uint64) Index {
	return Index{
		lastSubscription: lastSub,
		lastRequest:      lastReq,
		pending:          pending,
	}
}

// GetLastSubscription returns the identifier of the latest subscription, or
// zero if none has been created.
func (idx Index) GetLastSubscription() uint64 {
	return idx.lastSubscription
}

// GetLastRequest returns the identifier of the latest request, or zero if
// none has been made.
func (idx Index) GetLastRequest() uint64 {
	return idx.lastRequest
}

// GetPending returns the identifiers of the pending requests.
func (idx Index) GetPending() []uint64 {
	return append([]uint64{}, idx.pending...)
}

// NextSubscription returns the index with a new subscription allocated, and
// its identifier.
func (idx Index) NextSubscription() (Index, uint64) {
	idx.lastSubscription++
	idx.pending = idx.GetPending()

	return idx, idx.lastSubscription
}

// NextRequest returns the index with a new pending request allocated, and its
// identifier.
func (idx Index) NextRequest() (Index, uint64) {
	idx.lastRequest++
	idx.pending = append(idx.GetPending(), idx.lastRequest)

	return idx, idx.lastRequest
}

// Done returns the index without the request in the pending list.
func (idx Index) Done(id uint64) Index {
	pending := make([]uint64, 0, len(idx.pending))
	for _, p := range idx.pending {
		if p != id {
			pending = append(pending, p)
		}
	}

	idx.pending = pending

	return idx
}

// Serialize implements serde.Message.
func (idx Index) Serialize(ctx serde.Context) ([]byte, error) {
	return serialize(ctx, idx)
}

func serialize(ctx serde.Context, msg serde.Message) ([]byte, error) {
	format := msgFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, msg)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// MessageFactory is the factory to deserialize the records of the
// coordinator.
//
// - implements serde.Factory
type MessageFactory struct{}

// NewMessageFactory returns a new factory.
func NewMessageFactory() MessageFactory {
	return MessageFactory{}
}

// Deserialize implements serde.Factory. It populates the message from the data
// if appropriate, otherwise it returns an error.
func (f MessageFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := msgFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("decoding failed: %v", err)
	}

	return msg, nil
}
