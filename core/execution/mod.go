// Package execution defines the service that applies a transaction to a
// snapshot of the store, and the events the contracts emit while doing so.
package execution

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
)

// Step is the context of execution of a transaction.
type Step struct {
	// Current is the transaction being executed.
	Current txn.Transaction

	// Timestamp is the time of the ledger when the transaction is executed.
	Timestamp time.Time

	// Emitter collects the events of the execution. It can be nil, in which
	// case the events are dropped.
	Emitter Emitter
}

// Emit sends the event to the emitter of the step, if any.
func (s Step) Emit(evt Event) {
	if s.Emitter != nil {
		s.Emitter.Emit(evt)
	}
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}

// Event is a notification emitted by a contract during the execution of a
// transaction.
type Event struct {
	Contract   string
	Name       string
	Attributes map[string]string
}

// NewEvent creates an event. The attributes are given as key/value pairs.
func NewEvent(contract, name string, kv ...string) Event {
	attrs := make(map[string]string)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}

	return Event{
		Contract:   contract,
		Name:       name,
		Attributes: attrs,
	}
}

// String implements fmt.Stringer. It returns the name of the event followed by
// its attributes sorted by key.
func (e Event) String() string {
	keys := make([]string, 0, len(e.Attributes))
	for key := range e.Attributes {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	attrs := make([]string, len(keys))
	for i, key := range keys {
		attrs[i] = fmt.Sprintf("%s=%s", key, e.Attributes[key])
	}

	return fmt.Sprintf("%s{%s}", e.Name, strings.Join(attrs, ", "))
}

// Emitter is the interface to collect events.
type Emitter interface {
	Emit(Event)
}

// EventBuffer is an emitter that keeps the events in memory in the order of
// emission.
//
// - implements execution.Emitter
type EventBuffer struct {
	events []Event
}

// NewEventBuffer returns an empty buffer.
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{}
}

// Emit implements execution.Emitter.
func (b *EventBuffer) Emit(evt Event) {
	b.events = append(b.events, evt)
}

// GetEvents returns the events emitted so far.
func (b *EventBuffer) GetEvents() []Event {
	return append([]Event{}, b.events...)
}

// FlushTo emits the buffered events to the other emitter and empties the
// buffer.
func (b *EventBuffer) FlushTo(other Emitter) {
	for _, evt := range b.events {
		if other != nil {
			other.Emit(evt)
		}
	}

	b.events = nil
}

// Reset drops the buffered events.
func (b *EventBuffer) Reset() {
	b.events = nil
}
