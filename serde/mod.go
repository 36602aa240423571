// Package serde defines the primitives to serialize and deserialize (serde)
// the records of the module.
//
// A message implementation is responsible for looking up the format engine
// registered for the format of the context, so that a data model never depends
// on a specific encoding. Format engines are registered statically by the
// packages that implement them.
package serde

import "io"

// Format is the identifier of an encoding.
type Format string

const (
	// FormatJSON is the identifier of the JSON encoding.
	FormatJSON Format = "JSON"
)

// Message is the interface a data model must implement to be serialized.
type Message interface {
	// Serialize returns the data of the message in the format of the context.
	Serialize(ctx Context) ([]byte, error)
}

// Fingerprinter is the interface implemented by messages that can write a
// deterministic binary representation of themselves.
type Fingerprinter interface {
	// Fingerprint writes a deterministic binary representation of the object
	// into the writer.
	Fingerprint(writer io.Writer) error
}

// Factory is the interface to implement to instantiate a message from its
// serialized data.
type Factory interface {
	// Deserialize returns the message decoded from the data in the format of
	// the context.
	Deserialize(ctx Context, data []byte) (Message, error)
}

// FormatEngine is the interface to implement to encode and decode a message
// for a given format.
type FormatEngine interface {
	// Encode returns the data of the message.
	Encode(ctx Context, message Message) ([]byte, error)

	// Decode returns the message populated with the data.
	Decode(ctx Context, data []byte) (Message, error)
}
