// Package registry stores the format engines of a message type. The packages
// implementing a format register their engines in an init() and the message
// looks the engine up with the format of the context.
package registry

import (
	"sync"

	"go.dedis.ch/lottery/serde"
	"golang.org/x/xerrors"
)

// Formats maps the formats to the engines of one message type.
type Formats struct {
	sync.RWMutex

	kind    string
	engines map[serde.Format]serde.FormatEngine
}

// New returns an empty registry for the messages of the kind, which is used
// in the errors.
func New(kind string) *Formats {
	return &Formats{
		kind:    kind,
		engines: make(map[serde.Format]serde.FormatEngine),
	}
}

// Register sets the engine of the format, replacing any previous one.
func (r *Formats) Register(format serde.Format, engine serde.FormatEngine) {
	r.Lock()
	r.engines[format] = engine
	r.Unlock()
}

// Get returns the engine of the format. An unknown format returns an engine
// that fails so that the callers do not check for it.
func (r *Formats) Get(format serde.Format) serde.FormatEngine {
	r.RLock()
	defer r.RUnlock()

	engine, found := r.engines[format]
	if !found {
		return missing{kind: r.kind, format: format}
	}

	return engine
}

// missing is the engine of an unknown format.
//
// - implements serde.FormatEngine
type missing struct {
	kind   string
	format serde.Format
}

// Encode implements serde.FormatEngine. It always returns an error.
func (m missing) Encode(serde.Context, serde.Message) ([]byte, error) {
	return nil, m.err()
}

// Decode implements serde.FormatEngine. It always returns an error.
func (m missing) Decode(serde.Context, []byte) (serde.Message, error) {
	return nil, m.err()
}

func (m missing) err() error {
	return xerrors.Errorf("no %s engine for format '%s'", m.kind, m.format)
}
