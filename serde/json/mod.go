// Package json provides the JSON context of the module. Importing it registers
// the JSON engines of the ledger messages.
package json

import (
	"encoding/json"

	_ "go.dedis.ch/lottery/contracts/raffle/json"
	_ "go.dedis.ch/lottery/core/bank/json"
	_ "go.dedis.ch/lottery/randomness/vrf/json"
	"go.dedis.ch/lottery/serde"
)

// engine encodes the messages with encoding/json.
//
// - implements serde.ContextEngine
type engine struct{}

// NewContext returns a context for the JSON format.
func NewContext() serde.Context {
	return serde.NewContext(engine{})
}

// GetFormat implements serde.ContextEngine.
func (engine) GetFormat() serde.Format {
	return serde.FormatJSON
}

// Marshal implements serde.ContextEngine.
func (engine) Marshal(m interface{}) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal implements serde.ContextEngine.
func (engine) Unmarshal(data []byte, m interface{}) error {
	return json.Unmarshal(data, m)
}
