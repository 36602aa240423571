// Package prefixed implements a view of a store restricted to the keys of one
// contract. Every key is stored in the parent with the prefix of the contract
// in front of it.
package prefixed

import (
	"go.dedis.ch/lottery/core/store"
)

// Snapshot is the view of a parent store under a prefix. The writes of a view
// created by NewReadable panic.
//
// - implements store.Snapshot
type Snapshot struct {
	prefix []byte
	reader store.Readable
	writer store.Writable
}

// NewSnapshot returns the view of the snapshot under the prefix.
func NewSnapshot(prefix string, snap store.Snapshot) *Snapshot {
	return &Snapshot{
		prefix: []byte(prefix),
		reader: snap,
		writer: snap,
	}
}

// NewReadable returns the read-only view of the store under the prefix.
func NewReadable(prefix string, r store.Readable) store.Readable {
	return &Snapshot{
		prefix: []byte(prefix),
		reader: r,
	}
}

// Get implements store.Readable.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	return s.reader.Get(s.key(key))
}

// Set implements store.Writable.
func (s *Snapshot) Set(key, value []byte) error {
	return s.writer.Set(s.key(key), value)
}

// Delete implements store.Writable.
func (s *Snapshot) Delete(key []byte) error {
	return s.writer.Delete(s.key(key))
}

func (s *Snapshot) key(key []byte) []byte {
	return NewPrefixedKey(s.prefix, key)
}

// NewPrefixedKey returns the key in the parent store. The contract prefixes
// have a fixed length so that two key spaces cannot overlap.
func NewPrefixedKey(prefix, key []byte) []byte {
	k := make([]byte, len(prefix)+len(key))
	n := copy(k, prefix)
	copy(k[n:], key)

	return k
}
