package fake

import "go.dedis.ch/lottery/core/store"

// InMemorySnapshot is a snapshot backed by a map. The errors, when set, are
// returned by the matching operation after it is applied.
//
// - implements store.Snapshot
type InMemorySnapshot struct {
	store.Snapshot

	values    map[string][]byte
	ErrRead   error
	ErrWrite  error
	ErrDelete error
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{values: make(map[string][]byte)}
}

// NewBadSnapshot returns an empty snapshot failing every operation.
func NewBadSnapshot() *InMemorySnapshot {
	snap := NewSnapshot()
	snap.ErrRead = fakeErr
	snap.ErrWrite = fakeErr
	snap.ErrDelete = fakeErr

	return snap
}

// Get implements store.Readable.
func (s *InMemorySnapshot) Get(key []byte) ([]byte, error) {
	return s.values[string(key)], s.ErrRead
}

// Set implements store.Writable.
func (s *InMemorySnapshot) Set(key, value []byte) error {
	s.values[string(key)] = value
	return s.ErrWrite
}

// Delete implements store.Writable.
func (s *InMemorySnapshot) Delete(key []byte) error {
	delete(s.values, string(key))
	return s.ErrDelete
}

// Len returns the number of keys.
func (s *InMemorySnapshot) Len() int {
	return len(s.values)
}
