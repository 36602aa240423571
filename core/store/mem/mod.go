// Package mem implements a staged snapshot that buffers the writes in memory
// on top of a parent snapshot.
//
// The writes are applied to the parent only when the stage is committed, which
// lets a caller run a nested execution and discard its effects if it fails.
package mem

import (
	"sort"

	"go.dedis.ch/lottery/core/store"
	"golang.org/x/xerrors"
)

type item struct {
	value   []byte
	deleted bool
}

// Stage is an in-memory layer over a parent snapshot. It saves the updates in
// an internal store and only keeps the updates of the current stage. When
// reading, it'll look up the parent if the key is not found.
//
// - implements store.Snapshot
type Stage struct {
	parent store.Snapshot
	store  map[string]item
}

// NewStage creates a new empty stage on top of the parent.
func NewStage(parent store.Snapshot) *Stage {
	return &Stage{
		parent: parent,
		store:  make(map[string]item),
	}
}

// Get implements store.Readable. A key deleted in the stage is read as missing
// even if the parent still has it.
func (s *Stage) Get(key []byte) ([]byte, error) {
	it, found := s.store[string(key)]
	if found {
		if it.deleted {
			return nil, nil
		}

		return it.value, nil
	}

	value, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("failed to read parent: %v", err)
	}

	return value, nil
}

// Set implements store.Writable.
func (s *Stage) Set(key, value []byte) error {
	s.store[string(key)] = item{value: value}

	return nil
}

// Delete implements store.Writable.
func (s *Stage) Delete(key []byte) error {
	s.store[string(key)] = item{deleted: true}

	return nil
}

// Len returns the number of keys updated in the stage.
func (s *Stage) Len() int {
	return len(s.store)
}

// Commit applies the buffered updates to the parent in the order of the keys
// and empties the stage.
func (s *Stage) Commit() error {
	keys := make([]string, 0, len(s.store))
	for key := range s.store {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		it := s.store[key]

		var err error
		if it.deleted {
			err = s.parent.Delete([]byte(key))
		} else {
			err = s.parent.Set([]byte(key), it.value)
		}

		if err != nil {
			return xerrors.Errorf("failed to apply key %#x: %v", key, err)
		}
	}

	s.store = make(map[string]item)

	return nil
}

// Discard drops the buffered updates.
func (s *Stage) Discard() {
	s.store = make(map[string]item)
}
