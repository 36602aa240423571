// Package kv is the persistent key/value database of the node. The ledger
// keeps the state of every contract in buckets of a bbolt file, and applies a
// block in a single writable transaction.
package kv

import "go.dedis.ch/lottery/core/store"

// Bucket is a namespace of keys of the database.
type Bucket interface {
	// Get returns the value of the key, or nil. The value is only valid
	// during the transaction.
	Get(key []byte) []byte

	Set(key, value []byte) error

	Delete(key []byte) error
}

// ReadableTx is a read-only transaction.
type ReadableTx interface {
	// GetBucket returns the bucket, or nil if it was never created.
	GetBucket(name []byte) Bucket
}

// WritableTx is a read-write transaction.
type WritableTx interface {
	store.Transaction

	ReadableTx

	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is the database of the node.
type DB interface {
	// View runs the function in a read-only transaction.
	View(fn func(ReadableTx) error) error

	// Update runs the function in a read-write transaction, which is rolled
	// back when the function returns an error.
	Update(fn func(WritableTx) error) error

	Close() error
}
