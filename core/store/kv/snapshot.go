package kv

import (
	"go.dedis.ch/lottery/core/store"
	"golang.org/x/xerrors"
)

// bucketSnapshot exposes a bucket of an opened transaction as a store
// snapshot. The writes are only applied when the transaction commits.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket Bucket
}

// NewSnapshot returns a snapshot that writes in the bucket of the given
// transaction. The bucket is created if necessary.
func NewSnapshot(tx WritableTx, name []byte) (store.Snapshot, error) {
	bucket, err := tx.GetBucketOrCreate(name)
	if err != nil {
		return nil, xerrors.Errorf("failed to open bucket: %v", err)
	}

	return bucketSnapshot{bucket: bucket}, nil
}

// NewReadable returns a read-only view of the bucket. A missing bucket is read
// as an empty store.
func NewReadable(tx ReadableTx, name []byte) store.Readable {
	return readableBucket{bucket: tx.GetBucket(name)}
}

// Get implements store.Readable. It returns a copy of the value so that it
// outlives the transaction.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	return copyValue(s.bucket.Get(key)), nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	err := s.bucket.Set(key, value)
	if err != nil {
		return xerrors.Errorf("failed to set key: %v", err)
	}

	return nil
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	err := s.bucket.Delete(key)
	if err != nil {
		return xerrors.Errorf("failed to delete key: %v", err)
	}

	return nil
}

// readableBucket is the read-only counterpart of the bucket snapshot.
//
// - implements store.Readable
type readableBucket struct {
	bucket Bucket
}

// Get implements store.Readable.
func (r readableBucket) Get(key []byte) ([]byte, error) {
	if r.bucket == nil {
		return nil, nil
	}

	return copyValue(r.bucket.Get(key)), nil
}

func copyValue(value []byte) []byte {
	if value == nil {
		return nil
	}

	return append([]byte{}, value...)
}
