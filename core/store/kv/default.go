package kv

import (
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// DefaultTimeout bounds the wait for the file lock, which another node using
// the same folder holds.
const DefaultTimeout = 2 * time.Second

type options struct {
	timeout time.Duration
}

// Option is the type of the options of the database.
type Option func(*options)

// WithTimeout sets the maximum wait for the file lock. A zero or negative
// value keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.timeout = d
		}
	}
}

// boltDB implements the database with a bbolt file.
//
// - implements kv.DB
type boltDB struct {
	bolt *bbolt.DB
}

// New opens the database in the file, which is created if needed.
func New(path string, opts ...Option) (DB, error) {
	tmpl := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&tmpl)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: tmpl.timeout})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	return boltDB{bolt: db}, nil
}

// View implements kv.DB.
func (db boltDB) View(fn func(ReadableTx) error) error {
	return db.bolt.View(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

// Update implements kv.DB.
func (db boltDB) Update(fn func(WritableTx) error) error {
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

// Close implements kv.DB.
func (db boltDB) Close() error {
	return db.bolt.Close()
}

// boltTx wraps the transactions of bbolt.
//
// - implements kv.ReadableTx
// - implements kv.WritableTx
type boltTx struct {
	tx *bbolt.Tx
}

// GetBucket implements kv.ReadableTx.
func (t boltTx) GetBucket(name []byte) Bucket {
	b := t.tx.Bucket(name)
	if b == nil {
		return nil
	}

	return boltBucket{b}
}

// GetBucketOrCreate implements kv.WritableTx.
func (t boltTx) GetBucketOrCreate(name []byte) (Bucket, error) {
	b, err := t.tx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, xerrors.Errorf("create bucket failed: %v", err)
	}

	return boltBucket{b}, nil
}

// OnCommit implements store.Transaction.
func (t boltTx) OnCommit(fn func()) {
	t.tx.OnCommit(fn)
}

// boltBucket adds the Set name on top of a bbolt bucket.
//
// - implements kv.Bucket
type boltBucket struct {
	*bbolt.Bucket
}

// Set implements kv.Bucket.
func (b boltBucket) Set(key, value []byte) error {
	return b.Put(key, value)
}
