// Package txn defines the transactions submitted to the ledger.
//
// A transaction carries the arguments of a contract command. Its nonce orders
// the transactions of an identity, so that the ledger refuses a replayed or
// reordered transaction, and the identity is the account the contracts charge.
package txn

import (
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/serde"
)

// Transaction is the input of a contract command.
type Transaction interface {
	serde.Fingerprinter

	// GetID returns the digest of the transaction.
	GetID() []byte

	// GetNonce returns the sequence number of the transaction for its
	// identity.
	GetNonce() uint64

	// GetIdentity returns the identity that signed the transaction.
	GetIdentity() access.Identity

	// GetArg returns the value of the argument, or nil.
	GetArg(key string) []byte
}

// Arg is a named argument of a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager creates the transactions of one identity with the next nonce.
type Manager interface {
	Make(args ...Arg) (Transaction, error)

	// Sync reads the nonce of the identity from the ledger, which is needed
	// after a transaction of the manager was refused.
	Sync() error
}
