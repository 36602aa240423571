// Package crypto defines the cryptographic primitives used to sign the
// transactions and to prove the randomness delivered by the coordinator.
package crypto

import (
	"crypto/sha256"
	"encoding"
	"hash"
)

// HashFactory creates the hash of the transaction identifiers and of the
// randomness proofs.
type HashFactory interface {
	New() hash.Hash
}

// Sha256Factory is the default hash factory.
//
// - implements crypto.HashFactory
type Sha256Factory struct{}

// NewSha256Factory returns the factory of SHA-256 hashes.
func NewSha256Factory() Sha256Factory {
	return Sha256Factory{}
}

// New implements crypto.HashFactory.
func (Sha256Factory) New() hash.Hash {
	return sha256.New()
}

// PublicKey verifies the signatures of a signer. It is the identity of the
// accounts of the ledger.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Verify returns nil when the signature is the one of the message.
	Verify(msg []byte, sig Signature) error

	Equal(other PublicKey) bool
}

// Signature is the signature of a message.
type Signature interface {
	encoding.BinaryMarshaler

	Equal(other Signature) bool
}

// Signer is a private key.
type Signer interface {
	encoding.BinaryMarshaler

	GetPublicKey() PublicKey

	// Sign returns the signature of the message.
	Sign(msg []byte) (Signature, error)
}
