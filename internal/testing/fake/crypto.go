package fake

import (
	"hash"

	"go.dedis.ch/lottery/crypto"
)

// PublicKey is a public key equal to any other fake public key.
//
// - implements crypto.PublicKey
type PublicKey struct {
	crypto.PublicKey

	err error
}

// NewBadPublicKey returns a public key failing to marshal and to verify.
func NewBadPublicKey() PublicKey {
	return PublicKey{err: fakeErr}
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify([]byte, crypto.Signature) error {
	return pk.err
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other crypto.PublicKey) bool {
	_, ok := other.(PublicKey)
	return ok
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return []byte("PK"), pk.err
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte("fake.PublicKey"), pk.err
}

// String implements fmt.Stringer.
func (pk PublicKey) String() string {
	return "fake.PublicKey"
}

// Signature is a signature equal to any other fake signature.
//
// - implements crypto.Signature
type Signature struct {
	crypto.Signature
}

// Equal implements crypto.Signature.
func (s Signature) Equal(o crypto.Signature) bool {
	_, ok := o.(Signature)
	return ok
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signature) MarshalBinary() ([]byte, error) {
	return []byte("SIG"), nil
}

// Signer signs with fake signatures for the fake public key.
//
// - implements crypto.Signer
type Signer struct {
	crypto.Signer

	err error
}

// NewSigner returns a signer.
func NewSigner() Signer {
	return Signer{}
}

// NewBadSigner returns a signer failing to sign and to marshal.
func NewBadSigner() Signer {
	return Signer{err: fakeErr}
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return PublicKey{}
}

// Sign implements crypto.Signer.
func (s Signer) Sign([]byte) (crypto.Signature, error) {
	return Signature{}, s.err
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signer) MarshalBinary() ([]byte, error) {
	return []byte("SIGNER"), s.err
}

// Hash is a hash failing its writes once the delay is over.
//
// - implements hash.Hash
type Hash struct {
	delay int
	err   error
}

// NewBadHash returns a hash failing every write.
func NewBadHash() *Hash {
	return &Hash{err: fakeErr}
}

// NewBadHashWithDelay returns a hash failing after the number of writes.
func NewBadHashWithDelay(delay int) *Hash {
	return &Hash{delay: delay, err: fakeErr}
}

// Write implements hash.Hash.
func (h *Hash) Write(in []byte) (int, error) {
	if h.delay > 0 {
		h.delay--
		return len(in), nil
	}

	return 0, h.err
}

// Sum implements hash.Hash.
func (h *Hash) Sum([]byte) []byte {
	return []byte{}
}

// Reset implements hash.Hash.
func (h *Hash) Reset() {}

// Size implements hash.Hash.
func (h *Hash) Size() int {
	return 0
}

// BlockSize implements hash.Hash.
func (h *Hash) BlockSize() int {
	return 0
}

// HashFactory always returns the same hash.
//
// - implements crypto.HashFactory
type HashFactory struct {
	hash *Hash
}

// NewHashFactory returns a factory of the hash.
func NewHashFactory(h *Hash) HashFactory {
	return HashFactory{hash: h}
}

// New implements crypto.HashFactory.
func (f HashFactory) New() hash.Hash {
	return f.hash
}
