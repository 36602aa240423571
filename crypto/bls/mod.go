// Package bls implements the BLS signature scheme on the BN256 curve.
//
// A BLS signature is deterministic, so the coordinator derives the random
// words from the signature of a request seed, and anyone holding its public
// key can verify them.
package bls

import (
	"bytes"
	"encoding/hex"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/lottery/crypto"
	"golang.org/x/xerrors"
)

// textPrefix starts the text form of the public keys.
const textPrefix = "bls:"

var suite = pairing.NewSuiteBn256()

// PublicKey is a point of the curve.
//
// - implements crypto.PublicKey
type PublicKey struct {
	point kyber.Point
}

// NewPublicKey decodes the binary form of a public key.
func NewPublicKey(data []byte) (PublicKey, error) {
	point := suite.Point()

	err := point.UnmarshalBinary(data)
	if err != nil {
		return PublicKey{}, xerrors.Errorf("couldn't unmarshal point: %v", err)
	}

	return PublicKey{point: point}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return pk.point.MarshalBinary()
}

// MarshalText implements encoding.TextMarshaler. The text is the hexadecimal
// form of the point after the prefix.
func (pk PublicKey) MarshalText() ([]byte, error) {
	data, err := pk.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return []byte(textPrefix + hex.EncodeToString(data)), nil
}

// String implements fmt.Stringer. It is short enough for the logs.
func (pk PublicKey) String() string {
	text, err := pk.MarshalText()
	if err != nil {
		return textPrefix + "malformed_point"
	}

	return string(text[:len(textPrefix)+16])
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify(msg []byte, sig crypto.Signature) error {
	signature, ok := sig.(Signature)
	if !ok {
		return xerrors.Errorf("invalid signature type '%T'", sig)
	}

	err := bls.Verify(suite, pk.point, msg, signature.data)
	if err != nil {
		return xerrors.Errorf("bls verify failed: %v", err)
	}

	return nil
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other crypto.PublicKey) bool {
	o, ok := other.(PublicKey)

	return ok && o.point.Equal(pk.point)
}

// Signature is the binary form of a point of the curve.
//
// - implements crypto.Signature
type Signature struct {
	data []byte
}

// NewSignature wraps the data of a signature.
func NewSignature(data []byte) Signature {
	return Signature{data: data}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sig Signature) MarshalBinary() ([]byte, error) {
	return sig.data, nil
}

// Equal implements crypto.Signature.
func (sig Signature) Equal(other crypto.Signature) bool {
	o, ok := other.(Signature)

	return ok && bytes.Equal(sig.data, o.data)
}

// Signer is a BLS key pair.
//
// - implements crypto.Signer
type Signer struct {
	pair *key.Pair
}

// NewSigner returns a random signer.
func NewSigner() Signer {
	return Signer{pair: key.NewKeyPair(suite)}
}

// NewSignerFromBytes decodes the private key of a signer.
func NewSignerFromBytes(data []byte) (Signer, error) {
	secret := suite.Scalar()

	err := secret.UnmarshalBinary(data)
	if err != nil {
		return Signer{}, xerrors.Errorf("while unmarshaling scalar: %v", err)
	}

	pair := &key.Pair{
		Private: secret,
		Public:  suite.Point().Mul(secret, nil),
	}

	return Signer{pair: pair}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the private
// key.
func (s Signer) MarshalBinary() ([]byte, error) {
	return s.pair.Private.MarshalBinary()
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return PublicKey{point: s.pair.Public}
}

// Sign implements crypto.Signer.
func (s Signer) Sign(msg []byte) (crypto.Signature, error) {
	data, err := bls.Sign(suite, s.pair.Private, msg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make bls signature: %v", err)
	}

	return Signature{data: data}, nil
}
