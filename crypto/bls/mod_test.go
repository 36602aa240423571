package bls

import (
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/lottery/crypto"
	"golang.org/x/xerrors"
)

func TestPublicKey_MarshalBinary(t *testing.T) {
	signer := NewSigner()

	buffer, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)
	require.NotEmpty(t, buffer)

	pubkey, err := NewPublicKey(buffer)
	require.NoError(t, err)
	require.True(t, pubkey.Equal(signer.GetPublicKey()))

	_, err = NewPublicKey([]byte{1, 2, 3})
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't unmarshal point: ")
}

func TestPublicKey_Verify(t *testing.T) {
	signer := NewSigner()

	sig, err := signer.Sign([]byte("deadbeef"))
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("deadbeef"), sig)
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("abc"), sig)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bls verify failed: ")

	err = signer.GetPublicKey().Verify([]byte("deadbeef"), fakeSignature{})
	require.EqualError(t, err, "invalid signature type 'bls.fakeSignature'")
}

func TestPublicKey_Equal(t *testing.T) {
	f := func() bool {
		signerA := NewSigner()
		signerB := NewSigner()
		require.True(t, signerA.GetPublicKey().Equal(signerA.GetPublicKey()))
		require.False(t, signerA.GetPublicKey().Equal(signerB.GetPublicKey()))
		require.False(t, signerA.GetPublicKey().Equal(fakePublicKey{}))

		return true
	}

	err := quick.Check(f, &quick.Config{MaxCount: 5})
	require.NoError(t, err)
}

func TestPublicKey_MarshalText(t *testing.T) {
	signer := NewSigner()

	text, err := signer.GetPublicKey().MarshalText()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(text), "bls:"))

	pubkey := PublicKey{point: badPoint{}}
	_, err = pubkey.MarshalText()
	require.EqualError(t, err, "couldn't marshal: oops")
}

func TestPublicKey_String(t *testing.T) {
	signer := NewSigner()
	str := signer.GetPublicKey().(PublicKey).String()
	require.Len(t, str, 20)

	pubkey := PublicKey{point: badPoint{}}
	require.Equal(t, "bls:malformed_point", pubkey.String())
}

func TestSignature_Equal(t *testing.T) {
	sig := NewSignature([]byte{1, 2, 3})

	require.True(t, sig.Equal(NewSignature([]byte{1, 2, 3})))
	require.False(t, sig.Equal(NewSignature([]byte{1, 2})))
	require.False(t, sig.Equal(fakeSignature{}))
}

func TestSigner_Deterministic(t *testing.T) {
	signer := NewSigner()

	sigA, err := signer.Sign([]byte("request"))
	require.NoError(t, err)

	sigB, err := signer.Sign([]byte("request"))
	require.NoError(t, err)

	require.True(t, sigA.Equal(sigB))
}

func TestSigner_MarshalBinary(t *testing.T) {
	signer := NewSigner()

	data, err := signer.MarshalBinary()
	require.NoError(t, err)

	restored, err := NewSignerFromBytes(data)
	require.NoError(t, err)
	require.True(t, restored.GetPublicKey().Equal(signer.GetPublicKey()))

	_, err = NewSignerFromBytes(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "while unmarshaling scalar: ")
}

// -----------------------------------------------------------------------------
// Utility functions

type badPoint struct {
	kyber.Point
}

func (p badPoint) MarshalBinary() ([]byte, error) {
	return nil, xerrors.New("oops")
}

type fakePublicKey struct {
	crypto.PublicKey
}

type fakeSignature struct {
	crypto.Signature
}
