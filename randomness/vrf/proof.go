package vrf

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"strconv"

	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/crypto"
	"go.dedis.ch/lottery/crypto/bls"
	"golang.org/x/xerrors"
)

// Proof is the material that lets anybody recompute the random words of a
// request and check that the coordinator produced them.
type Proof struct {
	KeyHash   []byte
	PreSeed   []byte
	Signature []byte
	NumWords  uint32
}

// Seed returns the message the coordinator signs for the request.
func (p Proof) Seed(requestID uint64) []byte {
	h := crypto.NewSha256Factory().New()
	h.Write(p.KeyHash)
	h.Write(uint64Bytes(requestID))
	h.Write(p.PreSeed)

	return h.Sum(nil)
}

// Words returns the random words derived from the signature.
func (p Proof) Words() []*big.Int {
	words := make([]*big.Int, p.NumWords)
	index := make([]byte, 4)

	for i := range words {
		binary.BigEndian.PutUint32(index, uint32(i))

		h := crypto.NewSha256Factory().New()
		h.Write(p.Signature)
		h.Write(index)

		words[i] = new(big.Int).SetBytes(h.Sum(nil))
	}

	return words
}

// VerifyRandomness checks the proof of the request against the public key of
// the coordinator and returns the random words.
func VerifyRandomness(pubkey crypto.PublicKey, requestID uint64, proof Proof) ([]*big.Int, error) {
	err := pubkey.Verify(proof.Seed(requestID), bls.NewSignature(proof.Signature))
	if err != nil {
		return nil, xerrors.Errorf("invalid proof: %v", err)
	}

	return proof.Words(), nil
}

// ProofFromEvent extracts the request identifier and the proof of a
// fulfillment event.
func ProofFromEvent(evt execution.Event) (uint64, Proof, error) {
	if evt.Contract != ContractName || evt.Name != EventFulfilled {
		return 0, Proof{}, xerrors.Errorf("unexpected event %s", evt.Name)
	}

	id, err := strconv.ParseUint(evt.Attributes["requestId"], 10, 64)
	if err != nil {
		return 0, Proof{}, xerrors.Errorf("invalid request id: %v", err)
	}

	numWords, err := strconv.ParseUint(evt.Attributes["numWords"], 10, 32)
	if err != nil {
		return 0, Proof{}, xerrors.Errorf("invalid number of words: %v", err)
	}

	proof := Proof{NumWords: uint32(numWords)}

	fields := []struct {
		name string
		dst  *[]byte
	}{
		{"keyHash", &proof.KeyHash},
		{"preSeed", &proof.PreSeed},
		{"signature", &proof.Signature},
	}

	for _, field := range fields {
		*field.dst, err = hex.DecodeString(evt.Attributes[field.name])
		if err != nil {
			return 0, Proof{}, xerrors.Errorf("invalid %s: %v", field.name, err)
		}
	}

	return id, proof, nil
}
