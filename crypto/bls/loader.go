package bls

import (
	"go.dedis.ch/lottery/crypto/loader"
	"golang.org/x/xerrors"
)

// keyGenerator is an implementation to generate a private key.
//
// - implements loader.Generator
type keyGenerator struct{}

// NewKeyGenerator returns a generator of BLS private keys.
func NewKeyGenerator() loader.Generator {
	return keyGenerator{}
}

// Generate implements loader.Generator. It returns the marshaled data of a
// private key.
func (g keyGenerator) Generate() ([]byte, error) {
	signer := NewSigner()

	data, err := signer.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal signer: %v", err)
	}

	return data, nil
}

// LoadOrCreateSigner loads the signer stored in the file, or generates a new
// one and stores it.
func LoadOrCreateSigner(path string) (Signer, error) {
	data, err := loader.NewFileLoader(path).LoadOrCreate(NewKeyGenerator())
	if err != nil {
		return Signer{}, xerrors.Errorf("failed to load key: %v", err)
	}

	return NewSignerFromBytes(data)
}

// LoadSigner loads the signer stored in the file.
func LoadSigner(path string) (Signer, error) {
	data, err := loader.NewFileLoader(path).Load()
	if err != nil {
		return Signer{}, xerrors.Errorf("failed to load key: %v", err)
	}

	return NewSignerFromBytes(data)
}
