// Package access defines the identities that sign transactions and how an
// account address is derived from them.
package access

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"

	"golang.org/x/xerrors"
)

// AddressLength is the number of hexadecimal characters of an address.
const AddressLength = 40

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.TextMarshaler
}

// AddressOf returns the address of the account owned by the identity. It is
// the truncated digest of the text representation of the identity.
func AddressOf(ident Identity) (string, error) {
	text, err := ident.MarshalText()
	if err != nil {
		return "", xerrors.Errorf("failed to marshal identity: %v", err)
	}

	h := sha256.Sum256(text)

	return hex.EncodeToString(h[:])[:AddressLength], nil
}
