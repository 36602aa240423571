// Package signed implements the transactions signed by the key of their
// identity.
//
// The identifier of a transaction is the hash of its fingerprint, which is the
// signed message. The fingerprint prefixes every argument with its length, so
// that two different sets of arguments never share an identifier.
package signed

import (
	"encoding/binary"
	"io"
	"sort"
	"sync"

	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/crypto"
	"golang.org/x/xerrors"
)

// Transaction is a transaction signed by its identity.
//
// - implements txn.Transaction
type Transaction struct {
	nonce  uint64
	args   map[string][]byte
	pubkey crypto.PublicKey
	sig    crypto.Signature
	hash   []byte
}

type template struct {
	Transaction

	hashFactory crypto.HashFactory
}

// TransactionOption is the type of the options to create a transaction.
type TransactionOption func(*template)

// WithArg sets the argument of the key.
func WithArg(key string, value []byte) TransactionOption {
	return func(tmpl *template) {
		tmpl.args[key] = value
	}
}

// WithSignature sets the signature, which is verified when the transaction is
// created.
func WithSignature(sig crypto.Signature) TransactionOption {
	return func(tmpl *template) {
		tmpl.sig = sig
	}
}

// WithHashFactory replaces the hash of the identifier.
func WithHashFactory(f crypto.HashFactory) TransactionOption {
	return func(tmpl *template) {
		tmpl.hashFactory = f
	}
}

// NewTransaction returns the transaction of the identity with the nonce.
func NewTransaction(nonce uint64, pk crypto.PublicKey, opts ...TransactionOption) (*Transaction, error) {
	tmpl := template{
		Transaction: Transaction{
			nonce:  nonce,
			pubkey: pk,
			args:   make(map[string][]byte),
		},
		hashFactory: crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	h := tmpl.hashFactory.New()

	err := tmpl.Fingerprint(h)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fingerprint tx: %v", err)
	}

	tx := tmpl.Transaction
	tx.hash = h.Sum(nil)

	if tx.sig != nil {
		err = tx.Verify()
		if err != nil {
			return nil, err
		}
	}

	return &tx, nil
}

// GetID implements txn.Transaction.
func (t *Transaction) GetID() []byte {
	return t.hash
}

// GetNonce implements txn.Transaction.
func (t *Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction. The identity is the public key of
// the signer.
func (t *Transaction) GetIdentity() access.Identity {
	return t.pubkey
}

// GetPublicKey returns the public key of the signer.
func (t *Transaction) GetPublicKey() crypto.PublicKey {
	return t.pubkey
}

// GetSignature returns the signature, or nil before the transaction is
// signed.
func (t *Transaction) GetSignature() crypto.Signature {
	return t.sig
}

// GetArgs returns the sorted keys of the arguments.
func (t *Transaction) GetArgs() []string {
	keys := make([]string, 0, len(t.args))
	for key := range t.args {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// GetArg implements txn.Transaction.
func (t *Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// Sign sets the signature of the identifier. The signer must own the identity.
func (t *Transaction) Sign(signer crypto.Signer) error {
	if len(t.hash) == 0 {
		return xerrors.New("missing digest in transaction")
	}

	if !signer.GetPublicKey().Equal(t.pubkey) {
		return xerrors.New("mismatch signer and identity")
	}

	sig, err := signer.Sign(t.hash)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	t.sig = sig

	return nil
}

// Verify returns nil when the signature matches the identity.
func (t *Transaction) Verify() error {
	if t.sig == nil {
		return xerrors.New("missing signature")
	}

	err := t.pubkey.Verify(t.hash, t.sig)
	if err != nil {
		return xerrors.Errorf("invalid signature: %v", err)
	}

	return nil
}

// Fingerprint implements serde.Fingerprinter. It writes the nonce and the
// number of arguments, then each argument by order of key, and finally the
// public key.
func (t *Transaction) Fingerprint(w io.Writer) error {
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header, t.nonce)
	binary.BigEndian.PutUint32(header[8:], uint32(len(t.args)))

	_, err := w.Write(header)
	if err != nil {
		return xerrors.Errorf("couldn't write nonce: %v", err)
	}

	for _, key := range t.GetArgs() {
		_, err = w.Write(encodeArg(key, t.args[key]))
		if err != nil {
			return xerrors.Errorf("couldn't write arg: %v", err)
		}
	}

	pk, err := t.pubkey.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	_, err = w.Write(pk)
	if err != nil {
		return xerrors.Errorf("couldn't write public key: %v", err)
	}

	return nil
}

func encodeArg(key string, value []byte) []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(key)+len(value))

	buf = binary.AppendUvarint(buf, uint64(len(key)))
	buf = append(buf, key...)
	buf = binary.AppendUvarint(buf, uint64(len(value)))
	buf = append(buf, value...)

	return buf
}

// Client returns the next nonce of an identity, which is the ledger for the
// managers of the node.
type Client interface {
	GetNonce(access.Identity) (uint64, error)
}

// TransactionManager signs the transactions of a signer with consecutive
// nonces. The nonce only moves forward, so that after a refusal the manager
// must be synchronized with the client.
//
// - implements txn.Manager
type TransactionManager struct {
	sync.Mutex

	client      Client
	signer      crypto.Signer
	nonce       uint64
	hashFactory crypto.HashFactory
}

// NewManager returns the manager of the signer. It starts at the nonce zero
// until it is synchronized.
func NewManager(signer crypto.Signer, client Client) *TransactionManager {
	return &TransactionManager{
		client:      client,
		signer:      signer,
		hashFactory: crypto.NewSha256Factory(),
	}
}

// Make implements txn.Manager.
func (mgr *TransactionManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	mgr.Lock()
	defer mgr.Unlock()

	opts := []TransactionOption{WithHashFactory(mgr.hashFactory)}
	for _, arg := range args {
		opts = append(opts, WithArg(arg.Key, arg.Value))
	}

	tx, err := NewTransaction(mgr.nonce, mgr.signer.GetPublicKey(), opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(mgr.signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	mgr.nonce++

	return tx, nil
}

// Sync implements txn.Manager.
func (mgr *TransactionManager) Sync() error {
	nonce, err := mgr.client.GetNonce(mgr.signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("client: %v", err)
	}

	mgr.Lock()
	mgr.nonce = nonce
	mgr.Unlock()

	lottery.Logger.Debug().Uint64("nonce", nonce).Msg("manager synchronized")

	return nil
}
