// Package types defines the account stored by the bank for every address.
package types

import (
	"go.dedis.ch/lottery/serde"
	"go.dedis.ch/lottery/serde/registry"
	"golang.org/x/xerrors"
)

var accountFormats = registry.New("account")

// RegisterAccountFormat registers the engine for the provided format.
func RegisterAccountFormat(f serde.Format, e serde.FormatEngine) {
	accountFormats.Register(f, e)
}

// Account is the state of an address in the bank.
//
// - implements serde.Message
type Account struct {
	balance   uint64
	rejecting bool
}

// NewAccount creates a new account.
func NewAccount(balance uint64, rejecting bool) Account {
	return Account{
		balance:   balance,
		rejecting: rejecting,
	}
}

// GetBalance returns the funds available on the account.
func (a Account) GetBalance() uint64 {
	return a.balance
}

// IsRejecting returns true when the account refuses incoming transfers.
func (a Account) IsRejecting() bool {
	return a.rejecting
}

// Serialize implements serde.Message. It returns the serialized data of the
// account.
func (a Account) Serialize(ctx serde.Context) ([]byte, error) {
	format := accountFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, a)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode account: %v", err)
	}

	return data, nil
}

// AccountFactory is the factory to deserialize accounts.
//
// - implements serde.Factory
type AccountFactory struct{}

// NewAccountFactory returns a new factory.
func NewAccountFactory() AccountFactory {
	return AccountFactory{}
}

// Deserialize implements serde.Factory. It populates the account from the data
// if appropriate, otherwise it returns an error.
func (f AccountFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.AccountOf(ctx, data)
}

// AccountOf returns the account of the data if appropriate, otherwise it
// returns an error.
func (f AccountFactory) AccountOf(ctx serde.Context, data []byte) (Account, error) {
	format := accountFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return Account{}, xerrors.Errorf("failed to decode account: %v", err)
	}

	account, ok := msg.(Account)
	if !ok {
		return Account{}, xerrors.Errorf("invalid account of type '%T'", msg)
	}

	return account, nil
}
