// Package json implements the JSON format of the bank accounts.
package json

import (
	"go.dedis.ch/lottery/core/bank/types"
	"go.dedis.ch/lottery/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterAccountFormat(serde.FormatJSON, accountFormat{})
}

// AccountJSON is the JSON representation of an account.
type AccountJSON struct {
	Balance   uint64
	Rejecting bool `json:",omitempty"`
}

// accountFormat is the format engine to encode and decode accounts.
//
// - implements serde.FormatEngine
type accountFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the account
// if appropriate, otherwise an error.
func (accountFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	account, ok := msg.(types.Account)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	m := AccountJSON{
		Balance:   account.GetBalance(),
		Rejecting: account.IsRejecting(),
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It populates the account from the JSON
// data if appropriate, otherwise it returns an error.
func (accountFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := AccountJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	return types.NewAccount(m.Balance, m.Rejecting), nil
}
