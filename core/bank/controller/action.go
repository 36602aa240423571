package controller

import (
	"fmt"
	"os"
	"strconv"

	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	ledgerctrl "go.dedis.ch/lottery/core/ledger/controller"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/crypto/bls"
	"golang.org/x/xerrors"
)

// newAccountAction is an action to create a key.
//
// - implements node.ActionTemplate
type newAccountAction struct{}

// Execute implements node.ActionTemplate. It creates the key and prints the
// address of its account. An existing key is never overwritten.
func (newAccountAction) Execute(ctx node.Context) error {
	path := ctx.Flags.Path("key")
	if path == "" {
		return xerrors.New("missing key file")
	}

	_, err := os.Stat(path)
	if err == nil {
		return xerrors.Errorf("key file '%s' already exists", path)
	}

	signer, err := bls.LoadOrCreateSigner(path)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	return printAddress(ctx, signer)
}

// showAccountAction is an action to print the address of a key.
//
// - implements node.ActionTemplate
type showAccountAction struct{}

// Execute implements node.ActionTemplate.
func (showAccountAction) Execute(ctx node.Context) error {
	signer, err := bls.LoadSigner(ctx.Flags.Path("key"))
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	return printAddress(ctx, signer)
}

func printAddress(ctx node.Context, signer bls.Signer) error {
	addr, err := bank.AddressOf(signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("address: %v", err)
	}

	fmt.Fprint(ctx.Out, addr)

	return nil
}

// mintAction is an action to mint funds through the faucet.
//
// - implements node.ActionTemplate
type mintAction struct{}

// Execute implements node.ActionTemplate. It submits a MINT command signed by
// the key.
func (mintAction) Execute(ctx node.Context) error {
	amount := ctx.Flags.String("amount")

	_, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid amount '%s': %v", amount, err)
	}

	receipt, err := ledgerctrl.SubmitWithKey(ctx, ctx.Flags.Path("key"),
		txn.Arg{Key: native.ContractArg, Value: []byte(bank.ContractName)},
		txn.Arg{Key: bank.CmdArg, Value: []byte(bank.CmdMint)},
		txn.Arg{Key: bank.AmountArg, Value: []byte(amount)},
	)
	if err != nil {
		return xerrors.Errorf("failed to mint: %v", err)
	}

	fmt.Fprintf(ctx.Out, "minted %s at height %d", amount, receipt.Height)

	return nil
}

// balanceAction is an action to print the balance of an account.
//
// - implements node.ActionTemplate
type balanceAction struct{}

// Execute implements node.ActionTemplate. It reads the balance of the address,
// or of the account of the key when no address is given.
func (balanceAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var contract bank.Contract
	err = ctx.Injector.Resolve(&contract)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	addr := bank.Address(ctx.Flags.String("address"))

	if addr == "" {
		signer, err := bls.LoadSigner(ctx.Flags.Path("key"))
		if err != nil {
			return xerrors.Errorf("signer: %v", err)
		}

		addr, err = bank.AddressOf(signer.GetPublicKey())
		if err != nil {
			return xerrors.Errorf("address: %v", err)
		}
	}

	var balance uint64

	err = l.View(func(r store.Readable) error {
		balance, err = contract.Balance(r, addr)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read balance: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%s: %d", addr, balance)

	return nil
}

// rejectAction is an action to toggle the rejecting flag of an account.
//
// - implements node.ActionTemplate
type rejectAction struct{}

// Execute implements node.ActionTemplate. It submits a REJECT command signed
// by the key.
func (rejectAction) Execute(ctx node.Context) error {
	value := strconv.FormatBool(ctx.Flags.Bool("reject"))

	_, err := ledgerctrl.SubmitWithKey(ctx, ctx.Flags.Path("key"),
		txn.Arg{Key: native.ContractArg, Value: []byte(bank.ContractName)},
		txn.Arg{Key: bank.CmdArg, Value: []byte(bank.CmdReject)},
		txn.Arg{Key: bank.RejectArg, Value: []byte(value)},
	)
	if err != nil {
		return xerrors.Errorf("failed to set flag: %v", err)
	}

	fmt.Fprintf(ctx.Out, "rejecting: %s", value)

	return nil
}
