// Package bank implements the native contract that holds the funds of the
// participants and of the contracts.
//
// Every address has an account with a balance. The other contracts move funds
// by calling the bank in the same transaction, so that a refused transaction
// leaves every balance untouched.
package bank

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/bank/types"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/prefixed"
	"go.dedis.ch/lottery/serde"
	"go.dedis.ch/lottery/serde/json"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/lottery.Bank"

	// ContractUID is the unique (4-bytes) identifier of the contract, it is
	// used to prefix keys in the store.
	ContractUID = "BANK"

	// AmountArg is the argument's name in the transaction that contains the
	// amount to mint.
	AmountArg = "bank:amount"

	// RejectArg is the argument's name in the transaction that contains the
	// new value of the rejecting flag.
	RejectArg = "bank:reject"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "bank:command"

	// EventTransfer is the name of the event emitted for every transfer.
	EventTransfer = "Transfer"

	accountKeyPrefix = "account:"
)

// Command defines a type of command for the bank contract.
type Command string

const (
	// CmdMint defines the command to credit the signer's account with new
	// funds. It is only available when the faucet is enabled.
	CmdMint Command = "MINT"

	// CmdReject defines the command to set whether the signer's account
	// refuses incoming transfers.
	CmdReject Command = "REJECT"
)

var (
	// ErrInsufficientFunds is returned when the payer does not have enough
	// funds for a transfer.
	ErrInsufficientFunds = xerrors.New("insufficient funds")

	// ErrTransferRejected is returned when the recipient refuses the
	// transfer.
	ErrTransferRejected = xerrors.New("transfer rejected by recipient")
)

var promTransfers = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "lottery_bank_transfers_total",
	Help: "total number of successful transfers",
})

var promMinted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "lottery_bank_minted_total",
	Help: "total amount of funds created by the faucet",
})

func init() {
	lottery.PromCollectors = append(lottery.PromCollectors, promTransfers, promMinted)
}

// Address is the identifier of an account.
type Address string

// AddressOf returns the address of the account owned by the identity.
func AddressOf(ident access.Identity) (Address, error) {
	addr, err := access.AddressOf(ident)
	if err != nil {
		return "", xerrors.Errorf("failed to compute address: %v", err)
	}

	return Address(addr), nil
}

// ContractAddress returns the address of the account owned by a contract.
func ContractAddress(name string) Address {
	return Address("contract:" + name)
}

// Reader provides the read-only primitives of the bank.
type Reader interface {
	Balance(r store.Readable, addr Address) (uint64, error)
}

// commands defines the commands of the bank contract. This interface helps in
// testing the contract.
type commands interface {
	mint(snap store.Snapshot, step execution.Step) error
	reject(snap store.Snapshot, step execution.Step) error
}

// RegisterContract registers the bank contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the native contract of the bank.
//
// - implements native.Contract
type Contract struct {
	faucet  bool
	context serde.Context
	factory types.AccountFactory
	cmd     commands
}

// NewContract creates a new bank contract. The faucet enables the MINT
// command.
func NewContract(faucet bool) Contract {
	contract := Contract{
		faucet:  faucet,
		context: json.NewContext(),
		factory: types.NewAccountFactory(),
	}

	contract.cmd = bankCommand{Contract: &contract}

	return contract
}

// UID implements native.Contract. It returns the unique 4-bytes contract
// identifier.
func (c Contract) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdMint:
		err := c.cmd.mint(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to MINT: %v", err)
		}
	case CmdReject:
		err := c.cmd.reject(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to REJECT: %v", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// Balance implements bank.Reader. It returns the balance of the address. An
// unknown address has an empty balance.
func (c Contract) Balance(r store.Readable, addr Address) (uint64, error) {
	account, err := c.GetAccount(r, addr)
	if err != nil {
		return 0, xerrors.Errorf("failed to read account: %v", err)
	}

	return account.GetBalance(), nil
}

// GetAccount returns the account of the address. An unknown address has an
// empty account.
func (c Contract) GetAccount(r store.Readable, addr Address) (types.Account, error) {
	data, err := prefixed.NewReadable(ContractUID, r).Get(accountKey(addr))
	if err != nil {
		return types.Account{}, xerrors.Errorf("failed to read store: %v", err)
	}

	if len(data) == 0 {
		return types.NewAccount(0, false), nil
	}

	account, err := c.factory.AccountOf(c.context, data)
	if err != nil {
		return types.Account{}, xerrors.Errorf("failed to decode: %v", err)
	}

	return account, nil
}

// Transfer moves the amount from one account to the other. It fails with
// ErrInsufficientFunds when the payer cannot afford it, and with
// ErrTransferRejected when the recipient refuses incoming funds. Nothing is
// written when it fails.
func (c Contract) Transfer(snap store.Snapshot, step execution.Step, from, to Address, amount uint64) error {
	src, err := c.GetAccount(snap, from)
	if err != nil {
		return xerrors.Errorf("payer: %v", err)
	}

	if src.GetBalance() < amount {
		return xerrors.Errorf("%s has %d, needs %d: %w",
			from, src.GetBalance(), amount, ErrInsufficientFunds)
	}

	dst, err := c.GetAccount(snap, to)
	if err != nil {
		return xerrors.Errorf("recipient: %v", err)
	}

	if dst.IsRejecting() {
		return xerrors.Errorf("%s: %w", to, ErrTransferRejected)
	}

	if from != to {
		if dst.GetBalance()+amount < dst.GetBalance() {
			return xerrors.Errorf("balance overflow for %s", to)
		}

		err = c.setAccount(snap, from, types.NewAccount(src.GetBalance()-amount, src.IsRejecting()))
		if err != nil {
			return xerrors.Errorf("failed to debit: %v", err)
		}

		err = c.setAccount(snap, to, types.NewAccount(dst.GetBalance()+amount, dst.IsRejecting()))
		if err != nil {
			return xerrors.Errorf("failed to credit: %v", err)
		}
	}

	step.Emit(execution.NewEvent(ContractName, EventTransfer,
		"from", string(from),
		"to", string(to),
		"amount", strconv.FormatUint(amount, 10)))

	promTransfers.Inc()

	return nil
}

// Mint credits the address with new funds.
func (c Contract) Mint(snap store.Snapshot, to Address, amount uint64) error {
	account, err := c.GetAccount(snap, to)
	if err != nil {
		return xerrors.Errorf("recipient: %v", err)
	}

	if account.GetBalance()+amount < account.GetBalance() {
		return xerrors.Errorf("balance overflow for %s", to)
	}

	err = c.setAccount(snap, to, types.NewAccount(account.GetBalance()+amount, account.IsRejecting()))
	if err != nil {
		return xerrors.Errorf("failed to credit: %v", err)
	}

	promMinted.Add(float64(amount))

	return nil
}

// SetRejecting sets whether the account refuses incoming transfers.
func (c Contract) SetRejecting(snap store.Snapshot, addr Address, rejecting bool) error {
	account, err := c.GetAccount(snap, addr)
	if err != nil {
		return xerrors.Errorf("account: %v", err)
	}

	err = c.setAccount(snap, addr, types.NewAccount(account.GetBalance(), rejecting))
	if err != nil {
		return xerrors.Errorf("failed to write account: %v", err)
	}

	return nil
}

func (c Contract) setAccount(snap store.Snapshot, addr Address, account types.Account) error {
	data, err := account.Serialize(c.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	err = prefixed.NewSnapshot(ContractUID, snap).Set(accountKey(addr), data)
	if err != nil {
		return xerrors.Errorf("failed to write store: %v", err)
	}

	return nil
}

func accountKey(addr Address) []byte {
	return []byte(accountKeyPrefix + string(addr))
}

// bankCommand implements the commands of the bank contract.
//
// - implements commands
type bankCommand struct {
	*Contract
}

// mint implements commands. It performs the MINT command.
func (c bankCommand) mint(snap store.Snapshot, step execution.Step) error {
	if !c.faucet {
		return xerrors.New("faucet is disabled")
	}

	amount, err := strconv.ParseUint(string(step.Current.GetArg(AmountArg)), 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid amount: %v", err)
	}

	addr, err := AddressOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	err = c.Mint(snap, addr, amount)
	if err != nil {
		return xerrors.Errorf("failed to mint: %v", err)
	}

	lottery.Logger.Info().
		Str("contract", "bank").
		Str("address", string(addr)).
		Uint64("amount", amount).
		Msg("minted")

	return nil
}

// reject implements commands. It performs the REJECT command.
func (c bankCommand) reject(snap store.Snapshot, step execution.Step) error {
	rejecting, err := strconv.ParseBool(string(step.Current.GetArg(RejectArg)))
	if err != nil {
		return xerrors.Errorf("invalid flag: %v", err)
	}

	addr, err := AddressOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	return c.SetRejecting(snap, addr, rejecting)
}
