package bank

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn/signed"
	"go.dedis.ch/lottery/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestRegisterContract(t *testing.T) {
	exec := native.NewExecution()
	RegisterContract(exec, NewContract(false))

	require.NotNil(t, exec.Get(ContractName))
}

func TestAddressOf(t *testing.T) {
	addr, err := AddressOf(fake.PublicKey{})
	require.NoError(t, err)
	require.Len(t, addr, 40)

	_, err = AddressOf(fake.NewBadPublicKey())
	require.EqualError(t, err, fake.Err("failed to compute address: failed to marshal identity"))

	require.Equal(t, Address("contract:raffle"), ContractAddress("raffle"))
}

func TestExecute(t *testing.T) {
	contract := NewContract(true)

	err := contract.Execute(fake.NewSnapshot(), makeStep(t))
	require.EqualError(t, err, "'bank:command' not found in tx arg")

	contract.cmd = fakeCmd{err: fake.GetError()}

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, CmdArg, "MINT"))
	require.EqualError(t, err, fake.Err("failed to MINT"))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, CmdArg, "REJECT"))
	require.EqualError(t, err, fake.Err("failed to REJECT"))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, CmdArg, "fake"))
	require.EqualError(t, err, "unknown command: fake")

	contract.cmd = fakeCmd{}
	err = contract.Execute(fake.NewSnapshot(), makeStep(t, CmdArg, "MINT"))
	require.NoError(t, err)
}

func TestContract_Balance(t *testing.T) {
	contract := NewContract(true)
	snap := fake.NewSnapshot()

	balance, err := contract.Balance(snap, "unknown")
	require.NoError(t, err)
	require.Equal(t, uint64(0), balance)

	require.NoError(t, contract.Mint(snap, "A", 12))

	balance, err = contract.Balance(snap, "A")
	require.NoError(t, err)
	require.Equal(t, uint64(12), balance)

	_, err = contract.Balance(fake.NewBadSnapshot(), "A")
	require.EqualError(t, err, fake.Err("failed to read account: failed to read store"))

	require.NoError(t, snap.Set([]byte("BANKaccount:B"), []byte("{")))
	_, err = contract.Balance(snap, "B")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read account: failed to decode: ")
}

func TestContract_Transfer(t *testing.T) {
	contract := NewContract(true)
	snap := fake.NewSnapshot()
	buffer := execution.NewEventBuffer()
	step := execution.Step{Emitter: buffer}

	require.NoError(t, contract.Mint(snap, "A", 10))

	err := contract.Transfer(snap, step, "A", "B", 4)
	require.NoError(t, err)
	requireBalance(t, contract, snap, "A", 6)
	requireBalance(t, contract, snap, "B", 4)

	events := buffer.GetEvents()
	require.Len(t, events, 1)
	require.Equal(t, "Transfer{amount=4, from=A, to=B}", events[0].String())

	err = contract.Transfer(snap, step, "A", "B", 7)
	require.True(t, xerrors.Is(err, ErrInsufficientFunds))
	require.EqualError(t, err, "A has 6, needs 7: insufficient funds")
	requireBalance(t, contract, snap, "A", 6)

	require.NoError(t, contract.SetRejecting(snap, "C", true))

	err = contract.Transfer(snap, step, "A", "C", 1)
	require.True(t, xerrors.Is(err, ErrTransferRejected))
	requireBalance(t, contract, snap, "A", 6)
	requireBalance(t, contract, snap, "C", 0)

	// A transfer to self does not change the balance.
	err = contract.Transfer(snap, step, "A", "A", 6)
	require.NoError(t, err)
	requireBalance(t, contract, snap, "A", 6)

	require.NoError(t, contract.Mint(snap, "D", ^uint64(0)))
	err = contract.Transfer(snap, step, "A", "D", 1)
	require.EqualError(t, err, "balance overflow for D")

	err = contract.Transfer(fake.NewBadSnapshot(), step, "A", "B", 1)
	require.EqualError(t, err, fake.Err("payer: failed to read store"))
}

func TestContract_Transfer_WriteFailure(t *testing.T) {
	contract := NewContract(true)

	snap := fake.NewSnapshot()
	require.NoError(t, contract.Mint(snap, "A", 10))

	snap.ErrWrite = fake.GetError()

	err := contract.Transfer(snap, execution.Step{}, "A", "B", 1)
	require.EqualError(t, err, fake.Err("failed to debit: failed to write store"))
}

func TestContract_Mint(t *testing.T) {
	contract := NewContract(true)
	snap := fake.NewSnapshot()

	require.NoError(t, contract.Mint(snap, "A", 1))
	require.NoError(t, contract.Mint(snap, "A", 2))
	requireBalance(t, contract, snap, "A", 3)

	err := contract.Mint(snap, "A", ^uint64(0))
	require.EqualError(t, err, "balance overflow for A")

	err = contract.Mint(fake.NewBadSnapshot(), "A", 1)
	require.EqualError(t, err, fake.Err("recipient: failed to read store"))
}

func TestContract_SetRejecting(t *testing.T) {
	contract := NewContract(true)
	snap := fake.NewSnapshot()

	require.NoError(t, contract.Mint(snap, "A", 5))
	require.NoError(t, contract.SetRejecting(snap, "A", true))

	account, err := contract.GetAccount(snap, "A")
	require.NoError(t, err)
	require.True(t, account.IsRejecting())
	require.Equal(t, uint64(5), account.GetBalance())

	err = contract.SetRejecting(fake.NewBadSnapshot(), "A", true)
	require.EqualError(t, err, fake.Err("account: failed to read store"))
}

func TestCommand_Mint(t *testing.T) {
	contract := NewContract(false)

	cmd := bankCommand{Contract: &contract}

	err := cmd.mint(fake.NewSnapshot(), makeStep(t, AmountArg, "10"))
	require.EqualError(t, err, "faucet is disabled")

	contract.faucet = true

	err = cmd.mint(fake.NewSnapshot(), makeStep(t, AmountArg, "abc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid amount: ")

	snap := fake.NewSnapshot()
	err = cmd.mint(snap, makeStep(t, AmountArg, "10"))
	require.NoError(t, err)

	addr, err := AddressOf(fake.PublicKey{})
	require.NoError(t, err)
	requireBalance(t, contract, snap, addr, 10)

	err = cmd.mint(fake.NewBadSnapshot(), makeStep(t, AmountArg, "10"))
	require.EqualError(t, err, fake.Err("failed to mint: recipient: failed to read store"))
}

func TestCommand_Reject(t *testing.T) {
	contract := NewContract(false)

	cmd := bankCommand{Contract: &contract}

	err := cmd.reject(fake.NewSnapshot(), makeStep(t, RejectArg, "maybe"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid flag: ")

	snap := fake.NewSnapshot()
	err = cmd.reject(snap, makeStep(t, RejectArg, "true"))
	require.NoError(t, err)

	addr, err := AddressOf(fake.PublicKey{})
	require.NoError(t, err)

	account, err := contract.GetAccount(snap, addr)
	require.NoError(t, err)
	require.True(t, account.IsRejecting())
}

// -----------------------------------------------------------------------------
// Utility functions

func makeStep(t *testing.T, args ...string) execution.Step {
	opts := make([]signed.TransactionOption, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		opts = append(opts, signed.WithArg(args[i], []byte(args[i+1])))
	}

	tx, err := signed.NewTransaction(0, fake.PublicKey{}, opts...)
	require.NoError(t, err)

	return execution.Step{Current: tx}
}

func requireBalance(t *testing.T, c Contract, r store.Readable, addr Address, expected uint64) {
	balance, err := c.Balance(r, addr)
	require.NoError(t, err)
	require.Equal(t, expected, balance)
}

type fakeCmd struct {
	err error
}

func (c fakeCmd) mint(snap store.Snapshot, step execution.Step) error {
	return c.err
}

func (c fakeCmd) reject(snap store.Snapshot, step execution.Step) error {
	return c.err
}
