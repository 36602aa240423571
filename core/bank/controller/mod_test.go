package controller

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/ledger"
	ledgerctrl "go.dedis.ch/lottery/core/ledger/controller"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/kv"
)

func TestMiniController_SetCommands(t *testing.T) {
	builder := &fakeBuilder{}

	NewController().SetCommands(builder)

	require.Len(t, builder.startFlags, 1)
	require.Equal(t, []string{"account", "new", "show", "bank", "mint", "balance", "reject"}, builder.names)
}

func TestMiniController_OnStart(t *testing.T) {
	inj := startNode(t, true)

	var contract bank.Contract
	require.NoError(t, inj.Resolve(&contract))

	require.NoError(t, NewController().OnStop(inj))

	err := NewController().OnStart(node.FlagSet{}, node.NewInjector())
	require.EqualError(t, err,
		"failed to resolve native service: couldn't find dependency for '*native.Service'")
}

func TestActions_Scenario(t *testing.T) {
	inj := startNode(t, true)
	key := filepath.Join(t.TempDir(), "alice.key")

	out := new(bytes.Buffer)
	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{"key": key, "amount": "42"},
		Out:      out,
	}

	require.NoError(t, newAccountAction{}.Execute(ctx))
	require.FileExists(t, key)

	addr := out.String()
	require.Len(t, addr, 40)

	err := newAccountAction{}.Execute(ctx)
	require.EqualError(t, err, fmt.Sprintf("key file '%s' already exists", key))

	out.Reset()
	require.NoError(t, showAccountAction{}.Execute(ctx))
	require.Equal(t, addr, out.String())

	out.Reset()
	require.NoError(t, mintAction{}.Execute(ctx))
	require.Equal(t, "minted 42 at height 1", out.String())

	out.Reset()
	require.NoError(t, balanceAction{}.Execute(ctx))
	require.Equal(t, addr+": 42", out.String())

	out.Reset()
	ctx.Flags = node.FlagSet{"address": addr}
	require.NoError(t, balanceAction{}.Execute(ctx))
	require.Equal(t, addr+": 42", out.String())

	out.Reset()
	ctx.Flags = node.FlagSet{"address": "unknown"}
	require.NoError(t, balanceAction{}.Execute(ctx))
	require.Equal(t, "unknown: 0", out.String())

	out.Reset()
	ctx.Flags = node.FlagSet{"key": key, "reject": true}
	require.NoError(t, rejectAction{}.Execute(ctx))
	require.Equal(t, "rejecting: true", out.String())

	var l *ledger.Ledger
	require.NoError(t, inj.Resolve(&l))

	var contract bank.Contract
	require.NoError(t, inj.Resolve(&contract))

	err = l.View(func(r store.Readable) error {
		account, err := contract.GetAccount(r, bank.Address(addr))
		require.NoError(t, err)
		require.True(t, account.IsRejecting())
		return nil
	})
	require.NoError(t, err)
}

func TestMintAction_Failures(t *testing.T) {
	inj := startNode(t, false)
	key := filepath.Join(t.TempDir(), "alice.key")

	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{"key": key, "amount": "abc"},
		Out:      new(bytes.Buffer),
	}

	err := mintAction{}.Execute(ctx)
	require.EqualError(t, err,
		"invalid amount 'abc': strconv.ParseUint: parsing \"abc\": invalid syntax")

	require.NoError(t, newAccountAction{}.Execute(ctx))

	ctx.Flags = node.FlagSet{"key": key, "amount": "1"}
	err = mintAction{}.Execute(ctx)
	require.EqualError(t, err,
		"failed to mint: transaction refused: failed to MINT: faucet is disabled")

	ctx.Flags = node.FlagSet{"amount": "1"}
	err = mintAction{}.Execute(ctx)
	require.EqualError(t, err, "failed to mint: missing key file")
}

func TestAccountActions_Failures(t *testing.T) {
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    node.FlagSet{},
		Out:      new(bytes.Buffer),
	}

	err := newAccountAction{}.Execute(ctx)
	require.EqualError(t, err, "missing key file")

	ctx.Flags = node.FlagSet{"key": filepath.Join(t.TempDir(), "none", "alice.key")}

	err = newAccountAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "signer: failed to load key: ")

	err = showAccountAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "signer: failed to load key: ")
}

func TestBalanceAction_Failures(t *testing.T) {
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    node.FlagSet{},
		Out:      new(bytes.Buffer),
	}

	err := balanceAction{}.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for '*ledger.Ledger'")

	ctx.Injector = startNode(t, true)
	ctx.Flags = node.FlagSet{"key": filepath.Join(t.TempDir(), "unknown.key")}

	err = balanceAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "signer: failed to load key: ")
}

func TestRejectAction_Failures(t *testing.T) {
	ctx := node.Context{
		Injector: startNode(t, true),
		Flags:    node.FlagSet{},
		Out:      new(bytes.Buffer),
	}

	err := rejectAction{}.Execute(ctx)
	require.EqualError(t, err, "failed to set flag: missing key file")
}

// -----------------------------------------------------------------------------
// Utility functions

func startNode(t *testing.T, faucet bool) node.Injector {
	dir := t.TempDir()

	db, err := kv.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	inj := node.NewInjector()
	inj.Inject(db)

	flags := node.FlagSet{"config": dir, "faucet": faucet}

	require.NoError(t, ledgerctrl.NewController().OnStart(flags, inj))
	require.NoError(t, NewController().OnStart(flags, inj))

	return inj
}

type fakeBuilder struct {
	node.Builder

	startFlags []cli.Flag
	names      []string
}

func (b *fakeBuilder) SetStartFlags(flags ...cli.Flag) {
	b.startFlags = append(b.startFlags, flags...)
}

func (b *fakeBuilder) SetCommand(name string) cli.CommandBuilder {
	b.names = append(b.names, name)
	return fakeCommandBuilder{builder: b}
}

func (b *fakeBuilder) MakeAction(node.ActionTemplate) cli.Action {
	return nil
}

type fakeCommandBuilder struct {
	cli.CommandBuilder

	builder *fakeBuilder
}

func (b fakeCommandBuilder) SetSubCommand(name string) cli.CommandBuilder {
	b.builder.names = append(b.builder.names, name)
	return b
}

func (fakeCommandBuilder) SetDescription(string) {}

func (fakeCommandBuilder) SetFlags(...cli.Flag) {}

func (fakeCommandBuilder) SetAction(cli.Action) {}
