package controller

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/kv"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/crypto/bls"
	"go.dedis.ch/lottery/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestMiniController_SetCommands(t *testing.T) {
	builder := &fakeBuilder{}

	NewController().SetCommands(builder)

	require.Equal(t, []string{"ledger", "info"}, builder.names)
}

func TestMiniController_OnStart(t *testing.T) {
	dir := t.TempDir()
	inj := makeInjector(t, dir)

	err := NewController().OnStart(node.FlagSet{"config": dir}, inj)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, PrivateKeyFile))

	var l *ledger.Ledger
	require.NoError(t, inj.Resolve(&l))

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	var mgr NodeManager
	require.NoError(t, inj.Resolve(&mgr))

	require.NoError(t, NewController().OnStop(inj))

	err = NewController().OnStart(node.FlagSet{}, node.NewInjector())
	require.EqualError(t, err, "failed to resolve db: couldn't find dependency for 'kv.DB'")

	err = NewController().OnStart(node.FlagSet{"config": filepath.Join(dir, "none")}, inj)
	require.Error(t, err)
	require.Contains(t, err.Error(), "signer: failed to load key: ")
}

func TestInfoAction_Execute(t *testing.T) {
	dir := t.TempDir()
	inj := makeInjector(t, dir)

	require.NoError(t, NewController().OnStart(node.FlagSet{"config": dir}, inj))

	out := new(bytes.Buffer)
	ctx := node.Context{Injector: inj, Flags: node.FlagSet{}, Out: out}

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))
	exec.Set("fake", fakeContract{})

	err := infoAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Contains(t, out.String(), "height: 0\ntime: ")
	require.Contains(t, out.String(), "\ncontracts: fake")

	ctx.Injector = node.NewInjector()
	err = infoAction{}.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for '*ledger.Ledger'")
}

func TestSubmit(t *testing.T) {
	dir := t.TempDir()
	inj := makeInjector(t, dir)

	require.NoError(t, NewController().OnStart(node.FlagSet{"config": dir}, inj))

	var l *ledger.Ledger
	require.NoError(t, inj.Resolve(&l))

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	exec.Set("fake", fakeContract{})

	var mgr NodeManager
	require.NoError(t, inj.Resolve(&mgr))

	receipt, err := Submit(context.Background(), l, mgr, makeArgs("ok")...)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)
	require.Equal(t, uint64(1), receipt.Height)

	_, err = Submit(context.Background(), l, mgr, makeArgs("refuse")...)
	require.EqualError(t, err, "transaction refused: refused by contract")

	// The manager is synchronized after the refusal.
	_, err = Submit(context.Background(), l, mgr, makeArgs("ok")...)
	require.NoError(t, err)

	_, err = Submit(context.Background(), l, badManager{}, makeArgs("ok")...)
	require.EqualError(t, err, fake.Err("failed to make tx"))
}

func TestSubmitWithKey(t *testing.T) {
	dir := t.TempDir()
	inj := makeInjector(t, dir)

	require.NoError(t, NewController().OnStart(node.FlagSet{"config": dir}, inj))

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	exec.Set("fake", fakeContract{})

	keyPath := filepath.Join(dir, "user.key")
	_, err := bls.LoadOrCreateSigner(keyPath)
	require.NoError(t, err)

	ctx := node.Context{Injector: inj, Flags: node.FlagSet{}, Out: new(bytes.Buffer)}

	for i := 0; i < 2; i++ {
		receipt, err := SubmitWithKey(ctx, keyPath, makeArgs("ok")...)
		require.NoError(t, err)
		require.True(t, receipt.Accepted)
	}

	_, err = SubmitWithKey(ctx, "", makeArgs("ok")...)
	require.EqualError(t, err, "missing key file")

	_, err = SubmitWithKey(ctx, filepath.Join(dir, "unknown.key"), makeArgs("ok")...)
	require.Error(t, err)
	require.Contains(t, err.Error(), "signer: failed to load key: ")

	ctx.Injector = node.NewInjector()
	_, err = SubmitWithKey(ctx, keyPath, makeArgs("ok")...)
	require.EqualError(t, err, "injector: couldn't find dependency for '*ledger.Ledger'")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeInjector(t *testing.T, dir string) node.Injector {
	db, err := kv.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	inj := node.NewInjector()
	inj.Inject(db)

	return inj
}

func makeArgs(value string) []txn.Arg {
	return []txn.Arg{
		{Key: native.ContractArg, Value: []byte("fake")},
		{Key: "fake:value", Value: []byte(value)},
	}
}

type fakeContract struct{}

func (fakeContract) Execute(snap store.Snapshot, step execution.Step) error {
	if string(step.Current.GetArg("fake:value")) == "refuse" {
		return xerrors.New("refused by contract")
	}

	return nil
}

func (fakeContract) UID() string {
	return "FAKE"
}

type badManager struct {
	txn.Manager
}

func (badManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	return nil, fake.GetError()
}

type fakeBuilder struct {
	node.Builder

	names []string
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
