package controller

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	ledgerctrl "go.dedis.ch/lottery/core/ledger/controller"
	"go.dedis.ch/lottery/core/store/kv"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/crypto/bls"
	"go.dedis.ch/lottery/randomness/vrf"
)

func TestMiniController_SetCommands(t *testing.T) {
	builder := &fakeBuilder{}

	NewController().SetCommands(builder)

	require.Len(t, builder.startFlags, 3)
	require.Equal(t, []string{"vrf", "pending", "fulfill", "subscription"}, builder.names)
}

func TestMiniController_OnStart(t *testing.T) {
	dir := t.TempDir()
	inj := startLedger(t, dir)

	flags := node.FlagSet{
		"config":     dir,
		"vrf-poll":   float64(time.Millisecond),
		"block-time": float64(time.Millisecond),
	}

	err := NewController().OnStart(flags, inj)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, KeyFile))

	var coord *vrf.Coordinator
	require.NoError(t, inj.Resolve(&coord))

	var fulfiller *vrf.Fulfiller
	require.NoError(t, inj.Resolve(&fulfiller))

	require.NoError(t, NewController().OnStop(inj))
	// Stopping twice is allowed.
	require.NoError(t, NewController().OnStop(inj))
}

func TestMiniController_OnStartFailures(t *testing.T) {
	err := NewController().OnStart(node.FlagSet{}, node.NewInjector())
	require.EqualError(t, err,
		"failed to resolve native service: couldn't find dependency for '*native.Service'")

	inj := node.NewInjector()
	inj.Inject(native.NewExecution())

	err = NewController().OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve ledger: couldn't find dependency for '*ledger.Ledger'")

	dir := t.TempDir()

	err = NewController().OnStart(node.FlagSet{"config": filepath.Join(dir, "none")}, startLedger(t, dir))
	require.Error(t, err)
	require.Contains(t, err.Error(), "signer: failed to load key: ")
}

func TestMiniController_OnStop(t *testing.T) {
	err := NewController().OnStop(node.NewInjector())
	require.EqualError(t, err, "injector: couldn't find dependency for '*vrf.Fulfiller'")
}

func TestActions_Subscription(t *testing.T) {
	dir := t.TempDir()
	inj := startNode(t, dir)

	var l *ledger.Ledger
	require.NoError(t, inj.Resolve(&l))

	var mgr ledgerctrl.NodeManager
	require.NoError(t, inj.Resolve(&mgr))

	_, err := ledgerctrl.Submit(context.Background(), l, mgr,
		txn.Arg{Key: native.ContractArg, Value: []byte(vrf.ContractName)},
		txn.Arg{Key: vrf.CmdArg, Value: []byte(vrf.CmdCreateSubscription)},
	)
	require.NoError(t, err)

	signer, err := bls.LoadSigner(filepath.Join(dir, ledgerctrl.PrivateKeyFile))
	require.NoError(t, err)

	owner, err := bank.AddressOf(signer.GetPublicKey())
	require.NoError(t, err)

	out := new(bytes.Buffer)
	ctx := node.Context{Injector: inj, Flags: node.FlagSet{"id": float64(1)}, Out: out}

	require.NoError(t, subscriptionAction{}.Execute(ctx))
	require.Equal(t, "id: 1\nowner: "+string(owner)+"\nbalance: 0\nconsumers: []", out.String())

	ctx.Flags = node.FlagSet{"id": float64(2)}
	err = subscriptionAction{}.Execute(ctx)
	require.EqualError(t, err,
		"failed to read subscription: subscription 2: invalid subscription")

	ctx.Flags = node.FlagSet{"id": float64(-1)}
	err = subscriptionAction{}.Execute(ctx)
	require.EqualError(t, err, "invalid subscription id: -1")
}

func TestActions_Pending(t *testing.T) {
	inj := startNode(t, t.TempDir())

	out := new(bytes.Buffer)
	ctx := node.Context{Injector: inj, Flags: node.FlagSet{}, Out: out}

	require.NoError(t, pendingAction{}.Execute(ctx))
	require.Equal(t, "no pending request\n", out.String())

	ctx.Injector = node.NewInjector()
	err := pendingAction{}.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for '*ledger.Ledger'")
}

func TestActions_Fulfill(t *testing.T) {
	inj := startNode(t, t.TempDir())

	ctx := node.Context{Injector: inj, Flags: node.FlagSet{"id": float64(5)}, Out: new(bytes.Buffer)}

	err := fulfillAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fulfillment refused: failed to FULFILL: ")
	require.Contains(t, err.Error(), vrf.ErrNonexistentRequest.Error())

	ctx.Flags = node.FlagSet{"id": float64(-1)}
	err = fulfillAction{}.Execute(ctx)
	require.EqualError(t, err, "invalid request id: -1")

	ctx.Injector = node.NewInjector()
	err = fulfillAction{}.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for '*vrf.Fulfiller'")
}

// -----------------------------------------------------------------------------
// Utility functions

func startLedger(t *testing.T, dir string) node.Injector {
	db, err := kv.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	inj := node.NewInjector()
	inj.Inject(db)

	require.NoError(t, ledgerctrl.NewController().OnStart(node.FlagSet{"config": dir}, inj))

	return inj
}

func startNode(t *testing.T, dir string) node.Injector {
	inj := startLedger(t, dir)

	require.NoError(t, NewController().OnStart(node.FlagSet{"config": dir, "vrf-manual": true}, inj))

	t.Cleanup(func() { NewController().OnStop(inj) })

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
