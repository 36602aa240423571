package controller

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/automation/keeper"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/contracts/raffle"
	rafflectrl "go.dedis.ch/lottery/contracts/raffle/controller"
	"go.dedis.ch/lottery/core/bank"
	bankctrl "go.dedis.ch/lottery/core/bank/controller"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	ledgerctrl "go.dedis.ch/lottery/core/ledger/controller"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/kv"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/crypto/bls"
	vrfctrl "go.dedis.ch/lottery/randomness/vrf/controller"
)

func TestMiniController_SetCommands(t *testing.T) {
	builder := &fakeBuilder{}

	NewController().SetCommands(builder)

	require.Len(t, builder.startFlags, 2)
}

func TestMiniController_OnStart(t *testing.T) {
	dir := t.TempDir()
	inj := startNode(t, dir)

	flags := node.FlagSet{"config": dir, "keeper-period": float64(10 * time.Millisecond)}

	err := NewController().OnStart(flags, inj)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, KeyFile))

	defer NewController().OnStop(inj)

	var k *keeper.Keeper
	require.NoError(t, inj.Resolve(&k))

	var l *ledger.Ledger
	require.NoError(t, inj.Resolve(&l))

	var contract raffle.Contract
	require.NoError(t, inj.Resolve(&contract))

	key := filepath.Join(dir, "alice.key")
	_, err = bls.LoadOrCreateSigner(key)
	require.NoError(t, err)

	ctx := node.Context{Injector: inj, Flags: node.FlagSet{}}

	_, err = ledgerctrl.SubmitWithKey(ctx, key,
		txn.Arg{Key: native.ContractArg, Value: []byte(bank.ContractName)},
		txn.Arg{Key: bank.CmdArg, Value: []byte(bank.CmdMint)},
		txn.Arg{Key: bank.AmountArg, Value: []byte("1")},
	)
	require.NoError(t, err)

	_, err = ledgerctrl.SubmitWithKey(ctx, key,
		txn.Arg{Key: native.ContractArg, Value: []byte(raffle.ContractName)},
		txn.Arg{Key: raffle.CmdArg, Value: []byte(raffle.CmdEnter)},
		txn.Arg{Key: raffle.AmountArg, Value: []byte("1")},
	)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var state raffle.State

		viewErr := l.View(func(r store.Readable) error {
			var err error
			state, err = contract.State(r)
			return err
		})
		require.NoError(t, viewErr)

		return state == raffle.StateCalculating
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, NewController().OnStop(inj))
}

func TestMiniController_Disabled(t *testing.T) {
	inj := node.NewInjector()

	err := NewController().OnStart(node.FlagSet{"no-keeper": true}, inj)
	require.NoError(t, err)

	var k *keeper.Keeper
	require.Error(t, inj.Resolve(&k))

	require.NoError(t, NewController().OnStop(inj))
}

func TestMiniController_OnStartFailures(t *testing.T) {
	inj := node.NewInjector()

	err := NewController().OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve ledger: couldn't find dependency for '*ledger.Ledger'")

	dir := t.TempDir()
	db := openDB(t, dir)
	inj.Inject(db)

	require.NoError(t, ledgerctrl.NewController().OnStart(node.FlagSet{"config": dir}, inj))

	err = NewController().OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve raffle: couldn't find dependency for 'raffle.Contract'")

	inj = startNode(t, t.TempDir())

	err = NewController().OnStart(node.FlagSet{"config": filepath.Join(dir, "none")}, inj)
	require.Error(t, err)
	require.Contains(t, err.Error(), "signer: failed to load key: ")
}

// -----------------------------------------------------------------------------
// Utility functions

func openDB(t *testing.T, dir string) kv.DB {
	db, err := kv.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func startNode(t *testing.T, dir string) node.Injector {
	inj := node.NewInjector()
	inj.Inject(openDB(t, dir))

	flags := node.FlagSet{
		"config":       dir,
		"faucet":       true,
		"vrf-manual":   true,
		"entrance-fee": "1",
		"interval":     float64(time.Second),
	}

	require.NoError(t, ledgerctrl.NewController().OnStart(flags, inj))
	require.NoError(t, bankctrl.NewController().OnStart(flags, inj))
	require.NoError(t, vrfctrl.NewController().OnStart(flags, inj))
	require.NoError(t, rafflectrl.NewController().OnStart(flags, inj))

	return inj
}

type fakeBuilder struct {
	node.Builder

	startFlags []cli.Flag
}

func (b *fakeBuilder) SetStartFlags(flags ...cli.Flag) {
	b.startFlags = append(b.startFlags, flags...)
}
