// Package controller implements the initializer of the ledger of the node. It
// also provides the helpers used by the commands of the other controllers to
// read the state and to submit transactions.
package controller

import (
	"context"
	"path/filepath"

	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/store/kv"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/core/txn/signed"
	"go.dedis.ch/lottery/crypto/bls"
	"go.dedis.ch/lottery/internal/tracing"
	"golang.org/x/xerrors"
)

// PrivateKeyFile is the name of the file of the node key in the
// configuration folder.
const PrivateKeyFile = "private.key"

// NodeManager is the transaction manager of the node key. The node key owns
// the subscription of the raffle and deploys it.
type NodeManager struct {
	*signed.TransactionManager
}

// miniController is an initializer that creates the ledger of the node.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new initializer for the ledger.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It defines the command to show the
// state of the ledger.
func (miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("ledger")
	cmd.SetDescription("ledger administration")

	sub := cmd.SetSubCommand("info")
	sub.SetDescription("print the height and the time of the ledger")
	sub.SetAction(builder.MakeAction(infoAction{}))
}

// OnStart implements node.Initializer. It creates the execution service and
// the ledger on top of the database, and injects them alongside the manager
// of the node key.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("failed to resolve db: %v", err)
	}

	signer, err := bls.LoadOrCreateSigner(filepath.Join(flags.Path("config"), PrivateKeyFile))
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	exec := native.NewExecution()

	l := ledger.NewLedger(db, exec)

	mgr := signed.NewManager(signer, l)

	err = mgr.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	inj.Inject(exec)
	inj.Inject(l)
	inj.Inject(NodeManager{TransactionManager: mgr})

	return nil
}

// OnStop implements node.Initializer. It flushes the traces.
func (miniController) OnStop(node.Injector) error {
	err := tracing.CloseAll()
	if err != nil {
		return xerrors.Errorf("failed to close tracers: %v", err)
	}

	return nil
}

// Submit executes a transaction made by the manager and returns an error if
// the ledger refuses it. The manager is synchronized after a refusal.
func Submit(ctx context.Context, l *ledger.Ledger, mgr txn.Manager, args ...txn.Arg) (ledger.Receipt, error) {
	tx, err := mgr.Make(args...)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to make tx: %v", err)
	}

	receipt, err := l.Execute(ctx, tx)
	if err != nil {
		return receipt, xerrors.Errorf("failed to execute tx: %v", err)
	}

	if !receipt.Accepted {
		err = mgr.Sync()
		if err != nil {
			return receipt, xerrors.Errorf("failed to sync manager: %v", err)
		}

		return receipt, xerrors.Errorf("transaction refused: %s", receipt.Message)
	}

	return receipt, nil
}

// SubmitWithKey executes a transaction signed by the key stored in the file.
func SubmitWithKey(ctx node.Context, keyPath string, args ...txn.Arg) (ledger.Receipt, error) {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("injector: %v", err)
	}

	if keyPath == "" {
		return ledger.Receipt{}, xerrors.New("missing key file")
	}

	signer, err := bls.LoadSigner(keyPath)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("signer: %v", err)
	}

	mgr := signed.NewManager(signer, l)

	err = mgr.Sync()
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to sync manager: %v", err)
	}

	return Submit(context.Background(), l, mgr, args...)
}
