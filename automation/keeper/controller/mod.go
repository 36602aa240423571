// Package controller implements the initializer of the keeper that closes the
// rounds of the raffle.
package controller

import (
	"path/filepath"

	"go.dedis.ch/lottery/automation/keeper"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/contracts/raffle"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/txn/signed"
	"go.dedis.ch/lottery/crypto/bls"
	"golang.org/x/xerrors"
)

// KeyFile is the name of the file of the keeper key in the configuration
// folder.
const KeyFile = "keeper.key"

// miniController is an initializer that starts the keeper of the raffle.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new initializer for the keeper.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It defines the start flags of the
// keeper.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.DurationFlag{
			Name:  "keeper-period",
			Usage: "time between two checks of the upkeep",
			Value: keeper.DefaultPeriod,
		},
		cli.BoolFlag{
			Name:  "no-keeper",
			Usage: "do not close the rounds automatically",
		},
	)
}

// OnStart implements node.Initializer. It starts the keeper with its own key
// unless it is disabled.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	if flags.Bool("no-keeper") {
		return nil
	}

	var l *ledger.Ledger
	err := inj.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var contract raffle.Contract
	err = inj.Resolve(&contract)
	if err != nil {
		return xerrors.Errorf("failed to resolve raffle: %v", err)
	}

	signer, err := bls.LoadOrCreateSigner(filepath.Join(flags.Path("config"), KeyFile))
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	mgr := signed.NewManager(signer, l)

	err = mgr.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	var opts []keeper.Option

	if flags.Duration("keeper-period") > 0 {
		opts = append(opts, keeper.WithPeriod(flags.Duration("keeper-period")))
	}

	k := keeper.NewKeeper(contract, l, mgr, opts...)
	k.Start()

	inj.Inject(k)

	return nil
}

// OnStop implements node.Initializer. It stops the keeper if it runs.
func (miniController) OnStop(inj node.Injector) error {
	var k *keeper.Keeper
	err := inj.Resolve(&k)
	if err != nil {
		// The keeper is disabled.
		return nil
	}

	k.Stop()

	return nil
}
