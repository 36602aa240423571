// Package controller implements the initializer of the randomness coordinator
// and of the worker that fulfills its requests.
package controller

import (
	"path/filepath"

	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/txn/signed"
	"go.dedis.ch/lottery/crypto/bls"
	"go.dedis.ch/lottery/randomness/vrf"
	"golang.org/x/xerrors"
)

// KeyFile is the name of the file of the coordinator key in the
// configuration folder. The key proves the randomness and signs the
// fulfillments.
const KeyFile = "vrf.key"

// miniController is an initializer that registers the coordinator and starts
// the fulfiller.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new initializer for the coordinator.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It defines the start flags of the
// fulfiller and the commands to inspect and fulfill the requests.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.DurationFlag{
			Name:  "vrf-poll",
			Usage: "time between two polls of the pending requests",
			Value: vrf.DefaultPollPeriod,
		},
		cli.DurationFlag{
			Name:  "block-time",
			Usage: "duration of a confirmation",
			Value: vrf.DefaultBlockTime,
		},
		cli.BoolFlag{
			Name:  "vrf-manual",
			Usage: "do not fulfill the requests automatically",
		},
	)

	cmd := builder.SetCommand("vrf")
	cmd.SetDescription("randomness coordinator")

	sub := cmd.SetSubCommand("pending")
	sub.SetDescription("list the requests waiting for a fulfillment")
	sub.SetAction(builder.MakeAction(pendingAction{}))

	sub = cmd.SetSubCommand("fulfill")
	sub.SetDescription("fulfill a pending request")
	sub.SetFlags(cli.IntFlag{
		Name:     "id",
		Usage:    "identifier of the request",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(fulfillAction{}))

	sub = cmd.SetSubCommand("subscription")
	sub.SetDescription("print a subscription")
	sub.SetFlags(cli.IntFlag{
		Name:     "id",
		Usage:    "identifier of the subscription",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(subscriptionAction{}))
}

// OnStart implements node.Initializer. It registers the coordinator and
// starts the fulfiller unless the manual mode is set.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	var l *ledger.Ledger
	err = inj.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	signer, err := bls.LoadOrCreateSigner(filepath.Join(flags.Path("config"), KeyFile))
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	coord := vrf.NewCoordinator(signer, vrf.DefaultConfig())

	vrf.RegisterContract(exec, coord)

	mgr := signed.NewManager(signer, l)

	err = mgr.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	var opts []vrf.FulfillerOption

	if flags.Duration("vrf-poll") > 0 {
		opts = append(opts, vrf.WithPollPeriod(flags.Duration("vrf-poll")))
	}

	if flags.Duration("block-time") > 0 {
		opts = append(opts, vrf.WithBlockTime(flags.Duration("block-time")))
	}

	fulfiller := vrf.NewFulfiller(coord, l, mgr, opts...)

	if !flags.Bool("vrf-manual") {
		fulfiller.Start()
	}

	inj.Inject(coord)
	inj.Inject(fulfiller)

	return nil
}

// OnStop implements node.Initializer. It stops the fulfiller.
func (miniController) OnStop(inj node.Injector) error {
	var fulfiller *vrf.Fulfiller
	err := inj.Resolve(&fulfiller)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	fulfiller.Stop()

	return nil
}
