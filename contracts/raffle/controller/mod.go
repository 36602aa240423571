// Package controller implements the initializer of the raffle. It deploys the
// raffle on the first start of the node with the preset of the selected
// network, and defines the commands of the participants.
package controller

import (
	"context"
	"encoding/hex"
	"math"
	"strconv"

	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/contracts/raffle"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	ledgerctrl "go.dedis.ch/lottery/core/ledger/controller"
	"go.dedis.ch/lottery/randomness/vrf"
	"golang.org/x/xerrors"
)

// miniController is an initializer that registers the raffle and deploys it.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new initializer for the raffle.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It defines the start flags of the
// deployment and the commands of the raffle.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.StringFlag{
			Name:  "network",
			Usage: "name of the network preset",
			Value: DefaultNetwork,
		},
		cli.StringFlag{
			Name:  "networks",
			Usage: "path to a YAML file of network presets",
		},
		cli.StringFlag{
			Name:  "entrance-fee",
			Usage: "override the entrance fee of the preset",
		},
		cli.DurationFlag{
			Name:  "interval",
			Usage: "override the duration of a round of the preset",
		},
		cli.StringFlag{
			Name:  "key-hash",
			Usage: "override the hex-encoded key hash of the preset",
		},
		cli.IntFlag{
			Name:  "confirmations",
			Usage: "override the request confirmations of the preset",
		},
		cli.IntFlag{
			Name:  "gas-limit",
			Usage: "override the callback gas limit of the preset",
		},
		cli.StringFlag{
			Name:  "fund",
			Usage: "override the amount funded on a new subscription",
		},
	)

	keyFlag := cli.StringFlag{
		Name:     "key",
		Usage:    "path to the file of the private key",
		Required: true,
	}

	cmd := builder.SetCommand("raffle")
	cmd.SetDescription("raffle participation and inspection")

	sub := cmd.SetSubCommand("enter")
	sub.SetDescription("enter the current round")
	sub.SetFlags(keyFlag, cli.StringFlag{
		Name:  "amount",
		Usage: "amount paid, the entrance fee when missing",
	})
	sub.SetAction(builder.MakeAction(enterAction{}))

	sub = cmd.SetSubCommand("info")
	sub.SetDescription("print the state of the raffle")
	sub.SetAction(builder.MakeAction(infoAction{}))

	sub = cmd.SetSubCommand("player")
	sub.SetDescription("print the participant of an entry")
	sub.SetFlags(cli.IntFlag{
		Name:     "index",
		Usage:    "index of the entry",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(playerAction{}))

	sub = cmd.SetSubCommand("check")
	sub.SetDescription("evaluate whether the round can be closed")
	sub.SetAction(builder.MakeAction(checkAction{}))

	sub = cmd.SetSubCommand("upkeep")
	sub.SetDescription("close the round and request the random word")
	sub.SetFlags(keyFlag)
	sub.SetAction(builder.MakeAction(upkeepAction{}))
}

// OnStart implements node.Initializer. It registers the raffle as a consumer
// of the coordinator and deploys it if it does not exist yet.
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

	var b bank.Contract
	err = inj.Resolve(&b)
	if err != nil {
		return xerrors.Errorf("failed to resolve bank: %v", err)
	}

	var coord *vrf.Coordinator
	err = inj.Resolve(&coord)
	if err != nil {
		return xerrors.Errorf("failed to resolve coordinator: %v", err)
	}

	var mgr ledgerctrl.NodeManager
	err = inj.Resolve(&mgr)
	if err != nil {
		return xerrors.Errorf("failed to resolve manager: %v", err)
	}

	contract := raffle.NewContract(b, coord)

	raffle.RegisterContract(exec, contract)
	coord.RegisterConsumer(string(contract.Address()), contract)

	inj.Inject(contract)

	deployed, err := Deployed(l, contract)
	if err != nil {
		return err
	}

	if deployed {
		lottery.Logger.Info().Msg("raffle already deployed")
		return nil
	}

	network, err := selectNetwork(flags)
	if err != nil {
		return xerrors.Errorf("network: %v", err)
	}

	cfg, err := Bootstrap(context.Background(), l, mgr, contract, network)
	if err != nil {
		return xerrors.Errorf("bootstrap: %v", err)
	}

	lottery.Logger.Info().
		Str("network", flags.String("network")).
		Uint64("entranceFee", cfg.EntranceFee).
		Dur("interval", cfg.Interval).
		Uint64("subscription", cfg.SubscriptionID).
		Str("address", string(contract.Address())).
		Msg("raffle bootstrapped")

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}

// selectNetwork returns the preset of the network with the overrides of the
// flags applied.
func selectNetwork(flags cli.Flags) (Network, error) {
	networks, err := LoadNetworks(flags.Path("networks"))
	if err != nil {
		return Network{}, xerrors.Errorf("failed to load presets: %v", err)
	}

	name := flags.String("network")
	if name == "" {
		name = DefaultNetwork
	}

	network, err := networks.Get(name)
	if err != nil {
		return Network{}, err
	}

	if flags.String("entrance-fee") != "" {
		network.EntranceFee, err = strconv.ParseUint(flags.String("entrance-fee"), 10, 64)
		if err != nil {
			return Network{}, xerrors.Errorf("invalid entrance fee: %v", err)
		}
	}

	if flags.String("fund") != "" {
		network.FundAmount, err = strconv.ParseUint(flags.String("fund"), 10, 64)
		if err != nil {
			return Network{}, xerrors.Errorf("invalid fund amount: %v", err)
		}
	}

	if flags.Duration("interval") > 0 {
		network.Interval = flags.Duration("interval")
	}

	if flags.String("key-hash") != "" {
		_, err = hex.DecodeString(flags.String("key-hash"))
		if err != nil {
			return Network{}, xerrors.Errorf("invalid key hash: %v", err)
		}

		network.KeyHash = flags.String("key-hash")
	}

	confirmations, err := boundedFlag(flags, "confirmations", math.MaxUint16)
	if err != nil {
		return Network{}, err
	}

	if confirmations > 0 {
		network.BlockConfirmations = uint16(confirmations)
	}

	gasLimit, err := boundedFlag(flags, "gas-limit", math.MaxUint32)
	if err != nil {
		return Network{}, err
	}

	if gasLimit > 0 {
		network.CallbackGasLimit = uint32(gasLimit)
	}

	return network, nil
}

// boundedFlag returns the value of the integer flag, or an error when it does
// not fit between zero and the maximum.
func boundedFlag(flags cli.Flags, name string, max int64) (int64, error) {
	value := int64(flags.Int(name))
	if value < 0 || value > max {
		return 0, xerrors.Errorf("invalid %s: %d is outside [0, %d]", name, value, max)
	}

	return value, nil
}
