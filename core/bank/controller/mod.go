// Package controller implements the initializer of the bank contract, and the
// commands to fund and inspect the accounts.
package controller

import (
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution/native"
	"golang.org/x/xerrors"
)

// miniController is an initializer that registers the bank contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new initializer for the bank.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It defines the start flag of the
// faucet and the commands of the bank.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.BoolFlag{
			Name:  "faucet",
			Usage: "allow anyone to mint funds on its own account",
		},
	)

	keyFlag := cli.StringFlag{
		Name:     "key",
		Usage:    "path to the file of the private key",
		Required: true,
	}

	cmd := builder.SetCommand("account")
	cmd.SetDescription("participant keys")

	sub := cmd.SetSubCommand("new")
	sub.SetDescription("create a new key and print the address of its account")
	sub.SetFlags(keyFlag)
	sub.SetAction(builder.MakeAction(newAccountAction{}))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the address of the account of a key")
	sub.SetFlags(keyFlag)
	sub.SetAction(builder.MakeAction(showAccountAction{}))

	cmd = builder.SetCommand("bank")
	cmd.SetDescription("bank administration")

	sub = cmd.SetSubCommand("mint")
	sub.SetDescription("mint funds on the account of the key")
	sub.SetFlags(keyFlag, cli.StringFlag{
		Name:     "amount",
		Usage:    "amount to mint",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(mintAction{}))

	sub = cmd.SetSubCommand("balance")
	sub.SetDescription("print the balance of an account")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "address",
			Usage: "address of the account",
		},
		cli.StringFlag{
			Name:  "key",
			Usage: "path to the file of the private key owning the account",
		},
	)
	sub.SetAction(builder.MakeAction(balanceAction{}))

	sub = cmd.SetSubCommand("reject")
	sub.SetDescription("set whether the account refuses incoming transfers")
	sub.SetFlags(keyFlag, cli.BoolFlag{
		Name:  "reject",
		Usage: "refuse the transfers when set",
	})
	sub.SetAction(builder.MakeAction(rejectAction{}))
}

// OnStart implements node.Initializer. It registers the bank to the execution
// service and injects it.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	contract := bank.NewContract(flags.Bool("faucet"))

	bank.RegisterContract(exec, contract)

	inj.Inject(contract)

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}
