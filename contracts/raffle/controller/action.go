package controller

import (
	"fmt"
	"strconv"
	"time"

	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/contracts/raffle"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	ledgerctrl "go.dedis.ch/lottery/core/ledger/controller"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
	"golang.org/x/xerrors"
)

// resolve returns the ledger and the raffle of the node.
func resolve(ctx node.Context) (*ledger.Ledger, raffle.Contract, error) {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return nil, raffle.Contract{}, xerrors.Errorf("injector: %v", err)
	}

	var contract raffle.Contract
	err = ctx.Injector.Resolve(&contract)
	if err != nil {
		return nil, raffle.Contract{}, xerrors.Errorf("injector: %v", err)
	}

	return l, contract, nil
}

// enterAction is an action to enter the current round.
//
// - implements node.ActionTemplate
type enterAction struct{}

// Execute implements node.ActionTemplate. It submits an entry signed by the
// key. The entrance fee is paid when no amount is given.
func (enterAction) Execute(ctx node.Context) error {
	l, contract, err := resolve(ctx)
	if err != nil {
		return err
	}

	amount := ctx.Flags.String("amount")

	if amount == "" {
		var fee uint64

		err = l.View(func(r store.Readable) error {
			fee, err = contract.EntranceFee(r)
			return err
		})
		if err != nil {
			return xerrors.Errorf("failed to read entrance fee: %v", err)
		}

		amount = strconv.FormatUint(fee, 10)
	}

	_, err = strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid amount '%s': %v", amount, err)
	}

	receipt, err := ledgerctrl.SubmitWithKey(ctx, ctx.Flags.Path("key"),
		txn.Arg{Key: native.ContractArg, Value: []byte(raffle.ContractName)},
		txn.Arg{Key: raffle.CmdArg, Value: []byte(raffle.CmdEnter)},
		txn.Arg{Key: raffle.AmountArg, Value: []byte(amount)},
	)
	if err != nil {
		return xerrors.Errorf("failed to enter: %v", err)
	}

	fmt.Fprintf(ctx.Out, "entered with %s at height %d", amount, receipt.Height)

	return nil
}

// infoAction is an action to print the state of the raffle.
//
// - implements node.ActionTemplate
type infoAction struct{}

// Execute implements node.ActionTemplate. It prints the round and the result
// of the last one.
func (infoAction) Execute(ctx node.Context) error {
	l, contract, err := resolve(ctx)
	if err != nil {
		return err
	}

	err = l.View(func(r store.Readable) error {
		round, err := contract.GetRound(r)
		if err != nil {
			return err
		}

		balance, err := contract.Balance(r)
		if err != nil {
			return err
		}

		winner := round.GetRecentWinner()
		if winner == "" {
			winner = "none"
		}

		fmt.Fprintf(ctx.Out, "address: %s\n", contract.Address())
		fmt.Fprintf(ctx.Out, "state: %s\n", round.GetState())
		fmt.Fprintf(ctx.Out, "entrance fee: %d\n", round.GetEntranceFee())
		fmt.Fprintf(ctx.Out, "interval: %s\n", round.GetInterval())
		fmt.Fprintf(ctx.Out, "players: %d\n", len(round.GetPlayers()))
		fmt.Fprintf(ctx.Out, "balance: %d\n", balance)
		fmt.Fprintf(ctx.Out, "last timestamp: %s\n", round.GetLastTimestamp().UTC().Format(time.RFC3339))

		if round.GetState() == raffle.StateCalculating {
			fmt.Fprintf(ctx.Out, "pending request: %d\n", round.GetPendingRequest())
		}

		fmt.Fprintf(ctx.Out, "recent winner: %s", winner)

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to read raffle: %v", err)
	}

	return nil
}

// playerAction is an action to print the participant of an entry.
//
// - implements node.ActionTemplate
type playerAction struct{}

// Execute implements node.ActionTemplate.
func (playerAction) Execute(ctx node.Context) error {
	l, contract, err := resolve(ctx)
	if err != nil {
		return err
	}

	err = l.View(func(r store.Readable) error {
		player, err := contract.Player(r, ctx.Flags.Int("index"))
		if err != nil {
			return err
		}

		fmt.Fprint(ctx.Out, player)

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to read player: %v", err)
	}

	return nil
}

// checkAction is an action to evaluate the upkeep condition.
//
// - implements node.ActionTemplate
type checkAction struct{}

// Execute implements node.ActionTemplate. It prints whether the round can be
// closed at the current time of the ledger.
func (checkAction) Execute(ctx node.Context) error {
	l, contract, err := resolve(ctx)
	if err != nil {
		return err
	}

	var needed bool

	err = l.View(func(r store.Readable) error {
		needed, err = contract.CheckUpkeep(r, l.Now())
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to check upkeep: %v", err)
	}

	fmt.Fprintf(ctx.Out, "upkeep needed: %t", needed)

	return nil
}

// upkeepAction is an action to close the round manually.
//
// - implements node.ActionTemplate
type upkeepAction struct{}

// Execute implements node.ActionTemplate. It submits the upkeep signed by the
// key.
func (upkeepAction) Execute(ctx node.Context) error {
	_, contract, err := resolve(ctx)
	if err != nil {
		return err
	}

	receipt, err := ledgerctrl.SubmitWithKey(ctx, ctx.Flags.Path("key"), contract.UpkeepArgs()...)
	if err != nil {
		return xerrors.Errorf("failed to perform upkeep: %v", err)
	}

	fmt.Fprintf(ctx.Out, "upkeep performed at height %d", receipt.Height)

	return nil
}
