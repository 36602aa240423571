package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/randomness/vrf"
	"go.dedis.ch/lottery/randomness/vrf/types"
	"golang.org/x/xerrors"
)

// pendingAction is an action to list the pending requests.
//
// - implements node.ActionTemplate
type pendingAction struct{}

// Execute implements node.ActionTemplate. It prints one line per pending
// request.
func (pendingAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var coord *vrf.Coordinator
	err = ctx.Injector.Resolve(&coord)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var reqs []types.Request

	err = l.View(func(r store.Readable) error {
		reqs, err = coord.PendingRequests(r)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read requests: %v", err)
	}

	if len(reqs) == 0 {
		fmt.Fprintln(ctx.Out, "no pending request")
		return nil
	}

	for _, req := range reqs {
		fmt.Fprintf(ctx.Out, "#%d consumer=%s subscription=%d confirmations=%d words=%d at=%s\n",
			req.GetID(), req.GetConsumer(), req.GetSubscription(), req.GetConfirmations(),
			req.GetNumWords(), time.Unix(req.GetTimestamp(), 0).UTC().Format(time.RFC3339))
	}

	return nil
}

// fulfillAction is an action to fulfill a request without waiting for the
// fulfiller.
//
// - implements node.ActionTemplate
type fulfillAction struct{}

// Execute implements node.ActionTemplate. It submits the fulfillment of the
// request and prints the outcome.
func (fulfillAction) Execute(ctx node.Context) error {
	var fulfiller *vrf.Fulfiller
	err := ctx.Injector.Resolve(&fulfiller)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	id := ctx.Flags.Int("id")
	if id < 0 {
		return xerrors.Errorf("invalid request id: %d", id)
	}

	receipt, err := fulfiller.Fulfill(context.Background(), uint64(id))
	if err != nil {
		return xerrors.Errorf("failed to fulfill: %v", err)
	}

	if !receipt.Accepted {
		return xerrors.Errorf("fulfillment refused: %s", receipt.Message)
	}

	fmt.Fprintf(ctx.Out, "request %d fulfilled at height %d", id, receipt.Height)

	return nil
}

// subscriptionAction is an action to print a subscription.
//
// - implements node.ActionTemplate
type subscriptionAction struct{}

// Execute implements node.ActionTemplate. It prints the owner, the balance and
// the consumers of the subscription.
func (subscriptionAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var coord *vrf.Coordinator
	err = ctx.Injector.Resolve(&coord)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	id := ctx.Flags.Int("id")
	if id < 0 {
		return xerrors.Errorf("invalid subscription id: %d", id)
	}

	var sub types.Subscription

	err = l.View(func(r store.Readable) error {
		sub, err = coord.GetSubscription(r, uint64(id))
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read subscription: %v", err)
	}

	fmt.Fprintf(ctx.Out, "id: %d\nowner: %s\nbalance: %d\nconsumers: [%s]",
		sub.GetID(), sub.GetOwner(), sub.GetBalance(), strings.Join(sub.GetConsumers(), ", "))

	return nil
}
