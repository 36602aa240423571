package controller

import (
	"fmt"
	"strings"
	"time"

	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	"golang.org/x/xerrors"
)

// infoAction is an action to print the state of the ledger.
//
// - implements node.ActionTemplate
type infoAction struct{}

// Execute implements node.ActionTemplate. It prints the height and the time of
// the ledger, followed by the contracts it runs.
func (infoAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	height, err := l.Height()
	if err != nil {
		return xerrors.Errorf("failed to read height: %v", err)
	}

	var exec *native.Service
	err = ctx.Injector.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	fmt.Fprintf(ctx.Out, "height: %d\ntime: %s\ncontracts: %s", height,
		l.Now().UTC().Format(time.RFC3339), strings.Join(exec.Names(), ", "))

	return nil
}
