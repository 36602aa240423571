// Package native implements the execution service of the contracts compiled
// into the node.
//
// A transaction names its contract with the ContractArg argument. Each
// contract owns the keys of the store starting with its 4-bytes UID, so two
// registered contracts can never share a UID.
package native

import (
	"sort"

	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/store"
	"golang.org/x/xerrors"
)

// ContractArg is the argument of a transaction holding the contract name.
const ContractArg = "go.dedis.ch/lottery.ContractArg"

// UIDLength is the size of the key prefix of a contract.
const UIDLength = 4

// Contract is the interface implemented by the native contracts.
type Contract interface {
	// Execute applies the transaction of the step to the snapshot. An error
	// rejects the transaction.
	Execute(store.Snapshot, execution.Step) error

	// UID returns the key prefix of the contract.
	UID() string
}

// Service dispatches the transactions to the registered contracts.
//
// - implements execution.Service
type Service struct {
	byName map[string]Contract
	owners map[string]string
}

// NewExecution returns a service without any contract.
func NewExecution() *Service {
	return &Service{
		byName: make(map[string]Contract),
		owners: make(map[string]string),
	}
}

// Set registers the contract under the name. It panics when either the name
// or the UID is already taken, or when the UID has the wrong size, as the
// contracts are registered once when the node starts.
func (s *Service) Set(name string, contract Contract) {
	_, found := s.byName[name]
	if found {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	uid := contract.UID()
	if len(uid) != UIDLength {
		panic(xerrors.Errorf("contract '%s' has a UID of %d bytes", name, len(uid)))
	}

	owner, found := s.owners[uid]
	if found {
		panic(xerrors.Errorf("contract '%s' uses the UID of '%s'", name, owner))
	}

	s.byName[name] = contract
	s.owners[uid] = name
}

// Get returns the contract registered under the name, or nil.
func (s *Service) Get(name string) Contract {
	return s.byName[name]
}

// Names returns the sorted names of the registered contracts.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Execute implements execution.Service. A failing or panicking contract
// rejects the transaction with the reason as the message; only an unknown
// contract is an error.
func (s *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract, found := s.byName[name]
	if !found {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	err := run(contract, snap, step)
	if err != nil {
		return execution.Result{Message: err.Error()}, nil
	}

	return execution.Result{Accepted: true}, nil
}

func run(contract Contract, snap store.Snapshot, step execution.Step) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = xerrors.Errorf("contract panicked: %v", r)
		}
	}()

	return contract.Execute(snap, step)
}
