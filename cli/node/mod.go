// Package node builds the command line of a lottery node.
//
// The application always has a start command that runs the controllers and
// opens a daemon on a UNIX socket in the configuration folder. Every other
// command is an action forwarded to that daemon, so it runs in the process of
// the node with access to its components through the injector.
package node

import (
	"io"

	"go.dedis.ch/lottery/cli"
)

// Builder is given to the controllers so that they declare their commands.
type Builder interface {
	// SetCommand creates a top-level command and returns its builder.
	SetCommand(name string) cli.CommandBuilder

	// SetStartFlags appends flags to the start command.
	SetStartFlags(...cli.Flag)

	// MakeAction returns a CLI action that runs the template on the daemon.
	MakeAction(ActionTemplate) cli.Action
}

// ActionTemplate is the part of an action executed by the daemon.
type ActionTemplate interface {
	Execute(Context) error
}

// Context is given to an action executed by the daemon. The flags are the ones
// of the command invoked by the client, and what is written to the output is
// printed by the client.
type Context struct {
	Injector Injector
	Flags    cli.Flags
	Out      io.Writer
}

// Injector stores the components of the node so that the actions and the other
// controllers can find them by type.
type Injector interface {
	// Resolve sets the value pointed by the argument to a compatible
	// dependency.
	Resolve(interface{}) error

	// Inject stores a dependency.
	Inject(interface{})
}

// Initializer is implemented by the controllers of the node.
type Initializer interface {
	// SetCommands declares the commands and the start flags of the controller.
	SetCommands(Builder)

	// OnStart creates the components of the controller and injects them.
	OnStart(cli.Flags, Injector) error

	// OnStop releases the components of the controller.
	OnStop(Injector) error
}

// Client sends requests to the daemon.
type Client interface {
	Send(Request) error
}

// Daemon serves the requests of the clients while the node is running.
type Daemon interface {
	Listen() error
	Close() error
}

// DaemonFactory creates the daemon and its clients from the flags.
type DaemonFactory interface {
	ClientFromContext(cli.Flags) (Client, error)
	DaemonFromContext(cli.Flags) (Daemon, error)
}
