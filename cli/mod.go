// Package cli defines the abstractions used by the lottery node to describe its
// command line. Controllers only see these interfaces, so the library parsing
// the arguments can be replaced without touching them.
//
//	cmd := builder.SetCommand("raffle")
//	cmd.SetDescription("interact with the raffle")
//
//	sub := cmd.SetSubCommand("enter")
//	sub.SetFlags(cli.StringFlag{Name: "key", Required: true})
//	sub.SetAction(func(flags cli.Flags) error {
//		return enter(flags.String("key"))
//	})
//
// The ucli package provides the implementation based on urfave/cli.
package cli

import (
	"time"
)

// Builder creates the commands of an application and returns it once complete.
type Builder interface {
	// SetCommand creates a top-level command and returns its builder.
	SetCommand(name string) CommandBuilder

	// Build returns the application.
	Build() Application
}

// Application runs the command line described by the arguments.
type Application interface {
	Run(arguments []string) error
}

// CommandBuilder sets the properties of a single command.
type CommandBuilder interface {
	// SetDescription sets the one-line usage of the command.
	SetDescription(value string)

	// SetFlags sets the flags of the command.
	SetFlags(...Flag)

	// SetAction sets the function invoked by the command.
	SetAction(Action)

	// SetSubCommand creates a subcommand and returns its builder.
	SetSubCommand(name string) CommandBuilder
}

// Action is a function executed when a command is invoked.
type Action func(Flags) error

// Flag is the definition of a flag.
type Flag interface {
	Flag()
}

// NamedFlag is a flag definition that exposes its name.
type NamedFlag interface {
	Flag

	FlagName() string
}

// Flags gives access to the values of the flags of a command.
type Flags interface {
	String(name string) string

	StringSlice(name string) []string

	Duration(name string) time.Duration

	Path(name string) string

	Int(name string) int

	Bool(name string) bool
}
