// Package ucli implements the cli builder with the urfave/cli library.
//
// Flags can fall back to environment variables: a flag with an explicit Env
// reads that variable, and when the builder has a prefix every other flag reads
// PREFIX_NAME where NAME is the flag name in upper case with dashes replaced by
// underscores.
package ucli

import (
	"fmt"
	"strings"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/lottery/cli"
)

// Option is the type of the options to configure the builder.
type Option func(*Builder)

// WithUsage sets the description displayed by the help of the application.
func WithUsage(usage string) Option {
	return func(b *Builder) {
		b.usage = usage
	}
}

// WithVersion sets the version displayed by the application.
func WithVersion(version string) Option {
	return func(b *Builder) {
		b.version = version
	}
}

// WithEnvPrefix enables the environment variable fallback for every flag.
func WithEnvPrefix(prefix string) Option {
	return func(b *Builder) {
		b.envPrefix = prefix
	}
}

// WithAction sets the action run when no command is given.
func WithAction(action cli.Action) Option {
	return func(b *Builder) {
		b.action = action
	}
}

// WithFlags appends global flags available to every command.
func WithFlags(flags ...cli.Flag) Option {
	return func(b *Builder) {
		b.flags = append(b.flags, flags...)
	}
}

// Builder is a cli builder producing an urfave application.
//
// - implements cli.Builder
type Builder struct {
	name      string
	usage     string
	version   string
	envPrefix string
	action    cli.Action
	flags     []cli.Flag
	commands  []*cmdBuilder
}

// NewBuilder returns a builder for an application with the given name.
func NewBuilder(name string, opts ...Option) *Builder {
	b := &Builder{
		name: name,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// SetCommand implements cli.Builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &cmdBuilder{name: name}
	b.commands = append(b.commands, cmd)

	return cmd
}

// Build implements cli.Builder. It converts the definitions and returns the
// application ready to run.
func (b *Builder) Build() cli.Application {
	app := &urfave.App{
		Name:     b.name,
		Usage:    b.usage,
		Version:  b.version,
		Flags:    b.convertFlags(b.flags),
		Action:   makeAction(b.action),
		Commands: b.convertCommands(b.commands),
	}

	if b.version == "" {
		app.HideVersion = true
	}

	app.Setup()

	return app
}

func (b *Builder) convertCommands(cmds []*cmdBuilder) []*urfave.Command {
	res := make([]*urfave.Command, 0, len(cmds))

	for _, cmd := range cmds {
		res = append(res, &urfave.Command{
			Name:        cmd.name,
			Usage:       cmd.description,
			Flags:       b.convertFlags(cmd.flags),
			Action:      makeAction(cmd.action),
			Subcommands: b.convertCommands(cmd.subcommands),
		})
	}

	return res
}

func (b *Builder) convertFlags(flags []cli.Flag) []urfave.Flag {
	res := make([]urfave.Flag, 0, len(flags))

	for _, flag := range flags {
		res = append(res, b.convertFlag(flag))
	}

	return res
}

// convertFlag panics when the definition is unknown, which is a programming
// error of the controller declaring it.
func (b *Builder) convertFlag(f cli.Flag) urfave.Flag {
	switch e := f.(type) {
	case cli.StringFlag:
		return &urfave.StringFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			Value:    e.Value,
			EnvVars:  b.envVars(e.Name, e.Env),
		}
	case cli.StringSliceFlag:
		return &urfave.StringSliceFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			Value:    urfave.NewStringSlice(e.Value...),
			EnvVars:  b.envVars(e.Name, e.Env),
		}
	case cli.DurationFlag:
		return &urfave.DurationFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			Value:    e.Value,
			EnvVars:  b.envVars(e.Name, e.Env),
		}
	case cli.IntFlag:
		return &urfave.IntFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			Value:    e.Value,
			EnvVars:  b.envVars(e.Name, e.Env),
		}
	case cli.BoolFlag:
		return &urfave.BoolFlag{
			Name:     e.Name,
			Usage:    e.Usage,
			Required: e.Required,
			Value:    e.Value,
			EnvVars:  b.envVars(e.Name, e.Env),
		}
	default:
		panic(fmt.Sprintf("unsupported flag '%T'", f))
	}
}

func (b *Builder) envVars(name, explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}

	if b.envPrefix == "" {
		return nil
	}

	return []string{EnvName(b.envPrefix, name)}
}

// EnvName returns the environment variable associated with a flag name.
func EnvName(prefix, name string) string {
	name = strings.ReplaceAll(name, "-", "_")

	return strings.ToUpper(prefix + "_" + name)
}

// cmdBuilder collects the definition of a command.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []cli.Flag
	subcommands []*cmdBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = flags
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *cmdBuilder) SetSubCommand(name string) cli.CommandBuilder {
	sub := &cmdBuilder{name: name}
	b.subcommands = append(b.subcommands, sub)

	return sub
}

func makeAction(action cli.Action) urfave.ActionFunc {
	if action == nil {
		return nil
	}

	return func(ctx *urfave.Context) error {
		return action(ctx)
	}
}
