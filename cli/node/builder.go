package node

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/ucli"
	"golang.org/x/xerrors"
)

const (
	// AppName is the name of the application and the prefix of the
	// environment variables read by the flags.
	AppName = "lottery"

	// DefaultConfig is the default configuration folder of the node.
	DefaultConfig = ".lottery"
)

// Option is the type of the options of the builder.
type Option func(*CLIBuilder)

// WithSignals makes the node stop when the channel receives a value or is
// closed, instead of listening to the interrupt signals.
func WithSignals(sigs chan os.Signal) Option {
	return func(b *CLIBuilder) {
		b.sigs = sigs
		b.notify = false
	}
}

// WithOutput sets the writer of the client output. It defaults to the standard
// output.
func WithOutput(out io.Writer) Option {
	return func(b *CLIBuilder) {
		b.out = out
	}
}

// WithVersion sets the version printed by the application.
func WithVersion(version string) Option {
	return func(b *CLIBuilder) {
		b.version = version
	}
}

// CLIBuilder builds the application of a node made of the given controllers.
//
// - implements node.Builder
// - implements cli.Builder
type CLIBuilder struct {
	*ucli.Builder

	factory    DaemonFactory
	injector   Injector
	actions    *actionMap
	inits      []Initializer
	startFlags []cli.Flag
	out        io.Writer
	version    string

	// notify is false when the owner of the channel stops the node itself.
	notify bool
	sigs   chan os.Signal
}

// NewBuilder returns the builder of a node running the controllers. They are
// started in the order of the list and stopped in the reverse order.
func NewBuilder(inits []Initializer, opts ...Option) *CLIBuilder {
	b := &CLIBuilder{
		injector: NewInjector(),
		actions:  &actionMap{},
		inits:    inits,
		out:      os.Stdout,
		notify:   true,
		sigs:     make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.factory = unixFactory{
		injector: b.injector,
		actions:  b.actions,
		out:      b.out,
	}

	b.Builder = ucli.NewBuilder(AppName,
		ucli.WithUsage("run and control a lottery node"),
		ucli.WithVersion(b.version),
		ucli.WithEnvPrefix(AppName),
		ucli.WithFlags(cli.StringFlag{
			Name:  "config",
			Usage: "path to the config folder",
			Value: DefaultConfig,
		}),
	)

	return b
}

// SetStartFlags implements node.Builder.
func (b *CLIBuilder) SetStartFlags(flags ...cli.Flag) {
	b.startFlags = append(b.startFlags, flags...)
}

// MakeAction implements node.Builder. The returned action packs the flags of
// the command and its ancestors and sends them to the daemon.
func (b *CLIBuilder) MakeAction(tmpl ActionTemplate) cli.Action {
	index := b.actions.Set(tmpl)

	return func(flags cli.Flags) error {
		client, err := b.factory.ClientFromContext(flags)
		if err != nil {
			return xerrors.Errorf("couldn't make client: %v", err)
		}

		req := Request{
			Action: index,
			Flags:  newFlagSet(flags),
		}

		err = client.Send(req)
		if err != nil {
			return xerrors.Opaque(err)
		}

		return nil
	}
}

// Build implements cli.Builder. The controllers declare their commands before
// the start command is created with the flags they asked for.
func (b *CLIBuilder) Build() cli.Application {
	for _, ctrl := range b.inits {
		ctrl.SetCommands(b)
	}

	cmd := b.SetCommand("start")
	cmd.SetDescription("start the node")
	cmd.SetFlags(b.startFlags...)
	cmd.SetAction(b.start)

	return b.Builder.Build()
}

func (b *CLIBuilder) start(flags cli.Flags) error {
	if b.notify {
		signal.Notify(b.sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(b.sigs)
	}

	dir := flags.Path("config")
	if dir != "" {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return xerrors.Errorf("couldn't make path: %v", err)
		}
	}

	daemon, err := b.factory.DaemonFromContext(flags)
	if err != nil {
		return xerrors.Errorf("couldn't make daemon: %v", err)
	}

	for i, ctrl := range b.inits {
		err = ctrl.OnStart(flags, b.injector)
		if err != nil {
			b.rollback(i)
			return xerrors.Errorf("couldn't run the controller: %v", err)
		}
	}

	// The daemon accepts requests only once every component is running.
	err = daemon.Listen()
	if err != nil {
		b.rollback(len(b.inits))
		return xerrors.Errorf("couldn't start the daemon: %v", err)
	}

	lottery.Logger.Info().Str("config", dir).Msg("node started")

	<-b.sigs

	err = daemon.Close()
	if err != nil {
		lottery.Logger.Warn().Err(err).Msg("daemon did not close properly")
	}

	for i := len(b.inits) - 1; i >= 0; i-- {
		err = b.inits[i].OnStop(b.injector)
		if err != nil {
			return xerrors.Errorf("couldn't stop controller: %v", err)
		}
	}

	lottery.Logger.Info().Msg("node stopped")

	return nil
}

// rollback stops the first n controllers, in reverse order, after a failure
// during the start.
func (b *CLIBuilder) rollback(n int) {
	for i := n - 1; i >= 0; i-- {
		err := b.inits[i].OnStop(b.injector)
		if err != nil {
			lottery.Logger.Warn().Err(err).Int("controller", i).
				Msg("controller failed to stop")
		}
	}
}

// actionMap assigns to each action the index used in the requests.
type actionMap struct {
	list []ActionTemplate
}

func (m *actionMap) Set(a ActionTemplate) uint16 {
	m.list = append(m.list, a)
	return uint16(len(m.list) - 1)
}

func (m *actionMap) Get(index uint16) ActionTemplate {
	if int(index) >= len(m.list) {
		return nil
	}

	return m.list[index]
}
