// Package controller implements the initializer of the metrics server.
package controller

import (
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/metrics"
	"go.dedis.ch/lottery/metrics/http"
	"golang.org/x/xerrors"
)

// MetricsPath is the path of the handler of the scrapers.
const MetricsPath = "/metrics"

// miniController is an initializer that serves the metrics over HTTP.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new initializer for the metrics.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It defines the start flag of the
// address of the server.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "address of the Prometheus endpoint, disabled when empty",
		},
	)
}

// OnStart implements node.Initializer. It starts the server in a goroutine
// when an address is given.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	addr := flags.String("metrics-addr")
	if addr == "" {
		return nil
	}

	handler, err := metrics.NewHandler()
	if err != nil {
		return xerrors.Errorf("failed to create handler: %v", err)
	}

	srv := http.NewHTTP(addr)
	srv.RegisterHandler(MetricsPath, handler.ServeHTTP)

	go func() {
		err := srv.Listen()
		if err != nil {
			lottery.Logger.Err(err).Msg("metrics server failed")
		}
	}()

	inj.Inject(srv)

	return nil
}

// OnStop implements node.Initializer. It stops the server if it runs.
func (miniController) OnStop(inj node.Injector) error {
	var srv metrics.Server
	err := inj.Resolve(&srv)
	if err != nil {
		// The server is disabled.
		return nil
	}

	srv.Stop()

	return nil
}
