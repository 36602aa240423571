// Package metrics defines the server that exposes the Prometheus collectors of
// the node.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/lottery"
	"golang.org/x/xerrors"
)

// Server defines the primitives of an HTTP server that handles the requests
// of the metrics scrapers.
type Server interface {
	// Listen starts the server. This call is blocking until the server is
	// stopped.
	Listen() error

	// Stop stops the server.
	Stop()

	// RegisterHandler registers a new handler.
	RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request))

	// GetAddr returns the address the server is listening on, or nil if it is
	// not listening yet.
	GetAddr() net.Addr
}

// NewHandler returns an HTTP handler that serves the collectors of the module
// from a dedicated registry.
func NewHandler(collectors ...prometheus.Collector) (http.Handler, error) {
	registry := prometheus.NewRegistry()

	if len(collectors) == 0 {
		collectors = lottery.PromCollectors
	}

	for _, c := range collectors {
		err := registry.Register(c)
		if err != nil {
			return nil, xerrors.Errorf("failed to register collector: %v", err)
		}
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
