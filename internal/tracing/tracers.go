// Package tracing provides the opentracing tracers of the node. The tracers are
// backed by jaeger and configured from the environment (JAEGER_* variables),
// one per service name.
package tracing

import (
	"io"
	"sort"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"golang.org/x/xerrors"
)

const (
	// ContractTag is the span tag holding the contract of a transaction.
	ContractTag = "contract"

	// TransactionTag is the span tag holding the hex identifier of a
	// transaction.
	TransactionTag = "tx"
)

type entry struct {
	tracer opentracing.Tracer
	closer io.Closer
}

// registry holds the tracers created so far.
type registry struct {
	sync.Mutex
	entries map[string]entry
}

var tracers = registry{entries: make(map[string]entry)}

// newTracer creates a jaeger tracer. Tests replace it.
var newTracer = func(service string) (opentracing.Tracer, io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, nil, xerrors.Errorf("invalid jaeger environment: %v", err)
	}

	cfg.ServiceName = service

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, xerrors.Errorf("jaeger: %v", err)
	}

	return tracer, closer, nil
}

// GetTracer returns the tracer of the service, which is created on the first
// call.
func GetTracer(service string) (opentracing.Tracer, error) {
	tracers.Lock()
	defer tracers.Unlock()

	e, found := tracers.entries[service]
	if found {
		return e.tracer, nil
	}

	tracer, closer, err := newTracer(service)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tracer: %v", err)
	}

	tracers.entries[service] = entry{tracer: tracer, closer: closer}

	return tracer, nil
}

// CloseAll flushes and forgets every tracer. The tracers failing to close are
// forgotten as well, and the first failure is returned.
func CloseAll() error {
	tracers.Lock()
	defer tracers.Unlock()

	services := make([]string, 0, len(tracers.entries))
	for service := range tracers.entries {
		services = append(services, service)
	}

	sort.Strings(services)

	var res error

	for _, service := range services {
		err := tracers.entries[service].closer.Close()
		if err != nil && res == nil {
			res = xerrors.Errorf("failed to close tracer of '%s': %v", service, err)
		}

		delete(tracers.entries, service)
	}

	return res
}
