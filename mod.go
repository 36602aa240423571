// Package lottery defines the logger and the metrics shared by the packages of
// the module.
package lottery

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

// Version is the version of the node, set at build time with
//
//	go build -ldflags "-X go.dedis.ch/lottery.Version=v1.0.0"
var Version = "dev"

func init() {
	Logger = Logger.Level(ParseLevel(os.Getenv(EnvLogLevel)))
}

// ParseLevel returns the logging level of the name. An empty name is the
// default level and an unknown one enables every log.
func ParseLevel(name string) zerolog.Level {
	switch name {
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "":
		return defaultLevel
	default:
		return zerolog.TraceLevel
	}
}

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance. By default, it only prints
// info level logs, but it can be changed through the LLVL environment
// variable.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger()

// PromCollectors exposes Prometheus collectors created in the packages. A
// package registers its collectors in an init() so that the metrics controller
// can expose all of them.
var PromCollectors []prometheus.Collector
