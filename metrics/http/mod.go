// Package http implements the metrics server over HTTP.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/lottery"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0

	shutdownTimeout = 10 * time.Second
)

// HTTP is a metrics server over HTTP.
//
// - implements metrics.Server
type HTTP struct {
	sync.Mutex

	mux        *http.ServeMux
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	quit       chan struct{}
	once       sync.Once
}

// NewHTTP creates a new server that will listen on the address. An empty
// address picks a random port.
func NewHTTP(listenAddr string) *HTTP {
	logger := lottery.Logger.With().Str("role", "metrics").Logger()

	mux := http.NewServeMux()

	return &HTTP{
		mux: mux,
		server: &http.Server{
			Handler:           tracing(logging(logger)(mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:     logger,
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
	}
}

// Listen implements metrics.Server. It blocks until the server is stopped.
func (h *HTTP) Listen() error {
	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to listen")
		return xerrors.Errorf("failed to create conn '%s': %v", h.listenAddr, err)
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-h.quit
		h.logger.Info().Msg("server is shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		h.server.SetKeepAlivesEnabled(false)

		err := h.server.Shutdown(ctx)
		if err != nil {
			h.logger.Err(err).Msg("could not gracefully shutdown the server")
		}
	}()

	h.logger.Info().Stringer("addr", ln.Addr()).Msg("server is ready to handle requests")

	err = h.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return xerrors.Errorf("failed to serve: %v", err)
	}

	<-done
	h.logger.Info().Msg("server stopped")

	return nil
}

// Stop implements metrics.Server. It can be called multiple times.
func (h *HTTP) Stop() {
	h.once.Do(func() {
		close(h.quit)
	})
}

// RegisterHandler implements metrics.Server.
func (h *HTTP) RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request)) {
	h.mux.HandleFunc(path, handler)
}

// GetAddr implements metrics.Server.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// logging logs every request handled by the server.
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}

				logger.Debug().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).
					Msg("request handled")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// tracing attaches a request identifier to the request and the response.
func tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = xid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
