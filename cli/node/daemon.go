package node

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/cli"
	"golang.org/x/xerrors"
)

// SocketName is the name of the UNIX socket in the configuration folder.
const SocketName = "daemon.sock"

const ioTimeout = 30 * time.Second

// Request is the message sent by a client to run an action on the daemon.
type Request struct {
	Action uint16
	Flags  FlagSet
}

// reply is a chunk of the answer of the daemon. A reply with an error is always
// the last one of a stream.
type reply struct {
	Output string `json:",omitempty"`
	Error  string `json:",omitempty"`
}

// unixClient sends requests to a daemon listening on a UNIX socket.
//
// - implements node.Client
type unixClient struct {
	path    string
	out     io.Writer
	timeout time.Duration
	dial    func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Send implements node.Client. It writes each output of the action on its own
// line and returns the error of the action if any.
func (c unixClient) Send(req Request) error {
	conn, err := c.dial("unix", c.path, c.timeout)
	if err != nil {
		return xerrors.Errorf("couldn't open connection: %v", err)
	}

	defer conn.Close()

	err = json.NewEncoder(conn).Encode(req)
	if err != nil {
		return xerrors.Errorf("couldn't write to daemon: %v", err)
	}

	dec := json.NewDecoder(conn)

	for {
		var r reply

		err = dec.Decode(&r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xerrors.Errorf("fail to decode reply: %v", err)
		}

		if r.Error != "" {
			return xerrors.New(r.Error)
		}

		fmt.Fprintln(c.out, r.Output)
	}
}

// unixDaemon serves the actions on a UNIX socket so that the permissions of the
// file decide who can control the node.
//
// - implements node.Daemon
type unixDaemon struct {
	sync.WaitGroup

	logger   zerolog.Logger
	path     string
	injector Injector
	actions  *actionMap
	timeout  time.Duration
	closing  chan struct{}
	listen   func(network, addr string) (net.Listener, error)
	dial     func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Listen implements node.Daemon. A socket file left by a node that did not
// stop properly is removed, whereas a socket with a live daemon is an error.
func (d *unixDaemon) Listen() error {
	err := d.clearStaleSocket()
	if err != nil {
		return err
	}

	socket, err := d.listen("unix", d.path)
	if err != nil {
		return xerrors.Errorf("couldn't bind socket: %v", err)
	}

	d.Add(2)

	go func() {
		defer d.Done()

		<-d.closing
		socket.Close()
	}()

	go func() {
		defer d.Done()

		d.serve(socket)
	}()

	d.logger.Info().Msg("daemon is listening")

	return nil
}

func (d *unixDaemon) clearStaleSocket() error {
	_, err := os.Stat(d.path)
	if err != nil {
		return nil
	}

	conn, err := d.dial("unix", d.path, time.Second)
	if err == nil {
		conn.Close()
		return xerrors.Errorf("daemon already running at '%s'", d.path)
	}

	d.logger.Warn().Msg("removing stale socket")

	err = os.Remove(d.path)
	if err != nil {
		return xerrors.Errorf("couldn't remove stale socket: %v", err)
	}

	return nil
}

func (d *unixDaemon) serve(socket net.Listener) {
	for {
		conn, err := socket.Accept()
		if err != nil {
			select {
			case <-d.closing:
			default:
				d.logger.Err(err).Msg("daemon closed unexpectedly")
			}

			return
		}

		d.Add(1)

		go func() {
			defer d.Done()

			d.handleConn(conn)
		}()
	}
}

func (d *unixDaemon) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := d.logger.With().Str("request", xid.New().String()).Logger()

	conn.SetReadDeadline(time.Now().Add(d.timeout))

	var req Request

	err := json.NewDecoder(conn).Decode(&req)
	if err == io.EOF {
		// The client closed the connection without a request, which is how the
		// availability of the daemon is probed.
		return
	}
	if err != nil {
		d.reject(logger, conn, xerrors.Errorf("failed to decode request: %v", err))
		return
	}

	logger.Debug().
		Uint16("action", req.Action).
		Interface("flags", req.Flags).
		Msg("daemon received a request")

	action := d.actions.Get(req.Action)
	if action == nil {
		d.reject(logger, conn, xerrors.Errorf("unknown command '%d'", req.Action))
		return
	}

	if req.Flags == nil {
		req.Flags = make(FlagSet)
	}

	ctx := Context{
		Injector: d.injector,
		Flags:    req.Flags,
		Out:      replyWriter{enc: json.NewEncoder(conn)},
	}

	start := time.Now()

	err = action.Execute(ctx)
	if err != nil {
		d.reject(logger, conn, xerrors.Errorf("command error: %v", err))
		return
	}

	logger.Debug().Dur("took", time.Since(start)).Msg("request done")
}

func (d *unixDaemon) reject(logger zerolog.Logger, conn net.Conn, err error) {
	logger.Debug().Err(err).Msg("request failed")

	err = json.NewEncoder(conn).Encode(reply{Error: err.Error()})
	if err != nil {
		logger.Warn().Err(err).Msg("connection to daemon has error")
	}
}

// Close implements node.Daemon. It waits for the requests in progress and
// removes the socket file.
func (d *unixDaemon) Close() error {
	close(d.closing)
	d.Wait()

	err := os.Remove(d.path)
	if err != nil && !os.IsNotExist(err) {
		return xerrors.Errorf("couldn't remove socket: %v", err)
	}

	return nil
}

// replyWriter sends each write of an action as one reply.
//
// - implements io.Writer
type replyWriter struct {
	enc *json.Encoder
}

// Write implements io.Writer.
func (w replyWriter) Write(data []byte) (int, error) {
	err := w.enc.Encode(reply{Output: string(data)})
	if err != nil {
		return 0, xerrors.Errorf("while packing data: %v", err)
	}

	return len(data), nil
}

// unixFactory creates the daemon and its clients on the socket of the
// configuration folder.
//
// - implements node.DaemonFactory
type unixFactory struct {
	injector Injector
	actions  *actionMap
	out      io.Writer
}

// ClientFromContext implements node.DaemonFactory.
func (f unixFactory) ClientFromContext(flags cli.Flags) (Client, error) {
	return unixClient{
		path:    socketPath(flags),
		out:     f.out,
		timeout: ioTimeout,
		dial:    net.DialTimeout,
	}, nil
}

// DaemonFromContext implements node.DaemonFactory.
func (f unixFactory) DaemonFromContext(flags cli.Flags) (Daemon, error) {
	path := socketPath(flags)

	return &unixDaemon{
		logger:   lottery.Logger.With().Str("daemon", path).Logger(),
		path:     path,
		injector: f.injector,
		actions:  f.actions,
		timeout:  ioTimeout,
		closing:  make(chan struct{}),
		listen:   net.Listen,
		dial:     net.DialTimeout,
	}, nil
}

func socketPath(flags cli.Flags) string {
	return filepath.Join(flags.Path("config"), SocketName)
}
