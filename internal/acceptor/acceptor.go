// Package acceptor runs the host's TCP listen loop as a cancellable task,
// forwarding each accepted connection over a small buffered channel (Conns) — the network analogue of the teacher's registerCh/unregisterCh
// pairing in internal/loop/server.
package acceptor

import (
	"context"
	"net"

	"github.com/charmbracelet/log"
	"github.com/coredrift/tilesync/internal/task"
)

// Accepted carries one freshly accepted connection, or the error that ended
// the accept loop.
type Accepted struct {
	Conn net.Conn
	Err  error
}

// Acceptor listens on a single address and hands every accepted connection
// to whoever reads from Conns.
type Acceptor struct {
	listener net.Listener
	conns    chan Accepted
	log      *log.Logger
}

// Listen binds addr and returns an Acceptor ready to be run.
func Listen(addr string, logger *log.Logger) (*Acceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Acceptor{
		listener: ln,
		conns:    make(chan Accepted, 1),
		log:      logger,
	}, nil
}

// Addr returns the bound address, useful when addr was ":0".
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// Conns is the channel every accepted connection (or terminal error) is
// delivered on.
func (a *Acceptor) Conns() <-chan Accepted {
	return a.conns
}

// Close closes the underlying listener, unblocking any in-flight Accept.
func (a *Acceptor) Close() error {
	return a.listener.Close()
}

// Run spawns the accept loop as a cancellable task. Stopping ctx closes the
// listener so the blocking Accept call returns promptly.
func (a *Acceptor) Run(ctx context.Context) *task.Handle {
	return task.Spawn(ctx, func(ctx context.Context) {
		go func() {
			<-ctx.Done()
			a.listener.Close()
		}()

		for {
			conn, err := a.listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				a.log.Error("accept failed", "err", err)
				select {
				case a.conns <- Accepted{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case a.conns <- Accepted{Conn: conn}:
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	})
}
