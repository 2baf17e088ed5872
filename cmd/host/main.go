// Command host runs the authoritative process: it accepts participant
// connections on a TCP address and arbitrates the shared world.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coredrift/tilesync/internal/acceptor"
	"github.com/coredrift/tilesync/internal/arbiter"
	"github.com/coredrift/tilesync/internal/config"
	"github.com/coredrift/tilesync/internal/hostlog"
	"github.com/coredrift/tilesync/internal/session"
	"github.com/coredrift/tilesync/internal/wire"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 15 * time.Second

func main() {
	logger := hostlog.New("host")

	addr := config.GetEnv("TILESYNC_HOST_ADDR", ":4921")
	shutdownTimeout := config.GetEnvDuration("TILESYNC_SHUTDOWN_TIMEOUT", defaultShutdownTimeout)

	ab := arbiter.New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	arbiterHandle := ab.Run(ctx)

	if config.GetEnv("TILESYNC_LOCAL_PARTICIPANT", "") != "" {
		runHostLocalParticipant(ctx, ab, logger)
	}

	acc, err := acceptor.Listen(addr, logger)
	if err != nil {
		logger.Fatal("failed to listen", "addr", addr, "err", err)
	}
	logger.Info("listening", "addr", acc.Addr())
	acceptorHandle := acc.Run(ctx)

	sessionCtx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	// sessions tracks every in-flight participant session under one
	// errgroup so shutdown can wait for them to drain instead of just
	// severing the context and walking away.
	var sessions errgroup.Group
	go acceptLoop(sessionCtx, acc, ab, &sessions, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down, notifying participants", "timeout", shutdownTimeout)
	ab.Shutdown(shutdownTimeout)

	cancelSessions()
	acceptorHandle.Kill()

	drained := make(chan struct{})
	go func() {
		sessions.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownTimeout):
		logger.Warn("sessions did not drain before shutdown timeout")
	}

	arbiterHandle.Kill()
	acc.Close()
}

func acceptLoop(ctx context.Context, acc *acceptor.Acceptor, ab *arbiter.Arbiter, sessions *errgroup.Group, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case accepted, ok := <-acc.Conns():
			if !ok {
				return
			}
			if accepted.Err != nil {
				logger.Error("acceptor stopped", "err", accepted.Err)
				return
			}
			conn := wire.NewConn(accepted.Conn)
			sessions.Go(func() error {
				runSession(ctx, conn, ab, logger)
				return nil
			})
		}
	}
}

// runHostLocalParticipant synthesizes the in-process participant spec.md's
// Design Notes call for: ClientId 0, handed its World directly via
// RegisterLocal instead of negotiating a handshake over a dialed
// connection. Rendering and input capture are out of scope (spec.md
// section 1's Non-goals), so this just keeps the participant's outbox
// draining for the lifetime of the process.
func runHostLocalParticipant(ctx context.Context, ab *arbiter.Arbiter, logger *log.Logger) {
	id, _, outbox := ab.RegisterLocal()
	logger.Info("host-local participant registered", "id", id)
	go func() {
		defer ab.Unregister(id)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-outbox:
				if !ok {
					return
				}
			}
		}
	}()
}

func runSession(ctx context.Context, conn *wire.Conn, ab *arbiter.Arbiter, logger *log.Logger) {
	id, _, outbox, err := session.Handshake(conn, ab)
	if err != nil {
		logger.Warn("handshake failed", "remote", conn.RemoteAddr(), "err", err)
		conn.Close()
		return
	}
	session.Run(ctx, conn, ab, id, outbox, logger)
}
