// Package session implements a single participant's connection to the host:
// the name/ClientId/World handshake, then a pair of inbound and outbound
// pumps linked so that either one exiting (peer gone, read error, send
// error) tears down the other — the Go equivalent of the teacher's paired
// client goroutines in internal/loop/client, expressed with task.Linked
// instead of a hand-rolled kill-handle swap.
package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coredrift/tilesync/internal/task"
	"github.com/coredrift/tilesync/internal/wire"
	"github.com/coredrift/tilesync/internal/worldmodel"
)

// Registrar is the subset of *arbiter.Arbiter a session needs, named as an
// interface so tests can substitute a fake.
type Registrar interface {
	Register(name string) (worldmodel.ClientId, worldmodel.World, <-chan wire.Timestamped)
	Unregister(id worldmodel.ClientId)
	Submit(sender worldmodel.ClientId, id worldmodel.EventId, ev worldmodel.WorldEvent)
}

// Handshake runs the connection's opening exchange: read the participant's
// name, register it with the arbiter, then send back its assigned ClientId
// and the bootstrap World. Per spec.md section 6, the ClientId and World are
// bare frames — untimestamped, unlike every (Duration, ToClientEvent) frame
// that follows — so they are sent with their own dedicated wire methods
// rather than through SendToClient. Returns the assigned id, that World and
// the client's outbox; the caller hands the id and the outbox to Run.
func Handshake(conn *wire.Conn, reg Registrar) (worldmodel.ClientId, worldmodel.World, <-chan wire.Timestamped, error) {
	name, err := conn.Reader.RecvString()
	if err != nil {
		return 0, worldmodel.World{}, nil, fmt.Errorf("session: reading name: %w", err)
	}

	id, world, outbox := reg.Register(name)

	if err := conn.Writer.SendClientId(id); err != nil {
		reg.Unregister(id)
		return 0, worldmodel.World{}, nil, fmt.Errorf("session: sending client id: %w", err)
	}
	if err := conn.Writer.SendWorld(world); err != nil {
		reg.Unregister(id)
		return 0, worldmodel.World{}, nil, fmt.Errorf("session: sending world: %w", err)
	}

	return id, world, outbox, nil
}

// Run drives one participant's inbound (client -> arbiter) and outbound
// (arbiter -> client) pumps for the lifetime of the connection. It blocks
// until both pumps have stopped, then unregisters the client.
func Run(ctx context.Context, conn *wire.Conn, reg Registrar, id worldmodel.ClientId, outbox <-chan wire.Timestamped, logger *log.Logger) {
	defer reg.Unregister(id)

	inbound := task.Spawn(ctx, func(ctx context.Context) {
		pumpInbound(ctx, conn, reg, id, logger)
	})
	outboundH := task.Spawn(ctx, func(ctx context.Context) {
		pumpOutbound(ctx, conn, outbox, logger)
	})
	task.Linked(inbound, outboundH)

	// Cancelling ctx does not interrupt a Recv already blocked on the
	// transport, so the connection is closed as soon as either pump stops.
	go func() {
		select {
		case <-inbound.Done():
		case <-outboundH.Done():
		}
		conn.Close()
	}()

	<-inbound.Done()
	<-outboundH.Done()
	conn.Close()
}

func pumpInbound(ctx context.Context, conn *wire.Conn, reg Registrar, id worldmodel.ClientId, logger *log.Logger) {
	for {
		msg, err := conn.Reader.RecvFromClient()
		if err != nil {
			if ctx.Err() == nil {
				logger.Debug("inbound pump ending", "client", id, "err", err)
			}
			return
		}

		switch m := msg.(type) {
		case wire.Disconnect:
			return
		case wire.PlayerEvent:
			reg.Submit(id, m.Id, m.Event)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func pumpOutbound(ctx context.Context, conn *wire.Conn, outbox <-chan wire.Timestamped, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-outbox:
			if !ok {
				return
			}
			if err := conn.Writer.SendToClient(item.Ts, item.Msg); err != nil {
				logger.Debug("outbound pump ending", "err", err)
				return
			}
			if _, isKick := item.Msg.(wire.Kick); isKick {
				return
			}
		}
	}
}
