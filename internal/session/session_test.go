package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/coredrift/tilesync/internal/hostlog"
	"github.com/coredrift/tilesync/internal/wire"
	"github.com/coredrift/tilesync/internal/worldmodel"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	id          worldmodel.ClientId
	world       worldmodel.World
	outbox      chan wire.Timestamped
	submitted   chan worldmodel.WorldEvent
	unregistered chan worldmodel.ClientId
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		id:           5,
		world:        worldmodel.New(),
		outbox:       make(chan wire.Timestamped, 8),
		submitted:    make(chan worldmodel.WorldEvent, 8),
		unregistered: make(chan worldmodel.ClientId, 1),
	}
}

func (f *fakeRegistrar) Register(name string) (worldmodel.ClientId, worldmodel.World, <-chan wire.Timestamped) {
	return f.id, f.world, f.outbox
}

func (f *fakeRegistrar) Unregister(id worldmodel.ClientId) {
	select {
	case f.unregistered <- id:
	default:
	}
}

func (f *fakeRegistrar) Submit(sender worldmodel.ClientId, id worldmodel.EventId, ev worldmodel.WorldEvent) {
	f.submitted <- ev
}

func TestHandshakeAssignsIdAndSendsWorld(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	reg := newFakeRegistrar()
	serverConn := wire.NewConn(serverSide)
	clientConn := wire.NewConn(clientSide)

	go func() {
		require.NoError(t, clientConn.Writer.SendString("alice"))
	}()

	var id worldmodel.ClientId
	done := make(chan struct{})
	go func() {
		var err error
		id, _, _, err = Handshake(serverConn, reg)
		require.NoError(t, err)
		close(done)
	}()

	gotId, err := clientConn.Reader.RecvClientId()
	require.NoError(t, err)
	require.Equal(t, reg.id, gotId)

	_, err = clientConn.Reader.RecvWorld()
	require.NoError(t, err)

	<-done
	require.Equal(t, reg.id, id)
}

func TestRunForwardsInboundAndOutbound(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	reg := newFakeRegistrar()
	serverConn := wire.NewConn(serverSide)
	clientConn := wire.NewConn(clientSide)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Run(ctx, serverConn, reg, reg.id, reg.outbox, hostlog.New("test"))

	require.NoError(t, clientConn.Writer.SendFromClient(wire.PlayerEvent{
		Id:    7,
		Event: worldmodel.EvEnter{Entity: 1},
	}))

	select {
	case ev := <-reg.submitted:
		_, ok := ev.(worldmodel.EvEnter)
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("inbound event never reached the registrar")
	}

	reg.outbox <- wire.Timestamped{Ts: time.Second, Msg: wire.NewClientId{Id: 9}}
	_, msg, err := clientConn.Reader.RecvToClient()
	require.NoError(t, err)
	require.Equal(t, wire.NewClientId{Id: 9}, msg)

	require.NoError(t, clientConn.Writer.SendFromClient(wire.Disconnect{}))
	select {
	case id := <-reg.unregistered:
		require.Equal(t, reg.id, id)
	case <-time.After(time.Second):
		t.Fatal("session never unregistered after Disconnect")
	}
}
