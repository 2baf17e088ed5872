package acceptor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/coredrift/tilesync/internal/hostlog"
	"github.com/stretchr/testify/require"
)

func TestAcceptorDeliversConnection(t *testing.T) {
	a, err := Listen("127.0.0.1:0", hostlog.New("test"))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := a.Run(ctx)
	defer h.Kill()

	dialed, err := net.Dial("tcp", a.Addr().String())
	require.NoError(t, err)
	defer dialed.Close()

	select {
	case accepted := <-a.Conns():
		require.NoError(t, accepted.Err)
		require.NotNil(t, accepted.Conn)
		accepted.Conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("no connection delivered")
	}
}

func TestAcceptorStopsOnCancel(t *testing.T) {
	a, err := Listen("127.0.0.1:0", hostlog.New("test"))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	h := a.Run(ctx)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor did not stop after cancellation")
	}
}
