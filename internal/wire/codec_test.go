package wire

import (
	"bytes"
	"net"
	"testing"

	"github.com/coredrift/tilesync/internal/tilemap"
	"github.com/coredrift/tilesync/internal/worldmodel"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, []byte("hello")))
	payload, err := readFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), payload)
}

func TestReadFrameShort(t *testing.T) {
	_, err := readFrame(bytes.NewReader([]byte{0, 0, 0, 5, 1, 2}))
	require.Error(t, err)
}

func TestWorldEventRoundTrip(t *testing.T) {
	cases := []worldmodel.WorldEvent{
		worldmodel.EvPlayerAction{Entity: 7, Action: worldmodel.MoveAction{Dir: worldmodel.DirUp}},
		worldmodel.EvPlayerAction{Entity: 7, Action: worldmodel.AttackAction{Dir: worldmodel.DirLeft}},
		worldmodel.EvSpawnEntity{Entity: 3, Data: worldmodel.Entity{
			Pos:  tilemap.Pos{X: 1, Y: -2},
			Kind: worldmodel.PlayerKind{Client: 9},
			HP:   worldmodel.Some(worldmodel.HP{Current: 2, Max: 3}),
		}},
		worldmodel.EvDeleteEntity{Entity: 4},
		worldmodel.EvCreateEntity{Data: worldmodel.Entity{
			Pos:  tilemap.Pos{X: 0, Y: 0},
			Kind: worldmodel.TreasureKind{},
			Inventory: worldmodel.Some(worldmodel.Inventory{
				Items: []worldmodel.ItemStack{{Item: worldmodel.ItemLog, Count: 1}},
				Cap:   1,
			}),
		}},
		worldmodel.EvEnter{Entity: 2, Pos: tilemap.Pos{X: 5, Y: 5}},
	}

	for _, ev := range cases {
		e := newEncoder()
		require.NoError(t, encodeWorldEvent(e, ev))
		got, err := decodeWorldEvent(newDecoder(e.bytes()))
		require.NoError(t, err)
		require.Equal(t, ev, got)
	}
}

func TestFromClientEventRoundTrip(t *testing.T) {
	cases := []FromClientEvent{
		Disconnect{},
		PlayerEvent{Id: 42, Event: worldmodel.EvPlayerAction{Entity: 1, Action: worldmodel.MoveAction{Dir: worldmodel.DirDown}}},
	}
	for _, msg := range cases {
		e := newEncoder()
		require.NoError(t, encodeFromClientEvent(e, msg))
		got, err := decodeFromClientEvent(newDecoder(e.bytes()))
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}

func TestToClientEventRoundTrip(t *testing.T) {
	cases := []ToClientEvent{
		NewClientId{Id: 3},
		RemoveClientId{Id: 3},
		Kick{Reason: "world full"},
		WorldEventMsg{
			Id:     11,
			Sender: worldmodel.Some[worldmodel.ClientId](3),
			Event:  worldmodel.EvEnter{Entity: 1, Pos: tilemap.Pos{X: 2, Y: 2}},
		},
		WorldEventMsg{
			Id:     12,
			Sender: worldmodel.None[worldmodel.ClientId](),
			Event:  worldmodel.EvDeleteEntity{Entity: 9},
		},
	}
	for _, msg := range cases {
		e := newEncoder()
		require.NoError(t, encodeToClientEvent(e, msg))
		got, err := decodeToClientEvent(newDecoder(e.bytes()))
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}

func TestWorldRoundTrip(t *testing.T) {
	w := worldmodel.New()
	w.SetEntityForDecode(1, worldmodel.NewPlayerEntity(5, tilemap.Pos{X: -3, Y: 4}))
	w.NextEntityId = 2
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: -3, Y: 4}, tilemap.Tile{Ground: tilemap.GroundGrass, Terrain: tilemap.TerrainTree})
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: 100, Y: 100}, tilemap.Tile{Ground: tilemap.GroundWater})

	e := newEncoder()
	require.NoError(t, encodeWorld(e, w))
	got, err := decodeWorld(newDecoder(e.bytes()))
	require.NoError(t, err)

	require.Equal(t, w.NextEntityId, got.NextEntityId)
	origEnt, _ := w.Entity(1)
	gotEnt, ok := got.Entity(1)
	require.True(t, ok)
	require.Equal(t, origEnt, gotEnt)
	require.Equal(t, w.Tiles.Get(tilemap.Pos{X: -3, Y: 4}), got.Tiles.Get(tilemap.Pos{X: -3, Y: 4}))
	require.Equal(t, w.Tiles.Get(tilemap.Pos{X: 100, Y: 100}), got.Tiles.Get(tilemap.Pos{X: 100, Y: 100}))
}

func TestConnSendRecv(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sConn := NewConn(server)
	cConn := NewConn(client)

	done := make(chan error, 1)
	go func() {
		done <- sConn.Writer.SendFromClient(PlayerEvent{Id: 1, Event: worldmodel.EvEnter{Entity: 1, Pos: tilemap.Pos{}}})
	}()

	got, err := cConn.Reader.RecvFromClient()
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, PlayerEvent{Id: 1, Event: worldmodel.EvEnter{Entity: 1, Pos: tilemap.Pos{}}}, got)
}
