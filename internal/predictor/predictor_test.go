package predictor

import (
	"testing"
	"time"

	"github.com/coredrift/tilesync/internal/hostlog"
	"github.com/coredrift/tilesync/internal/tilemap"
	"github.com/coredrift/tilesync/internal/wire"
	"github.com/coredrift/tilesync/internal/worldmodel"
	"github.com/stretchr/testify/require"
)

func worldWithPlayer(pos tilemap.Pos, client worldmodel.ClientId) (worldmodel.World, worldmodel.EntityId) {
	w := worldmodel.New()
	id := w.NextEntityId
	w.NextEntityId++
	w.SetEntityForDecode(id, worldmodel.NewPlayerEntity(client, pos))
	return w, id
}

func TestSubmitLocalAppliesSpeculatively(t *testing.T) {
	w, _ := worldWithPlayer(tilemap.Pos{X: 0, Y: 0}, 1)
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: 1, Y: 0}, tilemap.Tile{Ground: tilemap.GroundGrass})

	p := New(hostlog.New("test"), 1, w)
	msg := p.SubmitLocal(1, worldmodel.MoveAction{Dir: worldmodel.DirRight})

	pe, ok := msg.(wire.PlayerEvent)
	require.True(t, ok)
	require.Equal(t, worldmodel.EventId(1), pe.Id)

	ent, _ := p.Speculative().Entity(p.selfEntity)
	require.Equal(t, tilemap.Pos{X: 1, Y: 0}, ent.Pos)

	agreedEnt, _ := p.agreed.Entity(p.selfEntity)
	require.Equal(t, tilemap.Pos{X: 0, Y: 0}, agreedEnt.Pos, "agreed world must not move until confirmed")
}

func TestConfirmPurgesAwaitingAndAdvancesAgreed(t *testing.T) {
	w, id := worldWithPlayer(tilemap.Pos{X: 0, Y: 0}, 1)
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: 1, Y: 0}, tilemap.Tile{Ground: tilemap.GroundGrass})

	p := New(hostlog.New("test"), 1, w)
	p.SubmitLocal(1, worldmodel.MoveAction{Dir: worldmodel.DirRight})
	require.Len(t, p.awaiting, 1)

	p.Confirm(time.Second, wire.WorldEventMsg{
		Id:     1,
		Sender: worldmodel.Some[worldmodel.ClientId](1),
		Event:  worldmodel.EvPlayerAction{Entity: id, Action: worldmodel.MoveAction{Dir: worldmodel.DirRight}},
	})

	require.Empty(t, p.awaiting)
	agreedEnt, _ := p.agreed.Entity(id)
	require.Equal(t, tilemap.Pos{X: 1, Y: 0}, agreedEnt.Pos)
	specEnt, _ := p.Speculative().Entity(id)
	require.Equal(t, tilemap.Pos{X: 1, Y: 0}, specEnt.Pos)
}

func TestConfirmBindsSelfEntityFromOwnSpawn(t *testing.T) {
	// The real handshake hands the predictor a pre-spawn World (the arbiter
	// replies before self-posting the newcomer's CreateEntity), so selfEntity
	// starts unknown and Ready must stay false until the matching SpawnEntity
	// for this client's own Player entity is confirmed.
	w := worldmodel.New()
	p := New(hostlog.New("test"), 7, w)
	require.False(t, p.Ready())
	require.True(t, p.Alive(), "must not report died before selfEntity is even known")

	entity := worldmodel.NewPlayerEntity(7, tilemap.Pos{X: 2, Y: 0})
	p.Confirm(time.Second, wire.WorldEventMsg{
		Id:     1,
		Sender: worldmodel.None[worldmodel.ClientId](),
		Event:  worldmodel.EvSpawnEntity{Entity: 42, Data: entity},
	})

	require.True(t, p.Ready())
	ent, ok := p.Speculative().Entity(42)
	require.True(t, ok)
	require.Equal(t, tilemap.Pos{X: 2, Y: 0}, ent.Pos)
	require.True(t, p.Alive())
}

func TestConfirmDeleteMarksNotAlive(t *testing.T) {
	w, id := worldWithPlayer(tilemap.Pos{X: 0, Y: 0}, 1)
	p := New(hostlog.New("test"), 1, w)
	require.True(t, p.Alive())

	p.Confirm(time.Second, wire.WorldEventMsg{
		Id:     2,
		Sender: worldmodel.None[worldmodel.ClientId](),
		Event:  worldmodel.EvDeleteEntity{Entity: id},
	})

	require.False(t, p.Alive())
}
