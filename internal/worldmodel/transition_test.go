package worldmodel

import (
	"testing"

	"github.com/coredrift/tilesync/internal/tilemap"
	"github.com/stretchr/testify/require"
)

func newWorldWithPlayer(t *testing.T, pos tilemap.Pos, client ClientId) (World, EntityId) {
	t.Helper()
	w := New()
	id := w.NextEntityId
	w.NextEntityId++
	w.entities = map[EntityId]Entity{
		id: {Pos: pos, Kind: PlayerKind{Client: client}},
	}
	return w, id
}

func TestMoveAccept(t *testing.T) {
	w, p := newWorldWithPlayer(t, tilemap.Pos{X: 0, Y: 0}, 1)
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: 1, Y: 0}, tilemap.Tile{Ground: tilemap.GroundGrass})

	next, deferred, err := HandleEvent(w, Some[ClientId](1), EvPlayerAction{Entity: p, Action: MoveAction{Dir: DirRight}})
	require.NoError(t, err)

	got, ok := next.Entity(p)
	require.True(t, ok)
	require.Equal(t, tilemap.Pos{X: 1, Y: 0}, got.Pos)

	require.Len(t, deferred, 1)
	require.Equal(t, EvEnter{Entity: p, Pos: tilemap.Pos{X: 1, Y: 0}}, deferred[0].Event)
}

func TestMoveRejectWater(t *testing.T) {
	w, p := newWorldWithPlayer(t, tilemap.Pos{X: 0, Y: 0}, 1)
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: 1, Y: 0}, tilemap.Tile{Ground: tilemap.GroundWater})

	next, deferred, err := HandleEvent(w, Some[ClientId](1), EvPlayerAction{Entity: p, Action: MoveAction{Dir: DirRight}})
	require.NoError(t, err)
	require.Empty(t, deferred)

	got, _ := next.Entity(p)
	require.Equal(t, tilemap.Pos{X: 0, Y: 0}, got.Pos, "world must be unchanged on a rejected move")
}

func TestAttackOnTreeYieldsLog(t *testing.T) {
	w, p := newWorldWithPlayer(t, tilemap.Pos{X: 0, Y: 0}, 1)
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: 1, Y: 0}, tilemap.Tile{Terrain: tilemap.TerrainTree})

	next, deferred, err := HandleEvent(w, Some[ClientId](1), EvPlayerAction{Entity: p, Action: AttackAction{Dir: DirRight}})
	require.NoError(t, err)

	require.Equal(t, tilemap.TerrainNone, next.Tiles.Get(tilemap.Pos{X: 1, Y: 0}).Terrain)

	require.Len(t, deferred, 1)
	create, ok := deferred[0].Event.(EvCreateEntity)
	require.True(t, ok)
	require.Equal(t, tilemap.Pos{X: 1, Y: 0}, create.Data.Pos)
	require.IsType(t, TreasureKind{}, create.Data.Kind)

	// A follow-up CreateEntity transition allocates the id and spawns it.
	final, spawned, err := HandleEvent(next, None[ClientId](), create)
	require.NoError(t, err)
	require.Equal(t, next.NextEntityId+1, final.NextEntityId)
	require.Len(t, spawned, 2)
	spawn, ok := spawned[0].Event.(EvSpawnEntity)
	require.True(t, ok)
	require.Equal(t, next.NextEntityId, spawn.Entity)
	enter, ok := spawned[1].Event.(EvEnter)
	require.True(t, ok)
	require.Equal(t, tilemap.Pos{X: 1, Y: 0}, enter.Pos)
}

func TestInventoryPickup(t *testing.T) {
	w := New()
	playerId := w.NextEntityId
	w.NextEntityId++
	treasureId := w.NextEntityId
	w.NextEntityId++

	pos := tilemap.Pos{X: 1, Y: 0}
	w.entities = map[EntityId]Entity{
		playerId:   {Pos: pos, Kind: PlayerKind{Client: 1}, Inventory: Some(Inventory{Cap: 64})},
		treasureId: {Pos: pos, Kind: TreasureKind{}, Inventory: Some(Inventory{Items: []ItemStack{{Item: ItemLog, Count: 1}}, Cap: 1})},
	}

	next, deferred, err := HandleEvent(w, None[ClientId](), EvEnter{Entity: playerId, Pos: pos})
	require.NoError(t, err)

	player, _ := next.Entity(playerId)
	require.Equal(t, []ItemStack{{Item: ItemLog, Count: 1}}, player.Inventory.Value.Items)

	treasure, _ := next.Entity(treasureId)
	require.Empty(t, treasure.Inventory.Value.Items)

	require.Len(t, deferred, 1)
	del, ok := deferred[0].Event.(EvDeleteEntity)
	require.True(t, ok)
	require.Equal(t, treasureId, del.Entity)
}

func TestAuthorizationFailure(t *testing.T) {
	w, p := newWorldWithPlayer(t, tilemap.Pos{X: 0, Y: 0}, 1)

	_, _, err := HandleEvent(w, Some[ClientId](2), EvPlayerAction{Entity: p, Action: MoveAction{Dir: DirLeft}})
	require.ErrorIs(t, err, ErrIllegalEvent)

	_, _, err = HandleEvent(w, Some[ClientId](2), EvDeleteEntity{Entity: p})
	require.ErrorIs(t, err, ErrIllegalEvent)
}

func TestHurtDeletesAtZeroHP(t *testing.T) {
	w := New()
	id := w.NextEntityId
	w.NextEntityId++
	w.entities = map[EntityId]Entity{
		id: {Pos: tilemap.Pos{}, Kind: TreasureKind{}, HP: Some(HP{Current: 1, Max: 3})},
	}

	nw, deferred := hurt(w, id, 1)
	got, _ := nw.Entity(id)
	require.Equal(t, int32(0), got.HP.Value.Current)
	require.Len(t, deferred, 1)
	del, ok := deferred[0].Event.(EvDeleteEntity)
	require.True(t, ok)
	require.Equal(t, id, del.Entity)
}

func TestDeterminism(t *testing.T) {
	w, p := newWorldWithPlayer(t, tilemap.Pos{X: 0, Y: 0}, 1)
	w.Tiles = w.Tiles.Set(tilemap.Pos{X: 1, Y: 0}, tilemap.Tile{Ground: tilemap.GroundGrass})

	ev := EvPlayerAction{Entity: p, Action: MoveAction{Dir: DirRight}}
	w1, d1, err1 := HandleEvent(w, Some[ClientId](1), ev)
	w2, d2, err2 := HandleEvent(w, Some[ClientId](1), ev)

	require.Equal(t, err1, err2)
	require.Equal(t, d1, d2)
	got1, _ := w1.Entity(p)
	got2, _ := w2.Entity(p)
	require.Equal(t, got1, got2)
}
