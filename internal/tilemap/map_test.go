package tilemap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetDefaultIsFree(t *testing.T) {
	m := New()
	require.True(t, m.Get(Pos{X: 5, Y: -5}).IsFree())
}

func TestSetGetRoundTrip(t *testing.T) {
	m := New()
	tile := Tile{Ground: GroundWater, Terrain: TerrainNone}
	m2 := m.Set(Pos{X: 3, Y: 4}, tile)

	require.Equal(t, tile, m2.Get(Pos{X: 3, Y: 4}))
	require.Equal(t, Tile{}, m.Get(Pos{X: 3, Y: 4}), "Set must not mutate the receiver")
}

func TestSetNegativeCoordinatesChunkConsistently(t *testing.T) {
	m := New()
	tile := Tile{Ground: GroundRock}
	m2 := m.Set(Pos{X: -1, Y: -1}, tile)
	require.Equal(t, tile, m2.Get(Pos{X: -1, Y: -1}))

	// Neighboring position within the same negative chunk stays default.
	require.Equal(t, Tile{}, m2.Get(Pos{X: -2, Y: -1}))
}

func TestSetUntouchedChunksShareIdentity(t *testing.T) {
	m := New()
	m = m.Set(Pos{X: 0, Y: 0}, Tile{Ground: GroundGrass})
	before := m.ChunkTiles(Pos{X: 5, Y: 5})

	m2 := m.Set(Pos{X: 100, Y: 100}, Tile{Ground: GroundRock})

	require.Equal(t, before, m2.ChunkTiles(Pos{X: 5, Y: 5}))
	require.Equal(t, Tile{Ground: GroundGrass}, m2.Get(Pos{X: 0, Y: 0}), "untouched chunk from m must survive in m2")
}

func TestIsFree(t *testing.T) {
	cases := []struct {
		name string
		tile Tile
		want bool
	}{
		{"default", Tile{}, true},
		{"water", Tile{Ground: GroundWater}, false},
		{"tree", Tile{Terrain: TerrainTree}, false},
		{"entrance", Tile{Terrain: TerrainEntrance}, true},
		{"water entrance still blocked", Tile{Ground: GroundWater, Terrain: TerrainEntrance}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.tile.IsFree())
		})
	}
}

func TestEuclideanDivMod(t *testing.T) {
	q, r := euclideanDivMod(-1, ChunkSize)
	require.Equal(t, int32(-1), q)
	require.Equal(t, int32(31), r)

	q, r = euclideanDivMod(31, ChunkSize)
	require.Equal(t, int32(0), q)
	require.Equal(t, int32(31), r)

	q, r = euclideanDivMod(32, ChunkSize)
	require.Equal(t, int32(1), q)
	require.Equal(t, int32(0), r)
}
