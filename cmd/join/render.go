package main

import (
	"io"

	"github.com/coredrift/tilesync/internal/draw"
	"github.com/coredrift/tilesync/internal/tilemap"
	"github.com/coredrift/tilesync/internal/worldmodel"
)

// viewRadius is how many tiles are drawn in each direction around the local
// player.
const viewRadius = 12

// termRenderer draws a fixed-radius window of the speculative world around
// the local player, reusing the teacher's ChunkWriter for buffered,
// single-flush terminal output instead of issuing one write per cell.
type termRenderer struct {
	out io.Writer
}

func newTermRenderer(out io.Writer) *termRenderer {
	return &termRenderer{out: out}
}

func (r *termRenderer) Render(world worldmodel.World, self worldmodel.ClientId) {
	cw := draw.NewChunkWriter(r.out, 0, 0)
	draw.ClearScreen(cw)

	center := tilemap.Pos{}
	if entId, ok := world.PlayerEntity(self); ok {
		if ent, ok := world.Entity(entId); ok {
			center = ent.Pos
		}
	}

	occupied := make(map[tilemap.Pos]rune, world.Len())
	for _, id := range world.SortedEntityIds() {
		ent, _ := world.Entity(id)
		occupied[ent.Pos] = entityGlyph(ent)
	}

	for row := -viewRadius; row <= viewRadius; row++ {
		col := 0
		for x := -viewRadius; x <= viewRadius; x++ {
			pos := tilemap.Pos{X: center.X + int32(x), Y: center.Y + int32(row)}
			glyph, isEntity := occupied[pos]
			if !isEntity {
				glyph = tileGlyph(world.Tiles.Get(pos))
			}
			cw.WriteAt(col+1, row+viewRadius+1, string(glyph))
			col++
		}
	}
	cw.Flush()
}

func entityGlyph(e worldmodel.Entity) rune {
	switch e.Kind.(type) {
	case worldmodel.PlayerKind:
		return '@'
	case worldmodel.TreasureKind:
		return '$'
	default:
		return '?'
	}
}

func tileGlyph(t tilemap.Tile) rune {
	if t.Roof != tilemap.RoofNone {
		return '#'
	}
	switch t.Terrain {
	case tilemap.TerrainTree:
		return 'T'
	case tilemap.TerrainEntrance:
		return 'D'
	}
	switch t.Ground {
	case tilemap.GroundWater:
		return '~'
	case tilemap.GroundGrass:
		return '.'
	default:
		return ' '
	}
}
