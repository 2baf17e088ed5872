// Package tilemap implements the chunked, sparsely-populated tile grid the
// world renders and collides against.
package tilemap

// Ground is the base surface of a tile. The zero value means no ground is
// set (an absent chunk reads every tile this way).
type Ground uint8

const (
	GroundNone Ground = iota
	GroundGrass
	GroundRock
	GroundWater
)

// Terrain is an optional feature layered on top of Ground.
type Terrain uint8

const (
	TerrainNone Terrain = iota
	TerrainTree
	TerrainCliff
	TerrainEntrance
)

// Roof is an optional overhead layer; entities beneath different roofs
// cannot see or interact with each other except through an Entrance.
type Roof uint8

const (
	RoofNone Roof = iota
	RoofMountain
)

// Tile is a single grid cell. The zero value is a walkable, roofless,
// featureless tile — the default for every position in an absent chunk.
type Tile struct {
	Ground  Ground
	Terrain Terrain
	Roof    Roof
}

// IsFree reports whether the tile itself (ignoring entity occupancy) can be
// walked onto: not water, and either bare ground or an entrance.
func (t Tile) IsFree() bool {
	if t.Ground == GroundWater {
		return false
	}
	return t.Terrain == TerrainNone || t.Terrain == TerrainEntrance
}
