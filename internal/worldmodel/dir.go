package worldmodel

import "github.com/coredrift/tilesync/internal/tilemap"

// Dir is one of the four cardinal movement/attack directions.
type Dir uint8

const (
	DirUp Dir = iota
	DirDown
	DirLeft
	DirRight
)

// ToVec returns the unit displacement for d.
func (d Dir) ToVec() tilemap.Pos {
	switch d {
	case DirUp:
		return tilemap.Pos{X: 0, Y: -1}
	case DirDown:
		return tilemap.Pos{X: 0, Y: 1}
	case DirLeft:
		return tilemap.Pos{X: -1, Y: 0}
	case DirRight:
		return tilemap.Pos{X: 1, Y: 0}
	default:
		return tilemap.Pos{}
	}
}
