package worldmodel

import (
	"sort"

	"github.com/coredrift/tilesync/internal/tilemap"
)

// World is an immutable snapshot of the replicated game state. Every
// mutation goes through HandleEvent, which returns a new World and leaves
// its receiver untouched — callers may keep handing out an old snapshot
// (e.g. to a client that just connected) while the arbiter moves on to the
// next one.
type World struct {
	entities     map[EntityId]Entity
	NextEntityId EntityId
	Tiles        *tilemap.Map
}

// New returns an empty world over an empty tile map.
func New() World {
	return World{
		entities:     make(map[EntityId]Entity),
		NextEntityId: 1,
		Tiles:        tilemap.New(),
	}
}

// Entity returns the entity at id and whether it exists.
func (w World) Entity(id EntityId) (Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// SortedEntityIds returns every entity id in ascending order, giving
// rendering and tie-break rules a deterministic iteration order over an
// otherwise unordered Go map.
func (w World) SortedEntityIds() []EntityId {
	ids := make([]EntityId, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of entities in the world.
func (w World) Len() int {
	return len(w.entities)
}

// EntitiesAt returns, in ascending id order, every entity occupying pos.
func (w World) EntitiesAt(pos tilemap.Pos) []EntityId {
	var out []EntityId
	for _, id := range w.SortedEntityIds() {
		if w.entities[id].Pos == pos {
			out = append(out, id)
		}
	}
	return out
}

// PlayerEntity returns the id of the Player(c) entity, if one exists.
func (w World) PlayerEntity(c ClientId) (EntityId, bool) {
	for _, id := range w.SortedEntityIds() {
		if w.entities[id].IsPlayer(c) {
			return id, true
		}
	}
	return 0, false
}

// IsFree reports whether pos can be occupied: the tile itself must be free,
// and no colliding entity may already be there.
func (w World) IsFree(pos tilemap.Pos) bool {
	if !w.Tiles.Get(pos).IsFree() {
		return false
	}
	for id := range w.entities {
		if w.entities[id].Pos == pos && w.entities[id].HasCollision() {
			return false
		}
	}
	return true
}

// SetEntityForDecode installs an entity at id, used only by wire.decodeWorld
// while rebuilding a World from a snapshot frame. Ordinary transitions never
// call this; they go through HandleEvent.
func (w *World) SetEntityForDecode(id EntityId, e Entity) {
	w.entities[id] = e
}

// clone returns a World with its own entity map (a shallow copy of every
// Entity value) so the receiver is never mutated by the caller that asked
// for the clone. Tiles is shared; tilemap.Map.Set already copy-on-writes.
func (w World) clone() World {
	next := World{
		entities:     make(map[EntityId]Entity, len(w.entities)),
		NextEntityId: w.NextEntityId,
		Tiles:        w.Tiles,
	}
	for id, e := range w.entities {
		next.entities[id] = e
	}
	return next
}
