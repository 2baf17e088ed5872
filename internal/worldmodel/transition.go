package worldmodel

import (
	"errors"

	"github.com/coredrift/tilesync/internal/tilemap"
)

// ErrIllegalEvent is the sole failure mode of HandleEvent: an
// authorization check failed, or a server-internal event referenced an
// entity that does not exist.
var ErrIllegalEvent = errors.New("worldmodel: illegal event")

// HandleEvent is the sole authoritative state transition. It is
// deterministic and has no observable effect on w: every code path either
// returns w unchanged or a value produced by w.clone(). The returned
// []DeferredEvent carries events to apply after ev itself, ordered by the
// rule in transition.go's Attack handling: per-entity damage first, in
// ascending entity-id order, then any tile-break spawn.
func HandleEvent(w World, sender Option[ClientId], ev WorldEvent) (World, []DeferredEvent, error) {
	if err := authorize(w, sender, ev); err != nil {
		return w, nil, err
	}

	switch e := ev.(type) {
	case EvPlayerAction:
		return applyPlayerAction(w, e)
	case EvSpawnEntity:
		nw := w.clone()
		nw.entities[e.Entity] = e.Data
		return nw, nil, nil
	case EvDeleteEntity:
		if _, ok := w.Entity(e.Entity); !ok {
			return w, nil, nil
		}
		nw := w.clone()
		delete(nw.entities, e.Entity)
		return nw, nil, nil
	case EvCreateEntity:
		nw := w.clone()
		newId := nw.NextEntityId
		nw.NextEntityId++
		return nw, []DeferredEvent{
			{OffsetMillis: 0, Event: EvSpawnEntity{Entity: newId, Data: e.Data}},
			{OffsetMillis: 0, Event: EvEnter{Entity: newId, Pos: e.Data.Pos}},
		}, nil
	case EvEnter:
		return applyEnter(w, e)
	default:
		return w, nil, ErrIllegalEvent
	}
}

// authorize implements the sender-based pre-check from spec.md section
// 4.C3: server-internal events (sender absent) are always permitted;
// client-submitted events must be a PlayerAction owned by the sender.
func authorize(w World, sender Option[ClientId], ev WorldEvent) error {
	if !sender.Valid {
		return nil
	}
	action, ok := ev.(EvPlayerAction)
	if !ok {
		return ErrIllegalEvent
	}
	entity, ok := w.Entity(action.Entity)
	if !ok || !entity.IsPlayer(sender.Value) {
		return ErrIllegalEvent
	}
	return nil
}

func applyPlayerAction(w World, e EvPlayerAction) (World, []DeferredEvent, error) {
	entity, ok := w.Entity(e.Entity)
	if !ok {
		return w, nil, ErrIllegalEvent
	}

	switch a := e.Action.(type) {
	case MoveAction:
		return applyMove(w, e.Entity, entity, a.Dir)
	case AttackAction:
		return applyAttack(w, entity, a.Dir)
	default:
		return w, nil, ErrIllegalEvent
	}
}

func applyMove(w World, id EntityId, entity Entity, dir Dir) (World, []DeferredEvent, error) {
	cur := entity.Pos
	next := cur.Add(dir.ToVec())

	if !w.IsFree(next) {
		return w, nil, nil
	}
	if !roofCrossingAllowed(w.Tiles.Get(cur), w.Tiles.Get(next)) {
		return w, nil, nil
	}

	nw := w.clone()
	entity.Pos = next
	nw.entities[id] = entity

	return nw, []DeferredEvent{{OffsetMillis: 0, Event: EvEnter{Entity: id, Pos: next}}}, nil
}

// roofCrossingAllowed implements the Move roof-crossing predicate: same
// roof on both sides, or crossing an Entrance from/to the open.
func roofCrossingAllowed(cur, next tilemap.Tile) bool {
	if cur.Roof == next.Roof {
		return true
	}
	if cur.Roof == tilemap.RoofNone && next.Terrain == tilemap.TerrainEntrance {
		return true
	}
	if next.Roof == tilemap.RoofNone && cur.Terrain == tilemap.TerrainEntrance {
		return true
	}
	return false
}

func applyAttack(w World, source Entity, dir Dir) (World, []DeferredEvent, error) {
	target := source.Pos.Add(dir.ToVec())

	if w.Tiles.Get(source.Pos).Roof != w.Tiles.Get(target).Roof {
		return w, nil, nil
	}

	nw := w.clone()
	var deferred []DeferredEvent

	for _, id := range nw.SortedEntityIds() {
		if nw.entities[id].Pos != target {
			continue
		}
		var hit []DeferredEvent
		nw, hit = hurt(nw, id, 1)
		deferred = append(deferred, hit...)
	}

	var brokeDeferred []DeferredEvent
	nw, brokeDeferred = breakTile(nw, target)
	deferred = append(deferred, brokeDeferred...)

	return nw, deferred, nil
}

// hurt applies dmg to id's hit points, if it has any, enqueuing a deferred
// EvDeleteEntity when Current drops to or below zero.
func hurt(w World, id EntityId, dmg int32) (World, []DeferredEvent) {
	entity, ok := w.entities[id]
	if !ok || !entity.HP.Valid {
		return w, nil
	}
	hp := entity.HP.Value
	hp.Current -= dmg
	entity.HP = Some(hp)
	w.entities[id] = entity

	if hp.Current <= 0 {
		return w, []DeferredEvent{{OffsetMillis: 0, Event: EvDeleteEntity{Entity: id}}}
	}
	return w, nil
}

// treasureCap bounds how much a tile-break treasure drop can hold. It only
// ever carries the single item breakTile creates it with.
const treasureCap = 1

// breakTile clears a Tree terrain, if present, and enqueues a deferred
// EvCreateEntity for a one-Log treasure at pos. Other terrains are
// unaffected.
func breakTile(w World, pos tilemap.Pos) (World, []DeferredEvent) {
	tile := w.Tiles.Get(pos)
	if tile.Terrain != tilemap.TerrainTree {
		return w, nil
	}

	broken := tile
	broken.Terrain = tilemap.TerrainNone

	nw := w
	nw.Tiles = w.Tiles.Set(pos, broken)

	treasure := Entity{
		Pos:       pos,
		Kind:      TreasureKind{},
		Inventory: Some(Inventory{Items: []ItemStack{{Item: ItemLog, Count: 1}}, Cap: treasureCap}),
	}
	return nw, []DeferredEvent{{OffsetMillis: 0, Event: EvCreateEntity{Data: treasure}}}
}

// applyEnter merges the inventories of every other entity occupying e.Pos
// into the entering entity's inventory (if it has one), deleting any
// merged-from Treasure that ends up empty.
func applyEnter(w World, e EvEnter) (World, []DeferredEvent, error) {
	entering, ok := w.Entity(e.Entity)
	if !ok || !entering.Inventory.Valid {
		return w, nil, nil
	}

	nw := w.clone()
	var deferred []DeferredEvent

	for _, id := range nw.SortedEntityIds() {
		if id == e.Entity {
			continue
		}
		other := nw.entities[id]
		if other.Pos != e.Pos || !other.Inventory.Valid {
			continue
		}

		merged, remainder := entering.Inventory.Value.merge(other.Inventory.Value)
		entering.Inventory = Some(merged)
		other.Inventory = Some(remainder)
		nw.entities[id] = other

		if _, isTreasure := other.Kind.(TreasureKind); isTreasure && remainder.isEmpty() {
			deferred = append(deferred, DeferredEvent{OffsetMillis: 0, Event: EvDeleteEntity{Entity: id}})
		}
	}
	nw.entities[e.Entity] = entering

	return nw, deferred, nil
}
