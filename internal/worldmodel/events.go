package worldmodel

import "github.com/coredrift/tilesync/internal/tilemap"

// PlayerAction is the payload of an EvPlayerAction: either a move or an
// attack in a cardinal direction.
type PlayerAction interface {
	isPlayerAction()
}

// MoveAction requests moving the acting entity one tile in Dir.
type MoveAction struct {
	Dir Dir
}

func (MoveAction) isPlayerAction() {}

// AttackAction requests striking whatever occupies the tile one step in Dir
// from the acting entity.
type AttackAction struct {
	Dir Dir
}

func (AttackAction) isPlayerAction() {}

// WorldEvent is the closed set of transitions HandleEvent accepts. New
// variants must be added here, in transition.go's type switch, and in the
// wire codec.
type WorldEvent interface {
	isWorldEvent()
}

// EvPlayerAction is a move or attack submitted on behalf of Entity.
type EvPlayerAction struct {
	Entity EntityId
	Action PlayerAction
}

func (EvPlayerAction) isWorldEvent() {}

// EvSpawnEntity inserts Data under the explicit id Entity. Callers must
// ensure Entity is unique; the only authoritative source of fresh ids is the
// deferred output of EvCreateEntity.
type EvSpawnEntity struct {
	Entity EntityId
	Data   Entity
}

func (EvSpawnEntity) isWorldEvent() {}

// EvDeleteEntity removes Entity. Silently succeeds if it is already absent.
type EvDeleteEntity struct {
	Entity EntityId
}

func (EvDeleteEntity) isWorldEvent() {}

// EvCreateEntity allocates a fresh EntityId for Data. The transition itself
// does not insert Data; it produces a deferred EvSpawnEntity (at the
// allocated id) and a deferred EvEnter so every insertion is broadcast with
// a stable id.
type EvCreateEntity struct {
	Data Entity
}

func (EvCreateEntity) isWorldEvent() {}

// EvEnter announces that Entity has arrived at Pos, triggering inventory
// merges with whatever else already occupies Pos.
type EvEnter struct {
	Entity EntityId
	Pos    tilemap.Pos
}

func (EvEnter) isWorldEvent() {}

// DeferredEvent is an event HandleEvent wants applied after its trigger,
// either immediately (OffsetMillis == 0, applied in the returned order) or
// after OffsetMillis of simulated time.
type DeferredEvent struct {
	OffsetMillis int64
	Event        WorldEvent
}
