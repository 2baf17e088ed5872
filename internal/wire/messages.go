package wire

import (
	"fmt"
	"time"

	"github.com/coredrift/tilesync/internal/tilemap"
	"github.com/coredrift/tilesync/internal/worldmodel"
)

// encodeDuration writes d as a (u64 seconds, u32 nanoseconds) pair, per
// spec.md section 6's host-frame timestamp format.
func encodeDuration(e *encoder, d time.Duration) {
	e.u64(uint64(d / time.Second))
	e.u32(uint32(d % time.Second))
}

func decodeDuration(d *decoder) (time.Duration, error) {
	secs, err := d.u64()
	if err != nil {
		return 0, err
	}
	nanos, err := d.u32()
	if err != nil {
		return 0, err
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos), nil
}

// Variant discriminants, in the declaration order spec.md section 6
// requires implementations to agree on.
const (
	tagEntityKindPlayer   uint32 = 0
	tagEntityKindTreasure uint32 = 1

	tagPlayerActionMove   uint32 = 0
	tagPlayerActionAttack uint32 = 1

	tagEventPlayerAction uint32 = 0
	tagEventSpawnEntity  uint32 = 1
	tagEventDeleteEntity uint32 = 2
	tagEventCreateEntity uint32 = 3
	tagEventEnter        uint32 = 4

	tagFromClientDisconnect  uint32 = 0
	tagFromClientPlayerEvent uint32 = 1

	tagToClientNewClientId    uint32 = 0
	tagToClientRemoveClientId uint32 = 1
	tagToClientKick           uint32 = 2
	tagToClientWorldEvent     uint32 = 3
)

func encodePos(e *encoder, p tilemap.Pos) {
	e.i32(p.X)
	e.i32(p.Y)
}

func decodePos(d *decoder) (tilemap.Pos, error) {
	x, err := d.i32()
	if err != nil {
		return tilemap.Pos{}, err
	}
	y, err := d.i32()
	if err != nil {
		return tilemap.Pos{}, err
	}
	return tilemap.Pos{X: x, Y: y}, nil
}

func encodeOptionClientId(e *encoder, o worldmodel.Option[worldmodel.ClientId]) {
	e.boolean(o.Valid)
	if o.Valid {
		e.u64(uint64(o.Value))
	}
}

func decodeOptionClientId(d *decoder) (worldmodel.Option[worldmodel.ClientId], error) {
	valid, err := d.boolean()
	if err != nil || !valid {
		return worldmodel.None[worldmodel.ClientId](), err
	}
	v, err := d.u64()
	if err != nil {
		return worldmodel.Option[worldmodel.ClientId]{}, err
	}
	return worldmodel.Some(worldmodel.ClientId(v)), nil
}

func encodeEntityKind(e *encoder, k worldmodel.EntityKind) error {
	switch kind := k.(type) {
	case worldmodel.PlayerKind:
		e.u32(tagEntityKindPlayer)
		e.u64(uint64(kind.Client))
	case worldmodel.TreasureKind:
		e.u32(tagEntityKindTreasure)
	default:
		return fmt.Errorf("wire: unknown entity kind %T", k)
	}
	return nil
}

func decodeEntityKind(d *decoder) (worldmodel.EntityKind, error) {
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagEntityKindPlayer:
		v, err := d.u64()
		if err != nil {
			return nil, err
		}
		return worldmodel.PlayerKind{Client: worldmodel.ClientId(v)}, nil
	case tagEntityKindTreasure:
		return worldmodel.TreasureKind{}, nil
	default:
		return nil, fmt.Errorf("wire: unknown entity kind tag %d", tag)
	}
}

func encodeHP(e *encoder, hp worldmodel.Option[worldmodel.HP]) {
	e.boolean(hp.Valid)
	if hp.Valid {
		e.i32(hp.Value.Current)
		e.i32(hp.Value.Max)
	}
}

func decodeHP(d *decoder) (worldmodel.Option[worldmodel.HP], error) {
	valid, err := d.boolean()
	if err != nil || !valid {
		return worldmodel.None[worldmodel.HP](), err
	}
	cur, err := d.i32()
	if err != nil {
		return worldmodel.Option[worldmodel.HP]{}, err
	}
	max, err := d.i32()
	if err != nil {
		return worldmodel.Option[worldmodel.HP]{}, err
	}
	return worldmodel.Some(worldmodel.HP{Current: cur, Max: max}), nil
}

func encodeInventory(e *encoder, inv worldmodel.Option[worldmodel.Inventory]) {
	e.boolean(inv.Valid)
	if !inv.Valid {
		return
	}
	e.u64(uint64(len(inv.Value.Items)))
	for _, stack := range inv.Value.Items {
		e.u8(uint8(stack.Item))
		e.u32(stack.Count)
	}
	e.u32(inv.Value.Cap)
}

func decodeInventory(d *decoder) (worldmodel.Option[worldmodel.Inventory], error) {
	valid, err := d.boolean()
	if err != nil || !valid {
		return worldmodel.None[worldmodel.Inventory](), err
	}
	n, err := d.u64()
	if err != nil {
		return worldmodel.Option[worldmodel.Inventory]{}, err
	}
	var items []worldmodel.ItemStack
	for i := uint64(0); i < n; i++ {
		item, err := d.u8()
		if err != nil {
			return worldmodel.Option[worldmodel.Inventory]{}, err
		}
		count, err := d.u32()
		if err != nil {
			return worldmodel.Option[worldmodel.Inventory]{}, err
		}
		items = append(items, worldmodel.ItemStack{Item: worldmodel.Item(item), Count: count})
	}
	cap, err := d.u32()
	if err != nil {
		return worldmodel.Option[worldmodel.Inventory]{}, err
	}
	return worldmodel.Some(worldmodel.Inventory{Items: items, Cap: cap}), nil
}

func encodeEntity(e *encoder, ent worldmodel.Entity) error {
	encodePos(e, ent.Pos)
	if err := encodeEntityKind(e, ent.Kind); err != nil {
		return err
	}
	encodeHP(e, ent.HP)
	encodeInventory(e, ent.Inventory)
	return nil
}

func decodeEntity(d *decoder) (worldmodel.Entity, error) {
	var ent worldmodel.Entity
	pos, err := decodePos(d)
	if err != nil {
		return ent, err
	}
	kind, err := decodeEntityKind(d)
	if err != nil {
		return ent, err
	}
	hp, err := decodeHP(d)
	if err != nil {
		return ent, err
	}
	inv, err := decodeInventory(d)
	if err != nil {
		return ent, err
	}
	ent.Pos, ent.Kind, ent.HP, ent.Inventory = pos, kind, hp, inv
	return ent, nil
}

func encodePlayerAction(e *encoder, a worldmodel.PlayerAction) error {
	switch action := a.(type) {
	case worldmodel.MoveAction:
		e.u32(tagPlayerActionMove)
		e.u8(uint8(action.Dir))
	case worldmodel.AttackAction:
		e.u32(tagPlayerActionAttack)
		e.u8(uint8(action.Dir))
	default:
		return fmt.Errorf("wire: unknown player action %T", a)
	}
	return nil
}

func decodePlayerAction(d *decoder) (worldmodel.PlayerAction, error) {
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	dir, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagPlayerActionMove:
		return worldmodel.MoveAction{Dir: worldmodel.Dir(dir)}, nil
	case tagPlayerActionAttack:
		return worldmodel.AttackAction{Dir: worldmodel.Dir(dir)}, nil
	default:
		return nil, fmt.Errorf("wire: unknown player action tag %d", tag)
	}
}

// encodeWorldEvent appends ev's tagged binary encoding to e. The
// FromClientEvent and ToClientEvent encoders both use it to embed a
// WorldEvent.
func encodeWorldEvent(e *encoder, ev worldmodel.WorldEvent) error {
	switch v := ev.(type) {
	case worldmodel.EvPlayerAction:
		e.u32(tagEventPlayerAction)
		e.u64(uint64(v.Entity))
		return encodePlayerAction(e, v.Action)
	case worldmodel.EvSpawnEntity:
		e.u32(tagEventSpawnEntity)
		e.u64(uint64(v.Entity))
		return encodeEntity(e, v.Data)
	case worldmodel.EvDeleteEntity:
		e.u32(tagEventDeleteEntity)
		e.u64(uint64(v.Entity))
		return nil
	case worldmodel.EvCreateEntity:
		e.u32(tagEventCreateEntity)
		return encodeEntity(e, v.Data)
	case worldmodel.EvEnter:
		e.u32(tagEventEnter)
		e.u64(uint64(v.Entity))
		encodePos(e, v.Pos)
		return nil
	default:
		return fmt.Errorf("wire: unknown world event %T", ev)
	}
}

func decodeWorldEvent(d *decoder) (worldmodel.WorldEvent, error) {
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagEventPlayerAction:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		action, err := decodePlayerAction(d)
		if err != nil {
			return nil, err
		}
		return worldmodel.EvPlayerAction{Entity: worldmodel.EntityId(id), Action: action}, nil
	case tagEventSpawnEntity:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		ent, err := decodeEntity(d)
		if err != nil {
			return nil, err
		}
		return worldmodel.EvSpawnEntity{Entity: worldmodel.EntityId(id), Data: ent}, nil
	case tagEventDeleteEntity:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		return worldmodel.EvDeleteEntity{Entity: worldmodel.EntityId(id)}, nil
	case tagEventCreateEntity:
		ent, err := decodeEntity(d)
		if err != nil {
			return nil, err
		}
		return worldmodel.EvCreateEntity{Data: ent}, nil
	case tagEventEnter:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		pos, err := decodePos(d)
		if err != nil {
			return nil, err
		}
		return worldmodel.EvEnter{Entity: worldmodel.EntityId(id), Pos: pos}, nil
	default:
		return nil, fmt.Errorf("wire: unknown world event tag %d", tag)
	}
}

// encodeWorld appends a full World snapshot (every populated chunk plus
// every entity) to e.
func encodeWorld(e *encoder, w worldmodel.World) error {
	e.u64(uint64(w.NextEntityId))

	ids := w.SortedEntityIds()
	e.u64(uint64(len(ids)))
	for _, id := range ids {
		ent, _ := w.Entity(id)
		e.u64(uint64(id))
		if err := encodeEntity(e, ent); err != nil {
			return err
		}
	}

	chunks := w.Tiles.Chunks()
	e.u64(uint64(len(chunks)))
	for _, c := range chunks {
		encodePos(e, c)
		tiles := w.Tiles.ChunkTiles(c)
		for _, t := range tiles {
			e.u8(uint8(t.Ground))
			e.u8(uint8(t.Terrain))
			e.u8(uint8(t.Roof))
		}
	}
	return nil
}

func decodeWorld(d *decoder) (worldmodel.World, error) {
	w := worldmodel.New()

	nextId, err := d.u64()
	if err != nil {
		return w, err
	}
	w.NextEntityId = worldmodel.EntityId(nextId)

	entCount, err := d.u64()
	if err != nil {
		return w, err
	}
	for i := uint64(0); i < entCount; i++ {
		id, err := d.u64()
		if err != nil {
			return w, err
		}
		ent, err := decodeEntity(d)
		if err != nil {
			return w, err
		}
		w.SetEntityForDecode(worldmodel.EntityId(id), ent)
	}

	chunkCount, err := d.u64()
	if err != nil {
		return w, err
	}
	for i := uint64(0); i < chunkCount; i++ {
		pos, err := decodePos(d)
		if err != nil {
			return w, err
		}
		var tiles [tilemap.ChunkSize * tilemap.ChunkSize]tilemap.Tile
		for j := range tiles {
			ground, err := d.u8()
			if err != nil {
				return w, err
			}
			terrain, err := d.u8()
			if err != nil {
				return w, err
			}
			roof, err := d.u8()
			if err != nil {
				return w, err
			}
			tiles[j] = tilemap.Tile{
				Ground:  tilemap.Ground(ground),
				Terrain: tilemap.Terrain(terrain),
				Roof:    tilemap.Roof(roof),
			}
		}
		w.Tiles.PutChunk(pos, tiles)
	}

	return w, nil
}

// Timestamped pairs a host-to-participant message with the arbiter's
// elapsed-time clock at broadcast time, matching the (Duration,
// ToClientEvent) frame shape spec.md section 6 requires on the wire. It is
// also the type carried end-to-end on a session's outbound queue, so the
// timestamp recorded at broadcast is the one actually written to the wire.
type Timestamped struct {
	Ts  time.Duration
	Msg ToClientEvent
}

// FromClientEvent is a participant-to-host message.
type FromClientEvent interface {
	isFromClientEvent()
}

// Disconnect tells the host this participant is leaving voluntarily.
type Disconnect struct{}

func (Disconnect) isFromClientEvent() {}

// PlayerEvent submits a speculative action for authoritative validation,
// tagged with the EventId the participant will use to match the
// confirmation.
type PlayerEvent struct {
	Id    worldmodel.EventId
	Event worldmodel.WorldEvent
}

func (PlayerEvent) isFromClientEvent() {}

// ToClientEvent is a host-to-participant message.
type ToClientEvent interface {
	isToClientEvent()
}

// NewClientId announces that a new participant joined with the given id.
type NewClientId struct {
	Id worldmodel.ClientId
}

func (NewClientId) isToClientEvent() {}

// RemoveClientId announces that a participant left.
type RemoveClientId struct {
	Id worldmodel.ClientId
}

func (RemoveClientId) isToClientEvent() {}

// Kick tells the participant why it is being disconnected.
type Kick struct {
	Reason string
}

func (Kick) isToClientEvent() {}

// WorldEventMsg is an authoritative event broadcast to every participant,
// carrying the EventId so the original submitter can reconcile it and the
// submitting ClientId (absent for server-internal events) so observers know
// whom to attribute it to.
type WorldEventMsg struct {
	Id     worldmodel.EventId
	Sender worldmodel.Option[worldmodel.ClientId]
	Event  worldmodel.WorldEvent
}

func (WorldEventMsg) isToClientEvent() {}

func encodeFromClientEvent(e *encoder, msg FromClientEvent) error {
	switch v := msg.(type) {
	case Disconnect:
		e.u32(tagFromClientDisconnect)
		return nil
	case PlayerEvent:
		e.u32(tagFromClientPlayerEvent)
		e.u64(uint64(v.Id))
		return encodeWorldEvent(e, v.Event)
	default:
		return fmt.Errorf("wire: unknown from-client event %T", msg)
	}
}

func decodeFromClientEvent(d *decoder) (FromClientEvent, error) {
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagFromClientDisconnect:
		return Disconnect{}, nil
	case tagFromClientPlayerEvent:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		ev, err := decodeWorldEvent(d)
		if err != nil {
			return nil, err
		}
		return PlayerEvent{Id: worldmodel.EventId(id), Event: ev}, nil
	default:
		return nil, fmt.Errorf("wire: unknown from-client event tag %d", tag)
	}
}

func encodeToClientEvent(e *encoder, msg ToClientEvent) error {
	switch v := msg.(type) {
	case NewClientId:
		e.u32(tagToClientNewClientId)
		e.u64(uint64(v.Id))
		return nil
	case RemoveClientId:
		e.u32(tagToClientRemoveClientId)
		e.u64(uint64(v.Id))
		return nil
	case Kick:
		e.u32(tagToClientKick)
		e.str(v.Reason)
		return nil
	case WorldEventMsg:
		e.u32(tagToClientWorldEvent)
		e.u64(uint64(v.Id))
		encodeOptionClientId(e, v.Sender)
		return encodeWorldEvent(e, v.Event)
	default:
		return fmt.Errorf("wire: unknown to-client event %T", msg)
	}
}

func decodeToClientEvent(d *decoder) (ToClientEvent, error) {
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagToClientNewClientId:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		return NewClientId{Id: worldmodel.ClientId(id)}, nil
	case tagToClientRemoveClientId:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		return RemoveClientId{Id: worldmodel.ClientId(id)}, nil
	case tagToClientKick:
		reason, err := d.str()
		if err != nil {
			return nil, err
		}
		return Kick{Reason: reason}, nil
	case tagToClientWorldEvent:
		id, err := d.u64()
		if err != nil {
			return nil, err
		}
		sender, err := decodeOptionClientId(d)
		if err != nil {
			return nil, err
		}
		ev, err := decodeWorldEvent(d)
		if err != nil {
			return nil, err
		}
		return WorldEventMsg{Id: worldmodel.EventId(id), Sender: sender, Event: ev}, nil
	default:
		return nil, fmt.Errorf("wire: unknown to-client event tag %d", tag)
	}
}
