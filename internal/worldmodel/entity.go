package worldmodel

import "github.com/coredrift/tilesync/internal/tilemap"

// EntityKind distinguishes a player-controlled entity from any other kind
// of world object. It is a closed set (Player, Treasure); new kinds must
// add a case to the type switch in Entity.HasCollision and to the wire codec.
type EntityKind interface {
	isEntityKind()
}

// PlayerKind marks an entity as the avatar of a connected client. At most
// one Player(c) entity may exist per ClientId in a given World.
type PlayerKind struct {
	Client ClientId
}

func (PlayerKind) isEntityKind() {}

// TreasureKind marks an entity as a pickup-able container with no client
// owner.
type TreasureKind struct{}

func (TreasureKind) isEntityKind() {}

// Item is a stackable inventory item type.
type Item uint8

const (
	ItemLog Item = iota
)

// ItemStack is a run of count identical items. count is always >= 1.
type ItemStack struct {
	Item  Item
	Count uint32
}

// HP is an entity's current and maximum hit points, with 0 <= Current <= Max.
type HP struct {
	Current int32
	Max     int32
}

// Inventory is a bounded bag of item stacks.
type Inventory struct {
	Items []ItemStack
	Cap   uint32
}

// total returns the summed count across every stack in the inventory.
func (inv Inventory) total() uint32 {
	var n uint32
	for _, s := range inv.Items {
		n += s.Count
	}
	return n
}

// isEmpty reports whether the inventory holds nothing.
func (inv Inventory) isEmpty() bool {
	return len(inv.Items) == 0
}

// merge folds other's stacks into inv, combining counts of matching item
// types and appending new ones, subject to inv.Cap. Returns the merged
// inventory and whatever could not fit (left in the remainder).
func (inv Inventory) merge(other Inventory) (merged, remainder Inventory) {
	merged = Inventory{Cap: inv.Cap, Items: append([]ItemStack(nil), inv.Items...)}
	remainder = Inventory{Cap: other.Cap}

	room := int64(inv.Cap) - int64(merged.total())
	for _, stack := range other.Items {
		take := stack.Count
		if room >= 0 && int64(take) > room {
			take = uint32(room)
		}
		if room < 0 {
			take = 0
		}
		if take > 0 {
			merged.Items = addStack(merged.Items, stack.Item, take)
			room -= int64(take)
		}
		if left := stack.Count - take; left > 0 {
			remainder.Items = addStack(remainder.Items, stack.Item, left)
		}
	}
	return merged, remainder
}

func addStack(items []ItemStack, item Item, count uint32) []ItemStack {
	for i := range items {
		if items[i].Item == item {
			items[i].Count += count
			return items
		}
	}
	return append(items, ItemStack{Item: item, Count: count})
}

// Entity is a single object in the world: a position, a kind, and optional
// hit points and inventory.
type Entity struct {
	Pos       tilemap.Pos
	Kind      EntityKind
	HP        Option[HP]
	Inventory Option[Inventory]
}

// HasCollision reports whether the entity occupies its tile exclusively.
// Players collide with each other and with tile geometry; treasure does
// not, so a player can walk onto and pick it up.
func (e Entity) HasCollision() bool {
	switch e.Kind.(type) {
	case PlayerKind:
		return true
	default:
		return false
	}
}

// IsPlayer reports whether e is the Player(c) entity for the given client.
func (e Entity) IsPlayer(c ClientId) bool {
	p, ok := e.Kind.(PlayerKind)
	return ok && p.Client == c
}
