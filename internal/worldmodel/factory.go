package worldmodel

import "github.com/coredrift/tilesync/internal/tilemap"

// DefaultInventoryCap is the carrying capacity granted to a freshly spawned
// player.
const DefaultInventoryCap = 64

// DefaultPlayerHP is the hit points granted to a freshly spawned player.
const DefaultPlayerHP = 3

// NewPlayerEntity builds the Entity a host spawns for a newly connected
// client, per spec.md 4.C7's ClientConnected handling.
func NewPlayerEntity(client ClientId, pos tilemap.Pos) Entity {
	return Entity{
		Pos:       pos,
		Kind:      PlayerKind{Client: client},
		HP:        Some(HP{Current: DefaultPlayerHP, Max: DefaultPlayerHP}),
		Inventory: Some(Inventory{Cap: DefaultInventoryCap}),
	}
}
