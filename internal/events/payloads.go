package events

import "github.com/mistvale/chunkserver/internal/model"

// Client ingress payloads. Field tags mirror the wire body of the
// corresponding eventType; the dispatcher unmarshals straight into them.

// JoinClient binds a transport client to its character id.
type JoinClient struct {
	CharacterID int64 `json:"id"`
}

// MoveCharacter updates a character's position.
type MoveCharacter struct {
	CharacterID int64   `json:"id"`
	PosX        float64 `json:"posX"`
	PosY        float64 `json:"posY"`
	PosZ        float64 `json:"posZ"`
	RotZ        float64 `json:"rotZ"`
}

// PlayerAttack initiates a skill against a target.
type PlayerAttack struct {
	SkillSlug  string `json:"skillSlug"`
	TargetID   int64  `json:"targetId"`
	TargetType string `json:"targetType"`
}

// InterruptCombatAction cancels the requesting character's ongoing cast.
type InterruptCombatAction struct {
	Reason string `json:"reason,omitempty"`
}

// SpawnMobsInZone forces a population check. ZoneID 0 means every zone.
type SpawnMobsInZone struct {
	ZoneID int64 `json:"zoneId,omitempty"`
}

// HarvestStart begins harvesting a corpse.
type HarvestStart struct {
	CorpseUID int64 `json:"corpseUid"`
}

// HarvestCancel aborts the requesting character's harvest.
type HarvestCancel struct {
	CorpseUID int64 `json:"corpseUid,omitempty"`
}

// GetNearbyCorpses lists corpses around the character.
type GetNearbyCorpses struct {
	Radius float64 `json:"radius,omitempty"`
}

// CorpseLootPickup moves harvested loot into the inventory. PlayerID
// must echo the requesting character, a cheap spoof check.
type CorpseLootPickup struct {
	CorpseUID int64                  `json:"corpseUid"`
	PlayerID  int64                  `json:"playerId"`
	Items     []model.InventoryEntry `json:"items"`
}

// CorpseLootInspect lists harvested loot without taking it.
type CorpseLootInspect struct {
	CorpseUID int64 `json:"corpseUid"`
}

// ItemPickup takes a ground drop.
type ItemPickup struct {
	ItemUID int64 `json:"itemUid"`
}

// GetNearbyItems lists ground drops around the character.
type GetNearbyItems struct {
	Radius float64 `json:"radius,omitempty"`
}

// Upstream replication payloads. The link reader unmarshals the framed
// game-server bodies into these.

// MobAttributes is one row of a SET_ALL_MOBS_ATTRIBUTES batch.
type MobAttributes struct {
	MobID      int64            `json:"mobId"`
	Attributes model.Attributes `json:"attributes"`
}

// SetAllMobsAttributes merges attribute sets into registered templates.
type SetAllMobsAttributes struct {
	Mobs []MobAttributes `json:"mobs"`
}

// MobSkills is one row of a SET_ALL_MOBS_SKILLS batch.
type MobSkills struct {
	MobID  int64         `json:"mobId"`
	Skills []model.Skill `json:"skills"`
}

// SetAllMobsSkills merges skill lists into registered templates.
type SetAllMobsSkills struct {
	Mobs []MobSkills `json:"mobs"`
}

// SetCharacterAttributes refreshes one character's attribute set.
type SetCharacterAttributes struct {
	CharacterID int64            `json:"characterId"`
	Attributes  model.Attributes `json:"attributes"`
}

// SetAllSpawnZones replaces the spawn zone catalog.
type SetAllSpawnZones struct {
	Zones []model.SpawnZone `json:"zones"`
}

// SetAllMobsList replaces the mob template catalog.
type SetAllMobsList struct {
	Mobs []model.MobTemplate `json:"mobs"`
}

// SetAllItemsList replaces the item catalog.
type SetAllItemsList struct {
	Items []model.ItemTemplate `json:"items"`
}

// SetMobLootInfo replaces one mob's loot table.
type SetMobLootInfo struct {
	MobID int64             `json:"mobId"`
	Loot  []model.LootEntry `json:"loot"`
}

// SetExpLevelTable replaces the experience table.
type SetExpLevelTable struct {
	Levels []model.ExpLevel `json:"levels"`
}

// Internal simulation payloads, produced by engines rather than parsed
// from the wire.

// HarvestComplete signals that a harvest timer elapsed.
type HarvestComplete struct {
	CharacterID int64
	CorpseUID   int64
}

// ItemDrop carries freshly rolled ground loot for broadcast.
type ItemDrop struct {
	Items []model.DroppedItem
}

// InventoryUpdate pushes a character's inventory after a mutation.
type InventoryUpdate struct {
	CharacterID int64
	Items       []model.InventoryEntry
}
