package events

import "time"

// Kind discriminates event payloads.
type Kind int32

const (
	KindUnknown Kind = iota

	// Client ingress.
	KindJoinClient
	KindJoinCharacter
	KindMoveCharacter
	KindPingClient
	KindDisconnectClient
	KindSpawnMobsInZone
	KindGetConnectedClients
	KindPlayerAttack
	KindInterruptCombatAction
	KindHarvestStartRequest
	KindHarvestCancelled
	KindGetNearbyCorpses
	KindCorpseLootPickup
	KindCorpseLootInspect
	KindItemPickup
	KindGetNearbyItems
	KindGetPlayerInventory
	KindGetSpawnZones

	// Upstream replication.
	KindSetChunkData
	KindSetCharacterData
	KindSetCharacterAttributes
	KindSetAllSpawnZones
	KindSetAllMobsList
	KindSetAllMobsAttributes
	KindSetAllMobsSkills
	KindSetAllItemsList
	KindSetMobLootInfo
	KindSetExpLevelTable

	// Internal simulation.
	KindHarvestComplete
	KindItemDrop
	KindInventoryUpdate

	kindCount // sentinel, keep last
)

// Valid reports whether k is a known event kind. Queues reject events
// with out-of-range discriminants instead of propagating them.
func (k Kind) Valid() bool {
	return k > KindUnknown && k < kindCount
}

func (k Kind) String() string {
	switch k {
	case KindJoinClient:
		return "JOIN_CLIENT"
	case KindJoinCharacter:
		return "JOIN_CHARACTER"
	case KindMoveCharacter:
		return "MOVE_CHARACTER"
	case KindPingClient:
		return "PING_CLIENT"
	case KindDisconnectClient:
		return "DISCONNECT_CLIENT"
	case KindSpawnMobsInZone:
		return "SPAWN_MOBS_IN_ZONE"
	case KindGetConnectedClients:
		return "GET_CONNECTED_CLIENTS"
	case KindPlayerAttack:
		return "PLAYER_ATTACK"
	case KindInterruptCombatAction:
		return "INTERRUPT_COMBAT_ACTION"
	case KindHarvestStartRequest:
		return "HARVEST_START_REQUEST"
	case KindHarvestCancelled:
		return "HARVEST_CANCELLED"
	case KindGetNearbyCorpses:
		return "GET_NEARBY_CORPSES"
	case KindCorpseLootPickup:
		return "CORPSE_LOOT_PICKUP"
	case KindCorpseLootInspect:
		return "CORPSE_LOOT_INSPECT"
	case KindItemPickup:
		return "ITEM_PICKUP"
	case KindGetNearbyItems:
		return "GET_NEARBY_ITEMS"
	case KindGetPlayerInventory:
		return "GET_PLAYER_INVENTORY"
	case KindGetSpawnZones:
		return "GET_SPAWN_ZONES"
	case KindSetChunkData:
		return "SET_CHUNK_DATA"
	case KindSetCharacterData:
		return "SET_CHARACTER_DATA"
	case KindSetCharacterAttributes:
		return "SET_CHARACTER_ATTRIBUTES"
	case KindSetAllSpawnZones:
		return "SET_ALL_SPAWN_ZONES"
	case KindSetAllMobsList:
		return "SET_ALL_MOBS_LIST"
	case KindSetAllMobsAttributes:
		return "SET_ALL_MOBS_ATTRIBUTES"
	case KindSetAllMobsSkills:
		return "SET_ALL_MOBS_SKILLS"
	case KindSetAllItemsList:
		return "SET_ALL_ITEMS_LIST"
	case KindSetMobLootInfo:
		return "SET_MOB_LOOT_INFO"
	case KindSetExpLevelTable:
		return "SET_EXP_LEVEL_TABLE"
	case KindHarvestComplete:
		return "HARVEST_COMPLETE"
	case KindItemDrop:
		return "ITEM_DROP"
	case KindInventoryUpdate:
		return "INVENTORY_UPDATE"
	}
	return "UNKNOWN"
}

// Event is one unit of work on an ingress queue. Payload holds a typed
// struct from payloads.go discriminated by Kind. Payloads never carry a
// socket reference: handlers resolve sockets through the client registry
// by ClientID, which keeps closed connections from leaking across queues.
type Event struct {
	Kind         Kind
	ClientID     int64
	CharacterID  int64
	RequestID    string
	Hash         string
	ClientSendMs int64
	ReceivedAt   time.Time
	Payload      any
}
